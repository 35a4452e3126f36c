package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// WriteJSONLines writes every event record of st to w, one JSON object per
// line, in record order.
func WriteJSONLines(w io.Writer, st *SimulationTrace) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	enc := json.NewEncoder(bw)
	for i := range st.Events {
		if err := enc.Encode(&st.Events[i]); err != nil {
			return fmt.Errorf("encode event record: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile writes st to path as JSON lines.
func WriteFile(path string, st *SimulationTrace) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	if err := WriteJSONLines(f, st); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSONLines parses records written by WriteJSONLines.
func ReadJSONLines(r io.Reader) ([]EventRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var records []EventRecord
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("unmarshal event record: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
