package trace

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Digest folds one host's executed events into a running hash. Worker and
// round are left out so the value only depends on what the host did.
type Digest struct {
	host   uint32
	count  uint64
	hasher *xxhash.Digest
	buf    [8]byte
}

// NewDigest creates an empty digest for host.
func NewDigest(host uint32) *Digest {
	return &Digest{host: host, hasher: xxhash.New()}
}

// Fold adds r to the digest.
func (d *Digest) Fold(r EventRecord) {
	d.writeUint64(uint64(r.Time))
	d.writeUint64(r.Seq)
	d.writeUint64(uint64(r.Origin))
	d.writeUint64(uint64(r.Host))
	d.writeUint64(uint64(r.Delay))
	d.hasher.WriteString(r.Kind)
	d.count++
}

func (d *Digest) writeUint64(v uint64) {
	binary.BigEndian.PutUint64(d.buf[:], v)
	d.hasher.Write(d.buf[:])
}

// Sum returns the current hash.
func (d *Digest) Sum() uint64 {
	return d.hasher.Sum64()
}

// Count returns how many events were folded.
func (d *Digest) Count() uint64 {
	return d.count
}

// Host returns the host the digest belongs to.
func (d *Digest) Host() uint32 {
	return d.host
}

// Fingerprint combines per-host digests. Callers pass digests in host id
// order; the result identifies the run's complete event sequence.
func Fingerprint(digests []*Digest) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, d := range digests {
		binary.BigEndian.PutUint64(buf[:], uint64(d.host))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], d.count)
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], d.Sum())
		h.Write(buf[:])
	}
	return h.Sum64()
}
