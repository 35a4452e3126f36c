package sim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"config", configErrorf("end_time", "must be positive"), 2},
		{"wrapped config", fmt.Errorf("load: %w", configErrorf("x", "y")), 2},
		{"invariant", invariantErrorf(1, 2, 3, "boom"), 3},
		{"invalid assignment", ErrInvalidAssignment, 3},
		{"canceled", fmt.Errorf("%w: ctx", ErrCanceled), 1},
		{"other", errors.New("disk full"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestConfigError_Message(t *testing.T) {
	err := configErrorf("lookahead_bound", "must be positive, got %v", SimTime(0))
	assert.Equal(t, "configuration error: lookahead_bound: must be positive, got 0s", err.Error())
	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "lookahead_bound", ce.Field)
}

func TestHostFatalError_UnwrapsCause(t *testing.T) {
	cause := errors.New("segfault")
	err := &HostFatalError{Host: 4, Name: "db", Time: SimTimeMillisecond, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `host "db" (4) failed at 1ms`)
	assert.Equal(t, 1, ExitCode(err))
}
