package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseSimTime(t *testing.T) {
	tests := []struct {
		in      string
		want    SimTime
		wantErr bool
	}{
		{"0", 0, false},
		{"1500", 1500, false},
		{"10ms", 10 * SimTimeMillisecond, false},
		{"1.5s", 1500 * SimTimeMillisecond, false},
		{" 2us ", 2 * SimTimeMicrosecond, false},
		{"-1", 0, true},
		{"-5ms", 0, true},
		{"soon", 0, true},
		{"never", SimTimeMax, false},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSimTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSimTime_String(t *testing.T) {
	assert.Equal(t, "never", SimTimeMax.String())
	assert.Equal(t, "10ms", (10 * SimTimeMillisecond).String())
	assert.Equal(t, "0s", SimTime(0).String())
}

func TestSimTime_SaturatingAdd(t *testing.T) {
	assert.Equal(t, SimTime(15), SimTime(10).SaturatingAdd(5))
	assert.Equal(t, SimTimeMax, (SimTimeMax - 1).SaturatingAdd(10))
	assert.Equal(t, SimTimeMax, SimTimeMax.SaturatingAdd(1))
}

func TestSimTime_YAML_RoundTrip(t *testing.T) {
	var v struct {
		Lookahead SimTime `yaml:"lookahead"`
		End       SimTime `yaml:"end"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("lookahead: 250us\nend: 1000\n"), &v))
	assert.Equal(t, 250*SimTimeMicrosecond, v.Lookahead)
	assert.Equal(t, SimTime(1000), v.End)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	var back struct {
		Lookahead SimTime `yaml:"lookahead"`
		End       SimTime `yaml:"end"`
	}
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, v.Lookahead, back.Lookahead)
	assert.Equal(t, v.End, back.End)
}

func TestSimTime_YAML_RejectsNonScalar(t *testing.T) {
	var v struct {
		At SimTime `yaml:"at"`
	}
	err := yaml.Unmarshal([]byte("at: [1, 2]\n"), &v)
	assert.Error(t, err)
}
