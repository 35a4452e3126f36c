package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignHosts_RoundRobin(t *testing.T) {
	got, err := AssignHosts(AssignRoundRobin, make([]float64, 5), 2)
	require.NoError(t, err)
	assert.Equal(t, []WorkerID{0, 1, 0, 1, 0}, got)
}

func TestAssignHosts_EmptyPolicy_DefaultsToRoundRobin(t *testing.T) {
	got, err := AssignHosts("", make([]float64, 3), 3)
	require.NoError(t, err)
	assert.Equal(t, []WorkerID{0, 1, 2}, got)
}

func TestAssignHosts_Weighted_BalancesLoad(t *testing.T) {
	// GIVEN one heavy host and four light ones
	weights := []float64{1, 4, 1, 1, 1}

	// WHEN assigning across two workers
	got, err := AssignHosts(AssignWeighted, weights, 2)
	require.NoError(t, err)

	// THEN the heavy host sits alone and the light ones share the other worker
	assert.Equal(t, []WorkerID{1, 0, 1, 1, 1}, got)
}

func TestAssignHosts_Weighted_ZeroWeightsCountAsOne(t *testing.T) {
	got, err := AssignHosts(AssignWeighted, []float64{0, 0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []WorkerID{0, 1, 0, 1}, got)
}

func TestAssignHosts_Deterministic(t *testing.T) {
	weights := []float64{3, 1, 2, 2, 5, 1, 1}
	a, err := AssignHosts(AssignWeighted, weights, 3)
	require.NoError(t, err)
	b, err := AssignHosts(AssignWeighted, weights, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssignHosts_Errors(t *testing.T) {
	_, err := AssignHosts(AssignRoundRobin, []float64{1}, 0)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = AssignHosts("random", []float64{1}, 1)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestDescribeAssignment(t *testing.T) {
	assert.Equal(t, "[2 1]", describeAssignment([]WorkerID{0, 1, 0}, 2))
}
