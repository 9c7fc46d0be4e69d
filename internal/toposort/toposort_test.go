package toposort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/toposort"
)

func key(s string) string { return s }

func TestSort_StableWithDependency(t *testing.T) {
	deps := map[string][]string{"B": {"A"}}
	out, err := toposort.Sort([]string{"A", "B", "C"}, key, func(s string) []string { return deps[s] })
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, out)
}

func TestSort_StableNoDependencies(t *testing.T) {
	out, err := toposort.Sort([]string{"C", "B", "A"}, key, func(s string) []string { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A"}, out)
}

func TestSort_Cycle(t *testing.T) {
	deps := map[string][]string{"A": {"B"}, "B": {"A"}}
	_, err := toposort.Sort([]string{"A", "B"}, key, func(s string) []string { return deps[s] })
	require.Error(t, err)
	var terr *toposort.Error
	require.ErrorAs(t, err, &terr)
	assert.ElementsMatch(t, []string{"A", "B"}, terr.Cyclical)
}

func TestSort_ExternalDependency(t *testing.T) {
	deps := map[string][]string{"A": {"ghost"}}
	_, err := toposort.Sort([]string{"A"}, key, func(s string) []string { return deps[s] })
	require.Error(t, err)
	var terr *toposort.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, []string{"ghost"}, terr.ExternalDependencies)
	assert.Equal(t, []string{"A"}, terr.ExternalDependents)
}
