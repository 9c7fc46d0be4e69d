package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/config"
	"github.com/techsola/tfvc-migrator/internal/migerr"
)

func TestParseRootPathChange(t *testing.T) {
	rc, err := config.ParseRootPathChange("CS42:$/New/Root")
	require.NoError(t, err)
	assert.Equal(t, 42, rc.Changeset)
	assert.Equal(t, "$/New/Root", rc.NewRootPath)
}

func TestParseRootPathChange_Malformed(t *testing.T) {
	for _, s := range []string{"CS42", "42:$/New", "CS42:New"} {
		_, err := config.ParseRootPathChange(s)
		require.Error(t, err, s)
		assert.True(t, migerr.Is(err, migerr.Configuration), s)
	}
}

func validOptions() *config.Options {
	return &config.Options{
		ProjectCollectionURL: "https://tfs.example.com/collection",
		RootPath:             "$/Proj",
		AuthorsPath:          "authors.txt",
		OutDir:               "out",
	}
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, config.Validate(validOptions()))
}

func TestValidate_MissingRootPathPrefix(t *testing.T) {
	o := validOptions()
	o.RootPath = "Proj"
	err := config.Validate(o)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.Configuration))
}

func TestValidate_MinGreaterThanMax(t *testing.T) {
	o := validOptions()
	o.MinChangeset = 10
	o.MaxChangeset = 5
	err := config.Validate(o)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.Configuration))
}

func TestValidate_DuplicateRootPathChangeChangeset(t *testing.T) {
	o := validOptions()
	o.MinChangeset = 1
	rc1, _ := config.ParseRootPathChange("CS5:$/A")
	rc2, _ := config.ParseRootPathChange("CS5:$/B")
	o.RootPathChanges = append(o.RootPathChanges, rc1, rc2)
	err := config.Validate(o)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.Configuration))
}

func TestValidate_RootPathChangeNotAfterInitial(t *testing.T) {
	o := validOptions()
	o.MinChangeset = 10
	rc, _ := config.ParseRootPathChange("CS5:$/A")
	o.RootPathChanges = append(o.RootPathChanges, rc)
	err := config.Validate(o)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.Configuration))
}
