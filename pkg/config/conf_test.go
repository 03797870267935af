package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/fraudboard/pkg/fraud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", FileName)

	c1, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Artifacts, c1.Artifacts)

	c1.Server.Port = 9090
	c1.Dashboard.Model = string(fraud.WithAnomaly)
	c1.Dashboard.Threshold = 0.3
	c1.Artifacts.CacheDir = "cache"

	require.NoError(t, Save(path, c1, false))
	assert.ErrorIs(t, Save(path, c1, false), ErrExists)
	assert.NoError(t, Save(path, c1, true))

	c2, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c2.Server.Port)
	assert.Equal(t, fraud.WithAnomaly, c2.Model())
	assert.InDelta(t, 0.3, c2.Dashboard.Threshold, 1e-12)
	assert.Equal(t, "cache", c2.Artifacts.CacheDir)
	assert.Equal(t, filepath.Dir(path), c2.Dir())
}

func TestLoad_Partial(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), fileMode))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, c.Server.Port)
	assert.Equal(t, defaultAddress, c.Server.Address)
	assert.Equal(t, fraud.DefaultModel, c.Model())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"port", "server:\n  port: 0\n"},
		{"model", "dashboard:\n  model: RandomForest\n"},
		{"threshold", "dashboard:\n  threshold: 1.5\n"},
		{"artifact", "artifacts:\n  eval:\n    labels: \"\"\n"},
		{"yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), fileMode))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load("")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "dash", FileName))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "dash", "saved_models", "y.csv"), c.Resolve("saved_models/y.csv"))
	assert.Equal(t, "/abs/y.csv", c.Resolve("/abs/y.csv"))
	assert.Equal(t, "https://example.com/y.csv", c.Resolve("https://example.com/y.csv"))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("http://example.com/a.json"))
	assert.True(t, IsRemote("https://example.com/a.json"))
	assert.False(t, IsRemote("saved_models/a.json"))
	assert.False(t, IsRemote("file:///tmp/a.json"))
	assert.False(t, IsRemote("https:///a.json"))
}
