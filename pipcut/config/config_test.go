package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joomcode/errorx"
	"github.com/steelcutops/pipcut/pipcut/packagemanager"
	"github.com/steelcutops/pipcut/pipcut/pypi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipcut.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[pip]
command = /opt/venv/bin/pip
candidates = pip3, pip
sudo = true
lock_file = /var/lock/pipcut.lock

[index]
url = https://pypi.example.com/pypi
timeout = 10s
attempts = 5
backoff = 250ms

[hosts]
group1 = 127.0.0.1, 127.0.0.2
group2 = 127.0.0.3, 127.0.0.1

[package "flask"]
ensure = 2.0.1

[package "internal-lib"]
ensure = latest
source = git+https://git.example.com/internal-lib.git

[package "requests"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, PipConfig{
		Command:    "/opt/venv/bin/pip",
		Candidates: []string{"pip3", "pip"},
		Sudo:       true,
		LockFile:   "/var/lock/pipcut.lock",
	}, cfg.Pip)

	assert.Equal(t, IndexConfig{
		URL:      "https://pypi.example.com/pypi",
		Timeout:  10 * time.Second,
		Attempts: 5,
		Backoff:  250 * time.Millisecond,
	}, cfg.Index)

	assert.Equal(t, []HostGroup{
		{Name: "group1", Hosts: []string{"127.0.0.1", "127.0.0.2"}},
		{Name: "group2", Hosts: []string{"127.0.0.3", "127.0.0.1"}},
	}, cfg.HostGroups)
	assert.Equal(t, []string{"127.0.0.1", "127.0.0.2", "127.0.0.3"}, cfg.Hosts())

	assert.Equal(t, []packagemanager.ResourceSpec{
		{Name: "flask", Ensure: "2.0.1"},
		{Name: "internal-lib", Ensure: packagemanager.EnsureLatest, Source: "git+https://git.example.com/internal-lib.git"},
		{Name: "requests", Ensure: packagemanager.EnsureInstalled},
	}, cfg.Packages)

	assert.Equal(t, pypi.RetryPolicy{Attempts: 5, Backoff: 250 * time.Millisecond, Timeout: 10 * time.Second}, cfg.RetryPolicy())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[hosts]\n"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, []string{"pip"}, cfg.Pip.Candidates)
	assert.Equal(t, pypi.DefaultEndpoint, cfg.Index.URL)
	assert.Equal(t, pypi.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.Empty(t, cfg.Hosts())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, LoadError))
}

func TestLoadInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "[pip]\nsudo = maybe\n"))
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, InvalidError))

	_, err = Load(writeConfig(t, "[index]\nattempts = 0\n"))
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, InvalidError))
}
