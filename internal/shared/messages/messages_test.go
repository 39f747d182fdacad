package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m := Default()

	assert.NotEmpty(t, m.For(Connected))
	assert.NotEmpty(t, m.For("sync_failed"))
	assert.Equal(t, m.For(fallbackCode), m.For("no_such_code"))
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sync_failed":"Import failed","connected":""}`), 0o600))

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Import failed", m.For("sync_failed"))
	assert.Equal(t, Default().For(Connected), m.For(Connected), "empty override keeps the default")
	assert.Equal(t, Default().For("unauthorized"), m.For("unauthorized"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	m, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().For(Connected), m.For(Connected))
}
