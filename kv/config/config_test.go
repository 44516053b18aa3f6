package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.Nil(t, NewDefaultConfig().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	c := NewDefaultConfig()
	c.DBPath = ""
	require.Error(t, c.Validate())

	c = NewDefaultConfig()
	c.Engine.NumMemTables = 0
	require.Error(t, c.Validate())

	c = NewDefaultConfig()
	c.Engine.NumL0TablesStall = c.Engine.NumL0Tables - 1
	require.Error(t, c.Validate())
}

func TestFromFileOverlaysDefaults(t *testing.T) {
	dir, err := ioutil.TempDir("", "pumpkindb_config")
	require.Nil(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "node.toml")
	body := `
db-path = "/data/pumpkindb"
log-level = "debug"

[engine]
num-mem-tables = 5
sync-writes = false
`
	require.Nil(t, ioutil.WriteFile(path, []byte(body), 0644))

	c, err := FromFile(path)
	require.Nil(t, err)
	require.Equal(t, "/data/pumpkindb", c.DBPath)
	require.Equal(t, "debug", c.LogLevel)
	require.Equal(t, 5, c.Engine.NumMemTables)
	require.False(t, c.Engine.SyncWrites)
	// untouched fields keep their defaults
	require.Equal(t, 20, c.Engine.ValueThreshold)
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile("/no/such/file.toml")
	require.Error(t, err)
}
