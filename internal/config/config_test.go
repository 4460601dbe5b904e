package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardroom-server/internal/util"
)

func TestLoad_defaults(t *testing.T) {
	a := assert.New(t)

	unset := util.SetEnv("CARDROOM_CONFIG_FILE", "no-such-file.yaml")
	defer unset()

	c, err := Load()
	a.NoError(err)
	a.Equal(":5000", c.ListenAddr)
	a.Equal("./sql", c.MigrationsPath)
}

func TestLoad_fileAndEnvOverride(t *testing.T) {
	a := assert.New(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listenAddr: \":9999\"\npgDsn: from-file\n"), 0o600))

	unsetFile := util.SetEnv("CARDROOM_CONFIG_FILE", path)
	defer unsetFile()
	unsetDSN := util.SetEnv("CARDROOM_PG_DSN", "from-env")
	defer unsetDSN()

	c, err := Load()
	a.NoError(err)
	a.Equal(":9999", c.ListenAddr)
	// environment wins over the file
	a.Equal("from-env", c.PGDSN)
}
