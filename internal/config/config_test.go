package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/tmp/artriver"},
		Server: ServerConfig{Port: "8080"},
		Index:  IndexConfig{BatchSize: 100, BatchPause: 50 * time.Millisecond, SyncWindowHours: 24},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_InvalidEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.App.Environment = "testing"
	assert.Error(t, cfg.Validate())
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadBatchSize(t *testing.T) {
	cfg := validConfig()
	cfg.Index.BatchSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_BadSyncWindow(t *testing.T) {
	cfg := validConfig()
	cfg.Index.SyncWindowHours = -1
	assert.Error(t, cfg.Validate())
}

func TestDatabasePath(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, filepath.Join("/tmp/artriver", "artriver.db"), cfg.DatabasePath())
}

func TestExpandPath_Default(t *testing.T) {
	expanded, err := expandPath("", "/default/path")
	require.NoError(t, err)
	assert.Equal(t, "/default/path", expanded)
}

func TestExpandPath_Home(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/artriver", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "artriver"), expanded)
}

func TestExpandDataPath_UsesDefaultWhenEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	require.NoError(t, cfg.expandDataPath())
	assert.NotEmpty(t, cfg.Data.BasePath)
	assert.True(t, filepath.IsAbs(cfg.Data.BasePath))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("ARTRIVER_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "ARTRIVER_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "ARTRIVER_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "ARTRIVER_TEST_MISSING", "default"))
}

func TestGetIntConfigValue(t *testing.T) {
	t.Setenv("ARTRIVER_TEST_INT", "42")
	assert.Equal(t, 42, getIntConfigValue("", "ARTRIVER_TEST_INT", 7))

	t.Setenv("ARTRIVER_TEST_INT", "not-a-number")
	assert.Equal(t, 7, getIntConfigValue("", "ARTRIVER_TEST_INT", 7))
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "ARTRIVER_TEST_DUR_MISSING", "15s")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, d)

	_, err = parseDurationValue("bogus", "ARTRIVER_TEST_DUR_MISSING", "15s")
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nARTRIVER_TEST_ENVFILE=hello\nARTRIVER_TEST_QUOTED=\"world\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ARTRIVER_TEST_ENVFILE", "")
	t.Setenv("ARTRIVER_TEST_QUOTED", "")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "hello", os.Getenv("ARTRIVER_TEST_ENVFILE"))
	assert.Equal(t, "world", os.Getenv("ARTRIVER_TEST_QUOTED"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.Error(t, loadEnvFile(filepath.Join(t.TempDir(), "nope.env")))
}
