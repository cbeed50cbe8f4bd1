package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg, v := NormalizeAndValidate(Default())
	require.True(t, v.OK(), v.Errors)
	assert.Equal(t, "London", cfg.Source.Location)
	assert.Equal(t, []string{"BAND_4", "BAND_5"}, cfg.Source.PayBands)
	assert.Equal(t, 5, cfg.Source.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Source.Delay)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, 10, cfg.Schedule.MaxPages)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestEnsureUserConfigAndLoad(t *testing.T) {
	dir := t.TempDir()
	path, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yml"), path)

	require.NoError(t, os.WriteFile(path, []byte("source:\n  location: Leeds\n  delay: 500ms\n"), 0o644))
	again, err := EnsureUserConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, path, again)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Leeds", cfg.Source.Location)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.Delay)
	assert.Equal(t, 38471, cfg.App.Port, "unset keys keep defaults")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"JOBWATCH_DATA_DIR": "/data",
		"PORT":              "9000",
		"LOG_LEVEL":         "DEBUG",
		"STORE_BACKEND":     "postgres",
		"STORE_ID":          "postgres://u@db/jobs",
		"CREDENTIALS_FILE":  "/run/secrets/pg",
		"SCHEDULE":          "1",
		"SCHEDULE_INTERVAL": "10m",
		"REDIS_URL":         "redis://cache:6379/0",
	}
	cfg := Default()
	require.NoError(t, ApplyEnv(&cfg, func(k string) string { return env[k] }))

	assert.Equal(t, "/data", cfg.App.DataDir)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://u@db/jobs", cfg.Store.DSN)
	assert.Equal(t, "/run/secrets/pg", cfg.Store.CredentialsFile)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.Interval)
	assert.Equal(t, "redis://cache:6379/0", cfg.Lock.RedisURL)

	_, v := NormalizeAndValidate(cfg)
	assert.True(t, v.OK(), v.Errors)
}

func TestApplyEnv_StoreIDIsPathForFileBackends(t *testing.T) {
	cfg := Default()
	env := map[string]string{"STORE_BACKEND": "csv", "STORE_ID": "jobs.csv", "JOBWATCH_DATA_DIR": "/data"}
	require.NoError(t, ApplyEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, filepath.Join("/data", "jobs.csv"), cfg.StorePath())

	cfg.Store.Path = "/abs/jobs.csv"
	assert.Equal(t, "/abs/jobs.csv", cfg.StorePath())
}

func TestStorePath_DefaultFollowsBackend(t *testing.T) {
	cfg := Default()
	cfg.App.DataDir = "/data"
	assert.Equal(t, filepath.Join("/data", "snapshot.db"), cfg.StorePath())

	env := map[string]string{"STORE_BACKEND": "csv"}
	require.NoError(t, ApplyEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, filepath.Join("/data", "snapshot.csv"), cfg.StorePath())
}

func TestParseBands(t *testing.T) {
	got, err := ParseBands([]string{"5", "band 6", "BAND_5", " band-7 "})
	require.NoError(t, err)
	assert.Equal(t, []string{"BAND_5", "BAND_6", "BAND_7"}, got)

	_, err = ParseBands([]string{"nurse"})
	assert.Error(t, err)
}

func TestApplyEnv_BadValues(t *testing.T) {
	cfg := Default()
	assert.Error(t, ApplyEnv(&cfg, func(k string) string {
		if k == "PORT" {
			return "http"
		}
		return ""
	}))
	assert.Error(t, ApplyEnv(&cfg, func(k string) string {
		if k == "SCHEDULE_INTERVAL" {
			return "often"
		}
		return ""
	}))
}

func TestNormalizeAndValidate(t *testing.T) {
	t.Run("bands normalized", func(t *testing.T) {
		cfg := Default()
		cfg.Source.PayBands = []string{"band 5", "5", " Band-6 ", ""}
		out, v := NormalizeAndValidate(cfg)
		assert.True(t, v.OK(), v.Errors)
		assert.Equal(t, []string{"BAND_5", "BAND_6"}, out.Source.PayBands)
	})

	t.Run("field errors use yaml names", func(t *testing.T) {
		cfg := Default()
		cfg.App.Port = 0
		cfg.Source.BaseURL = "not a url"
		cfg.Store.Backend = "sheets"
		_, v := NormalizeAndValidate(cfg)
		require.False(t, v.OK())
		joined := v.Err().Error()
		assert.Contains(t, joined, "app.port")
		assert.Contains(t, joined, "source.base_url")
		assert.Contains(t, joined, "store.backend")
	})

	t.Run("postgres needs dsn", func(t *testing.T) {
		cfg := Default()
		cfg.Store.Backend = "postgres"
		_, v := NormalizeAndValidate(cfg)
		assert.Contains(t, v.Errors, "store.dsn is required when store.backend=postgres")
	})

	t.Run("schedule interval", func(t *testing.T) {
		cfg := Default()
		cfg.Schedule.Enabled = true
		cfg.Schedule.Interval = 0
		_, v := NormalizeAndValidate(cfg)
		assert.False(t, v.OK())

		cfg.Schedule.Interval = 30 * time.Second
		_, v = NormalizeAndValidate(cfg)
		assert.True(t, v.OK())
		assert.NotEmpty(t, v.Warnings)
	})

	t.Run("low delay warns", func(t *testing.T) {
		cfg := Default()
		cfg.Source.Delay = 0
		_, v := NormalizeAndValidate(cfg)
		assert.True(t, v.OK())
		assert.NotEmpty(t, v.Warnings)
	})
}

func TestSaveAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := Default()
	cfg.Source.Location = "York"
	require.NoError(t, SaveAtomic(path, cfg))

	cfg.Source.Location = "Hull"
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Hull", got.Source.Location)
	assert.Equal(t, 2*time.Second, got.Source.Delay)

	prev, err := Load(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "York", prev.Source.Location)

	cfg.App.Port = -1
	assert.Error(t, SaveAtomic(path, cfg))
}
