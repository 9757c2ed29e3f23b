package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureDefaultLoggerLevels(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	for _, level := range []string{"none", "error", "warn", "info", "debug"} {
		f, err := ConfigureDefaultLogger(level, "", slog.HandlerOptions{})
		assert.NoError(t, err, level)
		assert.Nil(t, f, level)
	}

	_, err := ConfigureDefaultLogger("verbose", "", slog.HandlerOptions{})
	assert.ErrorIs(t, err, errUnexpectedLogLevel)
}

func TestConfigureDefaultLoggerWritesFile(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	logFile := filepath.Join(t.TempDir(), "capture.log")
	f, err := ConfigureDefaultLogger("debug", logFile, slog.HandlerOptions{})
	require.NoError(t, err)
	require.NotNil(t, f)

	slog.Debug("hello", "key", "value")
	require.NoError(t, f.Close())

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"msg":"hello"`)
	assert.Contains(t, string(contents), `"key":"value"`)
}

func TestSetViperDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetViperDefaults()

	assert.Equal(t, "portaudio", viper.GetString("backend"))
	assert.Equal(t, -1, viper.GetInt("inputdevice"))
	assert.Equal(t, 1600, viper.GetInt("bufferframes"))
	assert.Equal(t, 5, viper.GetInt("chunkdivisor"))
	assert.NotEmpty(t, viper.GetStringSlice("ICEServers"))
}

func TestGetWebRTCConfiguration(t *testing.T) {
	config, err := GetWebRTCConfiguration([]string{"stun:example.org:3478"})
	require.NoError(t, err)
	require.Len(t, config.ICEServers, 1)
	assert.Equal(t, []string{"stun:example.org:3478"}, config.ICEServers[0].URLs)

	_, err = GetWebRTCConfiguration(nil)
	assert.ErrorIs(t, err, errNoICEServers)
}
