package config

import (
	"path/filepath"
	"testing"

	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigToleratesMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, "portaudio", viper.GetString("backend"))

	options := SessionOptions()
	assert.Equal(t, 5, options.ChunkDivisor)
	assert.Equal(t, 64, options.LiveBufferChunks)
	assert.Zero(t, options.GrowthWarnBytes)
}

func TestDummyBackendOpensLine(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	viper.Set("backend", "dummy")
	viper.Set("inputdevice", 0)

	api := AudioIODeviceAPI()
	require.Len(t, api.InputDevices(), 1)

	line, err := LineOpener(api).OpenLine(audiodevice.VoiceFormat)
	require.NoError(t, err)
	assert.NoError(t, line.Close())
}

func TestUnknownBackendPanics(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("backend", "alsa")

	assert.Panics(t, func() { AudioIODeviceAPI() })
}
