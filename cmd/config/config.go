package config

import (
	"errors"
	"io/fs"
	"log/slog"

	"github.com/playtalk/voicecapture/internal/audioapi"
	"github.com/playtalk/voicecapture/internal/utils"
	"github.com/playtalk/voicecapture/pkg/audiodevice"
	"github.com/playtalk/voicecapture/pkg/capture"
	"github.com/spf13/viper"
)

func LoadConfig(configFilePath string) {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}
}

// Capture session options from the loaded config.
func SessionOptions() capture.SessionOptions {
	return capture.SessionOptions{
		ChunkDivisor:     viper.GetInt("chunkdivisor"),
		LiveBufferChunks: viper.GetInt("livebufferchunks"),
		GrowthWarnBytes:  viper.GetInt("growthwarnbytes"),
	}
}

// Build the configured audio API, panicking on an unknown backend.
func AudioIODeviceAPI() audioapi.AudioIODeviceAPI {
	backend, err := audioapi.ParseAudioBackend(viper.GetString("backend"))
	if err != nil {
		slog.Error("error parsing audio backend", "err", err)
		panic(err)
	}

	api, err := audioapi.NewAudioIODeviceAPI(backend, audioapi.BackendOptions{
		BufferFrames: viper.GetInt("bufferframes"),
		InputFile:    viper.GetString("inputfile"),
		Paced:        true,
	})
	if err != nil {
		slog.Error("error creating audio api", "err", err)
		panic(err)
	}
	return api
}

// Build a LineOpener for the configured input device on api.
func LineOpener(api audioapi.AudioIODeviceAPI) audiodevice.LineOpener {
	id := viper.GetInt("inputdevice")
	if id < 0 {
		return audioapi.NewLineOpener(api, nil)
	}

	inputDevice, err := audioapi.FindInputDevice(api, id)
	if err != nil {
		slog.Error("error finding input device", "inputdevice", id, "err", err)
		panic(err)
	}
	slog.Info("using input device", "name", inputDevice.Name)
	return audioapi.NewLineOpener(api, &inputDevice)
}
