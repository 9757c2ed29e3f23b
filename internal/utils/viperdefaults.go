package utils

import "github.com/spf13/viper"

// Set the viper defaults shared by the voicecapture binaries.
func SetViperDefaults() {
	viper.SetDefault("loglevel", "info")
	viper.SetDefault("logfile", "")

	// Capture source: "portaudio", "file" or "dummy"
	viper.SetDefault("backend", "portaudio")
	// Input device ID as listed by -list, or -1 for the default input
	viper.SetDefault("inputdevice", -1)
	viper.SetDefault("inputfile", "")
	// Line buffer capacity in frames: 100ms at 16kHz
	viper.SetDefault("bufferframes", 1600)

	viper.SetDefault("chunkdivisor", 5)
	viper.SetDefault("livebufferchunks", 64)
	// 0 disables buffer growth warnings
	viper.SetDefault("growthwarnbytes", 0)

	// Capture duration in seconds for record; 0 waits for an interrupt
	viper.SetDefault("duration", 0)
	viper.SetDefault("outputfile", "capture.wav")

	// Gain applied to the published stream
	viper.SetDefault("streamvolume", 1.0)

	viper.SetDefault("ICEServers", []string{"stun:stun.l.google.com:19302"})
}
