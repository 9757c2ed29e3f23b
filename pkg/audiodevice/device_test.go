package audiodevice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVoiceFormat(t *testing.T) {
	assert.Equal(t, 32000, VoiceFormat.BytesPerSecond())
	assert.Equal(t, DeviceProperties{SampleRate: 16000, NumChannels: 1}, VoiceFormat.Properties())
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int
		expected time.Duration
	}{
		{"empty", 0, 0},
		{"one second", 32000, time.Second},
		{"twenty milliseconds", 640, 20 * time.Millisecond},
		{"partial frame ignored", 641, 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VoiceFormat.Duration(tt.bytes))
		})
	}
}

func TestLineOpenerFunc(t *testing.T) {
	var got CaptureFormat
	opener := LineOpenerFunc(func(format CaptureFormat) (LineDevice, error) {
		got = format
		return nil, ErrDeviceUnavailable
	})

	_, err := opener.OpenLine(VoiceFormat)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Equal(t, VoiceFormat, got)
}
