package utils

import (
	"errors"

	"github.com/pion/webrtc/v4"
)

var (
	errNoICEServers = errors.New("no ICE servers given")
)

// Build the peer connection configuration from a list of ICE server URLs.
func GetWebRTCConfiguration(iceServers []string) (webrtc.Configuration, error) {
	if len(iceServers) == 0 {
		return webrtc.Configuration{}, errNoICEServers
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: iceServers},
		},
	}, nil
}
