package networking

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

var (
	errMalformedSignal = errors.New("malformed session description")
)

// Encode a session description as base64 JSON, so it can be pasted between peers
// over any trusted channel.
func EncodeSessionDescription(sdp webrtc.SessionDescription) (string, error) {
	sdpJSON, err := json.Marshal(sdp)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sdpJSON), nil
}

// Decode a session description produced by EncodeSessionDescription.
// Surrounding whitespace (e.g. a trailing newline from a terminal) is ignored.
func DecodeSessionDescription(encoded string) (webrtc.SessionDescription, error) {
	var sdp webrtc.SessionDescription

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return sdp, fmt.Errorf("%w: %w", errMalformedSignal, err)
	}
	if err := json.Unmarshal(decoded, &sdp); err != nil {
		return sdp, fmt.Errorf("%w: %w", errMalformedSignal, err)
	}
	if sdp.SDP == "" {
		return sdp, errMalformedSignal
	}
	return sdp, nil
}
