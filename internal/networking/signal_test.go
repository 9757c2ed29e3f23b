package networking

import (
	"context"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionDescriptionEncoding(t *testing.T) {
	sdp := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  "v=0\r\n",
	}

	encoded, err := EncodeSessionDescription(sdp)
	require.NoError(t, err)

	decoded, err := DecodeSessionDescription(encoded + "\n")
	require.NoError(t, err)
	assert.Equal(t, sdp, decoded)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, encoded := range []string{"not base64!", "bm90IGpzb24=", "e30="} {
		_, err := DecodeSessionDescription(encoded)
		assert.ErrorIs(t, err, errMalformedSignal, encoded)
	}
}

func TestBroadcasterOffersPCMU(t *testing.T) {
	b, err := NewBroadcaster(webrtc.Configuration{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, webrtc.MimeTypePCMU, b.Track().Codec().MimeType)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	encoded, err := b.Offer(ctx)
	require.NoError(t, err)

	offer, err := DecodeSessionDescription(encoded)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeOffer, offer.Type)
	assert.Contains(t, offer.SDP, "PCMU/8000")

	assert.Error(t, b.Accept("bm90IGpzb24="))
}

func TestBroadcasterConnectsToListener(t *testing.T) {
	b, err := NewBroadcaster(webrtc.Configuration{})
	require.NoError(t, err)
	defer b.Close()

	listener, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	defer listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	encodedOffer, err := b.Offer(ctx)
	require.NoError(t, err)
	offer, err := DecodeSessionDescription(encodedOffer)
	require.NoError(t, err)
	require.NoError(t, listener.SetRemoteDescription(offer))

	answer, err := listener.CreateAnswer(nil)
	require.NoError(t, err)
	gatherComplete := webrtc.GatheringCompletePromise(listener)
	require.NoError(t, listener.SetLocalDescription(answer))
	<-gatherComplete

	encodedAnswer, err := EncodeSessionDescription(*listener.LocalDescription())
	require.NoError(t, err)
	require.NoError(t, b.Accept(encodedAnswer))

	select {
	case <-b.Connected():
	case <-ctx.Done():
		t.Fatal("broadcaster never connected")
	}

	require.NoError(t, b.Close())
	select {
	case <-b.Disconnected():
	case <-ctx.Done():
		t.Fatal("closing did not disconnect")
	}
}
