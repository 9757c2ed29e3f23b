package networking

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// Broadcaster offers a single PCMU voice track to one remote peer.
//
// The flow mirrors a copy-paste signalling exchange:
//
//  1. Offer returns the encoded local description, with all ICE candidates gathered.
//  2. The remote peer answers; Accept applies the encoded answer.
//  3. Track is fed (e.g. by a LivePublisher) until Close.
type Broadcaster struct {
	logger *slog.Logger
	uuid   uuid.UUID

	peerConnection *webrtc.PeerConnection
	track          *webrtc.TrackLocalStaticSample

	// Closed once the peer connection is connected
	connected     chan struct{}
	connectedOnce sync.Once
	// Closed once the peer connection has failed or closed
	disconnected     chan struct{}
	disconnectedOnce sync.Once
}

func NewBroadcaster(config webrtc.Configuration) (*Broadcaster, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"broadcaster uuid", uuid,
	)

	peerConnection, err := webrtc.NewPeerConnection(config)
	if err != nil {
		logger.Error("error creating peer connection", "err", err)
		return nil, err
	}

	track, err := NewPCMUTrack(uuid.String())
	if err != nil {
		logger.Error("error creating audio track", "err", err)
		return nil, errors.Join(err, peerConnection.Close())
	}

	rtpSender, err := peerConnection.AddTrack(track)
	if err != nil {
		logger.Error("error adding audio track", "err", err)
		return nil, errors.Join(err, peerConnection.Close())
	}

	// Drain RTCP so interceptors keep running
	go func() {
		rtcpBuf := make([]byte, 1500)
		for {
			if _, _, rtcpErr := rtpSender.Read(rtcpBuf); rtcpErr != nil {
				return
			}
		}
	}()

	b := &Broadcaster{
		logger:         logger,
		uuid:           uuid,
		peerConnection: peerConnection,
		track:          track,
		connected:      make(chan struct{}),
		disconnected:   make(chan struct{}),
	}

	peerConnection.OnConnectionStateChange(func(pcs webrtc.PeerConnectionState) {
		logger.Info(
			"peer connection state change",
			"peer connection state", pcs.String(),
		)
		switch pcs {
		case webrtc.PeerConnectionStateConnected:
			b.connectedOnce.Do(func() { close(b.connected) })
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			b.disconnectedOnce.Do(func() { close(b.disconnected) })
		}
	})

	return b, nil
}

// Create the encoded offer, blocking until ICE gathering completes or ctx ends.
func (b *Broadcaster) Offer(ctx context.Context) (string, error) {
	offer, err := b.peerConnection.CreateOffer(nil)
	if err != nil {
		b.logger.Error("error creating offer", "err", err)
		return "", err
	}

	gatherComplete := webrtc.GatheringCompletePromise(b.peerConnection)
	if err := b.peerConnection.SetLocalDescription(offer); err != nil {
		b.logger.Error("error setting local description", "err", err)
		return "", err
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return EncodeSessionDescription(*b.peerConnection.LocalDescription())
}

// Apply the remote peer's encoded answer.
func (b *Broadcaster) Accept(encodedAnswer string) error {
	answer, err := DecodeSessionDescription(encodedAnswer)
	if err != nil {
		b.logger.Error("error decoding answer", "err", err)
		return err
	}
	if err := b.peerConnection.SetRemoteDescription(answer); err != nil {
		b.logger.Error("error setting remote description", "err", err)
		return err
	}
	return nil
}

func (b *Broadcaster) Track() *webrtc.TrackLocalStaticSample {
	return b.track
}

func (b *Broadcaster) Connected() <-chan struct{} {
	return b.connected
}

func (b *Broadcaster) Disconnected() <-chan struct{} {
	return b.disconnected
}

func (b *Broadcaster) Close() error {
	return b.peerConnection.Close()
}
