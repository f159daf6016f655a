// Package broadcast fans frames and config-change notifications out to
// every subscribed client, and carries the out-of-band keyframe-request
// signal back to the ingest loop. Grounded on the teacher's
// api/websocket.go (WebSocketHub, Client.trySend drop-oldest policy),
// generalized from the teacher's per-device map into the single-session
// subscription model spec.md §4.G describes.
package broadcast

import (
	"sync"

	"github.com/scrcpyhost/scrcpy-host/internal/session"
)

const (
	frameChannelCapacity  = 2
	configChannelCapacity = 16
)

// Subscription is one client's view onto the broadcaster: a frame
// channel (binary NAL buffers, start-code prefixed) and a config
// channel (JSON text messages).
type Subscription struct {
	frames  chan []byte
	configs chan []byte
	b       *Broadcaster
}

// Frames returns the channel a client handler should forward as binary
// WebSocket messages.
func (s *Subscription) Frames() <-chan []byte { return s.frames }

// Configs returns the channel a client handler should forward as text
// WebSocket messages.
func (s *Subscription) Configs() <-chan []byte { return s.configs }

// Broadcaster owns the set of active subscriptions and the keyframe
// request signal.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}

	keyframeReq chan struct{}
}

// New constructs an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		subs:        make(map[*Subscription]struct{}),
		keyframeReq: make(chan struct{}, 1),
	}
}

// KeyframeRequests is consumed by the orchestrator's main loop; a
// readable value means at least one client needs parameter sets plus a
// fresh IDR replayed.
func (b *Broadcaster) KeyframeRequests() <-chan struct{} {
	return b.keyframeReq
}

// Subscribe registers a new client, requests a keyframe on its behalf,
// and synchronously replays the currently cached SPS/PPS onto the new
// subscription's frame channel — exactly the two slots the frame
// channel's capacity-2 buffer holds, so the replay never blocks or
// drops, per spec.md §4.G.
func (b *Broadcaster) Subscribe(state *session.State) *Subscription {
	sub := &Subscription{
		frames:  make(chan []byte, frameChannelCapacity),
		configs: make(chan []byte, configChannelCapacity),
		b:       b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	b.requestKeyframe()

	sps, pps, _ := state.Snapshot()
	if len(sps) > 0 {
		sub.frames <- sps
	}
	if len(pps) > 0 {
		sub.frames <- pps
	}

	return sub
}

// SubscriberCount reports the number of currently active subscriptions,
// for the REST status surface.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Unsubscribe removes sub from the fan-out set. It is safe to call more
// than once.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// PublishFrame fans a start-code-prefixed NAL unit out to every
// subscriber using latest-frame-wins: a subscriber whose buffer is full
// has its oldest buffered frame dropped to make room, per spec.md §4.G.
func (b *Broadcaster) PublishFrame(data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		trySendDropOldest(sub.frames, data)
	}
}

// PublishConfig fans a JSON config-change message out to every
// subscriber. The capacity-16 buffer makes this non-lossy in normal
// operation; a subscriber that is still far enough behind to exhaust it
// has its oldest buffered config message dropped rather than stalling
// the publisher.
func (b *Broadcaster) PublishConfig(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		trySendDropOldest(sub.configs, msg)
	}
}

func (b *Broadcaster) requestKeyframe() {
	select {
	case b.keyframeReq <- struct{}{}:
	default:
	}
}

func trySendDropOldest(ch chan []byte, data []byte) {
	select {
	case ch <- data:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- data:
	default:
	}
}
