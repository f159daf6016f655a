package control

import (
	"bufio"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/scrcpyhost/scrcpy-host/internal/hosterr"
)

const queueCapacity = 100

// Multiplexer is the single writer to the device control socket.
// Any number of client handlers enqueue already-encoded events; one
// goroutine drains the queue and writes them in order, per spec.md
// §4.H. A write failure is fatal to the session — the device agent
// cannot recover a desynced control stream.
//
// Close does not close the queue channel: client handler goroutines
// (WebSocket readPump) can still be enqueueing events after the
// orchestrator decides to shut down — hijacked connections aren't
// drained by http.Server.Shutdown — so sending on a closed channel
// remains possible and must not panic. done is closed instead, and
// Enqueue selects on it alongside the send.
type Multiplexer struct {
	w     *bufio.Writer
	queue chan []byte
	done  chan struct{}
	log   logrus.FieldLogger
	once  sync.Once
}

// New constructs a Multiplexer writing to w.
func New(w io.Writer, log logrus.FieldLogger) *Multiplexer {
	return &Multiplexer{
		w:     bufio.NewWriter(w),
		queue: make(chan []byte, queueCapacity),
		done:  make(chan struct{}),
		log:   log,
	}
}

// Enqueue submits an already-encoded event for writing. It never
// blocks the caller indefinitely on a stalled writer: the queue is
// bounded at 100, matching spec.md §4.H, and a full queue drops the
// event with a logged warning rather than stalling the client handler
// that produced it. Once Close has run, Enqueue is a silent no-op
// rather than a send on a channel nothing drains anymore.
func (m *Multiplexer) Enqueue(event []byte) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.queue <- event:
	case <-m.done:
	default:
		m.log.Warn("control queue full, dropping event")
	}
}

// Run drains the queue and writes each event to the control socket,
// flushing after every write. It returns when Close is called or a
// write fails; callers should treat any returned error as fatal to the
// session. On Close, any events already enqueued are still written
// before Run returns — Close only stops new sends, it does not discard
// what's already queued.
func (m *Multiplexer) Run() error {
	for {
		if err := m.drainOnce(); err != nil {
			return err
		}

		select {
		case event := <-m.queue:
			if err := m.write(event); err != nil {
				return err
			}
		case <-m.done:
			return m.drainOnce()
		}
	}
}

func (m *Multiplexer) drainOnce() error {
	for {
		select {
		case event := <-m.queue:
			if err := m.write(event); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (m *Multiplexer) write(event []byte) error {
	if _, err := m.w.Write(event); err != nil {
		return hosterr.Wrap(hosterr.KindNetwork, err, "control socket write failed")
	}
	if err := m.w.Flush(); err != nil {
		return hosterr.Wrap(hosterr.KindNetwork, err, "control socket flush failed")
	}
	return nil
}

// Close stops Run and turns Enqueue into a no-op. Safe to call more
// than once, and safe to call concurrently with Enqueue.
func (m *Multiplexer) Close() {
	m.once.Do(func() {
		close(m.done)
	})
}
