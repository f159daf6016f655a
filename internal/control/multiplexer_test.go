package control

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestMultiplexer_WritesEventsInOrderConcatenated(t *testing.T) {
	var out bytes.Buffer
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	m := New(&out, log)
	done := make(chan error, 1)
	go func() { done <- m.Run() }()

	key := EncodeKey(Key{Action: ActionDown, Keycode: 29})
	text := EncodeText("hi")
	m.Enqueue(key)
	m.Enqueue(text)
	m.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}

	require.Equal(t, append(append([]byte{}, key...), text...), out.Bytes())
}

func TestMultiplexer_WriteFailureIsFatal(t *testing.T) {
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))

	m := New(failingWriter{}, log)
	done := make(chan error, 1)
	go func() { done <- m.Run() }()

	m.Enqueue(EncodeKey(Key{Action: ActionDown, Keycode: 1}))
	m.Close()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after a write failure")
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, bytes.ErrTooLarge
}
