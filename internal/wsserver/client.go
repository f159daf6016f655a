package wsserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/scrcpyhost/scrcpy-host/internal/broadcast"
	"github.com/scrcpyhost/scrcpy-host/internal/control"
)

// writeWait/pongWait/pingPeriod mirror the teacher's
// api/websocket.go timing constants.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type upgrader = websocket.Upgrader

func newUpgrader() upgrader {
	return websocket.Upgrader{
		CheckOrigin:     func(r *http.Request) bool { return true },
		ReadBufferSize:  1024,
		WriteBufferSize: 2 * 1024 * 1024,
	}
}

// configFrame is the outbound JSON text message describing the
// current resolution/orientation, per spec.md §6.
type configFrame struct {
	Type         string `json:"type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	DeviceWidth  int    `json:"device_width"`
	DeviceHeight int    `json:"device_height"`
	IsLandscape  bool   `json:"is_landscape"`
}

// inboundEvent is the tagged-union shape of inbound control JSON, per
// spec.md §3/§6.
type inboundEvent struct {
	Type      string  `json:"type"`
	Action    *int    `json:"action"`
	PointerID *int64  `json:"pointer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     uint16  `json:"width"`
	Height    uint16  `json:"height"`
	Pressure  float64 `json:"pressure"`
	Buttons   uint32  `json:"buttons"`
	HScroll   float64 `json:"hscroll"`
	VScroll   float64 `json:"vscroll"`
	Keycode   uint32  `json:"keycode"`
	Repeat    uint32  `json:"repeat"`
	MetaState uint32  `json:"metastate"`
	Text      string  `json:"text"`
	Paste     bool    `json:"paste"`
	Sequence  uint64  `json:"sequence"`
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	sub := s.broadcaster.Subscribe(s.state)
	client := &wsClient{
		server: s,
		conn:   conn,
		sub:    sub,
	}

	_, _, geo := s.state.Snapshot()
	initial, _ := json.Marshal(configFrame{
		Type: "config", Width: geo.Width, Height: geo.Height,
		DeviceWidth: geo.DeviceWidth, DeviceHeight: geo.DeviceHeight, IsLandscape: geo.IsLandscape,
	})
	client.writeText(initial)

	go client.writePump()
	go client.readPump()
}

// wsClient implements the Upgraded→Streaming→Terminated state machine
// of spec.md §4.I. Grounded on the teacher's api/websocket.go Client
// (readPump/writePump split, closed atomic.Bool guard).
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	sub    *broadcast.Subscription
	closed atomic.Bool
}

func (c *wsClient) writeText(msg []byte) {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.terminate()

	for {
		select {
		case frame, ok := <-c.sub.Frames():
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case msg, ok := <-c.sub.Configs():
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
		if c.closed.Load() {
			return
		}
	}
}

func (c *wsClient) readPump() {
	defer c.terminate()

	c.conn.SetReadLimit(1 << 16)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue // binary inbound messages are ignored, per spec.md §4.I
		}
		c.handleInbound(data)
	}
}

func (c *wsClient) handleInbound(data []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.server.log.Warnf("dropping malformed control event: %v", err)
		return
	}

	var encoded []byte
	var summary string
	switch ev.Type {
	case "touch":
		pointerID := int64(-1)
		if ev.PointerID != nil {
			pointerID = *ev.PointerID
		}
		action := uint8(control.ActionDown)
		if ev.Action != nil {
			action = uint8(*ev.Action)
		}
		encoded = control.EncodeTouch(control.Touch{
			Action: action, PointerID: pointerID, NormX: ev.X, NormY: ev.Y,
			Width: ev.Width, Height: ev.Height, Pressure: ev.Pressure,
		})
		summary = fmt.Sprintf("action=%d pointer=%d x=%.3f y=%.3f", action, pointerID, ev.X, ev.Y)
	case "key":
		action := uint8(control.ActionDown)
		if ev.Action != nil {
			action = uint8(*ev.Action)
		}
		encoded = control.EncodeKey(control.Key{
			Action: action, Keycode: ev.Keycode, Repeat: ev.Repeat, MetaState: ev.MetaState,
		})
		summary = fmt.Sprintf("action=%d keycode=%d", action, ev.Keycode)
	case "scroll":
		encoded = control.EncodeScroll(control.Scroll{
			NormX: ev.X, NormY: ev.Y, Width: ev.Width, Height: ev.Height,
			HScroll: ev.HScroll, VScroll: ev.VScroll, Buttons: ev.Buttons,
		})
		summary = fmt.Sprintf("hscroll=%.3f vscroll=%.3f", ev.HScroll, ev.VScroll)
	case "text":
		encoded = control.EncodeText(ev.Text)
		summary = fmt.Sprintf("len=%d", len(ev.Text))
	case "clipboard":
		encoded = control.EncodeSetClipboard(ev.Text, ev.Paste, ev.Sequence)
		summary = fmt.Sprintf("paste=%t seq=%d len=%d", ev.Paste, ev.Sequence, len(ev.Text))
	default:
		c.server.log.Warnf("dropping control event of unknown type %q", ev.Type)
		return
	}

	c.server.mux.Enqueue(encoded)
	c.server.audit.Record(AuditEvent{Type: ev.Type, Timestamp: time.Now(), Summary: summary})
}

func (c *wsClient) terminate() {
	if c.closed.Swap(true) {
		return
	}
	c.server.broadcaster.Unsubscribe(c.sub)
	c.conn.Close()
}
