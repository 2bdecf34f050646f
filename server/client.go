package main

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 64
	maxMessagesPerSec = 50
)

// Stream modes selected by ?mode=
const (
	ModeMenu    = "menu"
	ModeExplore = "explore"
)

// Client is one WebSocket viewer. Each client owns its own simulation; the
// stream lives exactly as long as the connection.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	mode       string
	startVP    Viewport
	log        *zap.Logger

	menu    *Loop
	explore *ExploreLoop

	msgCount   int
	msgResetAt time.Time
	frames     atomic.Uint64
	closeOnce  sync.Once
}

// NewClient creates a client for mode starting at vp
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, mode string, vp Viewport, potato bool) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		mode:       mode,
		startVP:    vp,
		log:        hub.log.With(zap.String("ip", remoteAddr), zap.String("mode", mode)),
	}
	switch mode {
	case ModeExplore:
		c.explore = NewExploreLoop(c.publishExplore, c.panelOpened, c.panelClosed, c.log)
	default:
		c.mode = ModeMenu
		c.menu = NewLoop(LoopConfig{
			Viewport: vp,
			Potato:   potato,
			Cues:     CueFunc(c.cue),
			OnFrame:  c.publishMenu,
			Logger:   c.log,
		})
	}
	return c
}

// Serve runs the connection until the peer goes away or ctx ends. The
// simulation is cancelled before the send channel is released so no frame
// is produced for a closed stream.
func (c *Client) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.WritePump(ctx)
	}()
	go func() {
		defer wg.Done()
		c.runSimulation(ctx)
	}()

	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{Mode: c.mode, Viewport: c.viewport(), FPS: PublishRate}})
	c.ReadPump(ctx)

	cancel()
	c.closeConn()
	wg.Wait()
	c.hub.TrackDisconnect(c.remoteAddr)
	c.hub.Unregister(c)
}

func (c *Client) runSimulation(ctx context.Context) {
	var err error
	if c.menu != nil {
		err = c.menu.Run(ctx)
	} else {
		err = c.explore.Run(ctx)
	}
	if err != nil {
		c.log.Warn("simulation stopped", zap.Error(err))
	}
}

// viewport is fixed at connect time; later resizes only reach the loop
func (c *Client) viewport() Viewport {
	if c.menu != nil {
		return c.startVP
	}
	return Viewport{W: WorldSize, H: WorldSize}
}

func (c *Client) closeConn() {
	c.closeOnce.Do(func() { c.conn.Close() })
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for ctx.Err() == nil {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", zap.Error(err))
			}
			return
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Info("message rate exceeded, disconnecting")
			return
		}

		c.handleMessage(message)
	}
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame (see SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal error", zap.Error(err))
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text message
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }() // send may already be closed by the hub
	select {
	case c.send <- data:
	default:
		// slow client: drop rather than stall the simulation
	}
}

// SendBinary queues bytes as a binary message, prefixed with a 0xFF marker
// so WritePump can tell it from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug("unmarshal error", zap.Error(err))
		return
	}

	switch env.T {
	case MsgResize:
		var msg ResizeMsg
		if err := json.Unmarshal(env.D, &msg); err != nil || c.menu == nil {
			return
		}
		c.menu.Resize(Viewport{W: msg.W, H: msg.H})
	case MsgPotato:
		var msg PotatoMsg
		if err := json.Unmarshal(env.D, &msg); err != nil || c.menu == nil {
			return
		}
		c.menu.SetPotato(msg.On)
	case MsgInput:
		var msg InputMsg
		if err := json.Unmarshal(env.D, &msg); err != nil || c.explore == nil {
			return
		}
		c.explore.Input(msg)
	case MsgClose:
		if c.explore != nil {
			c.explore.ClosePanel()
		}
	default:
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "unknown message type"}})
	}
}

// publishMenu runs on the loop goroutine after every frame
func (c *Client) publishMenu(frame uint64, sc *Scene) {
	c.frames.Store(frame)
	if frame%PublishEvery != 0 {
		return
	}
	data, err := msgpack.Marshal(sc.Snapshot())
	if err != nil {
		c.log.Error("encode frame", zap.Error(err))
		return
	}
	c.SendBinary(data)
}

func (c *Client) publishExplore(now float64, e *Explorer) {
	c.frames.Store(e.Frame)
	if e.Frame%PublishEvery != 0 {
		return
	}
	data, err := msgpack.Marshal(e.ToState(now))
	if err != nil {
		c.log.Error("encode explore state", zap.Error(err))
		return
	}
	c.SendBinary(data)
}

// cue forwards a sound cue to the viewer and the process-wide sink
func (c *Client) cue(cue Cue) {
	if c.hub.cues != nil {
		c.hub.cues.Cue(cue)
	}
	c.SendJSON(Envelope{T: MsgCue, Data: CueMsg{Cue: cue.String()}})
}

func (c *Client) panelOpened(ct ContentType) {
	c.cue(CueCollision)
	c.hub.analytics.Track(EvtPanelOpened, c.remoteAddr, map[string]any{"content": ct.String()})
	c.SendJSON(Envelope{T: MsgPanel, Data: PanelMsg{Content: ct.String(), Panel: PanelFor(ct)}})
}

func (c *Client) panelClosed() {
	c.cue(CueClick)
}
