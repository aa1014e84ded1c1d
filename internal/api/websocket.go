package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/thereceipt/label-designer/internal/printer"
	"go.uber.org/zap"
)

// WebSocket message types
const (
	EventPrint          = "print"
	EventPrinterAdded   = "printer_added"
	EventPrinterRemoved = "printer_removed"
	EventJobFinished    = "job_finished"
	EventResponse       = "response"
	EventError          = "error"
)

const (
	wsSendBuffer = 256
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 8 << 20
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// WSClient represents a connected WebSocket client
type WSClient struct {
	conn   *websocket.Conn
	send   chan WSMessage
	server *Server
	once   sync.Once
}

// Hub tracks connected clients for broadcasts
type Hub struct {
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
	log     *zap.Logger
}

func newHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[*WSClient]struct{}), log: log}
}

func (h *Hub) add(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// Broadcast sends an event to every client, dropping it for clients whose buffer is full
func (h *Hub) Broadcast(event string, data any) {
	msg, err := message(event, data)
	if err != nil {
		h.log.Error("failed to encode event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			h.log.Debug("client send buffer full, dropping event", zap.String("event", event))
		}
	}
}

// BroadcastPrinterAdded broadcasts a printer added event to all connected clients
func (h *Hub) BroadcastPrinterAdded(st printer.Status) {
	h.Broadcast(EventPrinterAdded, st)
}

// BroadcastPrinterRemoved broadcasts a printer removed event to all connected clients
func (h *Hub) BroadcastPrinterRemoved(path string) {
	h.Broadcast(EventPrinterRemoved, map[string]string{"path": path})
}

// BroadcastJob is a journal OnFinished hook
func (h *Hub) BroadcastJob(job printer.Job) {
	h.Broadcast(EventJobFinished, job)
}

func message(event string, data any) (WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return WSMessage{}, err
	}
	return WSMessage{Event: event, Data: raw}, nil
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &WSClient{
		conn:   conn,
		send:   make(chan WSMessage, wsSendBuffer),
		server: s,
	}
	s.hub.add(client)
	s.log.Info("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	var done func()
	if s.deps.Metrics != nil {
		done = s.deps.Metrics.WebsocketConnected()
	}

	go client.writePump()
	go func() {
		client.readPump()
		if done != nil {
			done()
		}
	}()
}

func (c *WSClient) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.log.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.server.hub.remove(c)
		c.conn.Close()
		c.server.log.Info("websocket client disconnected")
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.log.Warn("websocket error", zap.Error(err))
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *WSClient) handleMessage(msg *WSMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.server.log.Error("websocket handler panicked",
				zap.String("event", msg.Event), zap.Any("panic", r))
			c.sendError("internal error")
		}
	}()
	switch msg.Event {
	case EventPrint:
		c.handlePrintEvent(msg.Data)
	default:
		c.sendError(fmt.Sprintf("unknown event: %s", msg.Event))
	}
}

// handlePrintEvent prints a label request sent as the event data
func (c *WSClient) handlePrintEvent(data json.RawMessage) {
	s := c.server
	if s.limiter != nil && !s.limiter.allow(remoteHost(c.conn.RemoteAddr()), time.Now()) {
		c.sendError("too many print requests, slow down")
		return
	}
	req, err := parseJSONRequest(data)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	status, err := s.deps.Factory.Print(ctx, req, nil, s.deps.Printer)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if status != "" {
		c.sendResponse(map[string]any{"success": false, "message": status})
		return
	}
	c.sendResponse(map[string]any{"success": true})
}

func (c *WSClient) sendResponse(data map[string]any) {
	c.enqueue(EventResponse, data)
}

func (c *WSClient) sendError(text string) {
	c.enqueue(EventError, map[string]string{"error": text})
}

func (c *WSClient) enqueue(event string, data any) {
	msg, err := message(event, data)
	if err != nil {
		return
	}
	defer func() {
		// send was closed by a concurrent shutdown
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
	}
}

// remoteHost drops the port so reconnects share one rate limit bucket
func remoteHost(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
