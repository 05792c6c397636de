package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"rental-portal/admin-portal-backend/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// ErrNotConnected is returned when a user has no open connection.
var ErrNotConnected = errors.New("user not connected")

// Manager handles WebSocket connections and message routing
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	broadcast   chan notifications.WebSocketMessage
	stop        chan struct{}
	stopOnce    sync.Once
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID          string
	UserID      string
	Conn        *websocket.Conn
	Send        chan notifications.WebSocketMessage
	ConnectedAt time.Time
	UserAgent   string
	IPAddress   string

	mu           sync.Mutex
	lastActivity time.Time
	closeOnce    sync.Once
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Connection) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// NewManager creates a new WebSocket manager. allowedOrigin "*" or "" accepts
// any origin.
func NewManager(allowedOrigin string, logger *zap.Logger) *Manager {
	m := &Manager{
		connections: make(map[string]*Connection),
		broadcast:   make(chan notifications.WebSocketMessage, 256),
		stop:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}

	go m.run()

	return m
}

// Serve upgrades the request and attaches the connection to userID.
func (m *Manager) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	_, err := m.HandleConnection(w, r, userID)
	return err
}

// HandleConnection handles new WebSocket connections
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:           uuid.New().String(),
		UserID:       userID,
		Conn:         conn,
		Send:         make(chan notifications.WebSocketMessage, sendBuffer),
		ConnectedAt:  now,
		UserAgent:    r.Header.Get("User-Agent"),
		IPAddress:    r.RemoteAddr,
		lastActivity: now,
	}

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	m.logger.Debug("Connection registered", zap.String("connection_id", connection.ID), zap.String("user_id", userID))

	connection.Send <- notifications.WebSocketMessage{
		Type:      notifications.WSMessageTypeStatus,
		Data:      map[string]interface{}{"status": "connected", "connectionId": connection.ID},
		Timestamp: now,
		Target:    userID,
	}

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	_, ok := m.connections[conn.ID]
	delete(m.connections, conn.ID)
	m.mu.Unlock()

	if ok {
		conn.closeSend()
		m.logger.Debug("Connection unregistered", zap.String("connection_id", conn.ID), zap.String("user_id", conn.UserID))
	}
}

// readPump keeps the connection alive and answers client pings. Clients do
// not send anything else.
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		m.unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.touch()
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg notifications.WebSocketMessage
		if err := conn.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read failed", zap.Error(err), zap.String("connection_id", conn.ID))
			}
			return
		}
		conn.touch()

		if msg.Type == notifications.WSMessageTypePing {
			m.trySend(conn, notifications.WebSocketMessage{
				Type:      notifications.WSMessageTypeStatus,
				Data:      map[string]interface{}{"status": "pong"},
				Timestamp: time.Now(),
				Target:    conn.UserID,
			})
		}
	}
}

// writePump pumps messages from Send to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend must not block the caller; a full buffer drops the frame.
func (m *Manager) trySend(conn *Connection, message notifications.WebSocketMessage) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.connections[conn.ID]; !ok {
		return false
	}
	select {
	case conn.Send <- message:
		return true
	default:
		return false
	}
}

func (m *Manager) run() {
	for {
		select {
		case message := <-m.broadcast:
			m.mu.RLock()
			for _, conn := range m.connections {
				select {
				case conn.Send <- message:
				default:
					m.logger.Warn("Dropping broadcast for slow connection", zap.String("connection_id", conn.ID))
				}
			}
			m.mu.RUnlock()

		case <-m.stop:
			return
		}
	}
}

// SendToUser sends a message to every connection of userID.
func (m *Manager) SendToUser(userID string, message notifications.WebSocketMessage) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	message.Target = userID
	found, sent := false, 0
	for _, conn := range m.connections {
		if conn.UserID != userID {
			continue
		}
		found = true
		select {
		case conn.Send <- message:
			sent++
		default:
		}
	}

	if !found {
		return ErrNotConnected
	}
	if sent == 0 {
		return fmt.Errorf("user connection buffer full")
	}
	return nil
}

// Broadcast sends a message to all connected users
func (m *Manager) Broadcast(message notifications.WebSocketMessage) error {
	select {
	case m.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// GetUserConnections returns all connections for a specific user
func (m *Manager) GetUserConnections(userID string) []*Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var connections []*Connection
	for _, conn := range m.connections {
		if conn.UserID == userID {
			connections = append(connections, conn)
		}
	}
	return connections
}

// DisconnectUser closes every connection of userID. Used when an account is blocked.
func (m *Manager) DisconnectUser(userID string) {
	for _, conn := range m.GetUserConnections(userID) {
		m.unregister(conn)
	}
}

// Close stops the manager and closes all connections
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.connections = make(map[string]*Connection)
	m.mu.Unlock()

	for _, conn := range conns {
		conn.closeSend()
	}
}
