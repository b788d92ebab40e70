package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/avvvet/strategists-services/internal/comm"
	"github.com/avvvet/strategists-services/internal/socketsvc/hub"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var errUnknownSocket = errors.New("unknown socket")

// Publisher forwards client commands to the game service.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	hub     *hub.Hub
	Broker  Publisher
}

type client struct {
	socketId string
	conn     *websocket.Conn

	mu  sync.Mutex // guards writes and sub
	sub *hub.Subscription
}

func NewWs(h *hub.Hub) *Ws {
	return &Ws{hub: h}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	if !comm.IsCommand(message.Type) {
		log.Warnf("unknown event received: %s", message.Type)
		return
	}

	// Update message with socket ID
	message.SocketId = socketId

	bytes, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := s.Broker.Publish(comm.CommandsTopic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.CommandsTopic, err)
		return
	}

	log.Debugf("Published %s message of socket %s", message.Type, socketId)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, &client{socketId: socketId, conn: conn})
}

func (s *Ws) getClient(socketId string) (*client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*client), true
}

// Send writes a message to one socket. It reports false when the socket is
// gone or the write failed.
func (s *Ws) Send(socketId string, m *comm.WSMessage) bool {
	c, ok := s.getClient(socketId)
	if !ok {
		return false
	}
	data, err := json.Marshal(m)
	if err != nil {
		log.Errorf("unable to marshal %s for socket %s: %s", m.Type, socketId, err)
		return false
	}
	if err := c.write(data); err != nil {
		log.Warnf("write to socket %s failed: %s", socketId, err)
		c.conn.Close()
		return false
	}
	return true
}

// Bind subscribes a socket to the updates of a game, replacing its previous
// game.
func (s *Ws) Bind(socketId, gameCode string) error {
	c, ok := s.getClient(socketId)
	if !ok {
		return errUnknownSocket
	}

	c.mu.Lock()
	old := c.sub
	if old != nil && old.GameCode == gameCode {
		c.mu.Unlock()
		return nil
	}
	sub := s.hub.Subscribe(gameCode)
	c.sub = sub
	c.mu.Unlock()

	if old != nil {
		s.hub.Unsubscribe(old)
	}
	go s.pump(c, sub)
	log.Infof("socket %s bound to game %s", socketId, gameCode)
	return nil
}

// Fanout hands a payload to every socket bound to the game.
func (s *Ws) Fanout(gameCode string, payload []byte) int {
	return s.hub.Publish(gameCode, payload)
}

// pump writes the updates of sub to the client until the subscription
// ends. A subscription dropped by the hub closes the connection.
func (s *Ws) pump(c *client, sub *hub.Subscription) {
	for payload := range sub.C {
		if err := c.write(payload); err != nil {
			log.Warnf("write to socket %s failed: %s", c.socketId, err)
			s.hub.Unsubscribe(sub)
			c.conn.Close()
			return
		}
	}

	c.mu.Lock()
	dropped := c.sub == sub
	if dropped {
		c.sub = nil
	}
	c.mu.Unlock()
	if dropped {
		log.Warnf("socket %s fell behind on game %s, closing it", c.socketId, sub.GameCode)
		c.conn.Close()
	}
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// HandleDisconnect forgets a socket and ends its subscription.
func (s *Ws) HandleDisconnect(socketId string) {
	v, ok := s.connMap.LoadAndDelete(socketId)
	if !ok {
		return
	}
	c := v.(*client)

	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		s.hub.Unsubscribe(sub)
	}
}

// GetRoom returns the game a socket is bound to.
func (s *Ws) GetRoom(socketId string) (string, bool) {
	c, ok := s.getClient(socketId)
	if !ok {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return "", false
	}
	return c.sub.GameCode, true
}
