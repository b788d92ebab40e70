package broker

import (
	"encoding/json"

	"github.com/avvvet/strategists-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn   *nats.Conn
	Send   func(string, *comm.WSMessage) bool
	Bind   func(string, string) error
	Fanout func(string, []byte) int
}

func NewBroker(conn *nats.Conn, fncSend func(string, *comm.WSMessage) bool, fncBind func(string, string) error, fncFanout func(string, []byte) int) *Broker {
	return &Broker{
		Conn:   conn,
		Send:   fncSend,
		Bind:   fncBind,
		Fanout: fncFanout,
	}
}

// consume replies from game service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// consume the updates of every game
func (b *Broker) SubscribeUpdates() (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(comm.UpdatesTopic+".*", func(msg *nats.Msg) {
		b.fanout(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to game service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receive message from game service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(msgNats.Data, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}
	b.route(message)
}

// route delivers a reply to its socket and binds the socket to the game
// when the command joined it.
func (b *Broker) route(message *comm.WSMessage) {
	command, ok := comm.CommandOf(message.Type)
	if !ok {
		log.Errorf("Unknown message %s", message.Type)
		return
	}
	if !b.Send(message.SocketId, message) {
		log.Debugf("socket %s is gone, %s dropped", message.SocketId, message.Type)
		return
	}
	if !comm.Binds(command) {
		return
	}

	reply := comm.Reply{}
	if err := json.Unmarshal(message.Data, &reply); err != nil {
		log.Errorf("malformed %s: %s", message.Type, err)
		return
	}
	if !reply.Status || reply.GameCode == "" {
		return
	}
	if err := b.Bind(message.SocketId, reply.GameCode); err != nil {
		log.Warnf("unable to bind socket %s to game %s: %s", message.SocketId, reply.GameCode, err)
	}
}

func (b *Broker) fanout(subject string, payload []byte) {
	code, ok := comm.GameCodeFromSubject(subject)
	if !ok {
		log.Errorf("update on unexpected subject %s", subject)
		return
	}
	n := b.Fanout(code, payload)
	log.Debugf("update of game %s sent to %d sockets", code, n)
}
