package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avvvet/strategists-services/internal/comm"
	"github.com/avvvet/strategists-services/internal/gamesvc/errs"
	"github.com/avvvet/strategists-services/internal/gamesvc/service"
	"github.com/avvvet/strategists-services/internal/gamesvc/updates"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn        *nats.Conn
	GameService *service.GameService
	timeout     time.Duration
	lanes       *lanes
	send        func(topic string, payload []byte) error
}

func NewBroker(nc *nats.Conn) *Broker {
	b := &Broker{
		Conn:    nc,
		timeout: 30 * time.Second,
		lanes:   newLanes(),
	}
	b.send = b.Publish
	return b
}

// handles message coming from socket. Commands of one game run in arrival
// order, commands of different games run side by side.
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}
	if !comm.IsCommand(msg.Type) {
		log.Errorf("Unknown message %s", msg.Type)
		return
	}

	b.lanes.run(laneKey(msg), func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		reply := b.execute(ctx, msg)
		b.PublishReply(msg.Type, reply, msg.SocketId)
	})
}

// laneKey is the game code of a command. Commands naming no game are
// ordered per socket.
func laneKey(msg *comm.WSMessage) string {
	var target struct {
		GameCode string `json:"game_code"`
	}
	if len(msg.Data) > 0 {
		_ = json.Unmarshal(msg.Data, &target)
	}
	if target.GameCode == "" {
		target.GameCode = msg.GameCode
	}
	if target.GameCode != "" {
		return "game:" + target.GameCode
	}
	return "socket:" + msg.SocketId
}

// execute runs one client command against the game service.
func (b *Broker) execute(ctx context.Context, msg *comm.WSMessage) comm.Reply {
	cmd := comm.Command{}
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			return comm.Reply{Code: http.StatusBadRequest, Error: "malformed " + msg.Type + " data"}
		}
	}
	if cmd.GameCode == "" {
		cmd.GameCode = msg.GameCode
	}

	reply, err := b.run(ctx, msg.Type, cmd)
	if err != nil {
		if errs.Status(err) == http.StatusInternalServerError {
			log.Errorf("Error [%s] game %s: %s", msg.Type, cmd.GameCode, err)
		}
		return comm.Reply{Code: errs.Status(err), Error: err.Error(), GameCode: cmd.GameCode}
	}
	reply.Status = true
	reply.Code = http.StatusOK
	return reply
}

func (b *Broker) run(ctx context.Context, t string, cmd comm.Command) (comm.Reply, error) {
	games := b.GameService
	switch t {
	case comm.TypeCreate:
		game, host, err := games.CreateGame(ctx, cmd.Email, cmd.Name)
		if err != nil {
			return comm.Reply{}, err
		}
		return b.snapshotReply(ctx, game.Code, host.ID)

	case comm.TypeJoin:
		player, err := games.JoinGame(ctx, cmd.GameCode, cmd.Email, cmd.Name)
		if err != nil {
			return comm.Reply{}, err
		}
		return b.snapshotReply(ctx, cmd.GameCode, player.ID)

	case comm.TypeKick:
		return comm.Reply{GameCode: cmd.GameCode}, games.KickPlayer(ctx, cmd.GameCode, cmd.PlayerId)

	case comm.TypeStart:
		game, err := games.StartGame(ctx, cmd.GameCode)
		return comm.Reply{GameCode: cmd.GameCode, Data: game}, err

	case comm.TypePlayTurn:
		winner, err := games.PlayTurn(ctx, cmd.GameCode)
		return comm.Reply{GameCode: cmd.GameCode, Data: winner}, err

	case comm.TypeSkip:
		winner, err := games.SkipTurn(ctx, cmd.GameCode)
		return comm.Reply{GameCode: cmd.GameCode, Data: winner}, err

	case comm.TypeInvest:
		stake, err := games.Invest(ctx, cmd.PlayerId, cmd.LandId, cmd.Ownership)
		if err != nil {
			return comm.Reply{}, err
		}
		return comm.Reply{GameCode: stake.GameCode, PlayerId: stake.PlayerID, Data: stake}, nil

	case comm.TypeReset:
		snap, err := games.ResetGame(ctx, cmd.GameCode)
		return comm.Reply{GameCode: cmd.GameCode, Data: snap}, err

	case comm.TypeDelete:
		return comm.Reply{GameCode: cmd.GameCode}, games.DeleteGame(ctx, cmd.GameCode)

	case comm.TypeSnapshot:
		return b.snapshotReply(ctx, cmd.GameCode, 0)

	case comm.TypeFindPlayer:
		player, err := games.FindPlayer(ctx, cmd.Email)
		if err != nil {
			return comm.Reply{}, err
		}
		return b.snapshotReply(ctx, player.GameCode, player.ID)

	case comm.TypeAdvicesViewed:
		advices, err := games.MarkAdvicesViewed(ctx, cmd.PlayerId)
		return comm.Reply{PlayerId: cmd.PlayerId, Data: advices}, err
	}
	return comm.Reply{}, errs.Validation("unknown command %s", t)
}

func (b *Broker) snapshotReply(ctx context.Context, code string, playerID int64) (comm.Reply, error) {
	snap, err := b.GameService.GetGame(ctx, code)
	if err != nil {
		return comm.Reply{}, err
	}
	return comm.Reply{GameCode: code, PlayerId: playerID, Data: snap}, nil
}

// PublishReply answers a command of a single socket.
func (b *Broker) PublishReply(command string, r comm.Reply, socketId string) {
	data, err := json.Marshal(r)
	if err != nil {
		log.Errorf("unable to marshal %s reply for %s: %s", command, socketId, err)
		return
	}

	msg := &comm.WSMessage{
		Type:     comm.ResponseType(command),
		Data:     data,
		SocketId: socketId,
		GameCode: r.GameCode,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.send(comm.RepliesTopic, payload)
}

// Updates returns the publisher feeding game updates to the socket service.
func (b *Broker) Updates() updates.Publisher {
	return updatePublisher{b: b}
}

type updatePublisher struct {
	b *Broker
}

func (p updatePublisher) Publish(gameCode string, u *updates.Update) error {
	payload, err := encodeUpdate(gameCode, u)
	if err != nil {
		return err
	}
	return p.b.Publish(comm.UpdatesSubject(gameCode), payload)
}

func encodeUpdate(gameCode string, u *updates.Update) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&comm.WSMessage{
		Type:     comm.TypeUpdate,
		Data:     data,
		GameCode: gameCode,
	})
}

// consume commands from the socket services (Queue)
func (b *Broker) QueueSubscribeCommands(topic, queueGroup string) (*nats.Subscription, error) {
	sub, err := b.Conn.QueueSubscribe(topic, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
