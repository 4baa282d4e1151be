package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// StateSource provides the current game state for late joiners.
type StateSource interface {
	Snapshot() comm.GameState
}

// Broker publishes game events on NATS and answers player requests coming
// from the socket service and robots.
type Broker struct {
	Conn       *nats.Conn
	BetService *service.BetService
	State      StateSource
	subs       []*nats.Subscription
}

func NewBroker(nc *nats.Conn, betService *service.BetService, state StateSource) *Broker {
	return &Broker{
		Conn:       nc,
		BetService: betService,
		State:      state,
	}
}

// Broadcast publishes an encoded event for the socket services.
func (b *Broker) Broadcast(payload []byte) {
	b.Publish(comm.SubjectEvents, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}

// Subscribe starts answering requests. queueGroup lets several keno service
// instances share the load.
func (b *Broker) Subscribe(queueGroup string) error {
	sub, err := b.Conn.QueueSubscribe(comm.SubjectService, queueGroup, b.handleMessage)
	if err != nil {
		return err
	}
	b.subs = append(b.subs, sub)

	sub, err = b.Conn.Subscribe(comm.SubjectState, b.handleStateRequest)
	if err != nil {
		return err
	}
	b.subs = append(b.subs, sub)
	return nil
}

func (b *Broker) Unsubscribe() {
	for _, s := range b.subs {
		if err := s.Unsubscribe(); err != nil {
			log.Warnf("unsubscribe %s: %v", s.Subject, err)
		}
	}
	b.subs = nil
}

func (b *Broker) handleStateRequest(m *nats.Msg) {
	payload, err := Encode(comm.TypeGameState, b.State.Snapshot())
	if err != nil {
		log.Errorf("encode game state: %v", err)
		return
	}
	if err := m.Respond(payload); err != nil {
		log.Errorf("respond game state: %v", err)
	}
}

func (b *Broker) handleMessage(m *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(m.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		b.respond(m, comm.Reply{Error: "malformed message"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	b.respond(m, b.dispatch(ctx, msg))
}

func (b *Broker) dispatch(ctx context.Context, msg *comm.WSMessage) comm.Reply {
	switch msg.Type {
	case comm.TypePlaceBet:
		var req comm.PlaceBet
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return comm.Reply{Error: "Invalid bet data"}
		}

		bet, err := b.BetService.PlaceBet(ctx, service.BetRequest{
			UserID:          req.UserID,
			SelectedNumbers: req.SelectedNumbers,
			WagerAmount:     req.WagerAmount,
		})
		if err != nil {
			return errorReply(err)
		}
		return dataReply(bet)

	case comm.TypeGetBalance:
		var req comm.BalanceRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return comm.Reply{Error: "Invalid balance request"}
		}

		user, err := b.BetService.GetUser(ctx, req.UserID)
		if err != nil {
			return errorReply(err)
		}
		return dataReply(comm.PlayerData{UserId: user.ID, Name: user.Username, Balance: user.Balance})

	case comm.TypeGetState:
		return dataReply(b.State.Snapshot())

	default:
		log.Warnf("unknown request type: %s", msg.Type)
		return comm.Reply{Error: "unknown request type " + msg.Type}
	}
}

func (b *Broker) respond(m *nats.Msg, reply comm.Reply) {
	if m.Reply == "" {
		return
	}
	payload, err := json.Marshal(reply)
	if err != nil {
		log.Errorf("marshal reply: %v", err)
		return
	}
	if err := m.Respond(payload); err != nil {
		log.Errorf("respond on %s: %v", m.Subject, err)
	}
}

func dataReply(data any) comm.Reply {
	raw, err := json.Marshal(data)
	if err != nil {
		return comm.Reply{Error: "internal error"}
	}
	return comm.Reply{OK: true, Data: raw}
}

// errorReply exposes rejection reasons and hides everything else.
func errorReply(err error) comm.Reply {
	var rej *service.RejectionError
	switch {
	case errors.As(err, &rej):
		return comm.Reply{Error: rej.Reason}
	case errors.Is(err, service.ErrUserNotFound):
		return comm.Reply{Error: "User not found"}
	default:
		log.Errorf("request failed: %v", err)
		return comm.Reply{Error: "internal error"}
	}
}

// Replier delivers a message to a single websocket client.
type Replier interface {
	SendMessage(socketId string, msg *comm.WSMessage) bool
}

// ClientHandler answers requests from websocket clients connected to this
// process. Replies go back to the sender as "<type>-response".
func (b *Broker) ClientHandler(out Replier) func(socketId string, msg *comm.WSMessage) {
	return func(socketId string, msg *comm.WSMessage) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			data, err := json.Marshal(b.dispatch(ctx, msg))
			if err != nil {
				log.Errorf("marshal reply: %v", err)
				return
			}
			out.SendMessage(socketId, &comm.WSMessage{
				Type:     msg.Type + "-response",
				Data:     data,
				SocketId: socketId,
			})
		}()
	}
}
