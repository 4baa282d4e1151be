package broker

import (
	"encoding/json"
	"time"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/avvvet/keno-services/internal/socketsvc/ws"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const requestTimeout = 5 * time.Second

// Broker connects the socket service to the keno service over NATS.
type Broker struct {
	Conn *nats.Conn
	Hub  *ws.Hub
}

func NewBroker(conn *nats.Conn, hub *ws.Hub) *Broker {
	return &Broker{Conn: conn, Hub: hub}
}

// SubscribeEvents relays every keno event to all websocket clients.
func (b *Broker) SubscribeEvents() (*nats.Subscription, error) {
	return b.Conn.Subscribe(comm.SubjectEvents, func(m *nats.Msg) {
		b.Hub.Broadcast(m.Data)
	})
}

// Snapshot asks the keno service for the current gameState message.
// It returns nil when the keno service does not answer.
func (b *Broker) Snapshot() []byte {
	msg, err := b.Conn.Request(comm.SubjectState, nil, requestTimeout)
	if err != nil {
		log.Warnf("game state request failed: %v", err)
		return nil
	}
	return msg.Data
}

// HandleClientMessage forwards a player request to the keno service and
// sends the reply back to the socket as "<type>-response".
func (b *Broker) HandleClientMessage(socketId string, msg *comm.WSMessage) {
	switch msg.Type {
	case comm.TypePlaceBet, comm.TypeGetBalance, comm.TypeGetState:
	default:
		log.Warnf("unknown event received: %s", msg.Type)
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	// the request blocks, keep the socket read loop moving
	go func() {
		reply, err := b.Conn.Request(comm.SubjectService, payload, requestTimeout)
		var data json.RawMessage
		if err != nil {
			log.Errorf("request %s for socket %s failed: %v", msg.Type, socketId, err)
			data, _ = json.Marshal(comm.Reply{Error: "service unavailable"})
		} else {
			data = reply.Data
		}

		b.Hub.SendMessage(socketId, &comm.WSMessage{
			Type:     msg.Type + "-response",
			Data:     data,
			SocketId: socketId,
		})
	}()
}
