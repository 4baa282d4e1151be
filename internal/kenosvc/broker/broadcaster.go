package broker

import (
	"encoding/json"

	"github.com/avvvet/keno-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

// Broadcaster receives every game cycle event. Implementations must not
// block the caller.
type Broadcaster interface {
	GameState(state comm.GameState)
	DrawingStarted(ev comm.DrawingStarted)
	NumberDrawn(ev comm.NumberDrawn)
	GameCompleted(ev comm.GameCompleted)
}

// Sink accepts encoded WSMessage envelopes.
type Sink interface {
	Broadcast(payload []byte)
}

// Publisher encodes each event once and hands it to every sink.
type Publisher struct {
	sinks []Sink
}

func NewPublisher(sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks}
}

func (p *Publisher) GameState(state comm.GameState) {
	p.publish(comm.TypeGameState, state)
}

func (p *Publisher) DrawingStarted(ev comm.DrawingStarted) {
	p.publish(comm.TypeDrawingStarted, ev)
}

func (p *Publisher) NumberDrawn(ev comm.NumberDrawn) {
	p.publish(comm.TypeNumberDrawn, ev)
}

func (p *Publisher) GameCompleted(ev comm.GameCompleted) {
	p.publish(comm.TypeGameCompleted, ev)
}

func (p *Publisher) publish(msgType string, data any) {
	payload, err := Encode(msgType, data)
	if err != nil {
		log.Errorf("encode %s event: %v", msgType, err)
		return
	}
	for _, s := range p.sinks {
		s.Broadcast(payload)
	}
}

// Encode wraps data in a WSMessage and marshals it.
func Encode(msgType string, data any) ([]byte, error) {
	msg, err := comm.NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Fanout forwards every event to each of its broadcasters in order.
type Fanout []Broadcaster

func (f Fanout) GameState(state comm.GameState) {
	for _, b := range f {
		b.GameState(state)
	}
}

func (f Fanout) DrawingStarted(ev comm.DrawingStarted) {
	for _, b := range f {
		b.DrawingStarted(ev)
	}
}

func (f Fanout) NumberDrawn(ev comm.NumberDrawn) {
	for _, b := range f {
		b.NumberDrawn(ev)
	}
}

func (f Fanout) GameCompleted(ev comm.GameCompleted) {
	for _, b := range f {
		b.GameCompleted(ev)
	}
}
