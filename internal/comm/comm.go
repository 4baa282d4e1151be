package comm

import (
	"encoding/json"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
)

// NATS subjects shared by the keno services.
const (
	SubjectEvents  = "keno.events"  // game events for socket fan-out
	SubjectService = "keno.service" // player requests, request/reply
	SubjectState   = "keno.state"   // current game state, request/reply
)

// Event and request types carried in WSMessage.Type.
const (
	TypeGameState      = "gameState"
	TypeDrawingStarted = "drawingStarted"
	TypeNumberDrawn    = "numberDrawn"
	TypeGameCompleted  = "gameCompleted"

	TypePlaceBet   = "place-bet"
	TypeGetBalance = "get-balance"
	TypeGetState   = "get-state"
	TypeError      = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "gameState", "place-bet"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// NewMessage marshals data into a WSMessage envelope.
func NewMessage(msgType string, data any) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: msgType, Data: raw}, nil
}

// GameState is the snapshot a client needs to render the current phase.
type GameState struct {
	Phase            string       `json:"phase"`
	CurrentGame      *models.Game `json:"currentGame"`
	DrawnNumbers     []int        `json:"drawnNumbers"` // revealed so far
	CurrentDrawIndex int          `json:"currentDrawIndex"`
	TotalDraws       int          `json:"totalDraws"`
	IsDrawing        bool         `json:"isDrawing"`
	NextDrawTime     int64        `json:"nextDrawTime"` // unix millis
}

type DrawingStarted struct {
	GameID int64 `json:"gameId"`
}

type NumberDrawn struct {
	Number int `json:"number"`
	Index  int `json:"index"` // 1-based
	Total  int `json:"total"`
}

type GameCompleted struct {
	GameID       int64 `json:"gameId"`
	GameNumber   int64 `json:"gameNumber"`
	DrawnNumbers []int `json:"drawnNumbers"`
	NextGameTime int64 `json:"nextGameTime"` // unix millis
}

type PlaceBet struct {
	UserID          int64 `json:"userId"`
	SelectedNumbers []int `json:"selectedNumbers"`
	WagerAmount     int64 `json:"wagerAmount"`
}

type BalanceRequest struct {
	UserID int64 `json:"userId"`
}

type PlayerData struct {
	UserId  int64  `json:"user_id"`
	Name    string `json:"name"`
	Balance int64  `json:"balance"`
}

// Reply answers a request on SubjectService.
type Reply struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}
