package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/keno-services/internal/comm"
	"github.com/avvvet/keno-services/internal/socketsvc/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	upgrader websocket.Upgrader
	hub      *ws.Hub
	snapshot func() []byte
	name     string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

// NewHandler serves websocket clients from hub. snapshot supplies the
// encoded gameState message every new client receives first.
func NewHandler(name string, hub *ws.Hub, snapshot func() []byte) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		hub:      hub,
		snapshot: snapshot,
		name:     name,
	}
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied to the client
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.hub.Register(socketId, conn, h.snapshot)
	log.Infof("New WebSocket connection established: %s", socketId)

	go h.readLoop(conn, socketId)
}

func (h *Handler) readLoop(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.hub.Unregister(socketId)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendError(socketId, "Invalid message format")
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)
		h.hub.Dispatch(socketId, message)
	}
}

func (h *Handler) sendError(socketId string, reason string) {
	msg, err := comm.NewMessage(comm.TypeError, map[string]string{"error": reason})
	if err != nil {
		return
	}
	h.hub.SendMessage(socketId, msg)
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: h.name + " is running",
		Code:    http.StatusOK,
		Data:    map[string]int{"clients": h.hub.Count()},
	})
}
