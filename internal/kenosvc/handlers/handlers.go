package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/keno-services/internal/kenosvc/archive"
	"github.com/avvvet/keno-services/internal/kenosvc/broker"
	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/avvvet/keno-services/internal/kenosvc/payout"
	"github.com/avvvet/keno-services/internal/kenosvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultQuoteWager   = 100
	defaultArchiveLimit = 50
	maxArchiveLimit     = 500
)

// DrawArchive reads completed draws kept for audit.
type DrawArchive interface {
	Recent(ctx context.Context, limit int64) ([]archive.DrawRecord, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	bets      *service.BetService
	games     *service.GameService
	payouts   *service.PayoutService
	state     broker.StateSource
	ws        http.HandlerFunc
	draws     DrawArchive
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

// NewHandler wires the HTTP API. ws may be nil when the process serves no
// websocket clients itself.
func NewHandler(bets *service.BetService, games *service.GameService, payouts *service.PayoutService, state broker.StateSource, ws http.HandlerFunc) *Handler {
	return &Handler{
		bets:    bets,
		games:   games,
		payouts: payouts,
		state:   state,
		ws:      ws,
	}
}

// UseArchive enables the draw archive route. Without it the route answers
// 503.
func (h *Handler) UseArchive(draws DrawArchive) {
	h.draws = draws
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("write response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, data interface{}) {
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, code int, reason string) {
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Error: reason})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithField("path", r.URL.Path).Errorf("request failed: %v", err)
	h.fail(w, http.StatusInternalServerError, "Internal server error")
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, map[string]string{"status": "ok", "phase": h.state.Snapshot().Phase})
}

type currentGame struct {
	Game  *models.Game `json:"game"`
	State interface{}  `json:"state"`
}

func (h *Handler) CurrentGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.CurrentGame(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, currentGame{Game: game, State: h.state.Snapshot()})
}

func (h *Handler) GameHistory(w http.ResponseWriter, r *http.Request) {
	limit := service.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.fail(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	games, err := h.games.History(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, games)
}

func (h *Handler) ArchivedDraws(w http.ResponseWriter, r *http.Request) {
	if h.draws == nil {
		h.fail(w, http.StatusServiceUnavailable, "Draw archive not configured")
		return
	}

	limit := int64(defaultArchiveLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 || n > maxArchiveLimit {
			h.fail(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := h.draws.Recent(r.Context(), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, records)
}

func (h *Handler) BetRules(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, h.bets.Rules())
}

type betRequest struct {
	UserID          int64 `json:"userId"`
	SelectedNumbers []int `json:"selectedNumbers"`
	WagerAmount     int64 `json:"wagerAmount"`
}

func (h *Handler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid bet data")
		return
	}

	bet, err := h.bets.PlaceBet(r.Context(), service.BetRequest{
		UserID:          req.UserID,
		SelectedNumbers: req.SelectedNumbers,
		WagerAmount:     req.WagerAmount,
	})
	var rej *service.RejectionError
	switch {
	case err == nil:
		h.ok(w, http.StatusCreated, bet)
	case errors.Is(err, service.ErrUserNotFound) && errors.As(err, &rej):
		h.fail(w, http.StatusNotFound, rej.Reason)
	case errors.As(err, &rej):
		h.fail(w, http.StatusBadRequest, rej.Reason)
	default:
		h.internalError(w, r, err)
	}
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.bets.GetUser(r.Context(), id)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		h.fail(w, http.StatusNotFound, "User not found")
	case err != nil:
		h.internalError(w, r, err)
	default:
		h.ok(w, http.StatusOK, user)
	}
}

func (h *Handler) UserBets(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r, "id")
	if !ok {
		return
	}

	var gameID int64
	if v := r.URL.Query().Get("gameId"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			h.fail(w, http.StatusBadRequest, "Invalid gameId")
			return
		}
		gameID = n
	}

	bets, err := h.bets.UserBets(r.Context(), id, gameID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if bets == nil {
		bets = []*models.Bet{}
	}
	h.ok(w, http.StatusOK, bets)
}

func (h *Handler) PayoutCalculator(w http.ResponseWriter, r *http.Request) {
	spots, err := strconv.Atoi(r.URL.Query().Get("spots"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Valid spots required")
		return
	}

	wager := int64(defaultQuoteWager)
	if v := r.URL.Query().Get("betAmount"); v != "" {
		wager, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			h.fail(w, http.StatusBadRequest, "Valid bet amount required")
			return
		}
	}

	quote, err := h.payouts.Quote(spots, wager)
	switch {
	case errors.Is(err, payout.ErrInvalidSpots):
		h.fail(w, http.StatusBadRequest, "Invalid number of spots")
	case errors.Is(err, service.ErrInvalidWager):
		h.fail(w, http.StatusBadRequest, "Valid bet amount required")
	case err != nil:
		h.internalError(w, r, err)
	default:
		h.ok(w, http.StatusOK, quote)
	}
}

func (h *Handler) PayoutTable(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, h.payouts.Overview())
}

type payoutUpdate struct {
	Spots      int             `json:"spots"`
	Matches    int             `json:"matches"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

func (h *Handler) UpdatePayout(w http.ResponseWriter, r *http.Request) {
	var req payoutUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid payout data")
		return
	}

	overview, err := h.payouts.Update(r.Context(), models.PayoutEntry{
		Spots:      req.Spots,
		Matches:    req.Matches,
		Multiplier: req.Multiplier,
	})
	switch {
	case errors.Is(err, payout.ErrInvalidSpots),
		errors.Is(err, payout.ErrInvalidMatches),
		errors.Is(err, payout.ErrNegativeMultiplier):
		h.fail(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.internalError(w, r, err)
	default:
		h.ok(w, http.StatusOK, overview)
	}
}

func (h *Handler) PayoutAnalysis(w http.ResponseWriter, r *http.Request) {
	spots, err := strconv.Atoi(chi.URLParam(r, "spots"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid number of spots")
		return
	}

	report, err := h.payouts.SpotReport(spots)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid number of spots")
		return
	}
	h.ok(w, http.StatusOK, report)
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		h.fail(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
