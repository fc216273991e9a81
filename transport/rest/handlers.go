package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/othello-backend/internal/apperror"
	"github.com/rocketscienceinc/othello-backend/internal/usecase"
)

const maxBodyBytes = 1 << 16

var errInvalidPayload = errors.New("invalid payload")

type gameHandlers struct {
	logger *slog.Logger
	game   usecase.GameUseCase
}

func newGameHandlers(logger *slog.Logger, game usecase.GameUseCase) *gameHandlers {
	return &gameHandlers{
		logger: logger.With("component", "rest-handlers"),
		game:   game,
	}
}

func (that *gameHandlers) Join(w http.ResponseWriter, r *http.Request) {
	var req usecase.JoinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		that.writeError(w, err)
		return
	}

	resp, err := that.game.Join(r.Context(), req)
	if err != nil {
		that.writeError(w, err)
		return
	}

	status := http.StatusOK
	if resp.Status == usecase.StatusWaiting {
		status = http.StatusAccepted
	}

	writeJSON(w, status, resp)
}

func (that *gameHandlers) State(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	resp, err := that.game.GetState(r.Context(), query.Get("sessionId"), query.Get("matchId"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (that *gameHandlers) Move(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var req usecase.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		that.writeError(w, err)
		return
	}

	resp, err := that.game.MakeMove(r.Context(), query.Get("sessionId"), query.Get("matchId"), req)
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (that *gameHandlers) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		if limit, err = strconv.Atoi(raw); err != nil {
			that.writeError(w, errInvalidPayload)
			return
		}
	}

	results, err := that.game.History(r.Context(), limit)
	if err != nil {
		that.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (that *gameHandlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "error", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor - maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrMatchFull),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrMatchIDUnavailable):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidMove),
		errors.Is(err, apperror.ErrMissingJoinTarget),
		errors.Is(err, apperror.ErrMissingConnection),
		errors.Is(err, errInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
