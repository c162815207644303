package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/battlecore/battlecore/internal/battle"

	"github.com/go-chi/chi/v5"
)

// routerHandlers holds the handler functions for the router. Unlike the
// original engine's single shared EngineInterface, every handler here
// resolves its battle.Host fresh from the registry per request — battles
// are short-lived and many run concurrently.
type routerHandlers struct {
	registry *Registry
}

// handleCreateBattle handles POST /battles.
func (h *routerHandlers) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	var req CreateBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, host, err := h.registry.Create(req)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	UpdateActiveBattles(h.registry.Count())

	writeJSON(w, map[string]interface{}{
		"id":       id,
		"snapshot": host.Snapshot(-1),
	})
}

// choiceRequest is the POST /battles/{id}/choice body. While the battle is
// waiting on any forced-switch replacement (for PlayerID or another
// player), TeamIndex is used instead of Text.
type choiceRequest struct {
	PlayerID  string `json:"player_id"`
	Text      string `json:"text,omitempty"`
	TeamIndex int    `json:"team_index,omitempty"`
}

// handleChoice handles POST /battles/{id}/choice.
func (h *routerHandlers) handleChoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	host, ok := h.registry.Get(id)
	if !ok {
		writeError(w, "no such battle", http.StatusNotFound)
		return
	}

	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" {
		writeError(w, "player_id is required", http.StatusBadRequest)
		return
	}

	var err error
	if needsReplacement(host) {
		err = host.SubmitReplacement(req.PlayerID, req.TeamIndex)
	} else {
		err = host.SetPlayerChoice(req.PlayerID, req.Text)
	}
	if err != nil {
		writeChoiceError(w, err)
		return
	}

	start := time.Now()
	if host.AllReady() {
		if err := host.AdvanceTurn(); err != nil && !errors.Is(err, errBattleNotReady) {
			writeError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		RecordTurnDuration(time.Since(start))
	}
	if host.Ended() {
		RecordBattleEnded()
	}

	writeJSON(w, map[string]interface{}{
		"accepted": true,
		"snapshot": host.Snapshot(-1),
	})
}

var errBattleNotReady = errors.New("battle: not ready to advance")

func needsReplacement(host *battle.Host) bool {
	return len(host.NeedsReplacement()) > 0
}

func writeChoiceError(w http.ResponseWriter, err error) {
	var ce *battle.ChoiceError
	if errors.As(err, &ce) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"error":  ce.Message,
			"reason": string(ce.Reason),
		})
		return
	}
	writeError(w, err.Error(), http.StatusBadRequest)
}

// handleGetRequest handles GET /battles/{id}/request?player=..., returning
// the decision request the engine is currently waiting on from that player
// (its legal moves, switchable bench slots, or the forced replacements it
// owes).
func (h *routerHandlers) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	host, ok := h.registry.Get(id)
	if !ok {
		writeError(w, "no such battle", http.StatusNotFound)
		return
	}
	player := r.URL.Query().Get("player")
	if player == "" {
		writeError(w, "player is required", http.StatusBadRequest)
		return
	}
	req, ok := host.Request(player)
	if !ok {
		writeError(w, "no pending request for that player", http.StatusNotFound)
		return
	}
	writeJSON(w, req)
}

// handleGetLog handles GET /battles/{id}/log, a long-poll that blocks (up
// to a bounded timeout) until new log entries exist or the battle ends.
func (h *routerHandlers) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	host, ok := h.registry.Get(id)
	if !ok {
		writeError(w, "no such battle", http.StatusNotFound)
		return
	}
	side := sideFromQuery(r)

	deadline := time.Now().Add(longPollTimeout)
	for {
		entries := host.NewLogs(side)
		if len(entries) > 0 || host.Ended() || time.Now().After(deadline) {
			writeJSON(w, map[string]interface{}{
				"entries": entries,
				"ended":   host.Ended(),
			})
			return
		}
		time.Sleep(longPollInterval)
	}
}

const (
	longPollTimeout  = 25 * time.Second
	longPollInterval = 200 * time.Millisecond
)

func sideFromQuery(r *http.Request) int {
	v := r.URL.Query().Get("side")
	if v == "" {
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
