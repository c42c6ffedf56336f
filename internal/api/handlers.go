package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ernie/nextup/internal/domain"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy to a status code. Anything that
// isn't a caller-facing condition is a persistence fault.
func writeDomainError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		writeError(w, statusForCode(de.Code), de.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "Database error")
}

func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeAlreadyQueued:
		return http.StatusConflict
	case domain.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// queueResponse wraps an ordered queue for the wire.
type queueResponse struct {
	Queue []string `json:"queue"`
}

// scoresResponse is the scoreboard plus its derived views: the winner, if a
// team has reached the target, and the advisory target lock.
type scoresResponse struct {
	Good         int    `json:"good"`
	Bad          int    `json:"bad"`
	TargetScore  int    `json:"target_score"`
	Winner       string `json:"winner,omitempty"`
	TargetLocked bool   `json:"target_locked"`
}

func newScoresResponse(sc domain.Scores) scoresResponse {
	resp := scoresResponse{
		Good:         sc.Good,
		Bad:          sc.Bad,
		TargetScore:  sc.TargetScore,
		TargetLocked: sc.TargetLocked(),
	}
	if winner, ok := sc.Winner(); ok {
		resp.Winner = winner
	}
	return resp
}

// --- Court handlers ---

// handleCreateCourt creates a court, generating a name when none is given
func (r *Router) handleCreateCourt(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if req.Body != nil {
		// An empty or absent body means "generate a name"
		_ = json.NewDecoder(req.Body).Decode(&body)
	}

	if len(domain.NormalizeName(body.Name)) > domain.MaxNameLength {
		writeError(w, http.StatusBadRequest, "Name too long")
		return
	}

	court, err := r.store.CreateCourt(req.Context(), body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, court)
}

// handleListCourts returns all courts, most recently active first
func (r *Router) handleListCourts(w http.ResponseWriter, req *http.Request) {
	courts, err := r.store.ListCourts(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if courts == nil {
		courts = []domain.CourtSummary{}
	}
	writeJSON(w, http.StatusOK, courts)
}

// handleGetCourt returns a single court
func (r *Router) handleGetCourt(w http.ResponseWriter, req *http.Request) {
	court, err := r.store.GetCourt(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if court == nil {
		writeError(w, http.StatusNotFound, "Court not found")
		return
	}
	writeJSON(w, http.StatusOK, court)
}

// handleDeleteCourt deletes a court and its queue; deleting twice is fine
func (r *Router) handleDeleteCourt(w http.ResponseWriter, req *http.Request) {
	if err := r.store.DeleteCourt(req.Context(), req.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Queue handlers ---

// handleGetQueue returns the ordered queue for a court
func (r *Router) handleGetQueue(w http.ResponseWriter, req *http.Request) {
	queue, err := r.store.GetQueue(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Queue: queue})
}

// handleJoinQueue adds a player to the back of the queue
func (r *Router) handleJoinQueue(w http.ResponseWriter, req *http.Request) {
	name, ok := parseNameBody(w, req)
	if !ok {
		return
	}

	queue, err := r.store.JoinQueue(req.Context(), req.PathValue("id"), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, queueResponse{Queue: queue})
}

// handleLeaveQueue removes a player by name
func (r *Router) handleLeaveQueue(w http.ResponseWriter, req *http.Request) {
	name, ok := parseNameBody(w, req)
	if !ok {
		return
	}

	queue, err := r.store.LeaveQueue(req.Context(), req.PathValue("id"), name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Queue: queue})
}

// handleNextPlayer dequeues the front of the queue
func (r *Router) handleNextPlayer(w http.ResponseWriter, req *http.Request) {
	result, err := r.store.AdvanceQueue(req.Context(), req.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Scoreboard handlers ---

// handleGetScores returns the scoreboard for a court
func (r *Router) handleGetScores(w http.ResponseWriter, req *http.Request) {
	scores, err := r.store.GetScores(req.Context(), req.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, newScoresResponse(scores))
}

// handleUpdateScores sets one or both team scores. Fractional values are
// floored and negatives clamped to zero rather than rejected.
func (r *Router) handleUpdateScores(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Good *float64 `json:"good"`
		Bad  *float64 `json:"bad"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Must provide good and/or bad as numbers")
		return
	}
	if body.Good == nil && body.Bad == nil {
		writeError(w, http.StatusBadRequest, "Must provide good and/or bad as numbers")
		return
	}

	scores, err := r.store.UpdateScores(req.Context(), req.PathValue("id"),
		floorScore(body.Good), floorScore(body.Bad))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newScoresResponse(scores))
}

// handleResetScores zeroes both scores, leaving the target untouched
func (r *Router) handleResetScores(w http.ResponseWriter, req *http.Request) {
	scores, err := r.store.ResetScores(req.Context(), req.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newScoresResponse(scores))
}

// handleSetTargetScore changes the winning target. The 1..100 range check
// lives here; the stored target stays mutable even mid-game (the lock shown
// in clients is advisory only).
func (r *Router) handleSetTargetScore(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Target *float64 `json:"target"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Target == nil {
		writeError(w, http.StatusBadRequest, "Target score must be a number")
		return
	}

	target := floorScore(body.Target)
	if !validTargetScore(*target) {
		writeError(w, http.StatusBadRequest, "Target score must be between 1 and 100")
		return
	}

	scores, err := r.store.SetTargetScore(req.Context(), req.PathValue("id"), *target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newScoresResponse(scores))
}

// handleHealth returns a simple health check response
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
