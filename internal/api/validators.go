package api

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/ernie/nextup/internal/domain"
)

// parseNameBody decodes the {"name": ...} body shared by the queue
// endpoints. It rejects names that exceed the length cap before the store
// sees them; emptiness is checked in the store so the message matches the
// whitespace-only case too.
func parseNameBody(w http.ResponseWriter, req *http.Request) (string, bool) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Name is required")
		return "", false
	}
	if len(domain.NormalizeName(body.Name)) > domain.MaxNameLength {
		writeError(w, http.StatusBadRequest, "Name too long")
		return "", false
	}
	return body.Name, true
}

// floorScore converts an optional JSON number to an optional int, flooring
// fractional values. Clamping negatives is the store's job.
func floorScore(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Floor(*v))
	return &n
}

func validTargetScore(target int) bool {
	return target >= 1 && target <= domain.MaxTargetScore
}
