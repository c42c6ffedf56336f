package domain

import "time"

// DefaultTargetScore is the target a new court starts with.
const DefaultTargetScore = 21

// MaxTargetScore is the highest target the boundary accepts.
const MaxTargetScore = 100

// Court is an independent queue+scoreboard context.
type Court struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	GoodScore    int       `json:"good_score"`
	BadScore     int       `json:"bad_score"`
	TargetScore  int       `json:"target_score"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// CourtSummary is the lighter projection used for listings (no score fields).
type CourtSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// QueueEntry is one waiting player on a court. Positions are dense and
// 1-based per court; position, not created_at, is authoritative for ordering.
type QueueEntry struct {
	ID        int64     `json:"id"`
	CourtID   string    `json:"court_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Scores is the scoreboard view of a court.
type Scores struct {
	Good        int `json:"good"`
	Bad         int `json:"bad"`
	TargetScore int `json:"target_score"`
}

// Winner returns which team has reached the target score, if any.
// Scores stay mutable after a win; this is a derived view only.
func (s Scores) Winner() (string, bool) {
	if s.Good >= s.TargetScore {
		return "good", true
	}
	if s.Bad >= s.TargetScore {
		return "bad", true
	}
	return "", false
}

// TargetLocked reports whether a game is underway. The lock is advisory:
// the server always accepts target writes, clients use this to gray out
// the control once play has started.
func (s Scores) TargetLocked() bool {
	return s.Good > 0 || s.Bad > 0
}

// AdvanceResult is the outcome of dequeuing the front of a court's queue.
// Next is nil when the queue was empty.
type AdvanceResult struct {
	Next  *string  `json:"next"`
	Queue []string `json:"queue"`
}
