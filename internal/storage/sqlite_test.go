package storage

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/ernie/nextup/internal/domain"
	"github.com/ernie/nextup/internal/namegen"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", namegen.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateCourt(t *testing.T, s *Store, name string) *domain.Court {
	t.Helper()
	court, err := s.CreateCourt(context.Background(), name)
	if err != nil {
		t.Fatalf("CreateCourt failed: %v", err)
	}
	return court
}

// backdateCourt rewrites a court's last_activity for lifecycle tests.
func backdateCourt(t *testing.T, s *Store, courtID string, age time.Duration) {
	t.Helper()
	ts := formatTimestamp(time.Now().Add(-age))
	if _, err := s.db.Exec(`UPDATE courts SET last_activity = ? WHERE id = ?`, ts, courtID); err != nil {
		t.Fatalf("failed to backdate court: %v", err)
	}
}

func TestCreateCourtGeneratedName(t *testing.T) {
	s := newTestStore(t)
	court := mustCreateCourt(t, s, "")

	if court.Name == "" {
		t.Fatal("expected a generated name for empty input")
	}
	if len(court.ID) != 22 {
		t.Errorf("expected 22-char court id, got %q (%d chars)", court.ID, len(court.ID))
	}
	if court.GoodScore != 0 || court.BadScore != 0 {
		t.Errorf("expected zero scores, got %d/%d", court.GoodScore, court.BadScore)
	}
	if court.TargetScore != domain.DefaultTargetScore {
		t.Errorf("expected target %d, got %d", domain.DefaultTargetScore, court.TargetScore)
	}
}

func TestCreateCourtNormalizesCustomName(t *testing.T) {
	s := newTestStore(t)
	court := mustCreateCourt(t, s, "  Center   Court  ")

	if court.Name != "Center Court" {
		t.Errorf("expected normalized name %q, got %q", "Center Court", court.Name)
	}
}

func TestGetCourtMissing(t *testing.T) {
	s := newTestStore(t)
	court, err := s.GetCourt(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetCourt failed: %v", err)
	}
	if court != nil {
		t.Errorf("expected nil for missing court, got %+v", court)
	}
}

func TestJoinQueueFIFO(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if _, err := s.JoinQueue(ctx, court.ID, name); err != nil {
			t.Fatalf("JoinQueue(%s) failed: %v", name, err)
		}
	}

	queue, err := s.GetQueue(ctx, court.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	want := []string{"Alice", "Bob", "Carol"}
	assertQueue(t, queue, want)
}

func TestJoinQueueNormalizesName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	queue, err := s.JoinQueue(ctx, court.ID, "  Sam   Lee  ")
	if err != nil {
		t.Fatalf("JoinQueue failed: %v", err)
	}
	assertQueue(t, queue, []string{"Sam Lee"})
}

func TestJoinQueueEmptyName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, raw := range []string{"", "   ", "\t\n"} {
		if _, err := s.JoinQueue(ctx, court.ID, raw); err != domain.ErrEmptyName {
			t.Errorf("JoinQueue(%q): expected ErrEmptyName, got %v", raw, err)
		}
	}
}

func TestJoinQueueMissingCourt(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.JoinQueue(context.Background(), "nope", "Alice"); err != domain.ErrCourtNotFound {
		t.Errorf("expected ErrCourtNotFound, got %v", err)
	}
}

func TestJoinQueueDuplicateCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	if _, err := s.JoinQueue(ctx, court.ID, "Alice"); err != nil {
		t.Fatalf("JoinQueue failed: %v", err)
	}
	for _, dup := range []string{"Alice", "alice", "ALICE", "  aLiCe  "} {
		if _, err := s.JoinQueue(ctx, court.ID, dup); err != domain.ErrAlreadyQueued {
			t.Errorf("JoinQueue(%q): expected ErrAlreadyQueued, got %v", dup, err)
		}
	}
}

func TestQueuesIndependentAcrossCourts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCreateCourt(t, s, "Court A")
	b := mustCreateCourt(t, s, "Court B")

	if _, err := s.JoinQueue(ctx, a.ID, "Alice"); err != nil {
		t.Fatalf("JoinQueue on court A failed: %v", err)
	}
	// Same name on a different court is not a duplicate
	if _, err := s.JoinQueue(ctx, b.ID, "Alice"); err != nil {
		t.Fatalf("JoinQueue on court B failed: %v", err)
	}

	queueB, err := s.GetQueue(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	assertQueue(t, queueB, []string{"Alice"})
}

func TestLeaveQueueShiftsPositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		if _, err := s.JoinQueue(ctx, court.ID, name); err != nil {
			t.Fatalf("JoinQueue(%s) failed: %v", name, err)
		}
	}

	queue, err := s.LeaveQueue(ctx, court.ID, "bob")
	if err != nil {
		t.Fatalf("LeaveQueue failed: %v", err)
	}
	assertQueue(t, queue, []string{"Alice", "Carol", "Dave"})
	assertDensePositions(t, s, court.ID)
}

func TestLeaveQueueNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	if _, err := s.LeaveQueue(ctx, court.ID, "Ghost"); err != domain.ErrNameNotFound {
		t.Errorf("expected ErrNameNotFound, got %v", err)
	}
}

func TestAdvanceQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if _, err := s.JoinQueue(ctx, court.ID, name); err != nil {
			t.Fatalf("JoinQueue(%s) failed: %v", name, err)
		}
	}

	result, err := s.AdvanceQueue(ctx, court.ID)
	if err != nil {
		t.Fatalf("AdvanceQueue failed: %v", err)
	}
	if result.Next == nil || *result.Next != "Alice" {
		t.Fatalf("expected next=Alice, got %v", result.Next)
	}
	assertQueue(t, result.Queue, []string{"Bob", "Carol"})
	assertDensePositions(t, s, court.ID)
}

func TestAdvanceAfterLeavePreservesOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, name := range []string{"Alice", "Bob", "Carol"} {
		if _, err := s.JoinQueue(ctx, court.ID, name); err != nil {
			t.Fatalf("JoinQueue(%s) failed: %v", name, err)
		}
	}
	if _, err := s.LeaveQueue(ctx, court.ID, "Bob"); err != nil {
		t.Fatalf("LeaveQueue failed: %v", err)
	}

	result, err := s.AdvanceQueue(ctx, court.ID)
	if err != nil {
		t.Fatalf("AdvanceQueue failed: %v", err)
	}
	if result.Next == nil || *result.Next != "Alice" {
		t.Fatalf("expected next=Alice, got %v", result.Next)
	}
	assertQueue(t, result.Queue, []string{"Carol"})
}

func TestAdvanceEmptyQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")
	backdateCourt(t, s, court.ID, time.Hour)

	before, err := s.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("GetCourt failed: %v", err)
	}

	result, err := s.AdvanceQueue(ctx, court.ID)
	if err != nil {
		t.Fatalf("AdvanceQueue failed: %v", err)
	}
	if result.Next != nil {
		t.Errorf("expected nil next on empty queue, got %q", *result.Next)
	}
	if len(result.Queue) != 0 {
		t.Errorf("expected empty queue, got %v", result.Queue)
	}

	// Advancing an empty queue is a read: no activity bump
	after, err := s.GetCourt(ctx, court.ID)
	if err != nil {
		t.Fatalf("GetCourt failed: %v", err)
	}
	if !after.LastActivity.Equal(before.LastActivity) {
		t.Errorf("empty advance bumped last_activity: %v -> %v", before.LastActivity, after.LastActivity)
	}
}

func TestRejoinAfterLeave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	for _, name := range []string{"Alice", "Bob"} {
		if _, err := s.JoinQueue(ctx, court.ID, name); err != nil {
			t.Fatalf("JoinQueue(%s) failed: %v", name, err)
		}
	}
	if _, err := s.LeaveQueue(ctx, court.ID, "Alice"); err != nil {
		t.Fatalf("LeaveQueue failed: %v", err)
	}

	// Rejoining goes to the back, not the old slot
	queue, err := s.JoinQueue(ctx, court.ID, "Alice")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	assertQueue(t, queue, []string{"Bob", "Alice"})
}

func TestUpdateScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	good := 7
	sc, err := s.UpdateScores(ctx, court.ID, &good, nil)
	if err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}
	if sc.Good != 7 || sc.Bad != 0 {
		t.Errorf("expected 7/0, got %d/%d", sc.Good, sc.Bad)
	}

	bad := 3
	sc, err = s.UpdateScores(ctx, court.ID, nil, &bad)
	if err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}
	if sc.Good != 7 || sc.Bad != 3 {
		t.Errorf("omitted field changed: expected 7/3, got %d/%d", sc.Good, sc.Bad)
	}
}

func TestUpdateScoresClampsNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	good, bad := -5, -1
	sc, err := s.UpdateScores(ctx, court.ID, &good, &bad)
	if err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}
	if sc.Good != 0 || sc.Bad != 0 {
		t.Errorf("expected negatives clamped to 0/0, got %d/%d", sc.Good, sc.Bad)
	}
}

func TestUpdateScoresMissingCourt(t *testing.T) {
	s := newTestStore(t)
	good := 5
	sc, err := s.UpdateScores(context.Background(), "nope", &good, nil)
	if err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}
	if sc.Good != 0 || sc.Bad != 0 || sc.TargetScore != domain.DefaultTargetScore {
		t.Errorf("expected default scoreboard for missing court, got %+v", sc)
	}
}

func TestResetScoresKeepsTarget(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	if _, err := s.SetTargetScore(ctx, court.ID, 15); err != nil {
		t.Fatalf("SetTargetScore failed: %v", err)
	}
	good, bad := 10, 8
	if _, err := s.UpdateScores(ctx, court.ID, &good, &bad); err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}

	sc, err := s.ResetScores(ctx, court.ID)
	if err != nil {
		t.Fatalf("ResetScores failed: %v", err)
	}
	if sc.Good != 0 || sc.Bad != 0 {
		t.Errorf("expected 0/0 after reset, got %d/%d", sc.Good, sc.Bad)
	}
	if sc.TargetScore != 15 {
		t.Errorf("reset changed target: expected 15, got %d", sc.TargetScore)
	}
}

func TestSetTargetScoreAfterPlayStarted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	good := 5
	if _, err := s.UpdateScores(ctx, court.ID, &good, nil); err != nil {
		t.Fatalf("UpdateScores failed: %v", err)
	}

	// The mid-game lock is advisory; the store accepts the write
	sc, err := s.SetTargetScore(ctx, court.ID, 11)
	if err != nil {
		t.Fatalf("SetTargetScore failed: %v", err)
	}
	if sc.TargetScore != 11 {
		t.Errorf("expected target 11, got %d", sc.TargetScore)
	}
	if sc.Good != 5 {
		t.Errorf("target write changed scores: got good=%d", sc.Good)
	}
}

func TestSetTargetScoreFloor(t *testing.T) {
	s := newTestStore(t)
	court := mustCreateCourt(t, s, "")

	sc, err := s.SetTargetScore(context.Background(), court.ID, 0)
	if err != nil {
		t.Fatalf("SetTargetScore failed: %v", err)
	}
	if sc.TargetScore != 1 {
		t.Errorf("expected target floored to 1, got %d", sc.TargetScore)
	}
}

func TestGetScoresMissingCourt(t *testing.T) {
	s := newTestStore(t)
	sc, err := s.GetScores(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	if sc.Good != 0 || sc.Bad != 0 || sc.TargetScore != domain.DefaultTargetScore {
		t.Errorf("expected default scoreboard, got %+v", sc)
	}
}

func TestDeleteCourtCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	court := mustCreateCourt(t, s, "")

	if _, err := s.JoinQueue(ctx, court.ID, "Alice"); err != nil {
		t.Fatalf("JoinQueue failed: %v", err)
	}

	if err := s.DeleteCourt(ctx, court.ID); err != nil {
		t.Fatalf("DeleteCourt failed: %v", err)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM queue_entries WHERE court_id = ?`, court.ID).Scan(&count); err != nil {
		t.Fatalf("counting queue entries: %v", err)
	}
	if count != 0 {
		t.Errorf("expected cascade to remove queue entries, found %d", count)
	}

	// Deleting again is a no-op
	if err := s.DeleteCourt(ctx, court.ID); err != nil {
		t.Errorf("second delete failed: %v", err)
	}
}

func TestReapIdleCourts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	idle := mustCreateCourt(t, s, "Idle")
	active := mustCreateCourt(t, s, "Active")
	if _, err := s.JoinQueue(ctx, idle.ID, "Alice"); err != nil {
		t.Fatalf("JoinQueue failed: %v", err)
	}

	backdateCourt(t, s, idle.ID, 31*time.Minute)
	backdateCourt(t, s, active.ID, 29*time.Minute)

	count, err := s.ReapIdleCourts(ctx, time.Now().Add(-30*time.Minute))
	if err != nil {
		t.Fatalf("ReapIdleCourts failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 court reaped, got %d", count)
	}

	if c, _ := s.GetCourt(ctx, idle.ID); c != nil {
		t.Error("idle court survived the reap")
	}
	if c, _ := s.GetCourt(ctx, active.ID); c == nil {
		t.Error("active court was reaped")
	}

	// The cascade clears the reaped court's queue too
	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM queue_entries WHERE court_id = ?`, idle.ID).Scan(&orphans); err != nil {
		t.Fatalf("counting queue entries: %v", err)
	}
	if orphans != 0 {
		t.Errorf("expected no orphaned queue entries, found %d", orphans)
	}
}

func TestListCourtsOrderedByActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := mustCreateCourt(t, s, "Older")
	newer := mustCreateCourt(t, s, "Newer")
	backdateCourt(t, s, older.ID, 10*time.Minute)

	courts, err := s.ListCourts(ctx)
	if err != nil {
		t.Fatalf("ListCourts failed: %v", err)
	}
	if len(courts) != 2 {
		t.Fatalf("expected 2 courts, got %d", len(courts))
	}
	if courts[0].ID != newer.ID || courts[1].ID != older.ID {
		t.Errorf("expected most recently active first, got %s then %s", courts[0].Name, courts[1].Name)
	}
}

func assertQueue(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected queue %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected queue %v, got %v", want, got)
		}
	}
}

// assertDensePositions verifies queue positions are 1..n with no gaps.
func assertDensePositions(t *testing.T, s *Store, courtID string) {
	t.Helper()
	rows, err := s.db.Query(`
		SELECT position FROM queue_entries WHERE court_id = ? ORDER BY position ASC
	`, courtID)
	if err != nil {
		t.Fatalf("querying positions: %v", err)
	}
	defer rows.Close()

	expected := 1
	for rows.Next() {
		var pos int
		if err := rows.Scan(&pos); err != nil {
			t.Fatalf("scanning position: %v", err)
		}
		if pos != expected {
			t.Fatalf("expected position %d, got %d", expected, pos)
		}
		expected++
	}
}
