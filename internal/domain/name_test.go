package domain

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Alice", "Alice"},
		{"  Alice  ", "Alice"},
		{"  Sam   Lee  ", "Sam Lee"},
		{"a\tb\nc", "a b c"},
		{"", ""},
		{"   ", ""},
		{"\t\n", ""},
	}
	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFoldName(t *testing.T) {
	if FoldName("Sam Lee") != "sam lee" {
		t.Errorf("FoldName(%q) = %q", "Sam Lee", FoldName("Sam Lee"))
	}
	if FoldName("ALICE") != FoldName("alice") {
		t.Error("expected case-insensitive keys to match")
	}
}

func TestScoresWinner(t *testing.T) {
	tests := []struct {
		scores Scores
		winner string
		ok     bool
	}{
		{Scores{Good: 0, Bad: 0, TargetScore: 21}, "", false},
		{Scores{Good: 20, Bad: 19, TargetScore: 21}, "", false},
		{Scores{Good: 21, Bad: 19, TargetScore: 21}, "good", true},
		{Scores{Good: 3, Bad: 25, TargetScore: 21}, "bad", true},
		{Scores{Good: 11, Bad: 2, TargetScore: 11}, "good", true},
	}
	for _, tt := range tests {
		winner, ok := tt.scores.Winner()
		if winner != tt.winner || ok != tt.ok {
			t.Errorf("Winner(%+v) = %q,%v, want %q,%v", tt.scores, winner, ok, tt.winner, tt.ok)
		}
	}
}

func TestScoresTargetLocked(t *testing.T) {
	if (Scores{TargetScore: 21}).TargetLocked() {
		t.Error("fresh scoreboard should not be locked")
	}
	if !(Scores{Good: 1, TargetScore: 21}).TargetLocked() {
		t.Error("scoreboard with points should be locked")
	}
	if !(Scores{Bad: 1, TargetScore: 21}).TargetLocked() {
		t.Error("scoreboard with points should be locked")
	}
}
