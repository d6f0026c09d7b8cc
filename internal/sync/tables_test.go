package sync

import "testing"

func TestCanonicalTable(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"legacy quiz session alias", "quizSessions", "quiz_sessions"},
		{"canonical passes through", "quiz_sessions", "quiz_sessions"},
		{"topics unchanged", "topics", "topics"},
		{"unknown unchanged", "flashcard_decks", "flashcard_decks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalTable(tt.input); got != tt.want {
				t.Errorf("CanonicalTable(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestKnownTable(t *testing.T) {
	if !KnownTable("topics") {
		t.Error("KnownTable(topics) = false, want true")
	}
	if !KnownTable("quizSessions") {
		t.Error("KnownTable(quizSessions) = false, want true (alias)")
	}
	if KnownTable("flashcard_decks") {
		t.Error("KnownTable(flashcard_decks) = true, want false")
	}
}

func TestRank_Hierarchy(t *testing.T) {
	if Rank(TableTopics) >= Rank(TableQuestions) {
		t.Error("topics must rank before questions")
	}
	if Rank(TableQuestions) >= Rank(TableProgress) {
		t.Error("questions must rank before progress")
	}
	if Rank(TableProgress) != Rank(TableQuizSessions) {
		t.Error("progress and quiz_sessions must share a rank")
	}
	if Rank("flashcard_decks") <= Rank(TableQuizSessions) {
		t.Error("unknown tables must rank after every known table")
	}
}
