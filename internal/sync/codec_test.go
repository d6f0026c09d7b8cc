package sync

import (
	"encoding/json"
	"testing"

	"github.com/hyperengineering/studysync/internal/model"
)

func TestInt64_AcceptsJSONNumberForms(t *testing.T) {
	data := map[string]any{
		"float":  float64(42),
		"int64":  int64(7),
		"int":    3,
		"number": json.Number("19"),
	}

	for key, want := range map[string]int64{"float": 42, "int64": 7, "int": 3, "number": 19} {
		if got := Int64(data, key); got != want {
			t.Errorf("Int64(%q) = %d, want %d", key, got, want)
		}
	}
	if got := Int64(data, "missing"); got != 0 {
		t.Errorf("Int64(missing) = %d, want 0", got)
	}
}

func TestStr_WrongTypeIsEmpty(t *testing.T) {
	data := map[string]any{"n": 5}
	if got := Str(data, "n"); got != "" {
		t.Errorf("Str on numeric field = %q, want empty", got)
	}
}

func TestStringList_MalformedFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want int
	}{
		{"valid list", map[string]any{"tags": `["a","b"]`}, 2},
		{"malformed json", map[string]any{"tags": `["a",`}, 0},
		{"not a string", map[string]any{"tags": 7}, 0},
		{"absent", map[string]any{}, 0},
		{"json null", map[string]any{"tags": `null`}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StringList(tt.data, "tags")
			// Fault isolation: always a usable empty list, never nil
			if got == nil {
				t.Fatal("StringList returned nil, want empty list")
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestResults_RoundTrip(t *testing.T) {
	results := []model.QuizResult{
		{QuestionID: "q1", WasCorrect: true, ConfidenceRating: 4, AnsweredAt: "2026-08-01T10:00:00Z"},
		{QuestionID: "q2", WasCorrect: false, ConfidenceRating: 2, AnsweredAt: "2026-08-01T10:01:00Z"},
	}

	encoded := EncodeResults(results)
	decoded := Results(map[string]any{"results": encoded}, "results")

	if len(decoded) != 2 {
		t.Fatalf("decoded length = %d, want 2", len(decoded))
	}
	if decoded[0].QuestionID != "q1" || !decoded[0].WasCorrect {
		t.Errorf("decoded[0] = %+v, want q1/correct", decoded[0])
	}
}

func TestResults_MalformedFallsBackToEmpty(t *testing.T) {
	got := Results(map[string]any{"results": `[{"questionId":`}, "results")
	if got == nil || len(got) != 0 {
		t.Errorf("malformed results = %v, want empty log", got)
	}
}

func TestEncodeStrings_NilIsEmptyList(t *testing.T) {
	// The wire contract requires "[]", never "null"
	if got := EncodeStrings(nil); got != "[]" {
		t.Errorf("EncodeStrings(nil) = %q, want []", got)
	}
	if got := EncodeResults(nil); got != "[]" {
		t.Errorf("EncodeResults(nil) = %q, want []", got)
	}
}
