package sync

import (
	"encoding/json"
	"log/slog"

	"github.com/hyperengineering/studysync/internal/model"
)

// Field decoding for the flat wire format. Structured fields (string
// lists, result logs) travel as JSON-encoded strings inside the data
// map; decoding one of them can fail without aborting the record. Each
// helper falls back to the field's zero value and logs, so a single
// malformed field never blocks the rest of the row or the batch.

// Str returns a string field, or "" when absent or of the wrong type.
func Str(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// Int returns a numeric field as an int. JSON numbers arrive as float64.
func Int(data map[string]any, key string) int {
	return int(Int64(data, key))
}

// Int64 returns a numeric field as an int64, or 0 when absent.
func Int64(data map[string]any, key string) int64 {
	switch v := data[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			slog.Warn("sync: malformed numeric field", "field", key, "value", v.String())
			return 0
		}
		return n
	default:
		return 0
	}
}

// StringList decodes a JSON-encoded string-list field. A malformed
// value yields an empty list, never an error.
func StringList(data map[string]any, key string) []string {
	raw, ok := data[key]
	if !ok || raw == nil {
		return []string{}
	}
	s, ok := raw.(string)
	if !ok {
		slog.Warn("sync: list field is not a string", "field", key)
		return []string{}
	}
	return DecodeStrings(s)
}

// DecodeStrings decodes a JSON-encoded string list, falling back to an
// empty list on malformed input.
func DecodeStrings(s string) []string {
	if s == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		slog.Warn("sync: malformed list value, using empty list", "error", err)
		return []string{}
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// Results decodes a JSON-encoded quiz result log. A malformed value
// yields an empty log.
func Results(data map[string]any, key string) []model.QuizResult {
	raw, ok := data[key]
	if !ok || raw == nil {
		return []model.QuizResult{}
	}
	s, ok := raw.(string)
	if !ok {
		slog.Warn("sync: results field is not a string", "field", key)
		return []model.QuizResult{}
	}
	return DecodeResults(s)
}

// DecodeResults decodes a JSON-encoded quiz result log, falling back to
// an empty log on malformed input.
func DecodeResults(s string) []model.QuizResult {
	if s == "" {
		return []model.QuizResult{}
	}
	var out []model.QuizResult
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		slog.Warn("sync: malformed results value, using empty log", "error", err)
		return []model.QuizResult{}
	}
	if out == nil {
		out = []model.QuizResult{}
	}
	return out
}

// EncodeStrings flattens a string list for transport or storage.
// The encoding must match the server byte-for-byte; do not change it
// without a protocol revision.
func EncodeStrings(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// EncodeResults flattens a quiz result log for transport or storage.
func EncodeResults(v []model.QuizResult) string {
	if v == nil {
		v = []model.QuizResult{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}
