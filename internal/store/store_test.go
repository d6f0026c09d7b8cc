package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperengineering/studysync/internal/model"
)

// newTestStore opens a fresh migrated database in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "studysync.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustCreateTopic(t *testing.T, s *Store, name string) *model.Topic {
	t.Helper()

	topic, err := s.CreateTopic(context.Background(), model.Topic{
		Name:      name,
		Slug:      name,
		Subtopics: []string{},
	})
	if err != nil {
		t.Fatalf("CreateTopic(%s): %v", name, err)
	}
	return topic
}

func mustCreateQuestion(t *testing.T, s *Store, topicID, text string) *model.Question {
	t.Helper()

	q, err := s.CreateQuestion(context.Background(), model.Question{
		TopicID:    topicID,
		Question:   text,
		Answer:     "answer for " + text,
		Difficulty: model.DifficultyBeginner,
		Tags:       []string{},
	})
	if err != nil {
		t.Fatalf("CreateQuestion(%s): %v", text, err)
	}
	return q
}

func TestOpen_MigratesSchema(t *testing.T) {
	s := newTestStore(t)

	// Then all sync engine tables exist
	for _, table := range []string{"topics", "questions", "progress", "quiz_sessions", "pending_deletes", "sync_meta"} {
		var name string
		err := s.db.QueryRow(
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestDeviceID_StableAcrossCalls(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID: %v", err)
	}
	if first == "" {
		t.Fatal("DeviceID returned empty id")
	}

	second, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID second call: %v", err)
	}
	if second != first {
		t.Errorf("DeviceID not stable: %q then %q", first, second)
	}
}
