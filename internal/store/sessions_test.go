package store

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperengineering/studysync/internal/model"
)

func TestQuizSession_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess, err := s.StartQuizSession(ctx, model.SessionByTopic, []string{"t1"}, []string{"q1", "q2"})
	if err != nil {
		t.Fatalf("StartQuizSession: %v", err)
	}
	if sess.SyncVersion != 1 || sess.CurrentIndex != 0 {
		t.Errorf("new session = v%d index %d, want v1 index 0", sess.SyncVersion, sess.CurrentIndex)
	}

	updated, err := s.AppendQuizResult(ctx, sess.ID, model.QuizResult{
		QuestionID: "q1", WasCorrect: true, ConfidenceRating: 4,
	})
	if err != nil {
		t.Fatalf("AppendQuizResult: %v", err)
	}
	if updated.CurrentIndex != 1 || len(updated.Results) != 1 {
		t.Errorf("after append: index %d, %d results, want 1 and 1", updated.CurrentIndex, len(updated.Results))
	}
	if updated.SyncVersion != 2 || !updated.Dirty() {
		t.Errorf("after append: v%d dirty=%t, want v2 dirty", updated.SyncVersion, updated.Dirty())
	}

	if err := s.CompleteQuizSession(ctx, sess.ID); err != nil {
		t.Fatalf("CompleteQuizSession: %v", err)
	}

	// The result log freezes once the session completes
	if _, err := s.AppendQuizResult(ctx, sess.ID, model.QuizResult{QuestionID: "q2"}); !errors.Is(err, ErrSessionCompleted) {
		t.Errorf("append after complete = %v, want ErrSessionCompleted", err)
	}

	// Completing twice is an error, not a silent overwrite
	if err := s.CompleteQuizSession(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second complete = %v, want ErrNotFound", err)
	}
}

func TestRecordReview_LazyCreateAndStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	topic := mustCreateTopic(t, s, "go")
	q := mustCreateQuestion(t, s, topic.ID, "What does defer do?")

	// First review lazily creates the record in learning state
	p, err := s.RecordReview(ctx, q.ID, true, 3)
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if p.Status != model.StatusLearning || p.TimesReviewed != 1 || p.SyncVersion != 1 {
		t.Errorf("first review = %s reviews=%d v%d, want learning/1/v1", p.Status, p.TimesReviewed, p.SyncVersion)
	}

	if _, err := s.RecordReview(ctx, q.ID, true, 4); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	p, err = s.RecordReview(ctx, q.ID, true, 5)
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if p.Status != model.StatusMastered {
		t.Errorf("status after three correct = %s, want mastered", p.Status)
	}
	if p.TimesCorrect != 3 || p.SyncVersion != 3 {
		t.Errorf("correct=%d v%d, want 3/v3", p.TimesCorrect, p.SyncVersion)
	}

	// Review of an unknown question is an error
	if _, err := s.RecordReview(ctx, "no-such-question", true, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("review unknown question = %v, want ErrNotFound", err)
	}
}

func TestDeleteQuestion_RemovesProgressFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	topic := mustCreateTopic(t, s, "go")
	q := mustCreateQuestion(t, s, topic.ID, "What is a slice?")
	if _, err := s.RecordReview(ctx, q.ID, false, 2); err != nil {
		t.Fatalf("RecordReview: %v", err)
	}

	if err := s.DeleteQuestion(ctx, q.ID); err != nil {
		t.Fatalf("DeleteQuestion: %v", err)
	}

	if _, err := s.GetProgress(ctx, q.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("progress after question delete = %v, want ErrNotFound", err)
	}

	tombstones, err := s.Tombstones(ctx)
	if err != nil {
		t.Fatalf("Tombstones: %v", err)
	}
	if len(tombstones) != 2 {
		t.Fatalf("tombstones = %d, want 2 (progress then question)", len(tombstones))
	}
	if tombstones[0].TableName != "progress" || tombstones[1].TableName != "questions" {
		t.Errorf("tombstone order = [%s, %s], want [progress, questions]",
			tombstones[0].TableName, tombstones[1].TableName)
	}
}
