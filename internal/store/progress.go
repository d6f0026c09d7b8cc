package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/studysync/internal/model"
	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// RecordReview updates a question's study record after one review,
// creating the progress row lazily on first review. The row is keyed by
// question id and is marked dirty either way.
func (s *Store) RecordReview(ctx context.Context, questionID string, correct bool, confidence int) (*model.Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var topicID string
	err = tx.QueryRowContext(ctx,
		`SELECT topic_id FROM questions WHERE id = ?`, questionID).Scan(&topicID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	now := nowRFC3339()
	p, err := getProgress(ctx, tx, questionID)
	switch {
	case errors.Is(err, ErrNotFound):
		p = &model.Progress{
			QuestionID: questionID,
			TopicID:    topicID,
			Status:     model.StatusLearning,
			CreatedAt:  now,
			SyncMeta:   model.SyncMeta{SyncVersion: 0},
		}
	case err != nil:
		return nil, err
	}

	p.TimesReviewed++
	if correct {
		p.TimesCorrect++
	} else {
		p.TimesIncorrect++
	}
	p.ConfidenceLevel = confidence
	p.LastReviewedAt = now
	p.UpdatedAt = now
	if p.TimesCorrect >= 3 && correct {
		p.Status = model.StatusMastered
	} else if p.TimesReviewed > 1 {
		p.Status = model.StatusReviewing
	}
	p.SyncVersion++
	p.SyncedAt = nil

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (question_id, topic_id, status, confidence_level, times_reviewed, times_correct, times_incorrect, last_reviewed_at, next_review_at, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT(question_id) DO UPDATE SET
			topic_id = excluded.topic_id,
			status = excluded.status,
			confidence_level = excluded.confidence_level,
			times_reviewed = excluded.times_reviewed,
			times_correct = excluded.times_correct,
			times_incorrect = excluded.times_incorrect,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at = excluded.next_review_at,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			synced_at = NULL
	`, p.QuestionID, p.TopicID, p.Status, p.ConfidenceLevel, p.TimesReviewed, p.TimesCorrect,
		p.TimesIncorrect, nullable(p.LastReviewedAt), nullable(p.NextReviewAt),
		p.CreatedAt, p.UpdatedAt, p.SyncVersion)
	if err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return p, nil
}

// DeleteProgress removes a question's study record, enqueueing its
// tombstone in the same transaction.
func (s *Store) DeleteProgress(ctx context.Context, questionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT sync_version FROM progress WHERE question_id = ?`, questionID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}

	if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableProgress, questionID, version); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE question_id = ?`, questionID); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}

	return tx.Commit()
}

// GetProgress retrieves a question's study record.
func (s *Store) GetProgress(ctx context.Context, questionID string) (*model.Progress, error) {
	return getProgress(ctx, s.db, questionID)
}

func getProgress(ctx context.Context, q execer, questionID string) (*model.Progress, error) {
	row := q.QueryRowContext(ctx, `
		SELECT question_id, topic_id, status, confidence_level, times_reviewed, times_correct, times_incorrect, last_reviewed_at, next_review_at, created_at, updated_at, sync_version, synced_at
		FROM progress WHERE question_id = ?
	`, questionID)
	p, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan progress: %w", err)
	}
	return p, nil
}

func scanProgress(scanner rowScanner) (*model.Progress, error) {
	var p model.Progress
	var lastReviewedAt, nextReviewAt sql.NullString
	var syncedAt sql.NullInt64

	err := scanner.Scan(&p.QuestionID, &p.TopicID, &p.Status, &p.ConfidenceLevel,
		&p.TimesReviewed, &p.TimesCorrect, &p.TimesIncorrect,
		&lastReviewedAt, &nextReviewAt, &p.CreatedAt, &p.UpdatedAt, &p.SyncVersion, &syncedAt)
	if err != nil {
		return nil, err
	}

	p.LastReviewedAt = lastReviewedAt.String
	p.NextReviewAt = nextReviewAt.String
	if syncedAt.Valid {
		p.SyncedAt = &syncedAt.Int64
	}
	return &p, nil
}
