package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperengineering/studysync/internal/model"
	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// CreateQuestion inserts a new question under an existing topic.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (*model.Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := nowRFC3339()
	q.CreatedAt = now
	q.UpdatedAt = now
	q.SyncVersion = 1
	q.SyncedAt = nil
	if q.Tags == nil {
		q.Tags = []string{}
	}
	if q.Difficulty == "" {
		q.Difficulty = model.DifficultyBeginner
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, topic_id, subtopic, question_number, question, answer, tags, difficulty, order_index, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, NULL)
	`, q.ID, q.TopicID, nullable(q.Subtopic), q.QuestionNumber, q.Question, q.Answer,
		syncpkg.EncodeStrings(q.Tags), q.Difficulty, q.Order, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}

	return &q, nil
}

// UpdateQuestion replaces a question's domain fields and marks it dirty.
func (s *Store) UpdateQuestion(ctx context.Context, q model.Question) error {
	q.UpdatedAt = nowRFC3339()

	result, err := s.db.ExecContext(ctx, `
		UPDATE questions
		SET topic_id = ?, subtopic = ?, question_number = ?, question = ?, answer = ?, tags = ?, difficulty = ?, order_index = ?,
		    updated_at = ?, sync_version = sync_version + 1, synced_at = NULL
		WHERE id = ?
	`, q.TopicID, nullable(q.Subtopic), q.QuestionNumber, q.Question, q.Answer,
		syncpkg.EncodeStrings(q.Tags), q.Difficulty, q.Order, q.UpdatedAt, q.ID)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	return requireRow(result)
}

// DeleteQuestion removes a question and its progress row. The progress
// tombstone is enqueued before the question's, and both before any
// physical deletion.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var questionVersion int64
	err = tx.QueryRowContext(ctx,
		`SELECT sync_version FROM questions WHERE id = ?`, id).Scan(&questionVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load question: %w", err)
	}

	var progressVersion int64
	hasProgress := true
	err = tx.QueryRowContext(ctx,
		`SELECT sync_version FROM progress WHERE question_id = ?`, id).Scan(&progressVersion)
	if errors.Is(err, sql.ErrNoRows) {
		hasProgress = false
	} else if err != nil {
		return fmt.Errorf("load progress: %w", err)
	}

	if hasProgress {
		if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableProgress, id, progressVersion); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM progress WHERE question_id = ?`, id); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
	}

	if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableQuestions, id, questionVersion); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}

	return tx.Commit()
}

// GetQuestion retrieves a question by id.
func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, topic_id, subtopic, question_number, question, answer, tags, difficulty, order_index, created_at, updated_at, sync_version, synced_at
		FROM questions WHERE id = ?
	`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	return q, nil
}

// ListQuestions returns a topic's questions in display order.
func (s *Store) ListQuestions(ctx context.Context, topicID string) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_id, subtopic, question_number, question, answer, tags, difficulty, order_index, created_at, updated_at, sync_version, synced_at
		FROM questions WHERE topic_id = ?
		ORDER BY order_index ASC, question_number ASC
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func scanQuestion(scanner rowScanner) (*model.Question, error) {
	var q model.Question
	var subtopic sql.NullString
	var tags string
	var syncedAt sql.NullInt64

	err := scanner.Scan(&q.ID, &q.TopicID, &subtopic, &q.QuestionNumber, &q.Question, &q.Answer,
		&tags, &q.Difficulty, &q.Order, &q.CreatedAt, &q.UpdatedAt, &q.SyncVersion, &syncedAt)
	if err != nil {
		return nil, err
	}

	q.Subtopic = subtopic.String
	q.Tags = syncpkg.DecodeStrings(tags)
	if syncedAt.Valid {
		q.SyncedAt = &syncedAt.Int64
	}
	return &q, nil
}
