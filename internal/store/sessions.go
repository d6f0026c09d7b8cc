package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/studysync/internal/model"
	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// StartQuizSession creates a new session over the given question set.
func (s *Store) StartQuizSession(ctx context.Context, sessionType string, topicIDs, questionIDs []string) (*model.QuizSession, error) {
	sess := model.QuizSession{
		ID:          ulid.Make().String(),
		SessionType: sessionType,
		TopicIDs:    topicIDs,
		QuestionIDs: questionIDs,
		StartedAt:   nowRFC3339(),
		Results:     []model.QuizResult{},
		SyncMeta:    model.SyncMeta{SyncVersion: 1},
	}
	if sess.SessionType == "" {
		sess.SessionType = model.SessionRandom
	}
	if sess.TopicIDs == nil {
		sess.TopicIDs = []string{}
	}
	if sess.QuestionIDs == nil {
		sess.QuestionIDs = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quiz_sessions (id, session_type, topic_ids, question_ids, current_index, started_at, completed_at, results, sync_version, synced_at)
		VALUES (?, ?, ?, ?, 0, ?, NULL, '[]', 1, NULL)
	`, sess.ID, sess.SessionType, syncpkg.EncodeStrings(sess.TopicIDs),
		syncpkg.EncodeStrings(sess.QuestionIDs), sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("insert quiz session: %w", err)
	}

	return &sess, nil
}

// AppendQuizResult appends one answered question to a session's result
// log and advances the cursor. The log is append-only until the session
// completes.
func (s *Store) AppendQuizResult(ctx context.Context, sessionID string, result model.QuizResult) (*model.QuizSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	sess, err := getQuizSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CompletedAt != "" {
		return nil, ErrSessionCompleted
	}

	if result.AnsweredAt == "" {
		result.AnsweredAt = nowRFC3339()
	}
	sess.Results = append(sess.Results, result)
	sess.CurrentIndex++
	sess.SyncVersion++
	sess.SyncedAt = nil

	_, err = tx.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET results = ?, current_index = ?, sync_version = ?, synced_at = NULL
		WHERE id = ?
	`, syncpkg.EncodeResults(sess.Results), sess.CurrentIndex, sess.SyncVersion, sessionID)
	if err != nil {
		return nil, fmt.Errorf("append quiz result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return sess, nil
}

// CompleteQuizSession stamps the session as finished and marks it dirty.
func (s *Store) CompleteQuizSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE quiz_sessions
		SET completed_at = ?, sync_version = sync_version + 1, synced_at = NULL
		WHERE id = ? AND completed_at IS NULL
	`, nowRFC3339(), sessionID)
	if err != nil {
		return fmt.Errorf("complete quiz session: %w", err)
	}
	return requireRow(result)
}

// DeleteQuizSession removes a session, enqueueing its tombstone first.
func (s *Store) DeleteQuizSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var version int64
	err = tx.QueryRowContext(ctx,
		`SELECT sync_version FROM quiz_sessions WHERE id = ?`, sessionID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load quiz session: %w", err)
	}

	if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableQuizSessions, sessionID, version); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quiz_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete quiz session: %w", err)
	}

	return tx.Commit()
}

// GetQuizSession retrieves a session by id.
func (s *Store) GetQuizSession(ctx context.Context, sessionID string) (*model.QuizSession, error) {
	return getQuizSession(ctx, s.db, sessionID)
}

func getQuizSession(ctx context.Context, q execer, sessionID string) (*model.QuizSession, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, session_type, topic_ids, question_ids, current_index, started_at, completed_at, results, sync_version, synced_at
		FROM quiz_sessions WHERE id = ?
	`, sessionID)
	sess, err := scanQuizSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan quiz session: %w", err)
	}
	return sess, nil
}

func scanQuizSession(scanner rowScanner) (*model.QuizSession, error) {
	var sess model.QuizSession
	var topicIDs, questionIDs, results string
	var completedAt sql.NullString
	var syncedAt sql.NullInt64

	err := scanner.Scan(&sess.ID, &sess.SessionType, &topicIDs, &questionIDs,
		&sess.CurrentIndex, &sess.StartedAt, &completedAt, &results, &sess.SyncVersion, &syncedAt)
	if err != nil {
		return nil, err
	}

	sess.TopicIDs = syncpkg.DecodeStrings(topicIDs)
	sess.QuestionIDs = syncpkg.DecodeStrings(questionIDs)
	sess.Results = syncpkg.DecodeResults(results)
	sess.CompletedAt = completedAt.String
	if syncedAt.Valid {
		sess.SyncedAt = &syncedAt.Int64
	}
	return &sess, nil
}
