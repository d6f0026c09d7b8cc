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

// CreateTopic inserts a new topic. The id is assigned locally (never by
// the server); sync_version starts at 1 and synced_at stays unset so
// the row is picked up by the next push batch.
func (s *Store) CreateTopic(ctx context.Context, t model.Topic) (*model.Topic, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := nowRFC3339()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.SyncVersion = 1
	t.SyncedAt = nil
	if t.Subtopics == nil {
		t.Subtopics = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, name, description, slug, icon, color, subtopics, order_index, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, NULL)
	`, t.ID, t.Name, nullable(t.Description), t.Slug, nullable(t.Icon), nullable(t.Color),
		syncpkg.EncodeStrings(t.Subtopics), t.Order, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}

	return &t, nil
}

// UpdateTopic replaces a topic's domain fields, bumps sync_version and
// clears synced_at so the change is pushed on the next sync.
func (s *Store) UpdateTopic(ctx context.Context, t model.Topic) error {
	t.UpdatedAt = nowRFC3339()

	result, err := s.db.ExecContext(ctx, `
		UPDATE topics
		SET name = ?, description = ?, slug = ?, icon = ?, color = ?, subtopics = ?, order_index = ?,
		    updated_at = ?, sync_version = sync_version + 1, synced_at = NULL
		WHERE id = ?
	`, t.Name, nullable(t.Description), t.Slug, nullable(t.Icon), nullable(t.Color),
		syncpkg.EncodeStrings(t.Subtopics), t.Order, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}
	return requireRow(result)
}

// DeleteTopic removes a topic and its dependent questions and progress
// rows. Tombstones are enqueued child-before-parent (progress, then
// questions, then the topic) before any physical deletion, all within
// one transaction.
func (s *Store) DeleteTopic(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var topicVersion int64
	err = tx.QueryRowContext(ctx,
		`SELECT sync_version FROM topics WHERE id = ?`, id).Scan(&topicVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load topic: %w", err)
	}

	type rowVersion struct {
		id      string
		version int64
	}
	collect := func(query string, args ...any) ([]rowVersion, error) {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		var out []rowVersion
		for rows.Next() {
			var rv rowVersion
			if err := rows.Scan(&rv.id, &rv.version); err != nil {
				return nil, err
			}
			out = append(out, rv)
		}
		return out, rows.Err()
	}

	progressRows, err := collect(`
		SELECT p.question_id, p.sync_version FROM progress p
		JOIN questions q ON q.id = p.question_id
		WHERE q.topic_id = ?
		ORDER BY p.question_id
	`, id)
	if err != nil {
		return fmt.Errorf("collect progress rows: %w", err)
	}
	questionRows, err := collect(`
		SELECT id, sync_version FROM questions WHERE topic_id = ? ORDER BY id
	`, id)
	if err != nil {
		return fmt.Errorf("collect question rows: %w", err)
	}

	for _, rv := range progressRows {
		if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableProgress, rv.id, rv.version); err != nil {
			return err
		}
	}
	for _, rv := range questionRows {
		if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableQuestions, rv.id, rv.version); err != nil {
			return err
		}
	}
	if err := enqueueTombstoneTx(ctx, tx, syncpkg.TableTopics, id, topicVersion); err != nil {
		return err
	}

	// Physical deletion, children first to satisfy FK constraints.
	steps := []struct {
		query string
		arg   string
	}{
		{`DELETE FROM progress WHERE question_id IN (SELECT id FROM questions WHERE topic_id = ?)`, id},
		{`DELETE FROM questions WHERE topic_id = ?`, id},
		{`DELETE FROM topics WHERE id = ?`, id},
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step.query, step.arg); err != nil {
			return fmt.Errorf("delete topic cascade: %w", err)
		}
	}

	return tx.Commit()
}

// GetTopic retrieves a topic by id.
func (s *Store) GetTopic(ctx context.Context, id string) (*model.Topic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, slug, icon, color, subtopics, order_index, created_at, updated_at, sync_version, synced_at
		FROM topics WHERE id = ?
	`, id)
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan topic: %w", err)
	}
	return t, nil
}

// ListTopics returns all topics ordered by their display order.
func (s *Store) ListTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, slug, icon, color, subtopics, order_index, created_at, updated_at, sync_version, synced_at
		FROM topics ORDER BY order_index ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []model.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

type rowScanner interface{ Scan(...any) error }

func scanTopic(scanner rowScanner) (*model.Topic, error) {
	var t model.Topic
	var description, icon, color sql.NullString
	var subtopics string
	var syncedAt sql.NullInt64

	err := scanner.Scan(&t.ID, &t.Name, &description, &t.Slug, &icon, &color,
		&subtopics, &t.Order, &t.CreatedAt, &t.UpdatedAt, &t.SyncVersion, &syncedAt)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Icon = icon.String
	t.Color = color.String
	t.Subtopics = syncpkg.DecodeStrings(subtopics)
	if syncedAt.Valid {
		t.SyncedAt = &syncedAt.Int64
	}
	return &t, nil
}

// requireRow converts a zero-rows-affected result into ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
