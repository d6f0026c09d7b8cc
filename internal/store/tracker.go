package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperengineering/studysync/internal/model"
	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// Tombstone is a queued delete awaiting server acknowledgement. It is
// the only surviving record of the deletion; the row itself is gone.
type Tombstone struct {
	Sequence  int64
	TableName string
	RowID     string
	Version   int64
	QueuedAt  string
}

// EnqueueTombstone records a pending delete. The CRUD layer calls this
// immediately before the physical delete, inside the same transaction.
// A duplicate (table, row) entry is harmless; the server treats the
// latest operation as authoritative.
func (s *Store) EnqueueTombstone(ctx context.Context, tableName, rowID string, version int64) error {
	return enqueueTombstoneTx(ctx, s.db, tableName, rowID, version)
}

func enqueueTombstoneTx(ctx context.Context, ex execer, tableName, rowID string, version int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO pending_deletes (table_name, row_id, sync_version, queued_at)
		VALUES (?, ?, ?, ?)
	`, tableName, rowID, version, nowRFC3339())
	if err != nil {
		return fmt.Errorf("enqueue tombstone %s/%s: %w", tableName, rowID, err)
	}
	return nil
}

// Tombstones returns the pending-delete queue in insertion order.
func (s *Store) Tombstones(ctx context.Context) ([]Tombstone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, table_name, row_id, sync_version, queued_at
		FROM pending_deletes ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pending deletes: %w", err)
	}
	defer rows.Close()

	var out []Tombstone
	for rows.Next() {
		var t Tombstone
		if err := rows.Scan(&t.Sequence, &t.TableName, &t.RowID, &t.Version, &t.QueuedAt); err != nil {
			return nil, fmt.Errorf("scan tombstone: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CollectPendingChanges produces the exact set of local changes for the
// next push batch: every row whose synced_at is unset, followed by one
// delete record per queued tombstone. Result ordering is not
// significant; the server resolves each row independently.
func (s *Store) CollectPendingChanges(ctx context.Context) ([]syncpkg.ChangeRecord, error) {
	var records []syncpkg.ChangeRecord

	topics, err := s.dirtyTopics(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, topics...)

	questions, err := s.dirtyQuestions(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, questions...)

	progress, err := s.dirtyProgress(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, progress...)

	sessions, err := s.dirtySessions(ctx)
	if err != nil {
		return nil, err
	}
	records = append(records, sessions...)

	tombstones, err := s.Tombstones(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tombstones {
		records = append(records, syncpkg.ChangeRecord{
			TableName: syncpkg.CanonicalTable(t.TableName),
			RowID:     t.RowID,
			Data:      map[string]any{},
			Version:   t.Version,
			Deleted:   true,
		})
	}

	return records, nil
}

// CountPending is a cheap side-effect-free count of rows awaiting push,
// across all four tables plus the tombstone queue. Used for UI status.
func (s *Store) CountPending(ctx context.Context) (int, error) {
	queries := []string{
		`SELECT COUNT(*) FROM topics WHERE synced_at IS NULL`,
		`SELECT COUNT(*) FROM questions WHERE synced_at IS NULL`,
		`SELECT COUNT(*) FROM progress WHERE synced_at IS NULL`,
		`SELECT COUNT(*) FROM quiz_sessions WHERE synced_at IS NULL`,
		`SELECT COUNT(*) FROM pending_deletes`,
	}

	total := 0
	for _, q := range queries {
		var n int
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			return 0, fmt.Errorf("count pending: %w", err)
		}
		total += n
	}
	return total, nil
}

// MarkSynced confirms a pushed subset: tombstone queue entries for the
// given keys are removed, and rows that still physically exist get
// synced_at stamped with the push timestamp. Runs as one transaction so
// an interruption never leaves a partially-confirmed batch.
//
// Only synced_at is written, never row content: a CRUD write that
// landed between collect and confirm re-cleared synced_at and bumped
// sync_version, and stamping synced_at here simply re-marks the row for
// the next push's comparison — the interleaved change itself survives.
func (s *Store) MarkSynced(ctx context.Context, keys []syncpkg.Key, syncedAt int64) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range keys {
		table := syncpkg.CanonicalTable(key.TableName)

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM pending_deletes WHERE table_name = ? AND row_id = ?`,
			table, key.RowID); err != nil {
			return fmt.Errorf("clear tombstone %s/%s: %w", table, key.RowID, err)
		}

		var stmt string
		switch table {
		case syncpkg.TableTopics:
			stmt = `UPDATE topics SET synced_at = ? WHERE id = ?`
		case syncpkg.TableQuestions:
			stmt = `UPDATE questions SET synced_at = ? WHERE id = ?`
		case syncpkg.TableProgress:
			stmt = `UPDATE progress SET synced_at = ? WHERE question_id = ?`
		case syncpkg.TableQuizSessions:
			stmt = `UPDATE quiz_sessions SET synced_at = ? WHERE id = ?`
		default:
			continue
		}

		// Delete-if-absent is fine: a tombstoned row no longer exists.
		if _, err := tx.ExecContext(ctx, stmt, syncedAt, key.RowID); err != nil {
			return fmt.Errorf("mark synced %s/%s: %w", table, key.RowID, err)
		}
	}

	return tx.Commit()
}

// PruneTombstones removes queue entries older than the retention
// window. Pruned deletes will never reach the server; this exists as an
// explicit escape hatch for tombstones that can no longer be
// acknowledged, and is only invoked from the CLI.
func (s *Store) PruneTombstones(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM pending_deletes WHERE queued_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	return result.RowsAffected()
}

// --- dirty row collection, one flattener per table ---

func (s *Store) dirtyTopics(ctx context.Context) ([]syncpkg.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, slug, icon, color, subtopics, order_index, created_at, updated_at, sync_version, synced_at
		FROM topics WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query dirty topics: %w", err)
	}
	defer rows.Close()

	var out []syncpkg.ChangeRecord
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, syncpkg.ChangeRecord{
			TableName: syncpkg.TableTopics,
			RowID:     t.ID,
			Data:      flattenTopic(t),
			Version:   t.SyncVersion,
		})
	}
	return out, rows.Err()
}

func (s *Store) dirtyQuestions(ctx context.Context) ([]syncpkg.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_id, subtopic, question_number, question, answer, tags, difficulty, order_index, created_at, updated_at, sync_version, synced_at
		FROM questions WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query dirty questions: %w", err)
	}
	defer rows.Close()

	var out []syncpkg.ChangeRecord
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, syncpkg.ChangeRecord{
			TableName: syncpkg.TableQuestions,
			RowID:     q.ID,
			Data:      flattenQuestion(q),
			Version:   q.SyncVersion,
		})
	}
	return out, rows.Err()
}

func (s *Store) dirtyProgress(ctx context.Context) ([]syncpkg.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_id, topic_id, status, confidence_level, times_reviewed, times_correct, times_incorrect, last_reviewed_at, next_review_at, created_at, updated_at, sync_version, synced_at
		FROM progress WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query dirty progress: %w", err)
	}
	defer rows.Close()

	var out []syncpkg.ChangeRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, syncpkg.ChangeRecord{
			TableName: syncpkg.TableProgress,
			RowID:     p.QuestionID,
			Data:      flattenProgress(p),
			Version:   p.SyncVersion,
		})
	}
	return out, rows.Err()
}

func (s *Store) dirtySessions(ctx context.Context) ([]syncpkg.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_type, topic_ids, question_ids, current_index, started_at, completed_at, results, sync_version, synced_at
		FROM quiz_sessions WHERE synced_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("query dirty quiz sessions: %w", err)
	}
	defer rows.Close()

	var out []syncpkg.ChangeRecord
	for rows.Next() {
		sess, err := scanQuizSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz session: %w", err)
		}
		out = append(out, syncpkg.ChangeRecord{
			TableName: syncpkg.TableQuizSessions,
			RowID:     sess.ID,
			Data:      flattenSession(sess),
			Version:   sess.SyncVersion,
		})
	}
	return out, rows.Err()
}

// The wire format is a flat row of scalars: list fields are JSON-encoded
// strings, absent optionals are omitted entirely. The server depends on
// this encoding byte-for-byte.

func flattenTopic(t *model.Topic) map[string]any {
	data := map[string]any{
		"name":      t.Name,
		"slug":      t.Slug,
		"subtopics": syncpkg.EncodeStrings(t.Subtopics),
		"order":     t.Order,
		"createdAt": t.CreatedAt,
		"updatedAt": t.UpdatedAt,
	}
	putOpt(data, "description", t.Description)
	putOpt(data, "icon", t.Icon)
	putOpt(data, "color", t.Color)
	return data
}

func flattenQuestion(q *model.Question) map[string]any {
	data := map[string]any{
		"topicId":        q.TopicID,
		"questionNumber": q.QuestionNumber,
		"question":       q.Question,
		"answer":         q.Answer,
		"tags":           syncpkg.EncodeStrings(q.Tags),
		"difficulty":     q.Difficulty,
		"order":          q.Order,
		"createdAt":      q.CreatedAt,
		"updatedAt":      q.UpdatedAt,
	}
	putOpt(data, "subtopic", q.Subtopic)
	return data
}

func flattenProgress(p *model.Progress) map[string]any {
	data := map[string]any{
		"questionId":      p.QuestionID,
		"topicId":         p.TopicID,
		"status":          p.Status,
		"confidenceLevel": p.ConfidenceLevel,
		"timesReviewed":   p.TimesReviewed,
		"timesCorrect":    p.TimesCorrect,
		"timesIncorrect":  p.TimesIncorrect,
		"createdAt":       p.CreatedAt,
		"updatedAt":       p.UpdatedAt,
	}
	putOpt(data, "lastReviewedAt", p.LastReviewedAt)
	putOpt(data, "nextReviewAt", p.NextReviewAt)
	return data
}

func flattenSession(sess *model.QuizSession) map[string]any {
	data := map[string]any{
		"sessionType":  sess.SessionType,
		"topicIds":     syncpkg.EncodeStrings(sess.TopicIDs),
		"questionIds":  syncpkg.EncodeStrings(sess.QuestionIDs),
		"currentIndex": sess.CurrentIndex,
		"startedAt":    sess.StartedAt,
		"results":      syncpkg.EncodeResults(sess.Results),
	}
	putOpt(data, "completedAt", sess.CompletedAt)
	return data
}

func putOpt(data map[string]any, key, value string) {
	if value != "" {
		data[key] = value
	}
}
