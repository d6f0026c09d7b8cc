package store

import (
	"context"
	"fmt"
	"log/slog"

	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// ApplyRemote reconciles a pulled batch into the local database. The
// whole batch applies in one transaction: either every record lands or
// none do, so a failure mid-batch leaves the checkpoint unadvanced and
// the same batch is pulled again next cycle.
//
// Records are reordered before application so that parents precede
// children for upserts and children precede parents for deletes;
// within a batch the foreign keys therefore always resolve. Remote rows
// are authoritative: an upsert replaces the local row wholesale and
// stamps the server's version together with synced_at, so a remote
// win also clears the row's dirty state.
func (s *Store) ApplyRemote(ctx context.Context, records []syncpkg.ChangeRecord, pulledAt int64) error {
	if len(records) == 0 {
		return nil
	}

	upserts, deletes := syncpkg.SortForApply(records)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range upserts {
		if err := applyUpsert(ctx, tx, rec, pulledAt); err != nil {
			return err
		}
	}
	for _, rec := range deletes {
		if err := applyDelete(ctx, tx, rec); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyDelete(ctx context.Context, ex execer, rec syncpkg.ChangeRecord) error {
	var stmt string
	switch rec.TableName {
	case syncpkg.TableTopics:
		stmt = `DELETE FROM topics WHERE id = ?`
	case syncpkg.TableQuestions:
		stmt = `DELETE FROM questions WHERE id = ?`
	case syncpkg.TableProgress:
		stmt = `DELETE FROM progress WHERE question_id = ?`
	case syncpkg.TableQuizSessions:
		stmt = `DELETE FROM quiz_sessions WHERE id = ?`
	default:
		slog.Warn("store: skipping delete for unknown table",
			"component", "store", "table", rec.TableName, "row_id", rec.RowID)
		return nil
	}

	// Absent rows are fine; the delete may have raced a local one.
	if _, err := ex.ExecContext(ctx, stmt, rec.RowID); err != nil {
		return fmt.Errorf("apply remote delete %s/%s: %w", rec.TableName, rec.RowID, err)
	}
	return nil
}

func applyUpsert(ctx context.Context, ex execer, rec syncpkg.ChangeRecord, pulledAt int64) error {
	switch rec.TableName {
	case syncpkg.TableTopics:
		return upsertTopic(ctx, ex, rec, pulledAt)
	case syncpkg.TableQuestions:
		return upsertQuestion(ctx, ex, rec, pulledAt)
	case syncpkg.TableProgress:
		return upsertProgress(ctx, ex, rec, pulledAt)
	case syncpkg.TableQuizSessions:
		return upsertSession(ctx, ex, rec, pulledAt)
	default:
		slog.Warn("store: skipping upsert for unknown table",
			"component", "store", "table", rec.TableName, "row_id", rec.RowID)
		return nil
	}
}

func upsertTopic(ctx context.Context, ex execer, rec syncpkg.ChangeRecord, pulledAt int64) error {
	d := rec.Data
	_, err := ex.ExecContext(ctx, `
		INSERT INTO topics (id, name, description, slug, icon, color, subtopics, order_index, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			slug = excluded.slug,
			icon = excluded.icon,
			color = excluded.color,
			subtopics = excluded.subtopics,
			order_index = excluded.order_index,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			synced_at = excluded.synced_at
	`, rec.RowID,
		syncpkg.Str(d, "name"),
		nullable(syncpkg.Str(d, "description")),
		syncpkg.Str(d, "slug"),
		nullable(syncpkg.Str(d, "icon")),
		nullable(syncpkg.Str(d, "color")),
		syncpkg.EncodeStrings(syncpkg.StringList(d, "subtopics")),
		syncpkg.Int(d, "order"),
		syncpkg.Str(d, "createdAt"),
		syncpkg.Str(d, "updatedAt"),
		rec.Version, pulledAt)
	if err != nil {
		return fmt.Errorf("apply remote topic %s: %w", rec.RowID, err)
	}
	return nil
}

func upsertQuestion(ctx context.Context, ex execer, rec syncpkg.ChangeRecord, pulledAt int64) error {
	d := rec.Data
	_, err := ex.ExecContext(ctx, `
		INSERT INTO questions (id, topic_id, subtopic, question_number, question, answer, tags, difficulty, order_index, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			topic_id = excluded.topic_id,
			subtopic = excluded.subtopic,
			question_number = excluded.question_number,
			question = excluded.question,
			answer = excluded.answer,
			tags = excluded.tags,
			difficulty = excluded.difficulty,
			order_index = excluded.order_index,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			synced_at = excluded.synced_at
	`, rec.RowID,
		syncpkg.Str(d, "topicId"),
		nullable(syncpkg.Str(d, "subtopic")),
		syncpkg.Int(d, "questionNumber"),
		syncpkg.Str(d, "question"),
		syncpkg.Str(d, "answer"),
		syncpkg.EncodeStrings(syncpkg.StringList(d, "tags")),
		syncpkg.Str(d, "difficulty"),
		syncpkg.Int(d, "order"),
		syncpkg.Str(d, "createdAt"),
		syncpkg.Str(d, "updatedAt"),
		rec.Version, pulledAt)
	if err != nil {
		return fmt.Errorf("apply remote question %s: %w", rec.RowID, err)
	}
	return nil
}

func upsertProgress(ctx context.Context, ex execer, rec syncpkg.ChangeRecord, pulledAt int64) error {
	d := rec.Data
	_, err := ex.ExecContext(ctx, `
		INSERT INTO progress (question_id, topic_id, status, confidence_level, times_reviewed, times_correct, times_incorrect, last_reviewed_at, next_review_at, created_at, updated_at, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET
			topic_id = excluded.topic_id,
			status = excluded.status,
			confidence_level = excluded.confidence_level,
			times_reviewed = excluded.times_reviewed,
			times_correct = excluded.times_correct,
			times_incorrect = excluded.times_incorrect,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at = excluded.next_review_at,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			sync_version = excluded.sync_version,
			synced_at = excluded.synced_at
	`, rec.RowID,
		syncpkg.Str(d, "topicId"),
		syncpkg.Str(d, "status"),
		syncpkg.Int(d, "confidenceLevel"),
		syncpkg.Int(d, "timesReviewed"),
		syncpkg.Int(d, "timesCorrect"),
		syncpkg.Int(d, "timesIncorrect"),
		nullable(syncpkg.Str(d, "lastReviewedAt")),
		nullable(syncpkg.Str(d, "nextReviewAt")),
		syncpkg.Str(d, "createdAt"),
		syncpkg.Str(d, "updatedAt"),
		rec.Version, pulledAt)
	if err != nil {
		return fmt.Errorf("apply remote progress %s: %w", rec.RowID, err)
	}
	return nil
}

func upsertSession(ctx context.Context, ex execer, rec syncpkg.ChangeRecord, pulledAt int64) error {
	d := rec.Data
	_, err := ex.ExecContext(ctx, `
		INSERT INTO quiz_sessions (id, session_type, topic_ids, question_ids, current_index, started_at, completed_at, results, sync_version, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_type = excluded.session_type,
			topic_ids = excluded.topic_ids,
			question_ids = excluded.question_ids,
			current_index = excluded.current_index,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			results = excluded.results,
			sync_version = excluded.sync_version,
			synced_at = excluded.synced_at
	`, rec.RowID,
		syncpkg.Str(d, "sessionType"),
		syncpkg.EncodeStrings(syncpkg.StringList(d, "topicIds")),
		syncpkg.EncodeStrings(syncpkg.StringList(d, "questionIds")),
		syncpkg.Int(d, "currentIndex"),
		syncpkg.Str(d, "startedAt"),
		nullable(syncpkg.Str(d, "completedAt")),
		syncpkg.EncodeResults(syncpkg.Results(d, "results")),
		rec.Version, pulledAt)
	if err != nil {
		return fmt.Errorf("apply remote quiz session %s: %w", rec.RowID, err)
	}
	return nil
}
