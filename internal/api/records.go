package api

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// recordStore is the in-memory versioned row store behind the delta
// endpoint. Each user owns an isolated change feed; every accepted write
// takes the next feed sequence number, and the opaque checkpoint handed
// to clients encodes the highest sequence they have seen. Only the
// latest state per row is retained, so a pull after many overwrites
// returns one record per row (natural compaction).
type recordStore struct {
	mu     sync.Mutex
	byUser map[string]*userFeed
}

type userFeed struct {
	seq  int64
	rows map[syncpkg.Key]*storedRecord
}

type storedRecord struct {
	record syncpkg.ChangeRecord
	seq    int64
}

func newRecordStore() *recordStore {
	return &recordStore{byUser: make(map[string]*userFeed)}
}

func (s *recordStore) feed(userID string) *userFeed {
	f, ok := s.byUser[userID]
	if !ok {
		f = &userFeed{rows: make(map[syncpkg.Key]*storedRecord)}
		s.byUser[userID] = f
	}
	return f
}

// Delta resolves one combined push+pull exchange atomically. The pull
// is computed against the feed as it stood before this push, and the
// returned checkpoint covers the push, so a device never re-pulls the
// rows it just sent.
func (s *recordStore) Delta(userID string, push []syncpkg.ChangeRecord, checkpoint string) (*syncpkg.PushResult, *syncpkg.PullResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feed(userID)
	pulled := f.changesSince(decodeCheckpoint(checkpoint))
	synced, conflicts := f.applyPush(push)

	pushResult := &syncpkg.PushResult{Synced: synced, Conflicts: conflicts}
	pullResult := &syncpkg.PullResult{
		Records:    pulled,
		Checkpoint: encodeCheckpoint(f.seq),
	}
	return pushResult, pullResult
}

// applyPush resolves a pushed batch against the stored rows. A record
// is accepted when its row is new or its version is strictly greater
// than the stored one; otherwise its row id joins the conflict list.
// Accepted deletes are kept as tombstone rows so other devices pull
// them. Re-pushing an already-stored version is a conflict, which is
// what makes retries after a lost response harmless.
func (f *userFeed) applyPush(records []syncpkg.ChangeRecord) (int, []string) {
	synced := 0
	conflicts := []string{}

	for _, rec := range records {
		rec.TableName = syncpkg.CanonicalTable(rec.TableName)
		key := syncpkg.Key{TableName: rec.TableName, RowID: rec.RowID}

		if stored, exists := f.rows[key]; exists && rec.Version <= stored.record.Version {
			conflicts = append(conflicts, rec.RowID)
			continue
		}

		f.seq++
		f.rows[key] = &storedRecord{record: rec, seq: f.seq}
		synced++
	}

	return synced, conflicts
}

// changesSince returns every row whose sequence is past the cursor, in
// feed order.
func (f *userFeed) changesSince(after int64) []syncpkg.ChangeRecord {
	var changed []*storedRecord
	for _, stored := range f.rows {
		if stored.seq > after {
			changed = append(changed, stored)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].seq < changed[j].seq })

	records := make([]syncpkg.ChangeRecord, 0, len(changed))
	for _, stored := range changed {
		records = append(records, stored.record)
	}
	return records
}

func encodeCheckpoint(seq int64) string {
	return "v1:" + strconv.FormatInt(seq, 10)
}

// decodeCheckpoint is deliberately lenient: anything unreadable reads
// as the beginning of the feed, turning a corrupt client checkpoint
// into a full re-pull instead of an error.
func decodeCheckpoint(s string) int64 {
	raw, ok := strings.CutPrefix(s, "v1:")
	if !ok {
		return 0
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return seq
}
