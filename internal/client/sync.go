package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	syncpkg "github.com/hyperengineering/studysync/internal/sync"
)

// SyncResult is the structured outcome of one sync cycle. Failures are
// reported here, never as returned errors, so callers get one uniform
// surface.
type SyncResult struct {
	Pushed    int    `json:"pushed"`
	Pulled    int    `json:"pulled"`
	Conflicts int    `json:"conflicts"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	SyncedAt  int64  `json:"syncedAt"`
}

// SyncStatus is a read-only snapshot for UI display. Producing it never
// touches the network.
type SyncStatus struct {
	Configured     bool   `json:"configured"`
	Authenticated  bool   `json:"authenticated"`
	LastSyncAt     *int64 `json:"lastSyncAt,omitempty"`
	PendingChanges int    `json:"pendingChanges"`
	ServerURL      string `json:"serverUrl,omitempty"`
}

// SyncNow runs one complete sync cycle: collect pending changes, one
// combined push+pull round trip, confirm accepted rows, apply pulled
// rows, advance the checkpoint. Any failure before the response is
// fully parsed leaves local state untouched, so the next call retries
// the identical batch.
func (c *Client) SyncNow(ctx context.Context) SyncResult {
	start := time.Now()
	now := start.Unix()

	if err := c.loadTokens(); err != nil {
		return failure(now, err.Error())
	}
	if c.tokens.AccessToken != "" && accessTokenExpired(c.tokens.AccessToken) && c.tokens.RefreshToken != "" {
		if err := c.refreshTokens(ctx); err != nil {
			slog.Warn("client: token refresh failed",
				"component", "client", "action", "sync", "error", err)
		}
	}
	if !c.Configured() || !c.IsAuthenticated() {
		return failure(now, "Not authenticated")
	}

	records, err := c.store.CollectPendingChanges(ctx)
	if err != nil {
		return failure(now, fmt.Sprintf("collect pending changes: %v", err))
	}
	checkpoint, err := c.store.Checkpoint(ctx)
	if err != nil {
		return failure(now, fmt.Sprintf("load checkpoint: %v", err))
	}

	req := syncpkg.DeltaRequest{
		Push: &syncpkg.PushRequest{Records: records},
		Pull: &syncpkg.PullRequest{Checkpoint: checkpoint},
	}

	var resp syncpkg.DeltaResponse
	if err := c.postJSON(ctx, "/api/v1/sync/delta", req, &resp); err != nil {
		return failure(now, err.Error())
	}

	result := SyncResult{Success: true, SyncedAt: now}

	if resp.Push != nil {
		result.Pushed = resp.Push.Synced
		result.Conflicts = len(resp.Push.Conflicts)

		accepted := acceptedKeys(records, resp.Push.Conflicts)
		if len(accepted) > 0 {
			if err := c.store.MarkSynced(ctx, accepted, now); err != nil {
				return failure(now, fmt.Sprintf("mark synced: %v", err))
			}
		}
	}

	if resp.Pull != nil {
		result.Pulled = len(resp.Pull.Records)
		if len(resp.Pull.Records) > 0 {
			if err := c.store.ApplyRemote(ctx, resp.Pull.Records, now); err != nil {
				return failure(now, fmt.Sprintf("apply pulled records: %v", err))
			}
		}
		// Persisted even with zero records: the checkpoint can advance
		// through server-side compaction alone.
		if err := c.store.SetCheckpoint(ctx, resp.Pull.Checkpoint); err != nil {
			return failure(now, fmt.Sprintf("save checkpoint: %v", err))
		}
	}

	if err := c.store.SetLastSyncAt(ctx, now); err != nil {
		return failure(now, fmt.Sprintf("save last sync time: %v", err))
	}

	slog.Info("client: sync complete",
		"component", "client", "action", "sync",
		"pushed", result.Pushed, "pulled", result.Pulled,
		"conflicts", result.Conflicts,
		"duration_ms", time.Since(start).Milliseconds())

	return result
}

// GetStatus assembles the status snapshot from local state only.
func (c *Client) GetStatus(ctx context.Context) (SyncStatus, error) {
	if err := c.loadTokens(); err != nil {
		return SyncStatus{}, err
	}

	pending, err := c.store.CountPending(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	lastSyncAt, err := c.store.LastSyncAt(ctx)
	if err != nil {
		return SyncStatus{}, err
	}

	return SyncStatus{
		Configured:     c.Configured(),
		Authenticated:  c.IsAuthenticated(),
		LastSyncAt:     lastSyncAt,
		PendingChanges: pending,
		ServerURL:      c.serverURL,
	}, nil
}

// acceptedKeys resolves which pushed records the server accepted: every
// record whose row id is absent from the conflict list. Rejected rows
// stay dirty and are retried verbatim next cycle.
//
// The conflict list carries row ids only. A question and its progress
// row share the question's id, so a conflict on one also leaves the
// other unmarked; it stays dirty until a later local edit bumps its
// version. Accepted limitation of the wire format.
func acceptedKeys(records []syncpkg.ChangeRecord, conflicts []string) []syncpkg.Key {
	rejected := make(map[string]struct{}, len(conflicts))
	for _, id := range conflicts {
		rejected[id] = struct{}{}
	}

	var keys []syncpkg.Key
	for _, rec := range records {
		if _, ok := rejected[rec.RowID]; ok {
			continue
		}
		keys = append(keys, syncpkg.Key{TableName: rec.TableName, RowID: rec.RowID})
	}
	return keys
}

func failure(now int64, msg string) SyncResult {
	return SyncResult{Success: false, Error: msg, SyncedAt: now}
}
