// Package sync defines the wire contract for the combined push+pull
// ("delta") exchange and the ordering rules for applying server records
// to the local store.
package sync

// ChangeRecord is one row travelling in either direction of the delta
// exchange. Data is a flat mapping of scalar values; list and struct
// fields are JSON-encoded strings inside the map. The transport payload
// carries no nested structures.
type ChangeRecord struct {
	TableName string         `json:"tableName"`
	RowID     string         `json:"rowId"`
	Data      map[string]any `json:"data"`
	Version   int64          `json:"version"`
	Deleted   bool           `json:"deleted"`
}

// Key identifies a row across tables.
type Key struct {
	TableName string
	RowID     string
}

// DeltaRequest is the single combined request issued per sync attempt.
type DeltaRequest struct {
	Push *PushRequest `json:"push,omitempty"`
	Pull *PullRequest `json:"pull,omitempty"`
}

// PushRequest carries the outgoing local change batch.
type PushRequest struct {
	Records []ChangeRecord `json:"records"`
}

// PullRequest carries the opaque cursor of the last successful pull.
// An empty checkpoint requests the full server history.
type PullRequest struct {
	Checkpoint string `json:"checkpoint,omitempty"`
}

// DeltaResponse mirrors DeltaRequest. Either section may be absent when
// the corresponding side of the exchange had nothing to do.
type DeltaResponse struct {
	Push *PushResult `json:"push,omitempty"`
	Pull *PullResult `json:"pull,omitempty"`
}

// PushResult reports how the server resolved the pushed batch. Conflicts
// lists the row ids rejected because their submitted version was stale;
// those rows stay dirty locally and are retried verbatim next sync.
type PushResult struct {
	Synced    int      `json:"synced"`
	Conflicts []string `json:"conflicts"`
}

// PullResult carries server-origin records and the advanced checkpoint.
// The checkpoint may advance even when zero records are returned.
type PullResult struct {
	Records    []ChangeRecord `json:"records"`
	Checkpoint string         `json:"checkpoint"`
}

// AuthResult is returned by the register/login/refresh endpoints.
type AuthResult struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
