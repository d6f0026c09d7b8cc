// Package model defines the four synchronizable record kinds and their
// sync bookkeeping fields. Ids are assigned locally at creation time and
// are globally unique; the server never assigns identifiers.
package model

// Difficulty levels for questions.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Progress status values.
const (
	StatusNotStudied = "not_studied"
	StatusLearning   = "learning"
	StatusReviewing  = "reviewing"
	StatusMastered   = "mastered"
)

// Quiz session types.
const (
	SessionRandom   = "random"
	SessionByTopic  = "by_topic"
	SessionReview   = "review"
	SessionSubtopic = "by_subtopic"
)

// SyncMeta carries the per-row bookkeeping shared by all entity kinds.
// SyncVersion starts at 1 and is incremented on every local mutation;
// SyncedAt is nil while the row has changes the server has not confirmed.
type SyncMeta struct {
	SyncVersion int64  `json:"syncVersion"`
	SyncedAt    *int64 `json:"syncedAt,omitempty"`
}

// Dirty reports whether the row must be included in the next push batch.
func (m SyncMeta) Dirty() bool { return m.SyncedAt == nil }

// Topic is the root entity. Questions cascade-delete with their topic.
type Topic struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug"`
	Icon        string   `json:"icon,omitempty"`
	Color       string   `json:"color,omitempty"`
	Subtopics   []string `json:"subtopics"`
	Order       int      `json:"order"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	SyncMeta
}

// Question belongs to a Topic. The answer is a markdown blob.
type Question struct {
	ID             string   `json:"id"`
	TopicID        string   `json:"topicId"`
	Subtopic       string   `json:"subtopic,omitempty"`
	QuestionNumber int      `json:"questionNumber"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Tags           []string `json:"tags"`
	Difficulty     string   `json:"difficulty"`
	Order          int      `json:"order"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
	SyncMeta
}

// Progress is the one-to-one study record for a Question, created lazily
// the first time the question is reviewed. QuestionID doubles as its
// primary key and its sync row id.
type Progress struct {
	QuestionID      string `json:"questionId"`
	TopicID         string `json:"topicId"`
	Status          string `json:"status"`
	ConfidenceLevel int    `json:"confidenceLevel"`
	TimesReviewed   int    `json:"timesReviewed"`
	TimesCorrect    int    `json:"timesCorrect"`
	TimesIncorrect  int    `json:"timesIncorrect"`
	LastReviewedAt  string `json:"lastReviewedAt,omitempty"`
	NextReviewAt    string `json:"nextReviewAt,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
	SyncMeta
}

// QuizResult is one answered question inside a session's result log.
type QuizResult struct {
	QuestionID       string `json:"questionId"`
	WasCorrect       bool   `json:"wasCorrect"`
	ConfidenceRating int    `json:"confidenceRating"`
	AnsweredAt       string `json:"answeredAt"`
}

// QuizSession references many questions across topics. Results are
// append-only until the session is completed.
type QuizSession struct {
	ID           string       `json:"id"`
	SessionType  string       `json:"sessionType"`
	TopicIDs     []string     `json:"topicIds"`
	QuestionIDs  []string     `json:"questionIds"`
	CurrentIndex int          `json:"currentIndex"`
	StartedAt    string       `json:"startedAt"`
	CompletedAt  string       `json:"completedAt,omitempty"`
	Results      []QuizResult `json:"results"`
	SyncMeta
}
