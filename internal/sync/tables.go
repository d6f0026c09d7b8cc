package sync

// Canonical server-side table names.
const (
	TableTopics       = "topics"
	TableQuestions    = "questions"
	TableProgress     = "progress"
	TableQuizSessions = "quiz_sessions"
)

// tableRank defines the FK hierarchy level for each table.
// Lower rank = closer to root = must be upserted first.
var tableRank = map[string]int{
	TableTopics:       0,
	TableQuestions:    1,
	TableProgress:     2,
	TableQuizSessions: 2,
}

// localAliases maps legacy local table names to their canonical server
// names. All other names pass through unchanged.
var localAliases = map[string]string{
	"quizSessions": TableQuizSessions,
}

// CanonicalTable normalizes a local table name to the server's naming.
func CanonicalTable(name string) string {
	if canonical, ok := localAliases[name]; ok {
		return canonical
	}
	return name
}

// KnownTable reports whether the engine recognizes the table name.
// Unknown tables in a pull batch are skipped, not fatal.
func KnownTable(name string) bool {
	_, ok := tableRank[CanonicalTable(name)]
	return ok
}

// Rank returns the FK hierarchy level of a table. Unknown tables sort
// after every known one.
func Rank(name string) int {
	if r, ok := tableRank[CanonicalTable(name)]; ok {
		return r
	}
	return len(tableRank)
}
