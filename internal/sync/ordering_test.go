package sync

import "testing"

func upsertRecord(table, rowID string) ChangeRecord {
	return ChangeRecord{TableName: table, RowID: rowID, Data: map[string]any{}, Version: 1}
}

func deleteRecord(table, rowID string) ChangeRecord {
	return ChangeRecord{TableName: table, RowID: rowID, Data: map[string]any{}, Version: 1, Deleted: true}
}

func TestSortForApply_UpsertsParentFirst(t *testing.T) {
	// Given records arriving in reversed dependency order
	records := []ChangeRecord{
		upsertRecord(TableProgress, "p1"),
		upsertRecord(TableQuestions, "q1"),
		upsertRecord(TableTopics, "t1"),
	}

	upserts, deletes := SortForApply(records)

	// Then topics precede questions precede progress
	if len(deletes) != 0 {
		t.Fatalf("deletes length = %d, want 0", len(deletes))
	}
	expected := []string{TableTopics, TableQuestions, TableProgress}
	for i, want := range expected {
		if upserts[i].TableName != want {
			t.Errorf("upserts[%d].TableName = %q, want %q", i, upserts[i].TableName, want)
		}
	}
}

func TestSortForApply_DeletesChildFirst(t *testing.T) {
	records := []ChangeRecord{
		deleteRecord(TableTopics, "t1"),
		deleteRecord(TableProgress, "p1"),
		deleteRecord(TableQuestions, "q1"),
	}

	_, deletes := SortForApply(records)

	expected := []string{TableProgress, TableQuestions, TableTopics}
	for i, want := range expected {
		if deletes[i].TableName != want {
			t.Errorf("deletes[%d].TableName = %q, want %q", i, deletes[i].TableName, want)
		}
	}
}

func TestSortForApply_PartitionsMixedBatch(t *testing.T) {
	records := []ChangeRecord{
		deleteRecord(TableQuestions, "q-old"),
		upsertRecord(TableTopics, "t1"),
		upsertRecord(TableQuizSessions, "s1"),
		deleteRecord(TableTopics, "t-old"),
	}

	upserts, deletes := SortForApply(records)

	if len(upserts) != 2 || len(deletes) != 2 {
		t.Fatalf("partition = %d upserts, %d deletes, want 2 and 2", len(upserts), len(deletes))
	}
	// Child delete before parent delete
	if deletes[0].TableName != TableQuestions || deletes[1].TableName != TableTopics {
		t.Errorf("delete order = [%s, %s], want [questions, topics]",
			deletes[0].TableName, deletes[1].TableName)
	}
}

func TestSortForApply_StableWithinRank(t *testing.T) {
	// Progress and quiz sessions share a rank; input order must hold
	records := []ChangeRecord{
		upsertRecord(TableProgress, "p1"),
		upsertRecord(TableQuizSessions, "s1"),
		upsertRecord(TableProgress, "p2"),
	}

	upserts, _ := SortForApply(records)

	gotIDs := []string{upserts[0].RowID, upserts[1].RowID, upserts[2].RowID}
	wantIDs := []string{"p1", "s1", "p2"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Errorf("upserts[%d].RowID = %q, want %q", i, gotIDs[i], wantIDs[i])
		}
	}
}

func TestSortForApply_UnknownTableSortsLast(t *testing.T) {
	records := []ChangeRecord{
		upsertRecord("flashcard_decks", "d1"),
		upsertRecord(TableTopics, "t1"),
	}

	upserts, _ := SortForApply(records)

	if upserts[0].TableName != TableTopics {
		t.Errorf("upserts[0].TableName = %q, want %q", upserts[0].TableName, TableTopics)
	}
	if upserts[1].TableName != "flashcard_decks" {
		t.Errorf("upserts[1].TableName = %q, want flashcard_decks", upserts[1].TableName)
	}
}
