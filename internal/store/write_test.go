package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/roach88/seqmine/internal/ir"
)

func TestCreateSchema_OneRowPerID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	created, err := s.CreateSchema(ctx, 250, []ir.ID{"A000001", "A000004"})
	if err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	if !created {
		t.Fatal("first CreateSchema() should report created")
	}

	var count, distinct int
	if err := s.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT id) FROM sequences").Scan(&count, &distinct); err != nil {
		t.Fatal(err)
	}
	if count != 250 || distinct != 250 {
		t.Errorf("rows = %d (distinct %d), want 250", count, distinct)
	}

	for _, id := range []ir.ID{"A000001", "A000250"} {
		rec, err := s.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", id, err)
		}
		if rec.Name != "" || rec.State != ir.StateUnfetched {
			t.Errorf("%s should start empty, got %+v", id, rec)
		}
	}
	if _, err := s.Get(ctx, "A000251"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Get(A000251) err = %v, want sql.ErrNoRows", err)
	}

	bl, err := s.Blacklist(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(bl, []ir.ID{"A000001", "A000004"}) {
		t.Errorf("blacklist = %v", bl)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 20)

	if err := s.Update(ctx, fetchedRecord("A000007", "kept")); err != nil {
		t.Fatal(err)
	}

	created, err := s.CreateSchema(ctx, 50, nil)
	if err != nil {
		t.Fatalf("second CreateSchema() failed: %v", err)
	}
	if created {
		t.Error("second CreateSchema() should be a no-op")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sequences").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("rows = %d after no-op, want 20", count)
	}
	rec, err := s.Get(ctx, "A000007")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "kept" {
		t.Errorf("existing row was touched: %+v", rec)
	}

	capacity, ok, err := s.Capacity(ctx)
	if err != nil || !ok || capacity != 20 {
		t.Errorf("Capacity() = %d, %v, %v; want 20, true, nil", capacity, ok, err)
	}
}

func TestCreateSchema_RejectsBadCapacity(t *testing.T) {
	s := createTestStore(t)
	for _, c := range []int{0, -1, ir.MaxIDNumber + 1} {
		if _, err := s.CreateSchema(context.Background(), c, nil); err == nil {
			t.Errorf("CreateSchema(%d) should fail", c)
		}
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 50)

	want := ir.SequenceRecord{
		ID:                   "A000045",
		Name:                 "Fibonacci numbers.",
		Data:                 "0,1,1,2,3,5,8",
		Formula:              []string{"a(n) = a(n-1) + a(n-2).", "a(n) < 2^n & more"},
		ClosedForm:           "fibonacci(n)",
		SimplifiedClosedForm: "",
		IsNew:                false,
		RegexMatched:         true,
		ParsedFormulas:       []string{"fibonacci(n)"},
		Keyword:              ir.KeywordEasy,
		CrossReferences:      []ir.ID{"A000032", "A001622"},
		AlgorithmUsed:        "cfinite",
		NumericFieldUsed:     "ZZ",
		Verified:             ir.BoolPtr(true),
		State:                ir.StateVerified,
	}
	if err := s.Update(ctx, want); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, err := s.Get(ctx, want.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestUpdate_StateNeverDecreases(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 10)

	rec := solvedRecord("A000003", "n")
	rec.State = ir.StateVerified
	if err := s.Update(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.State = ir.StateFetched
	rec.Name = "renamed"
	if err := s.Update(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "A000003")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != ir.StateVerified {
		t.Errorf("state = %v, want verified", got.State)
	}
	if got.Name != "renamed" {
		t.Errorf("other fields should still be written, name = %q", got.Name)
	}
}

func TestSetVerified(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 10)
	for _, rec := range []ir.SequenceRecord{solvedRecord("A000001", "n"), solvedRecord("A000002", "2*n")} {
		if err := s.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.SetVerified(ctx, "A000001", true); err != nil {
		t.Fatal(err)
	}
	if err := s.SetVerified(ctx, "A000002", false); err != nil {
		t.Fatal(err)
	}

	ok, _ := s.Get(ctx, "A000001")
	if ok.Verified == nil || !*ok.Verified || ok.State != ir.StateVerified {
		t.Errorf("A000001 = %+v, want verified", ok)
	}
	bad, _ := s.Get(ctx, "A000002")
	if bad.Verified == nil || *bad.Verified || bad.State != ir.StateGuessed {
		t.Errorf("A000002 = %+v, want verified=false in guessed state", bad)
	}
}

func TestAddBlacklist_AppendOnly(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 10, "A000001")

	added, err := s.AddBlacklist(ctx, []ir.ID{"A000001", "A000005", "A000009"}, "operator")
	if err != nil {
		t.Fatalf("AddBlacklist() failed: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}

	var reason string
	if err := s.db.QueryRow("SELECT reason FROM blacklist WHERE id = 'A000001'").Scan(&reason); err != nil {
		t.Fatal(err)
	}
	if reason != "default" {
		t.Errorf("existing reason overwritten: %q", reason)
	}

	bl, err := s.Blacklist(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(bl) != 3 {
		t.Errorf("blacklist = %v, want 3 entries", bl)
	}
}

func TestInsertCrossReference_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	x := ir.CrossReference{A: "A000005", B: "A000002", FormulaA: "2*n", FormulaB: "n + n"}
	inserted, err := s.InsertCrossReference(ctx, x)
	if err != nil {
		t.Fatalf("InsertCrossReference() failed: %v", err)
	}
	if !inserted {
		t.Error("first insert should report inserted")
	}

	inserted, err = s.InsertCrossReference(ctx, x)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("duplicate insert should be ignored")
	}

	xrefs, err := s.CrossReferences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []ir.CrossReference{{A: "A000002", B: "A000005", FormulaA: "n + n", FormulaB: "2*n"}}
	if !reflect.DeepEqual(xrefs, want) {
		t.Errorf("xrefs = %+v, want %+v (pair normalised)", xrefs, want)
	}
}

func TestFormulaCorpus(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 10)

	recs := []ir.SequenceRecord{
		solvedRecord("A000009", "n", "n", "n^2"),
		solvedRecord("A000002", "2*n", "2*n"),
		solvedRecord("A000004", "0"),
	}
	for _, rec := range recs {
		if err := s.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	corpus, err := s.FormulaCorpus(ctx)
	if err != nil {
		t.Fatalf("FormulaCorpus() failed: %v", err)
	}
	want := []CorpusEntry{
		{ID: "A000002", Expressions: []string{"2*n"}},
		{ID: "A000009", Expressions: []string{"n", "n^2"}},
	}
	if !reflect.DeepEqual(corpus, want) {
		t.Errorf("corpus = %+v, want %+v", corpus, want)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := createInitializedStore(t, 10, "A000010")

	novel := solvedRecord("A000001", "n^3")
	novel.IsNew = true
	novel.Verified = ir.BoolPtr(true)
	failed := solvedRecord("A000002", "n")
	failed.Verified = ir.BoolPtr(false)
	for _, rec := range []ir.SequenceRecord{novel, failed, fetchedRecord("A000003", "x")} {
		if err := s.Update(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	want := Stats{Total: 10, Fetched: 3, Solved: 2, New: 1, Verified: 1, VerifyFailed: 1, Blacklisted: 1}
	if st != want {
		t.Errorf("Stats() = %+v, want %+v", st, want)
	}
}
