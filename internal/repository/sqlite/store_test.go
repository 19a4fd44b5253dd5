package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/newsdesk/internal/repository"
)

type noteRecord struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Pinned bool     `json:"pinned"`
	Tags   []string `json:"tags"`
}

func (n noteRecord) Key() string { return n.ID }

var notesSchema = Schema{
	Version: 1,
	Collections: []Collection{
		{Name: "notes", KeyPath: "id", Indexes: []Index{
			{Name: "title", KeyPath: "title"},
			{Name: "pinned", KeyPath: "pinned", Kind: IndexBool, Policy: ScanOnly},
		}},
	},
}

func newNoteStore(t *testing.T) *Store[noteRecord] {
	t.Helper()
	conn := Open(MemoryPath, notesSchema, WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })
	return NewStore[noteRecord](conn, "notes")
}

func createTestNote(t *testing.T, s *Store[noteRecord], id, title string) noteRecord {
	t.Helper()
	n := noteRecord{ID: id, Title: title, Body: "body of " + id, Tags: []string{"a", "b"}}
	if _, err := s.Create(context.Background(), n); err != nil {
		t.Fatalf("failed to create test note: %v", err)
	}
	return n
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestStoreCreateRoundTrip(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()

	want := noteRecord{ID: "n1", Title: "hello", Body: "world", Pinned: true, Tags: []string{"x"}}
	id, err := s.Create(ctx, want)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id != "n1" {
		t.Errorf("Create() id = %q, want %q", id, "n1")
	}

	got, err := s.FindByID(ctx, "n1")
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got == nil || !reflect.DeepEqual(*got, want) {
		t.Errorf("FindByID() = %+v, want %+v", got, want)
	}
}

func TestStoreCreateDuplicate(t *testing.T) {
	s := newNoteStore(t)
	createTestNote(t, s, "n1", "first")

	_, err := s.Create(context.Background(), noteRecord{ID: "n1", Title: "second"})
	if !errors.Is(err, repository.ErrDuplicateKey) {
		t.Fatalf("Create() error = %v, want ErrDuplicateKey", err)
	}

	got, _ := s.FindByID(context.Background(), "n1")
	if got.Title != "first" {
		t.Errorf("Title = %q, create must not overwrite", got.Title)
	}
}

func TestStoreCreateWithoutKey(t *testing.T) {
	s := newNoteStore(t)
	_, err := s.Create(context.Background(), noteRecord{Title: "no id"})
	if err == nil {
		t.Fatal("Create() with empty key should fail")
	}
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestStoreFindByIDMissing(t *testing.T) {
	s := newNoteStore(t)

	got, err := s.FindByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("FindByID() error = %v, want nil", err)
	}
	if got != nil {
		t.Errorf("FindByID() = %+v, want nil", got)
	}
}

func TestStoreFindAllAndCount(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()

	all, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("FindAll() on empty = %v, want empty non-nil slice", all)
	}

	createTestNote(t, s, "n1", "one")
	createTestNote(t, s, "n2", "two")
	createTestNote(t, s, "n3", "three")

	all, err = s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("FindAll() returned %d, want 3", len(all))
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestStoreFindByIndex(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	createTestNote(t, s, "n1", "same")
	createTestNote(t, s, "n2", "same")
	createTestNote(t, s, "n3", "other")

	got, err := s.findBy(ctx, "test.findBy", "title", "same")
	if err != nil {
		t.Fatalf("findBy() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("findBy() returned %d, want 2", len(got))
	}

	if _, err := s.findBy(ctx, "test.findBy", "pinned", true); err == nil {
		t.Error("findBy() on a scan-only index should fail")
	}
	if _, err := s.findBy(ctx, "test.findBy", "missing", "x"); err == nil {
		t.Error("findBy() on an undeclared index should fail")
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestStoreUpdateMerges(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	original := createTestNote(t, s, "n1", "before")

	got, err := s.Update(ctx, "n1", repository.PatchFunc[noteRecord](func(n *noteRecord) {
		n.Title = "after"
	}))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := original
	want.Title = "after"
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("Update() = %+v, want %+v", *got, want)
	}

	stored, _ := s.FindByID(ctx, "n1")
	if !reflect.DeepEqual(*stored, want) {
		t.Errorf("stored = %+v, want %+v", *stored, want)
	}
}

func TestStoreUpdateMissing(t *testing.T) {
	s := newNoteStore(t)

	_, err := s.Update(context.Background(), "ghost", repository.PatchFunc[noteRecord](func(n *noteRecord) {}))
	if !errors.Is(err, repository.ErrItemNotFound) {
		t.Errorf("Update() error = %v, want ErrItemNotFound", err)
	}
}

func TestStoreUpdateKeepsKey(t *testing.T) {
	s := newNoteStore(t)
	createTestNote(t, s, "n1", "title")

	_, err := s.Update(context.Background(), "n1", repository.PatchFunc[noteRecord](func(n *noteRecord) {
		n.ID = "n2"
	}))
	if err == nil {
		t.Fatal("Update() that changes the key should fail")
	}
	if got, _ := s.FindByID(context.Background(), "n1"); got == nil {
		t.Error("original record should be untouched")
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestStoreDeleteIsIdempotent(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	createTestNote(t, s, "n1", "bye")

	if err := s.Delete(ctx, "n1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "n1"); err != nil {
		t.Fatalf("second Delete() error = %v, want nil", err)
	}
	if got, _ := s.FindByID(ctx, "n1"); got != nil {
		t.Error("record still present after Delete()")
	}
}

func TestStoreClear(t *testing.T) {
	s := newNoteStore(t)
	ctx := context.Background()
	createTestNote(t, s, "n1", "a")
	createTestNote(t, s, "n2", "b")

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() after Clear() = %d, want 0", n)
	}
}
