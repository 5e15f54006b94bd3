package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEntries() []Entry {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{ID: "01A", Entity: "vendor", Action: "block", Target: "12", Reason: "fraud", Outcome: OutcomeOK, Status: 200, Operator: "admin@shopsphere.test", At: base},
		{ID: "01B", Entity: "order", Action: "settle-payment", Target: "991", Outcome: OutcomeError, Status: 409, Message: "already settled", At: base.Add(time.Second)},
		{ID: "01C", Entity: "vendor", Action: "unblock", Target: "12", Outcome: OutcomeOK, Status: 200, At: base.Add(2 * time.Second)},
	}
}

func testJournal(t *testing.T, j Journal) {
	t.Helper()
	ctx := context.Background()
	for _, e := range sampleEntries() {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.ID, err)
		}
	}

	all, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(all))
	}
	if all[0].ID != "01C" || all[2].ID != "01A" {
		t.Errorf("order = %s,%s,%s; want newest first", all[0].ID, all[1].ID, all[2].ID)
	}
	if all[1].Message != "already settled" || all[1].Status != 409 {
		t.Errorf("entry 01B = %+v", all[1])
	}
	if all[2].Reason != "fraud" || all[2].Operator != "admin@shopsphere.test" {
		t.Errorf("entry 01A = %+v", all[2])
	}
	if !all[2].At.Equal(sampleEntries()[0].At) {
		t.Errorf("At = %v, want %v", all[2].At, sampleEntries()[0].At)
	}

	vendors, err := j.List(ctx, Filter{Entity: "vendor"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vendors) != 2 {
		t.Errorf("vendor entries = %d, want 2", len(vendors))
	}

	limited, err := j.List(ctx, Filter{Target: "12", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ID != "01C" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestMemoryJournal(t *testing.T) {
	testJournal(t, NewMemory())
}

func TestSQLiteJournal(t *testing.T) {
	j, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer j.Close()
	testJournal(t, j)
}

func TestSQLiteJournalPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, "sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if err := j.Record(ctx, sampleEntries()[0]); err != nil {
		t.Fatal(err)
	}
	j.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
	j, err = Open(ctx, "sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	got, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "01A" {
		t.Errorf("reopened journal = %+v", got)
	}
}

func TestPostgresJournal(t *testing.T) {
	dsn := os.Getenv("SHOPCTL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SHOPCTL_TEST_POSTGRES_DSN not set")
	}
	j, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if _, err := j.db.Exec("DELETE FROM shopctl_journal"); err != nil {
		t.Fatal(err)
	}
	testJournal(t, j)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongodb", "")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
	j, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := j.(*Memory); !ok {
		t.Errorf("default journal = %T, want *Memory", j)
	}
}
