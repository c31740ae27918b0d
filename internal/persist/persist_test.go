package persist_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/vadcore/segmenter/internal/driver"
	"github.com/vadcore/segmenter/internal/persist"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if VADCORE_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("VADCORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("VADCORE_TEST_POSTGRES_DSN not set — skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *persist.Store {
	t.Helper()
	ctx := context.Background()
	store, err := persist.Open(ctx, testDSN(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestRecordAndReadBackMention(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	m := driver.Mention{SignalID: "sig-1", Start: 0, Stop: 9600}
	if err := store.RecordMention(ctx, m, "stub"); err != nil {
		t.Fatalf("RecordMention: %v", err)
	}

	recs, err := store.RecentMentions(ctx, "sig-1", time.Hour)
	if err != nil {
		t.Fatalf("RecentMentions: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("expected at least one recorded mention")
	}
	last := recs[len(recs)-1]
	if last.SignalID != "sig-1" || last.Start != 0 || last.Stop != 9600 || last.Detector != "stub" {
		t.Errorf("recorded mention = %+v, want signal_id=sig-1 start=0 stop=9600 detector=stub", last)
	}
}

func TestRecentMentionsExcludesOtherSignals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.RecordMention(ctx, driver.Mention{SignalID: "sig-a", Start: 0, Stop: 100}, "stub"); err != nil {
		t.Fatalf("RecordMention: %v", err)
	}
	if err := store.RecordMention(ctx, driver.Mention{SignalID: "sig-b", Start: 0, Stop: 200}, "stub"); err != nil {
		t.Fatalf("RecordMention: %v", err)
	}

	recs, err := store.RecentMentions(ctx, "sig-a", time.Hour)
	if err != nil {
		t.Fatalf("RecentMentions: %v", err)
	}
	for _, r := range recs {
		if r.SignalID != "sig-a" {
			t.Errorf("got mention for signal %q, want only sig-a", r.SignalID)
		}
	}
}
