package activity

import (
	"fmt"
	"testing"
	"time"

	"rescueline/internal/domain"
)

func newTestLog() *Log {
	l := New()
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	l.Now = func() time.Time { return base.Add(time.Duration(n) * time.Minute) }
	l.NewID = func() string {
		n++
		return fmt.Sprintf("act-%d", n)
	}
	return l
}

func TestAppendStampsEntry(t *testing.T) {
	l := newTestLog()
	got, evicted := l.Append(domain.Activity{Type: domain.ActivityDealCreated, Actor: "staff"})
	if evicted {
		t.Fatalf("unexpected eviction")
	}
	if got.ID != "act-1" {
		t.Fatalf("unexpected id %q", got.ID)
	}
	if got.Status != domain.ActivityStatusNew {
		t.Fatalf("expected status new, got %q", got.Status)
	}
	if got.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

func TestAppendKeepsNewestTen(t *testing.T) {
	l := newTestLog()
	for i := 0; i < Limit+1; i++ {
		_, evicted := l.Append(domain.Activity{Type: domain.ActivityDealCreated, Details: fmt.Sprintf("deal %d", i)})
		if evicted != (i == Limit) {
			t.Fatalf("append %d: evicted=%v", i, evicted)
		}
	}
	entries := l.Entries()
	if len(entries) != Limit {
		t.Fatalf("expected %d entries, got %d", Limit, len(entries))
	}
	if entries[0].Details != "deal 10" {
		t.Fatalf("head should be newest, got %q", entries[0].Details)
	}
	if entries[Limit-1].Details != "deal 1" {
		t.Fatalf("tail should be deal 1, got %q", entries[Limit-1].Details)
	}
	for _, e := range entries {
		if e.Details == "deal 0" {
			t.Fatalf("oldest entry should be evicted")
		}
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	l := newTestLog()
	l.Append(domain.Activity{Details: "a"})
	entries := l.Entries()
	entries[0].Details = "mutated"
	if l.Entries()[0].Details != "a" {
		t.Fatalf("Entries must not expose internal slice")
	}
}

func TestAppendKeepsGivenTimestamp(t *testing.T) {
	l := newTestLog()
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	got, _ := l.Append(domain.Activity{Type: domain.ActivityDealSold, Timestamp: at})
	if !got.Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, at)
	}
	if len(l.Entries()) != 1 {
		t.Fatalf("expected one entry")
	}
}
