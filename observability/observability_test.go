package observability

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agendex/agendex/dbopen"
)

func TestMetricsRecordAndQuery(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	mm := NewMetricsManager(db, 100, time.Hour)
	defer mm.Close()

	mm.RecordSimple(MetricTokensUsed, 42, "count")
	mm.Record(&Metric{
		Name:      MetricRequestDurationMs,
		Timestamp: time.Now(),
		Value:     12.5,
		Labels:    map[string]string{"path": "/v1/parse"},
		Unit:      "milliseconds",
	})

	ctx := context.Background()

	// Buffer not yet full, nothing flushed.
	got, err := mm.Query(ctx, MetricTokensUsed, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("premature flush: %d rows", len(got))
	}

	mm.mu.Lock()
	mm.flushLocked()
	mm.mu.Unlock()

	got, err = mm.Query(ctx, MetricTokensUsed, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != 42 {
		t.Fatalf("tokens query: %+v", got)
	}

	byName, err := mm.Query(ctx, MetricRequestDurationMs, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(byName) != 1 || byName[0].Value != 12.5 {
		t.Fatalf("duration query: %+v", byName)
	}
	if byName[0].Labels["path"] != "/v1/parse" {
		t.Fatalf("labels round-trip: %+v", byName[0].Labels)
	}
}

func TestMetricsBufferOverflowFlushes(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	mm := NewMetricsManager(db, 3, time.Hour)
	defer mm.Close()

	for i := 0; i < 3; i++ {
		mm.RecordSimple(MetricEventsExtracted, float64(i), "count")
	}

	got, err := mm.Query(context.Background(), MetricEventsExtracted, time.Time{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("full buffer must flush inline, got %d rows", len(got))
	}
}

func TestMetricsCleanup(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	mm := NewMetricsManager(db, 100, time.Hour)
	defer mm.Close()

	old := time.Now().AddDate(0, 0, -30)
	mm.Record(&Metric{Name: "stale", Timestamp: old, Value: 1, Unit: "count"})
	mm.RecordSimple("fresh", 1, "count")
	mm.mu.Lock()
	mm.flushLocked()
	mm.mu.Unlock()

	removed, err := mm.Cleanup(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if got, _ := mm.Query(context.Background(), "stale", time.Time{}, 0); len(got) != 0 {
		t.Fatalf("stale metric survived cleanup: %+v", got)
	}
	if got, _ := mm.Query(context.Background(), "fresh", time.Time{}, 0); len(got) != 1 {
		t.Fatalf("fresh metric removed: %+v", got)
	}
}
