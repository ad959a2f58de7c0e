package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agendex/agendex/batch"
	"github.com/agendex/agendex/inference"
)

// newEngineStub fakes the inference engine: each call returns the next canned
// content. calls counts requests served.
func newEngineStub(t *testing.T, replies []string, calls *atomic.Int32) *inference.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(replies) {
			t.Errorf("engine called %d times, only %d replies prepared", n+1, len(replies))
			http.Error(w, "too many calls", http.StatusInternalServerError)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": replies[n]}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"total_tokens": 50},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return inference.NewClient(inference.Config{BaseURL: srv.URL})
}

func fixedNow() time.Time {
	return time.Date(2025, 9, 20, 10, 0, 0, 0, time.UTC)
}

func TestParseTextEndToEnd(t *testing.T) {
	reply := `{"events": [{"event_name": "integro interview", "event_date": "2025-10-05", "event_time": "12:00", "event_tag": "interview"}]}`
	var calls atomic.Int32
	engine := newEngineStub(t, []string{reply}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	result, err := e.ParseText(context.Background(), "u1", "Integro interview Oct 5 at noon", General())
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("events = %+v", result.Events)
	}
	ev := result.Events[0]
	if ev.Name != "Integro Interview" {
		t.Errorf("name = %q", ev.Name)
	}
	if ev.Date != "2025-10-05" {
		t.Errorf("date = %q", ev.Date)
	}
	if ev.Time == nil || *ev.Time != "12:00" {
		t.Errorf("time = %v", ev.Time)
	}
	if ev.Tag == nil || *ev.Tag != "Interview" {
		t.Errorf("tag = %v", ev.Tag)
	}
	if result.TokensUsed != 50 {
		t.Errorf("tokens = %d", result.TokensUsed)
	}
	if len(result.Calls) != 1 || result.Calls[0].Vision {
		t.Errorf("diagnostics = %+v", result.Calls)
	}
}

func TestParseTextEmptyResultIsSuccess(t *testing.T) {
	var calls atomic.Int32
	engine := newEngineStub(t, []string{`{"events": []}`}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	result, err := e.ParseText(context.Background(), "u1", "nothing date-like here", General())
	if err != nil {
		t.Fatalf("zero events must not be an error: %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("events = %+v", result.Events)
	}
}

func TestParseTextEmptyInput(t *testing.T) {
	e := New(Config{Engine: inference.NewClient(inference.Config{}), Now: fixedNow})
	_, err := e.ParseText(context.Background(), "u1", "   \n\n  ", General())
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParseTextTokenCeiling(t *testing.T) {
	var calls atomic.Int32
	engine := newEngineStub(t, nil, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	mode := General()
	mode.MaxTokens = 10

	_, err := e.ParseText(context.Background(), "u1", strings.Repeat("word ", 100), mode)
	var tle *batch.TooLargeError
	if !errors.As(err, &tle) {
		t.Fatalf("expected TooLargeError, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("inference engine must never be called for oversized input")
	}
}

type denyQuota struct{}

func (denyQuota) Check(ctx context.Context, userID string, estimatedTokens int) error {
	return ErrQuotaExceeded
}
func (denyQuota) Record(ctx context.Context, userID string, tokensUsed int) error { return nil }

func TestParseTextQuotaExceeded(t *testing.T) {
	var calls atomic.Int32
	engine := newEngineStub(t, nil, &calls)

	e := New(Config{Engine: engine, Quota: denyQuota{}, Now: fixedNow})
	_, err := e.ParseText(context.Background(), "u1", "Quiz Oct 9", General())
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("quota must gate the engine")
	}
}

type recordingQuota struct {
	checked  atomic.Int32
	recorded atomic.Int32
}

func (q *recordingQuota) Check(ctx context.Context, userID string, estimatedTokens int) error {
	q.checked.Add(1)
	return nil
}
func (q *recordingQuota) Record(ctx context.Context, userID string, tokensUsed int) error {
	q.recorded.Add(int32(tokensUsed))
	return nil
}

func TestParseTextMultiBatchDedup(t *testing.T) {
	// Two batches both return the same event; the merge must keep one.
	reply := `{"events": [{"event_name": "Final Exam", "event_date": "2025-12-15", "event_time": "09:00", "event_tag": null}]}`
	var calls atomic.Int32
	engine := newEngineStub(t, []string{reply, reply}, &calls)

	quota := &recordingQuota{}
	e := New(Config{Engine: engine, Quota: quota, Now: fixedNow})

	mode := General()
	mode.Batch = batch.Options{MaxLines: 1, MaxChars: 4000}

	result, err := e.ParseText(context.Background(), "u1", "final exam Dec 15 9am\nfinal exam again Dec 15 9am", mode)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one call per batch, got %d", calls.Load())
	}
	if len(result.Events) != 1 {
		t.Fatalf("cross-batch duplicate survived: %+v", result.Events)
	}
	if result.TokensUsed != 100 {
		t.Errorf("tokens must sum across batches, got %d", result.TokensUsed)
	}
	if quota.checked.Load() != 1 {
		t.Errorf("quota checked %d times, want once per parse", quota.checked.Load())
	}
	if quota.recorded.Load() != 100 {
		t.Errorf("recorded tokens = %d", quota.recorded.Load())
	}
}

func TestParseTextBatchFailureAbortsWholeCall(t *testing.T) {
	good := `{"events": [{"event_name": "A", "event_date": "2025-10-05", "event_time": null, "event_tag": null}]}`
	// Second batch: malformed twice (original + repair) → the whole call fails.
	var calls atomic.Int32
	engine := newEngineStub(t, []string{good, "garbage", "more garbage"}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	mode := General()
	mode.Batch = batch.Options{MaxLines: 1, MaxChars: 4000}

	_, err := e.ParseText(context.Background(), "u1", "line one\nline two", mode)
	var me *inference.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestParseTextPerBatchEventCap(t *testing.T) {
	var events []map[string]any
	for i := 0; i < 80; i++ {
		events = append(events, map[string]any{
			"event_name": "Event " + strings.Repeat("x", i%5+1),
			"event_date": "2025-10-05",
			"event_time": nil,
			"event_tag":  nil,
		})
	}
	raw, _ := json.Marshal(map[string]any{"events": events})

	var calls atomic.Int32
	engine := newEngineStub(t, []string{string(raw)}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	mode := General()
	mode.MaxEventsPerBatch = 60

	result, err := e.ParseText(context.Background(), "u1", "busy schedule", mode)
	if err != nil {
		t.Fatal(err)
	}
	// 80 generated events collapse to 5 distinct names after dedup, but the
	// cap must have applied before the merge.
	for _, d := range result.Calls {
		if d.EventCount > 60 {
			t.Fatalf("batch contributed %d events, cap is 60", d.EventCount)
		}
	}
}

func TestParseFileVisionRouting(t *testing.T) {
	reply := `{"events": [
		{"event_name": "board meeting", "event_date": "2025-10-07", "event_time": "15:00", "event_tag": "meeting"},
		{"event_name": "ghost", "event_date": "not-a-date", "event_time": null, "event_tag": null}
	]}`
	var calls atomic.Int32
	engine := newEngineStub(t, []string{reply}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	png := []byte("\x89PNG\r\n\x1a\n....")

	result, err := e.ParseFile(context.Background(), "u1", "whiteboard.png", png, General())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Events) != 1 || result.Events[0].Name != "Board Meeting" {
		t.Fatalf("events = %+v", result.Events)
	}
	if len(result.Calls) != 1 || !result.Calls[0].Vision {
		t.Fatalf("expected one vision call, got %+v", result.Calls)
	}
}

func TestParseFileTextRouting(t *testing.T) {
	reply := `{"events": [{"event_name": "Midterm", "event_date": "2025-10-12", "event_time": "09:00", "event_tag": "exam"}]}`
	var calls atomic.Int32
	engine := newEngineStub(t, []string{reply}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	result, err := e.ParseFile(context.Background(), "u1", "schedule.csv", []byte("Midterm,2025-10-12,9am\n"), Academic())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Calls) != 1 || result.Calls[0].Vision {
		t.Fatalf("csv must go down the text path: %+v", result.Calls)
	}
	if result.Events[0].Tag == nil || *result.Events[0].Tag != "Exam" {
		t.Fatalf("tag = %v", result.Events[0].Tag)
	}
}

func TestConfiguredModelReachesEngine(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		models = append(models, req.Model)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"events": []}`}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"total_tokens": 10},
		})
	}))
	t.Cleanup(srv.Close)
	engine := inference.NewClient(inference.Config{BaseURL: srv.URL})

	e := New(Config{
		Engine:      engine,
		Model:       "custom-text-model",
		VisionModel: "custom-vision-model",
		Now:         fixedNow,
	})

	if _, err := e.ParseText(context.Background(), "u1", "Quiz Oct 9", General()); err != nil {
		t.Fatal(err)
	}
	png := []byte("\x89PNG\r\n\x1a\n....")
	if _, err := e.ParseFile(context.Background(), "u1", "board.png", png, General()); err != nil {
		t.Fatal(err)
	}

	if len(models) != 2 || models[0] != "custom-text-model" || models[1] != "custom-vision-model" {
		t.Fatalf("models sent to engine = %v", models)
	}

	// A mode that pins its own model wins over the configured default.
	pinned := General()
	pinned.Model = "pinned-model"
	if _, err := e.ParseText(context.Background(), "u1", "Quiz Oct 9", pinned); err != nil {
		t.Fatal(err)
	}
	if models[2] != "pinned-model" {
		t.Fatalf("pinned mode model overridden: %v", models)
	}
}

func TestSystemPromptContract(t *testing.T) {
	p := systemPrompt(Academic(), fixedNow())

	for _, want := range []string{
		`"events"`,
		"event_name",
		"event_date",
		"event_time",
		"event_tag",
		"2025-09-20",
		"23:59",
		"12:00",
		"one event per item",
		"homework, quiz, exam",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestModeByName(t *testing.T) {
	if ModeByName("academic").Name != "academic" {
		t.Error("academic mode not resolved")
	}
	if ModeByName("nonsense").Name != "general" {
		t.Error("unknown mode must fall back to general")
	}
}
