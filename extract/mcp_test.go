package extract

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "agendex-test", Version: "0.1.0"}

func mcpSession(t *testing.T, e *Extractor) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	e.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("call %s: %v", name, err)
	}
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String(), result.IsError
}

func TestMCPParseText(t *testing.T) {
	reply := `{"events": [{"event_name": "demo day", "event_date": "2025-10-10", "event_time": null, "event_tag": null}]}`
	var calls atomic.Int32
	engine := newEngineStub(t, []string{reply}, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	session := mcpSession(t, e)

	out, isErr := mcpCallTool(t, session, "agendex_parse_text", map[string]any{
		"text": "demo day Oct 10",
		"mode": "general",
		"user": "alice",
	})
	if isErr {
		t.Fatalf("tool error: %s", out)
	}

	var result Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if len(result.Events) != 1 || result.Events[0].Name != "Demo Day" {
		t.Fatalf("events = %+v", result.Events)
	}
}

func TestMCPParseTextEmpty(t *testing.T) {
	var calls atomic.Int32
	engine := newEngineStub(t, nil, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	session := mcpSession(t, e)

	out, isErr := mcpCallTool(t, session, "agendex_parse_text", map[string]any{"text": "   "})
	if !isErr {
		t.Fatalf("expected tool error, got %s", out)
	}
	if calls.Load() != 0 {
		t.Fatal("engine must not be called for empty input")
	}
}

func TestMCPToolList(t *testing.T) {
	var calls atomic.Int32
	engine := newEngineStub(t, nil, &calls)

	e := New(Config{Engine: engine, Now: fixedNow})
	session := mcpSession(t, e)

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, tl := range tools.Tools {
		names[tl.Name] = true
	}
	for _, want := range []string{"agendex_parse_text", "agendex_parse_file"} {
		if !names[want] {
			t.Errorf("missing tool %q", want)
		}
	}
}
