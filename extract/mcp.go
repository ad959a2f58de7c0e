package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agendex/agendex/kit"
)

// RegisterMCP registers the extraction tools on an MCP server.
func (e *Extractor) RegisterMCP(srv *mcp.Server) {
	e.registerParseTextTool(srv)
	e.registerParseFileTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- parse_text ---

type parseTextReq struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
	User string `json:"user"`
}

func (e *Extractor) registerParseTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "agendex_parse_text",
		Description: "Extract calendar events from free-form text. Modes: general, academic.",
		InputSchema: inputSchema(map[string]any{
			"text": map[string]any{"type": "string", "description": "Raw text to extract events from"},
			"mode": map[string]any{"type": "string", "description": "Extraction mode: general or academic"},
			"user": map[string]any{"type": "string", "description": "User identifier for quota accounting"},
		}, []string{"text"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*parseTextReq)
		return e.ParseText(ctx, r.User, r.Text, ModeByName(r.Mode))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r parseTextReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request:   &r,
			EnrichCtx: func(ctx context.Context) context.Context { return kit.WithUserID(ctx, r.User) },
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- parse_file ---

type parseFileReq struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	User string `json:"user"`
}

func (e *Extractor) registerParseFileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "agendex_parse_file",
		Description: "Extract calendar events from a document file (txt, csv, docx, xlsx, pdf, png, jpg, html).",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path of the file to parse"},
			"mode": map[string]any{"type": "string", "description": "Extraction mode: general or academic"},
			"user": map[string]any{"type": "string", "description": "User identifier for quota accounting"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*parseFileReq)
		data, err := os.ReadFile(r.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", r.Path, err)
		}
		return e.ParseFile(ctx, r.User, r.Path, data, ModeByName(r.Mode))
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r parseFileReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{
			Request:   &r,
			EnrichCtx: func(ctx context.Context) context.Context { return kit.WithUserID(ctx, r.User) },
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
