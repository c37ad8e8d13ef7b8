package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pfnbot/internal/findingservice"
	"github.com/starford/pfnbot/internal/imaging"
	"github.com/starford/pfnbot/internal/models"
	"github.com/starford/pfnbot/internal/storage"
	"github.com/starford/pfnbot/internal/testutil"
)

func testServer(t *testing.T, paths ...string) *Server {
	t.Helper()
	return testServerIn(t, t.TempDir(), paths...)
}

// testServerIn converts images into tmp.
func testServerIn(t *testing.T, tmp string, paths ...string) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := storage.Load(filepath.Join(t.TempDir(), "cache.json"),
		func() ([]string, error) { return paths, nil }, logger)
	if err != nil {
		t.Fatal(err)
	}
	return New(findingservice.NewService(store, imaging.New(tmp)), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_findings":
		result, err = srv.listFindings(ctx, req)
	case "lookup_finding":
		result, err = srv.lookupFinding(ctx, req)
	case "get_finding_image":
		result, err = srv.getFindingImage(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListFindings(t *testing.T) {
	srv := testServer(t, "/w/P20230615_223045_P.bmp")
	r := callTool(t, srv, "list_findings", map[string]interface{}{})

	var got []models.Finding
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2023-06-15" {
		t.Errorf("findings = %+v", got)
	}
}

func TestLookupFinding(t *testing.T) {
	p := "/w/P20230615_223045_P.bmp"
	srv := testServer(t, p)
	want := models.NewFinding(p)

	r := callTool(t, srv, "lookup_finding", map[string]interface{}{"ref": want.Ref})
	if r.IsError {
		t.Fatalf("lookup failed: %s", resultText(r))
	}
	var got models.Finding
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got != want {
		t.Errorf("finding = %+v, want %+v", got, want)
	}
}

func TestLookupFindingMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "lookup_finding", map[string]interface{}{"ref": "0000000000"})
	if !r.IsError {
		t.Error("expected error for unknown ref")
	}
	if !strings.Contains(resultText(r), "no finding") {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestLookupFindingRequiresRef(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "lookup_finding", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without ref")
	}
}

func TestGetFindingImage(t *testing.T) {
	src := filepath.ToSlash(testutil.WriteCapture(t, t.TempDir(), "P20230615_223045_P.bmp"))
	srv := testServer(t, src)

	r := callTool(t, srv, "get_finding_image", map[string]interface{}{"ref": models.NewFinding(src).Ref})
	if r.IsError {
		t.Fatalf("image failed: %s", resultText(r))
	}
	var found bool
	for _, c := range r.Content {
		if ic, ok := c.(mcp.ImageContent); ok {
			found = ic.MIMEType == "image/png" && ic.Data != ""
		}
	}
	if !found {
		t.Errorf("no PNG image content in %+v", r.Content)
	}
}

func TestCommandReferenceResource(t *testing.T) {
	srv := testServer(t)
	contents, err := srv.readCommandReference(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || !strings.Contains(tc.Text, "!pfnbot ref") {
		t.Errorf("unexpected resource %+v", contents[0])
	}
}

func TestGetFindingImageRemovesTempPNG(t *testing.T) {
	src := filepath.ToSlash(testutil.WriteCapture(t, t.TempDir(), "P20230615_223045_P.bmp"))
	tmp := t.TempDir()
	srv := testServerIn(t, tmp, src)

	r := callTool(t, srv, "get_finding_image", map[string]interface{}{"ref": models.NewFinding(src).Ref})
	if r.IsError {
		t.Fatalf("image failed: %s", resultText(r))
	}
	left, _ := os.ReadDir(tmp)
	if len(left) != 0 {
		t.Errorf("%d temp files left behind", len(left))
	}
}
