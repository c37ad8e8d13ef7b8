// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the finding cache for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pfnbot/internal/apperr"
	"github.com/starford/pfnbot/internal/findingservice"
)

// Server wraps the MCP server with finding tools.
type Server struct {
	mcp *server.MCPServer
	svc *findingservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *findingservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"pfnbot",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_findings",
		mcp.WithDescription("List every recorded meteor finding in discovery order."),
	), s.listFindings)

	s.mcp.AddTool(mcp.NewTool("lookup_finding",
		mcp.WithDescription("Look up a finding by its 10-character ref."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Finding ref as announced in chat")),
	), s.lookupFinding)

	s.mcp.AddTool(mcp.NewTool("get_finding_image",
		mcp.WithDescription("Return the capture image of a finding as PNG."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Finding ref as announced in chat")),
	), s.getFindingImage)

	s.mcp.AddResource(
		mcp.NewResource("pfnbot://commands", "Command Reference",
			mcp.WithResourceDescription("Chat commands understood by the bot and the finding fields."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCommandReference,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listFindings(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.List(ctx), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) lookupFinding(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := s.svc.Resolve(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(resolveMessage(ref, err)), nil
	}
	out, _ := json.MarshalIndent(f, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFindingImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	png, err := s.svc.Image(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(resolveMessage(ref, err)), nil
	}
	data, err := os.ReadFile(png)
	_ = os.Remove(png)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultImage("capture "+ref, base64.StdEncoding.EncodeToString(data), "image/png"), nil
}

func (s *Server) readCommandReference(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pfnbot://commands",
			MIMEType: "text/markdown",
			Text:     CommandReference,
		},
	}, nil
}

func resolveMessage(ref string, err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "no finding with ref " + ref
	case errors.Is(err, apperr.ErrAmbiguous):
		return "ref " + ref + " matches several findings"
	default:
		return err.Error()
	}
}
