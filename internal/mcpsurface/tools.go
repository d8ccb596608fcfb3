package mcpsurface

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/thunklang/thunk-dap/log"
)

// ToolOptions configures RegisterTools.
type ToolOptions struct {
	Logger log.Logger
}

// RegisterTools registers the Thunk debugger's operations as MCP tools
// on s, backed by a fresh Manager.
func RegisterTools(s *server.MCPServer, opts ToolOptions) error {
	mgr := NewManager(opts.Logger)

	registerLaunchSessionTool(s, mgr, opts)
	registerTerminateSessionTool(s, mgr, opts)
	registerListSessionsTool(s, mgr, opts)
	registerSetBreakpointTool(s, mgr, opts)
	registerContinueTool(s, mgr, opts)
	registerNextTool(s, mgr, opts)
	registerEvaluateTool(s, mgr, opts)

	return nil
}

func registerLaunchSessionTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("launch_session",
		mcp.WithDescription("Launch a new Thunk debugging session"),
		mcp.WithString("manifest",
			mcp.Required(),
			mcp.Description("Root file identifying the Thunk project"),
		),
		mcp.WithString("program",
			mcp.Required(),
			mcp.Description("Path to the Thunk program to evaluate"),
		),
		mcp.WithString("expression",
			mcp.Required(),
			mcp.Description("Attribute selector to evaluate within the manifest"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		manifest, _ := request.Params.Arguments["manifest"].(string)
		program, _ := request.Params.Arguments["program"].(string)
		expression, _ := request.Params.Arguments["expression"].(string)

		session, _ := mgr.NewSession()
		if err := session.Launch(manifest, program, expression); err != nil {
			opts.Logger.Errorf("launch_session: %v", err)
			_ = mgr.TerminateSession(session.ID())
			return mcp.NewToolResultError(err.Error()), nil
		}

		opts.Logger.Infof("launch_session: started %s (%s)", session.ID(), program)
		return mcp.NewToolResultText(fmt.Sprintf("Session started with ID: %s", session.ID())), nil
	})
}

func registerTerminateSessionTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("terminate_session",
		mcp.WithDescription("Terminate a Thunk debugging session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session to terminate")),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, _ := request.Params.Arguments["session_id"].(string)
		if err := mgr.TerminateSession(sessionID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Session %s terminated", sessionID)), nil
	})
}

func registerListSessionsTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("list_sessions", mcp.WithDescription("List active Thunk debugging sessions"))

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := mgr.ListSessions()
		if len(ids) == 0 {
			return mcp.NewToolResultText("No active sessions"), nil
		}
		result := "Active sessions:\n"
		for _, id := range ids {
			result += fmt.Sprintf("- %s\n", id)
		}
		return mcp.NewToolResultText(result), nil
	})
}

func registerSetBreakpointTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("set_breakpoint",
		mcp.WithDescription("Set a one-shot line breakpoint in a session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session")),
		mcp.WithString("file", mcp.Description("Source file (optional; breakpoints match by line alone)")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Line number to break at")),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, _ := request.Params.Arguments["session_id"].(string)
		file, _ := request.Params.Arguments["file"].(string)
		lineFloat, _ := request.Params.Arguments["line"].(float64)

		session, ok := mgr.Get(sessionID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no such session: %s", sessionID)), nil
		}
		if err := session.SetBreakpoint(file, int(lineFloat)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Breakpoint set at line %d", int(lineFloat))), nil
	})
}

func registerContinueTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("continue",
		mcp.WithDescription("Continue a paused session at full speed"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session")),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, _ := request.Params.Arguments["session_id"].(string)
		session, ok := mgr.Get(sessionID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no such session: %s", sessionID)), nil
		}
		if err := session.Continue(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Execution continued"), nil
	})
}

func registerNextTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("next",
		mcp.WithDescription("Advance a paused session by one opcode"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session")),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, _ := request.Params.Arguments["session_id"].(string)
		session, ok := mgr.Get(sessionID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no such session: %s", sessionID)), nil
		}
		if err := session.Next(); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Stepped one opcode"), nil
	})
}

func registerEvaluateTool(s *server.MCPServer, mgr *Manager, opts ToolOptions) {
	tool := mcp.NewTool("evaluate",
		mcp.WithDescription("Print a named variable in a paused session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("ID of the session")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Variable name to look up")),
	)

	s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, _ := request.Params.Arguments["session_id"].(string)
		name, _ := request.Params.Arguments["name"].(string)
		session, ok := mgr.Get(sessionID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no such session: %s", sessionID)), nil
		}
		value, err := session.Evaluate(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s = %s", name, value)), nil
	})
}
