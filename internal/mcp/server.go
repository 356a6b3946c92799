// Package mcp exposes read-only Expat-Ease data over MCP stdio, so assistant
// clients can look up forum threads and a user's settlement progress.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/prajwalreddypr/Expat-Ease/internal/db"
)

// NewServer creates an MCPServer with the Expat-Ease lookup tools registered.
func NewServer(database *db.DB) *server.MCPServer {
	srv := server.NewMCPServer(
		"expat-ease",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerListQuestions(srv, database)
	registerGetQuestion(srv, database)
	registerProgressOverview(srv, database)

	return srv
}

func registerListQuestions(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]string{"type": "string", "description": "Optional category filter (housing, banking, legal, work, education, healthcare, transportation, social, general)"},
			"limit":    map[string]string{"type": "number", "description": "Max questions to return (default 20)"},
		},
	})
	tool := mcp.NewToolWithRawSchema("list_questions", "List recent forum questions with vote tallies and answer counts", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		questions, err := database.ListQuestions(stringArg(args, "category"), intArg(args, "limit"), 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(questions)
	})
}

func registerGetQuestion(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question_id": map[string]string{"type": "number", "description": "Question ID"},
		},
		"required": []string{"question_id"},
	})
	tool := mcp.NewToolWithRawSchema("get_question", "Fetch one question with its full answer thread", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := intArg(req.GetArguments(), "question_id")
		if id <= 0 {
			return mcp.NewToolResultError("question_id is required"), nil
		}
		question, err := database.GetQuestion(int64(id))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(question)
	})
}

func registerProgressOverview(srv *server.MCPServer, database *db.DB) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user_id": map[string]string{"type": "number", "description": "User ID"},
		},
		"required": []string{"user_id"},
	})
	tool := mcp.NewToolWithRawSchema("progress_overview", "Summarize a user's onboarding tasks and settlement steps", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := intArg(req.GetArguments(), "user_id")
		if id <= 0 {
			return mcp.NewToolResultError("user_id is required"), nil
		}
		tasks, err := database.ListProgressByTracker(int64(id), db.TrackerTask)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		steps, err := database.ListProgressByTracker(int64(id), db.TrackerStep)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"tasks":            tasks,
			"settlement_steps": steps,
		})
	})
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	// JSON numbers arrive as float64.
	if f, ok := args[key].(float64); ok {
		return int(f)
	}
	return 0
}
