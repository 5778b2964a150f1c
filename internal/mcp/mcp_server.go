// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the stimstrain MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Stimstrain Activity Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_day_report ---
	s.AddTool(mcp.NewTool("get_day_report",
		mcp.WithDescription("Summarize one tracked day: strain score, breakdown, focus minutes, hourly timeline, trend and heart-rate correlation."),
		mcp.WithString("date", mcp.Description("Day to report as YYYY-MM-DD, 'today' or 'yesterday'. Defaults to today.")),
	), h.handleGetDayReport)

	// --- 2. Tool: get_hr_correlation ---
	s.AddTool(mcp.NewTool("get_hr_correlation",
		mcp.WithDescription("Correlate stimulated browsing intervals with imported heart-rate samples for one day."),
		mcp.WithString("date", mcp.Description("Day to analyze as YYYY-MM-DD, 'today' or 'yesterday'. Defaults to today.")),
	), h.handleGetHRCorrelation)

	// --- 3. Tool: get_trend ---
	s.AddTool(mcp.NewTool("get_trend",
		mcp.WithDescription("Daily strain and focus minutes for the most recent tracked days, oldest first."),
		mcp.WithNumber("days", mcp.Description("Number of days ending today (1-90). Defaults to 7.")),
		mcp.WithString("date", mcp.Description("Last day of the window. Defaults to today.")),
	), h.handleGetTrend)

	return s
}

// StartMCPServer starts the stimstrain MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
