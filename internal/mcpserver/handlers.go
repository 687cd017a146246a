package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *SentinelClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *SentinelClient) *Handlers {
	return &Handlers{client: client}
}

// HandleGetThreatLog lists notarized threats.
func (h *Handlers) HandleGetThreatLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	filter := req.GetString("filter", "")

	var raw json.RawMessage
	var err error
	if userID != "" {
		raw, err = h.client.GetThreatLogForUser(ctx, userID)
	} else {
		raw, err = h.client.GetThreatLog(ctx, filter)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get threat log: %v", err)), nil
	}

	text, err := formatThreatLog(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse threat log: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetThreatStats returns aggregate statistics.
func (h *Handlers) HandleGetThreatStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.GetThreatStats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get threat stats: %v", err)), nil
	}

	text, err := formatThreatStats(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse threat stats: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetUserSuspicion looks up one user's score and tier.
func (h *Handlers) HandleGetUserSuspicion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	raw, err := h.client.ListUsers(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list users: %v", err)), nil
	}

	text, err := formatUserSuspicion(raw, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse users: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecentQueries shows the newest audit log entries.
func (h *Handlers) HandleRecentQueries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)

	raw, err := h.client.RecentQueries(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get recent queries: %v", err)), nil
	}

	text, err := formatQueryLog(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse query log: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleGetChainStatus reports the notarization chain connection.
func (h *Handlers) HandleGetChainStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.ChainStatus(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get chain status: %v", err)), nil
	}

	return mcp.NewToolResultText(formatJSON(raw)), nil
}

// --- Formatting helpers ---

type threatRecord struct {
	UserID          string `json:"userId"`
	ThreatHash      string `json:"threatHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
	Timestamp       string `json:"timestamp"`
	Severity        string `json:"severity"`
}

func formatThreatLog(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Records []threatRecord `json:"records"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", fmt.Errorf("unexpected threat log format")
	}
	if len(wrapper.Records) == 0 {
		return "No notarized threats found.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d notarized threat(s):\n\n", len(wrapper.Records)))
	for i, r := range wrapper.Records {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, r.UserID, r.Severity))
		sb.WriteString(fmt.Sprintf("   Detected: %s | Block: %d\n", r.Timestamp, r.BlockNumber))
		sb.WriteString(fmt.Sprintf("   Hash: %s\n", r.ThreatHash))
		sb.WriteString(fmt.Sprintf("   Tx: %s\n", r.TransactionHash))
		if i < len(wrapper.Records)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func formatThreatStats(raw json.RawMessage) (string, error) {
	var stats struct {
		TotalThreats      int            `json:"totalThreats"`
		UniqueUsers       int            `json:"uniqueUsers"`
		BySeverity        map[string]int `json:"bySeverity"`
		LastHour          int            `json:"lastHour"`
		LatestDetectedAt  string         `json:"latestDetectedAt"`
		AuditedQueries    int            `json:"auditedQueries"`
		TotalQueriesShown int            `json:"totalQueriesShown"`
	}
	if err := json.Unmarshal(raw, &stats); err != nil {
		return "", fmt.Errorf("unexpected stats format")
	}

	var sb strings.Builder
	sb.WriteString("Threat Statistics:\n")
	sb.WriteString(fmt.Sprintf("  Total notarized: %d\n", stats.TotalThreats))
	sb.WriteString(fmt.Sprintf("  Unique users: %d\n", stats.UniqueUsers))
	sb.WriteString(fmt.Sprintf("  Last hour: %d\n", stats.LastHour))
	if stats.LatestDetectedAt != "" {
		sb.WriteString(fmt.Sprintf("  Latest detection: %s\n", stats.LatestDetectedAt))
	}
	sb.WriteString("  By severity:\n")
	for _, sev := range []string{"CRITICAL", "HIGH", "MEDIUM", "LOW"} {
		sb.WriteString(fmt.Sprintf("    %-8s %d\n", sev, stats.BySeverity[sev]))
	}
	if stats.TotalQueriesShown > 0 {
		sb.WriteString(fmt.Sprintf("  Audited queries: %d of %d recent\n",
			stats.AuditedQueries, stats.TotalQueriesShown))
	}
	return sb.String(), nil
}

func formatUserSuspicion(raw json.RawMessage, userID string) (string, error) {
	var wrapper struct {
		Users []struct {
			UserID          string  `json:"userId"`
			SuspicionScore  float64 `json:"suspicionScore"`
			IsHumanVerified bool    `json:"isHumanVerified"`
			LastSeen        string  `json:"lastSeen"`
		} `json:"users"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", fmt.Errorf("unexpected users format")
	}

	for _, u := range wrapper.Users {
		if u.UserID != userID {
			continue
		}
		tier := "allowed (full access)"
		switch {
		case u.SuspicionScore >= 0.95:
			tier = "blocked"
		case u.SuspicionScore >= 0.80:
			tier = "rate limited"
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("User: %s\n", u.UserID))
		sb.WriteString(fmt.Sprintf("  Suspicion score: %.2f\n", u.SuspicionScore))
		sb.WriteString(fmt.Sprintf("  Access tier: %s\n", tier))
		sb.WriteString(fmt.Sprintf("  Human verified: %v\n", u.IsHumanVerified))
		if u.LastSeen != "" {
			sb.WriteString(fmt.Sprintf("  Last seen: %s\n", u.LastSeen))
		}
		return sb.String(), nil
	}
	return fmt.Sprintf("User %q is not known to the gateway.", userID), nil
}

func formatQueryLog(raw json.RawMessage) (string, error) {
	var wrapper struct {
		Entries []struct {
			ID                string `json:"id"`
			UserID            string `json:"userId"`
			Timestamp         string `json:"timestamp"`
			Prompt            string `json:"prompt"`
			OriginalAnswer    string `json:"originalAnswer"`
			NoisyAnswerServed string `json:"noisyAnswerServed"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return "", fmt.Errorf("unexpected query log format")
	}
	if len(wrapper.Entries) == 0 {
		return "No queries logged yet.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Last %d quer(ies):\n\n", len(wrapper.Entries)))
	for i, e := range wrapper.Entries {
		audited := e.OriginalAnswer != "" && e.NoisyAnswerServed != ""
		sb.WriteString(fmt.Sprintf("%d. %s at %s\n", i+1, e.UserID, e.Timestamp))
		sb.WriteString(fmt.Sprintf("   Prompt: %s\n", truncate(e.Prompt, 120)))
		sb.WriteString(fmt.Sprintf("   Fully audited: %v\n", audited))
		if i < len(wrapper.Entries)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func formatJSON(raw json.RawMessage) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return string(raw)
	}
	return pretty.String()
}
