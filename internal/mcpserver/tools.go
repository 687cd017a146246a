package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the Sentinel MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolGetThreatLog = mcp.NewTool("get_threat_log",
	mcp.WithDescription(
		"List threats notarized on the blockchain by the Sentinel gateway. "+
			"Each record has the flagged user, severity, threat hash, and transaction hash. "+
			"Use the filter to narrow down to serious or recent threats."),
	mcp.WithString("filter",
		mcp.Description("Filter records: 'all' (default), 'high' (HIGH and CRITICAL only), or 'lasthour' (detected within the past hour)"),
		mcp.Enum("all", "high", "lasthour")),
	mcp.WithString("user_id",
		mcp.Description("Only return threats for this user. Overrides filter.")),
)

var ToolGetThreatStats = mcp.NewTool("get_threat_stats",
	mcp.WithDescription(
		"Get aggregate threat statistics: total notarized threats, unique flagged users, "+
			"a severity histogram, and how many queries in the recent window are fully audited."),
)

var ToolGetUserSuspicion = mcp.NewTool("get_user_suspicion",
	mcp.WithDescription(
		"Look up a user's current suspicion score and access tier on the Sentinel gateway. "+
			"Scores at or above 0.95 are blocked, 0.80 to 0.95 are rate limited, below 0.80 have full access."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("The user identifier to look up")),
)

var ToolRecentQueries = mcp.NewTool("recent_queries",
	mcp.WithDescription(
		"Show the newest fully audited entries from the gateway's query audit log: "+
			"who asked what, the original answer, and the answer actually served."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of entries to return (default 20)")),
)

var ToolGetChainStatus = mcp.NewTool("get_chain_status",
	mcp.WithDescription(
		"Check the notarization blockchain connection: whether the gateway can reach the chain, "+
			"the signing account, and the on-chain threat count."),
)
