package domain

// Role defines the sender of a message.
type Role string

const (
	// RoleSystem indicates the operating charter seeded at the start of a goal.
	RoleSystem Role = "system"
	// RoleUser indicates the user's goal text.
	RoleUser Role = "user"
	// RoleAssistant indicates a model turn (text and/or tool calls).
	RoleAssistant Role = "assistant"
	// RoleTool indicates the result of one tool invocation.
	RoleTool Role = "tool"
	// RoleStats is the synthetic leading record written ahead of a persisted
	// transcript. It never participates in model calls.
	RoleStats Role = "stats"
)
