package domain

// AgentType identifies which specialized agent handles a query, selecting
// the system prompt and source set used downstream.
type AgentType string

const (
	AgentMedical   AgentType = "medical"
	AgentFinancial AgentType = "financial"
)
