// Package orchestrator drives the bounded tool-calling dialogue between the
// language model and the Tally MCP tools.
//
// Per query the flow is a small state machine: build the prompt (system
// instructions with the discovered tool list, optional retrieved business
// context, trimmed history, the query), call the model, parse its output
// for a TOOL_CALL directive, invoke the tool over the MCP session, feed the
// result back, and repeat until the model answers in plain text or the
// round budget runs out. Only the original query and the final answer are
// persisted to a user's history; intermediate tool rounds are discarded, so
// stored history stays compact regardless of how many rounds a query took.
package orchestrator
