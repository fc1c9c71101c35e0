package orchestrator

import "regexp"

// Tool invocation directive, the model-facing textual protocol:
//
//	TOOL_CALL: tool_name(arg1="value1", arg2="value2")
//
// Argument values are double-quoted strings only. Absence of the pattern
// means the output is a final answer.
var (
	toolCallPattern = regexp.MustCompile(`(?s)TOOL_CALL:\s*(\w+)\((.*?)\)`)
	argPattern      = regexp.MustCompile(`(\w+)\s*=\s*"([^"]*)"`)
)

// ParseToolCall extracts a tool-call directive from model output. ok is
// false when the text contains no directive. Malformed argument fragments
// are skipped rather than rejected: the tool itself decides what to do with
// whatever arguments survive.
func ParseToolCall(text string) (name string, args map[string]string, ok bool) {
	m := toolCallPattern.FindStringSubmatch(text)
	if m == nil {
		return "", nil, false
	}

	args = make(map[string]string)
	for _, arg := range argPattern.FindAllStringSubmatch(m[2], -1) {
		args[arg[1]] = arg[2]
	}
	return m[1], args, true
}
