package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallybi/tallybi/internal/log"
)

// ToolDescriptor is the orchestrator's view of one discoverable operation:
// a plain record, not a binding. Args holds the argument names extracted
// from the tool's input schema.
type ToolDescriptor struct {
	Name        string
	Args        []string
	Description string
}

// ToolCaller is what the loop needs from the data-access side: the
// discovered catalog and dispatch by name. Defined here, by the consumer.
type ToolCaller interface {
	Tools() []ToolDescriptor
	Call(ctx context.Context, name string, args map[string]string) (string, error)
}

// Session is a live MCP client session with its discovered tool catalog.
// The catalog is fetched once at connect time and held immutable for the
// session's lifetime; reconnecting is the only way to refresh it.
type Session struct {
	session *mcp.ClientSession
	tools   []ToolDescriptor
	logger  log.Logger
}

// Connect establishes an MCP session over transport and discovers the tool
// catalog. It fails when the server exposes no tools: the prompt builder
// depends on a non-empty list.
func Connect(ctx context.Context, transport mcp.Transport, logger log.Logger) (*Session, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "tallybi-orchestrator",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("discover tools: %w", err)
	}
	if len(listed.Tools) == 0 {
		session.Close()
		return nil, fmt.Errorf("mcp server exposes no tools")
	}

	tools := make([]ToolDescriptor, 0, len(listed.Tools))
	for _, t := range listed.Tools {
		tools = append(tools, ToolDescriptor{
			Name:        t.Name,
			Args:        schemaArgNames(t.InputSchema),
			Description: t.Description,
		})
	}

	logger.Info("connected to mcp server", "tools", len(tools))
	return &Session{session: session, tools: tools, logger: logger}, nil
}

// schemaArgNames extracts property names from a tool's input schema,
// sorted for stable prompt rendering (the schema's property set is
// unordered).
func schemaArgNames(schema *jsonschema.Schema) []string {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the catalog discovered at connect time.
func (s *Session) Tools() []ToolDescriptor {
	return s.tools
}

// Call invokes the named tool and returns its textual output. A tool
// result flagged IsError still returns the text: the loop feeds tool
// failures back to the model as data.
func (s *Session) Call(ctx context.Context, name string, args map[string]string) (string, error) {
	arguments := make(map[string]any, len(args))
	for k, v := range args {
		arguments[k] = v
	}

	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}

	var texts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	if len(texts) == 0 {
		return "No result returned.", nil
	}
	return strings.Join(texts, "\n"), nil
}

// Close tears down the MCP session.
func (s *Session) Close() error {
	return s.session.Close()
}
