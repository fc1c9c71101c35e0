package cmd

import (
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/config"
)

var (
	mcpTransport string
	mcpPort      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Tally data-access MCP server",
	Long: `Runs the MCP server that exposes Tally accounting data as tools,
for external MCP clients. The chat, ask and bot commands embed the same
server in-process and do not need this command.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		srv, err := buildDataServer(cfg, logger)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		switch mcpTransport {
		case "stdio":
			logger.Info("mcp server starting", "transport", "stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		case "http":
			addr := ":" + mcpPort
			handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
				return srv
			}, nil)
			logger.Info("mcp server listening", "addr", addr)
			return http.ListenAndServe(addr, handler)
		default:
			return fmt.Errorf("unknown transport %q (use stdio or http)", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "transport mode: stdio or http")
	mcpCmd.Flags().StringVar(&mcpPort, "port", "8081", "HTTP port (only used with --transport http)")
	rootCmd.AddCommand(mcpCmd)
}
