// Daytona MCP interpreter — MCP server for executing code, shell commands,
// and file transfers in an ephemeral Daytona workspace.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "daytona-mcp",
	Short: "MCP server backed by an ephemeral Daytona sandbox workspace.",
	Long: `daytona-mcp exposes code execution, shell access, file transfer, git clone,
plot generation, and web preview tools over the Model Context Protocol.
All work happens inside a single lazily-created Daytona workspace that is
destroyed when the server shuts down.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
