package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/auto-decide/internal/mcp"
	"github.com/ziadkadry99/auto-decide/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing tools to inspect, steer and execute decisions of the engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the MCP protocol.
		log.SetOutput(os.Stderr)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		services := server.NewServices(database, cfg)
		services.Start(cmd.Context())
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			services.Close(ctx)
		}()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "autodecide MCP server started on stdio (db=%s)\n", database.Path())

		srv := mcpserver.NewServer(services.Engine)
		srv.SetRecordDeps(mcpserver.RecordDeps{
			Archive: services.Archive,
			Audit:   services.Audit,
		})
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
