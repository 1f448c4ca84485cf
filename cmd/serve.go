package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-decide/internal/server"
)

var (
	servePort     int
	serveAllowAll bool
	serveActivate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the decision engine with its HTTP API and live dashboard",
	Long:  `Starts the decision engine together with the REST API, the websocket live feed, the decision archive and webhook notifications.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("allow-all-origins") {
			cfg.Server.AllowAllOrigins = serveAllowAll
		}
		if cmd.Flags().Changed("activate") {
			cfg.Engine.ActivateOnStart = serveActivate
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		services := server.NewServices(database, cfg)
		srv := server.New(server.Config{
			Port:     cfg.Server.Port,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, services)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		services.Start(ctx)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "autodecide server v%s starting on port %d\n", Version, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", database.Path())
		fmt.Fprintf(os.Stderr, "  Engine active: %t, auto mode: %t\n", services.Engine.IsActive(), cfg.Engine.AutoMode)

		err = srv.Start()

		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := services.Close(closeCtx); cerr != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", cerr)
		}

		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveAllowAll, "allow-all-origins", false, "Allow all CORS origins (dev mode)")
	serveCmd.Flags().BoolVar(&serveActivate, "activate", false, "Activate the engine on start")
	rootCmd.AddCommand(serveCmd)
}
