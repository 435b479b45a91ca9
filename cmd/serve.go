package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/face-matcher/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Matcher HTTP API.

The registry is restored from the configured database on start. When
FACE_DB_PATH is set, every image in that directory is also registered under
its file name.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// loadFaceDirectory registers the images of FACE_DB_PATH.
func loadFaceDirectory(ctx context.Context, a *app) error {
	dir := a.cfg.Registry.FaceDBPath
	if dir == "" {
		return nil
	}
	fmt.Printf("Loading faces from %s...\n", dir)
	report, err := a.pipeline.LoadDirectory(ctx, dir, nil)
	if err != nil {
		return fmt.Errorf("loading FACE_DB_PATH: %w", err)
	}
	fmt.Printf("Registered %d of %d images from %s\n", report.Registered, report.Total, dir)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store == nil {
		fmt.Println("No DATABASE_URL or MARIADB_DSN set, registrations are kept in memory only")
	}
	if err := loadFaceDirectory(ctx, a); err != nil {
		return err
	}

	if port := mustGetInt(cmd, "port"); port != 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}

	server := web.NewServer(a.cfg, a.pipeline)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Matcher API on http://%s\n", server.Addr())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
