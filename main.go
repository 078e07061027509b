package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"luch-agregator/app"
	"luch-agregator/config"
	"luch-agregator/logger"
)

var (
	cfg    *config.Config
	appLog *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "luch-agregator",
	Short:         "Catalog selection and commercial offer service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loadDotEnv()

		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if appLog, err = logger.New(cfg.Env); err != nil {
			return err
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create-user <username> <password>",
	Short: "Create a user allowed to build offers",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		staff, _ := cmd.Flags().GetBool("staff")
		defer appLog.Sync()

		a, err := app.Initialize(cmd.Context(), cfg, appLog)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Auth.CreateUser(cmd.Context(), args[0], args[1], staff); err != nil {
			return err
		}
		fmt.Printf("User %s created\n", args[0])
		return nil
	},
}

var syncMediaCmd = &cobra.Command{
	Use:   "sync-media [folder-id]",
	Short: "Download model images from a Google Drive folder into MEDIA_ROOT",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer appLog.Sync()

		folderID := cfg.MediaDriveFolderID
		if len(args) == 1 {
			folderID = args[0]
		}
		if folderID == "" {
			return fmt.Errorf("no folder id given and MEDIA_DRIVE_FOLDER_ID is not set")
		}
		subdir, _ := cmd.Flags().GetString("subdir")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		sync, err := app.NewMediaSync(cmd.Context(), cfg, appLog)
		if err != nil {
			return err
		}
		result, err := sync.SyncFolder(cmd.Context(), folderID, subdir, overwrite)
		if err != nil {
			return err
		}

		fmt.Printf("%d downloaded, %d skipped, %d failed out of %d images\n",
			result.Downloaded, result.Skipped, len(result.Errors), result.Total)
		for _, msg := range result.Errors {
			fmt.Println("  " + msg)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d images failed to sync", len(result.Errors))
		}
		return nil
	},
}

func init() {
	createUserCmd.Flags().Bool("staff", false, "grant access to the document log")
	syncMediaCmd.Flags().String("subdir", "", "directory under MEDIA_ROOT to store the images in")
	syncMediaCmd.Flags().Bool("overwrite", false, "replace images that already exist on disk")
	rootCmd.AddCommand(serveCmd, createUserCmd, syncMediaCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// loadDotEnv loads .env in development; in production variables are set directly
func loadDotEnv() {
	if os.Getenv("ENV") == "production" {
		return
	}
	// Use Overload to ensure .env values override system environment variables
	envPath := ".env"
	if err := godotenv.Overload(envPath); err != nil {
		log.Printf("Warning: .env file not found at %s, using system environment variables", envPath)
		return
	}
	log.Printf("Successfully loaded environment variables from %s", envPath)
}

func serve(ctx context.Context) error {
	defer appLog.Sync()

	a, err := app.Initialize(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker/Render)
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		// PDF printing can take a while
		WriteTimeout: cfg.PDFTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("Server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLog.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	appLog.Info("✓ Server stopped")
	return nil
}
