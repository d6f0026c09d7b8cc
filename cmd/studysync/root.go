package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/studysync/internal/client"
	"github.com/hyperengineering/studysync/internal/config"
	"github.com/hyperengineering/studysync/internal/store"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "studysync",
	Short:         "StudySync - offline-first study data synchronization",
	Long:          "Track local study data changes offline and synchronize them with a StudySync server in a single push+pull round trip.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pruneCmd)
}

// initRuntime loads configuration and installs the process-wide logger.
func initRuntime() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}

// openClient opens the local store and builds a sync client around it.
// The caller closes the returned store.
func openClient(cfg *config.Config) (*client.Client, *store.Store, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	c, err := client.New(client.Config{
		ServerURL: cfg.Sync.ServerURL,
		Store:     st,
		Tokens:    client.NewFileTokenStore(cfg.Sync.TokenPath),
		HTTPClient: &http.Client{
			Timeout: time.Duration(cfg.Sync.Timeout),
		},
	})
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return c, st, nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
