package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadbs/anidb-cache/api"
	"github.com/fadbs/anidb-cache/api/types"
	"github.com/fadbs/anidb-cache/internal/database"
	"github.com/fadbs/anidb-cache/internal/models"
	"github.com/fadbs/anidb-cache/internal/services/anidb"
	"github.com/fadbs/anidb-cache/internal/services/genres"
	"github.com/fadbs/anidb-cache/internal/services/search"
	"github.com/fadbs/anidb-cache/internal/services/series"
	"github.com/fadbs/anidb-cache/pkg/config"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lookup API server",
	Long: `Start the AniDB metadata cache API server.

The server exposes the series lookup endpoint consumed by the host
task pipeline, backed by the local cache and the rate-limited AniDB
fetch gate.

Example:
  anidb-cache serve
  anidb-cache serve --port 9090`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	if serverHost == "" {
		serverHost = cfg.Server.Host
	}
	if serverPort == 0 {
		serverPort = cfg.Server.Port
	}

	db, err := database.Initialize(cfg.Database.Path, cfg.Database.LogQueries)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(models.All()...); err != nil {
		return err
	}

	session, err := anidb.OpenSession(anidb.SessionOptions{
		Path:        cfg.AniDB.SessionFile,
		MaxSession:  cfg.AniDB.MaxSession,
		BanDuration: cfg.AniDB.BanDuration,
		Cooldown:    cfg.AniDB.SessionCooldown,
	})
	if err != nil {
		return fmt.Errorf("failed to open anidb session: %w", err)
	}

	client := anidb.NewClient(anidb.Config{
		Endpoint:        cfg.AniDB.Endpoint,
		TitlesDumpURL:   cfg.AniDB.TitlesDumpURL,
		Client:          cfg.AniDB.Client,
		ClientVersion:   cfg.AniDB.ClientVersion,
		ProtoVersion:    cfg.AniDB.ProtoVersion,
		UserAgent:       cfg.AniDB.UserAgent,
		Timeout:         cfg.AniDB.Timeout,
		RequestInterval: cfg.AniDB.RequestInterval,
		TitlesDumpTTL:   cfg.AniDB.CacheTTL,
	}, session)

	reconciler := genres.NewReconciler(config.TagBlacklist())
	repository := series.NewRepository(db.DB, reconciler)

	staleness := series.NewStaleness(cfg.AniDB.CacheTTL)
	staleness.SkipFinishedAfter = cfg.AniDB.SkipFinishedAfter

	resolver := search.NewResolver(repository, client, staleness,
		search.WithMatchRatio(cfg.Search.MatchRatio))

	server := api.NewServer(
		fmt.Sprintf("%s:%d", serverHost, serverPort),
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)
	server.SetDependencies(&types.Dependencies{
		DB:           db,
		Resolver:     resolver,
		MinTagWeight: cfg.Genres.WeightThreshold,
	})
	if err := server.Initialize(); err != nil {
		return err
	}

	fmt.Printf("Starting AniDB metadata cache on %s:%d\n", serverHost, serverPort)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Seed the title search index in the background; a failure here just
	// means the fuzzy index starts cold
	go func() {
		if imported, err := resolver.RefreshTitleIndex(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "title index refresh failed: %v\n", err)
		} else if imported > 0 {
			fmt.Printf("Title index refreshed: %d titles\n", imported)
		}
	}()

	select {
	case <-stop:
		fmt.Println("\nShutting down server...")
	case err := <-serverErr:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	fmt.Println("Server stopped")
	return nil
}
