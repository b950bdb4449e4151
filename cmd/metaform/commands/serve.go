package commands

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/config"
	"github.com/matthewbaird/metaform/internal/schema"
	"github.com/matthewbaird/metaform/internal/stub"
)

var (
	serveAddr string
	serveDB   string
	serveSeed bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local stub API",
	Long: `Run the stub backend the console develops against. Every catalog
entity gets the full route set: _metainfo, enveloped CRUD, child
scoping, distinct-values lookups, and soft delete with restore.

Examples:
  # In-memory store with demo data
  metaform serve

  # Persist records across restarts
  metaform serve --db metaform.db --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "sqlite path; empty uses the in-memory store")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "load demo data into an empty store")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Serve.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Serve.DB = serveDB
	}

	log, err := config.NewLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := schema.LoadCatalog()
	if err != nil {
		return err
	}

	var store stub.Store
	if cfg.Serve.DB != "" {
		store, err = stub.OpenSQLite(ctx, cfg.Serve.DB)
		if err != nil {
			return err
		}
		log.Info("using sqlite store", zap.String("path", cfg.Serve.DB))
	} else {
		store = stub.NewMemoryStore()
		log.Info("using in-memory store")
	}
	defer store.Close()

	if serveSeed {
		if err := stub.Seed(ctx, store, log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           stub.NewServer(catalog, store, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info("stub api listening", zap.String("addr", cfg.Serve.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
