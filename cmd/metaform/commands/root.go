package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/metaform/internal/api"
	"github.com/matthewbaird/metaform/internal/config"
	"github.com/matthewbaird/metaform/internal/schema"
	"github.com/matthewbaird/metaform/internal/session"
)

var (
	configFile string
	apiURL     string
	apiToken   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "metaform",
	Short: "Metadata-driven entity console tooling",
	Long: `metaform drives the membership console's metadata engine from the
command line: serve the local stub API, inspect entity schemas, derive
table columns, and export entity data as CSV.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./metaform.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bearer token for the backend")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig resolves configuration with flag overrides applied on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.URL = apiURL
	}
	if apiToken != "" {
		cfg.API.Token = apiToken
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// stack is the wired client-side dependency set shared by the
// inspection commands.
type stack struct {
	cfg      *config.Config
	log      *zap.Logger
	client   *api.Client
	catalog  *schema.Catalog
	provider *schema.Provider
}

func buildStack() (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	token := cfg.API.Token
	sess := session.New(func() string { return token }, nil, log)
	client := api.NewClient(cfg.API.URL, sess, nil)

	catalog, err := schema.LoadCatalog()
	if err != nil {
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		log:      log,
		client:   client,
		catalog:  catalog,
		provider: schema.NewProvider(client, catalog, log),
	}, nil
}
