// Package cmd provides the command-line interface for WebScout.
// It handles command parsing, configuration loading, and wiring the
// discovery components together.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hikarino/webscout/internal/config"
	"github.com/hikarino/webscout/internal/fetch"
	"github.com/hikarino/webscout/internal/logging"
	"github.com/hikarino/webscout/internal/session"
)

var (
	cfgFile   string
	version   string
	buildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "webscout",
	Short: "A web crawl discovery and policy toolkit",
	Long: `WebScout resolves what a crawler may fetch and what it should fetch:
robots.txt policies, sitemap discovery, URL classification against
path patterns, and persistent crawl session identities.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		showConfig, _ := cmd.Flags().GetBool("show-config")
		if showConfig {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return showCurrentConfig(cfg)
		}
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information for the CLI
func SetVersionInfo(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./webscout.yml)")
	rootCmd.PersistentFlags().StringP("user-agent", "u", "", "HTTP User-Agent header")
	rootCmd.PersistentFlags().DurationP("timeout", "t", 30*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy address for all fetches")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "Log to this file in addition to the console")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress console logging")

	rootCmd.Flags().Bool("show-config", false, "Display current configuration in YAML format and exit")

	bindFlags := []struct {
		viperKey string
		flagName string
	}{
		{"session.user_agent", "user-agent"},
		{"session.proxy", "proxy"},
		{"request_timeout", "timeout"},
	}
	for _, bind := range bindFlags {
		if err := viper.BindPFlag(bind.viperKey, rootCmd.PersistentFlags().Lookup(bind.flagName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", bind.flagName, err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("webscout")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig assembles the effective configuration from defaults, the
// config file, environment and flags, and installs the logger.
func loadConfig(cmd *cobra.Command) (*config.DiscoveryConfig, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Session.UserAgent == "" {
		cfg.Session.UserAgent = generateUserAgent()
	}

	level, _ := cmd.Flags().GetString("log-level")
	logFile, _ := cmd.Flags().GetString("log-file")
	quiet, _ := cmd.Flags().GetBool("quiet")
	opts := logging.DefaultOptions()
	opts.Level = level
	opts.FilePath = logFile
	opts.Quiet = quiet
	if err := logging.SetDefault(opts); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, nil
}

func generateUserAgent() string {
	if version != "" && version != "dev" {
		return fmt.Sprintf("WebScout/%s", version)
	}
	return "WebScout/dev"
}

// newSession builds the crawl session identity from configuration.
func newSession(cfg *config.DiscoveryConfig) *session.Context {
	s := session.New()
	if cfg.Session.UserAgent != "" {
		s.UserAgent = cfg.Session.UserAgent
	}
	if cfg.Session.AcceptLanguage != "" {
		s.AcceptLanguage = cfg.Session.AcceptLanguage
	}
	if cfg.Session.Platform != "" {
		s.Platform = cfg.Session.Platform
	}
	if cfg.Session.Proxy != "" {
		s.Proxy = cfg.Session.Proxy
	}
	if cfg.Session.Timezone != "" {
		s.Timezone = cfg.Session.Timezone
	}
	if cfg.Session.Locale != "" {
		s.Locale = cfg.Session.Locale
	}
	if cfg.Session.ViewportWidth > 0 && cfg.Session.ViewportHeight > 0 {
		s.Viewport = session.Size{Width: cfg.Session.ViewportWidth, Height: cfg.Session.ViewportHeight}
	}
	return s
}

// newClient builds the HTTP client all commands fetch through, bound to
// the session so cookies and identity headers flow both ways.
func newClient(cfg *config.DiscoveryConfig, s *session.Context) *fetch.HTTPClient {
	client := fetch.NewHTTPClient(cfg.Session.UserAgent, cfg.RequestTimeout)
	if s != nil {
		client.SetSession(s)
	}
	return client
}

// openStore opens the configured session persistence backend.
func openStore(ctx context.Context, cfg *config.DiscoveryConfig) (session.Store, error) {
	switch cfg.Session.Store {
	case "redis":
		return session.NewRedisStore(ctx, session.RedisConfig{
			Addr: cfg.Session.RedisAddr,
			DB:   cfg.Session.RedisDB,
		})
	default:
		return session.NewSQLiteStore(cfg.Session.DatabasePath)
	}
}

func showCurrentConfig(cfg *config.DiscoveryConfig) error {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Configuration validation failed: %v\n\n", err)
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration to YAML: %w", err)
	}

	fmt.Printf("# Current WebScout Configuration\n")
	fmt.Printf("# Generated at: %s\n", time.Now().Format(time.RFC3339))
	fmt.Printf("# Configuration file search paths: ./webscout.yml\n")
	fmt.Printf("# Environment variables prefix: WS_\n\n")
	fmt.Print(string(yamlData))
	return nil
}
