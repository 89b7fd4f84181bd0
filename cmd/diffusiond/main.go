package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"diffusiond/internal/common/fsutil"
	"diffusiond/internal/config"
)

// configCandidates are searched in order when --config is not given.
var configCandidates = []string{
	"diffusiond.yaml",
	"diffusiond.yml",
	"diffusiond.toml",
	"diffusiond.json",
	"~/.config/diffusiond/config.yaml",
	"~/.config/diffusiond/config.toml",
}

// flagValues holds CLI overrides; empty strings leave the loaded config untouched.
type flagValues struct {
	configPath  string
	addr        string
	runtimeURL  string
	device      string
	logLevel    string
	corsOrigins string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	fv := &flagValues{}
	root := &cobra.Command{
		Use:           "diffusiond",
		Short:         "Text-to-image web front-end for a diffusion runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, fv)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&fv.configPath, "config", "", "Path to config file (.yaml|.yml|.json|.toml)")
	pf.StringVar(&fv.addr, "addr", "", "HTTP listen address, e.g. :8080")
	pf.StringVar(&fv.runtimeURL, "runtime-url", "", "Base URL of the diffusion runtime")
	pf.StringVar(&fv.device, "device", "", "Placement: auto|cuda|cpu")
	pf.StringVar(&fv.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.StringVar(&fv.corsOrigins, "cors-origins", "", "Comma-separated CORS origins; enables CORS when set")

	serveCmd := &cobra.Command{Use: "serve", Short: "Run the HTTP server (default)", Example: "  diffusiond serve --runtime-url http://127.0.0.1:7860", RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, fv)
	}}
	diagnoseCmd := &cobra.Command{Use: "diagnose", Short: "Print GPU diagnostics as JSON", RunE: func(cmd *cobra.Command, args []string) error {
		return runDiagnose(cmd, fv)
	}}
	modelsCmd := &cobra.Command{Use: "models", Short: "List selectable models", RunE: func(cmd *cobra.Command, args []string) error {
		return runModels(cmd)
	}}
	root.AddCommand(serveCmd, diagnoseCmd, modelsCmd)
	return root
}

// loadConfig merges, in increasing priority: defaults, config file, .env and
// DIFFUSIOND_* environment, CLI flags.
func loadConfig(fv *flagValues) (config.Config, error) {
	// Best-effort; a missing .env is normal.
	_ = godotenv.Load(".env")

	var cfg config.Config
	path := fv.configPath
	if path == "" {
		path = fsutil.FirstExisting(configCandidates...)
	} else if p, err := fsutil.ExpandHome(path); err == nil {
		path = p
	}
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if fv.addr != "" {
		cfg.Addr = fv.addr
	}
	if fv.runtimeURL != "" {
		cfg.RuntimeURL = fv.runtimeURL
	}
	if fv.device != "" {
		cfg.Device = fv.device
	}
	if fv.logLevel != "" {
		cfg.LogLevel = fv.logLevel
	}
	if origins := splitCSV(fv.corsOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = origins
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupLogging configures the global zerolog logger and returns it.
func setupLogging(cfg config.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	var l zerolog.Logger
	if strings.EqualFold(cfg.LogFormat, "json") {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}
	log.Logger = l
	return l
}

// splitCSV splits a comma-separated list, trimming items and dropping empties.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
