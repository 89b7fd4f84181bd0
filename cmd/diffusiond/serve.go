package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"diffusiond/internal/config"
	"diffusiond/internal/device"
	"diffusiond/internal/httpapi"
	"diffusiond/internal/manager"
	"diffusiond/internal/registry"
	"diffusiond/pkg/types"
)

func runServe(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := loadConfig(fv)
	if err != nil {
		return err
	}
	lg := setupLogging(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr := buildManager(cfg, lg)

	httpapi.SetLogger(lg)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeoutSeconds(int64(cfg.GenerateTimeoutSeconds))
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetSwaggerEnabled(cfg.Swagger)
	httpapi.SetBaseContext(ctx)

	if cfg.Preload {
		mgr.Preload(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", cfg.Addr).Str("runtime", cfg.RuntimeURL).Str("device", string(mgr.Device())).Msg("diffusiond listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		lg.Warn().Err(err).Msg("pipeline release error")
	}
	return nil
}

func runDiagnose(cmd *cobra.Command, fv *flagValues) error {
	cfg, err := loadConfig(fv)
	if err != nil {
		return err
	}
	lg := setupLogging(cfg)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	mgr := buildManager(cfg, lg)
	out := struct {
		Sanity      manager.SanityReport `json:"sanity"`
		Diagnostics types.Diagnostics    `json:"diagnostics"`
	}{
		Sanity:      mgr.SanityCheck(ctx),
		Diagnostics: mgr.Diagnostics(ctx),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runModels(cmd *cobra.Command) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tID\tVARIANT\tSIZES\tDEFAULT")
	for _, m := range registry.Default().Models() {
		def := ""
		if m.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Label, m.ID, m.Variant, joinInts(m.Sizes), def)
	}
	return tw.Flush()
}

// buildManager wires the runtime adapter, device prober and event logging.
func buildManager(cfg config.Config, lg zerolog.Logger) *manager.Manager {
	var rt manager.Runtime
	if cfg.RuntimeURL != "" {
		rt = manager.NewDiffusersServerRuntime(manager.ServerOptions{
			BaseURL:        cfg.RuntimeURL,
			APIKey:         cfg.RuntimeAPIKey,
			HubToken:       cfg.HubToken,
			RequestTimeout: time.Duration(cfg.RuntimeTimeoutSeconds) * time.Second,
			ConnectTimeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
		})
	} else {
		lg.Warn().Msg("no runtime_url configured; generation will be unavailable")
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Runtime:   rt,
		Device:    deviceSetting(cfg.Device),
		Prober:    device.New(cfg.StatusCommand),
		Publisher: manager.NewLogPublisher(lg),
	})
}

// deviceSetting maps the configured device. auto is resolved by the manager
// against the runtime each time a model is loaded.
func deviceSetting(want string) manager.Device {
	switch strings.ToLower(strings.TrimSpace(want)) {
	case "cuda":
		return manager.DeviceCUDA
	case "cpu":
		return manager.DeviceCPU
	}
	return manager.DeviceAuto
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ",")
}
