package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/torosent/poi/internal/config"
	"github.com/torosent/poi/internal/httpclient"
	"github.com/torosent/poi/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

// env is what every profile-backed subcommand needs: resolved settings, the
// loaded profiles, an HTTP client and a logger scoped to this run.
type env struct {
	runID    string
	settings config.Settings
	registry *config.Registry
	client   *http.Client
	tracing  *tracing.Provider
	logger   *stderrLogger
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	settings, err := config.LoadSettings(cmd.Flags())
	if err != nil {
		return nil, err
	}

	registry, err := config.Load(settings.ConfigFile)
	if err != nil {
		return nil, err
	}

	runID := ulid.Make().String()
	provider, err := tracing.Init(cmd.Context(), settings.Tracing, tracing.Run{
		ID:      runID,
		Command: cmd.Name(),
		Version: cmd.Root().Version,
	})
	if err != nil {
		return nil, err
	}

	client := httpclient.NewClient(settings.Timeout)
	if provider.Exporting() || provider.ShouldPropagate() {
		client.Transport = provider.WrapTransport(client.Transport)
	}

	stderr := cmd.ErrOrStderr()
	return &env{
		runID:    runID,
		settings: settings,
		registry: registry,
		client:   client,
		tracing:  provider,
		logger:   newStderrLogger(stderr, runID, colorEnabled(settings.Color, stderr)),
	}, nil
}

func (e *env) profile(name string) (*config.Profile, error) {
	p, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return p.WithLogger(e.logger), nil
}

// close flushes pending spans and releases idle connections.
func (e *env) close() {
	e.client.CloseIdleConnections()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.tracing.Shutdown(ctx); err != nil {
		e.logger.Warn("tracing shutdown: %v", err)
	}
}

// colorEnabled applies a --color mode to w. Auto colors terminals only and
// honors NO_COLOR.
func colorEnabled(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
