package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wesleyorama2/surge/internal/loadgen"
	"github.com/wesleyorama2/surge/internal/loadgen/config"
	"github.com/wesleyorama2/surge/internal/loadgen/engine"
	"github.com/wesleyorama2/surge/internal/loadgen/metrics"
	"github.com/wesleyorama2/surge/internal/loadgen/output"
)

// envPrefix prefixes the environment variable of every scalar flag: --ramp-up is SURGE_RAMP_UP.
const envPrefix = "SURGE"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load test against a single endpoint",
		Long: `Run a load test against a single HTTP endpoint.

Each virtual user sends loops × rps × ramp-up requests, waiting 1000/rps
milliseconds between them. Users start ramp-up/users seconds apart.
Only a 200 response counts as a success.

Examples:
  surge run --url https://api.example.com/health --users 10 --ramp-up 5 --loops 2 --rps 4

  surge run --url https://api.example.com/orders -X POST \
    -H "Content-Type: application/json" --body-file order.json \
    --auth-type bearer --auth-token "$TOKEN" \
    --users 5 --ramp-up 10 --loops 1 --rps 2 --format yaml,xlsx

Every scalar flag can also be set through the environment, e.g. SURGE_USERS=10.
Press Ctrl+C once to stop after in-flight requests, twice to exit immediately.`,
		Args: cobra.NoArgs,
		RunE: runLoadTest,
	}

	flags := cmd.Flags()
	flags.String("url", "", "Target URL (required)")
	flags.StringP("method", "X", config.MethodGet, "HTTP method: GET, POST, PUT or PATCH")
	flags.StringArrayP("header", "H", nil, "Request header in 'Key: Value' format (repeatable)")
	flags.String("headers-file", "", "File with one 'Key: Value' header per line")
	flags.StringP("body", "d", "", "Request body for POST, PUT and PATCH")
	flags.String("body-file", "", "File whose contents are sent as the request body")
	flags.String("auth-type", "", "Authorization scheme: bearer, jwt or basic")
	flags.String("auth-token", "", "Token used with --auth-type")
	flags.String("authorization", "", "Raw Authorization header value")
	flags.StringArrayP("query", "Q", nil, "Query parameter in 'key=value' format (repeatable)")

	flags.IntP("users", "u", 1, "Number of virtual users")
	flags.IntP("ramp-up", "r", 1, "Ramp-up time in seconds")
	flags.IntP("loops", "l", 1, "Loop count")
	flags.Int("rps", 1, "Requests per second per user")
	flags.DurationP("timeout", "t", 0, "Per-request timeout (0 for none)")
	flags.String("pacing", string(config.PacingDelay), "Pacing mode: delay (sleep after each request) or rate (fixed start spacing)")

	flags.StringP("output", "o", "reports", "Directory for the report files")
	flags.StringSlice("format", nil, "Extra report formats: yaml, xlsx, html")

	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.Duration("status-interval", 5*time.Second, "Interval between status lines (0 disables them)")
	flags.BoolP("quiet", "q", false, "Only print the final summary line")
	flags.Bool("no-color", false, "Disable colored output")
	flags.BoolP("verbose", "v", false, "Enable diagnostic logging")

	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	cmd.MarkFlagsMutuallyExclusive("authorization", "auth-type")

	return cmd
}

// newViper binds the command's flags to SURGE_ environment variables.
func newViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// buildConfig assembles the test configuration from flags and environment.
//
// Repeatable flags (--header, --query) are read from the flag set only;
// their values may contain spaces and commas.
func buildConfig(v *viper.Viper, flags *pflag.FlagSet) (*config.TestConfiguration, error) {
	cfg := &config.TestConfiguration{
		URL:               strings.TrimSpace(v.GetString("url")),
		Method:            strings.ToUpper(strings.TrimSpace(v.GetString("method"))),
		Body:              v.GetString("body"),
		Users:             v.GetInt("users"),
		RampUp:            v.GetInt("ramp-up"),
		LoopCount:         v.GetInt("loops"),
		RequestsPerSecond: v.GetInt("rps"),
		Timeout:           v.GetDuration("timeout"),
		Pacing:            config.PacingMode(strings.ToLower(v.GetString("pacing"))),
		OutputDir:         v.GetString("output"),
		Formats:           splitList(v.GetStringSlice("format")),
	}

	if path := v.GetString("headers-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read headers file: %w", err)
		}
		cfg.Headers = append(cfg.Headers, config.ParseHeaders(string(data))...)
	}

	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		parsed := config.ParseHeaders(h)
		if len(parsed) == 0 {
			return nil, fmt.Errorf("invalid header format: %q, expected 'Key: Value'", h)
		}
		cfg.Headers = append(cfg.Headers, parsed...)
	}

	queries, err := flags.GetStringArray("query")
	if err != nil {
		return nil, err
	}
	for _, q := range queries {
		param, err := config.ParseParam(q)
		if err != nil {
			return nil, err
		}
		cfg.QueryParams = append(cfg.QueryParams, param)
	}

	if path := v.GetString("body-file"); path != "" {
		body, err := readBody(path)
		if err != nil {
			return nil, err
		}
		cfg.Body = body
	}

	auth, err := authorization(v)
	if err != nil {
		return nil, err
	}
	cfg.Authorization = auth

	return cfg, nil
}

// readBody returns the file's contents as the request body.
func readBody(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}

func authorization(v *viper.Viper) (string, error) {
	if raw := strings.TrimSpace(v.GetString("authorization")); raw != "" {
		return raw, nil
	}

	scheme := v.GetString("auth-type")
	token := v.GetString("auth-token")
	if scheme == "" && token == "" {
		return "", nil
	}
	if token == "" {
		return "", fmt.Errorf("--auth-type %s requires --auth-token", scheme)
	}

	value := config.AuthorizationValue(scheme, token)
	if value == "" {
		return "", fmt.Errorf("unsupported auth type: %q (use bearer, jwt or basic)", scheme)
	}
	return value, nil
}

// splitList flattens comma separated entries; env values arrive as one string.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// startMetricsServer serves the registry on addr until the returned function is called.
func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
}

func runLoadTest(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}

	cfg, err := buildConfig(v, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(v.GetBool("verbose"))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	quiet := v.GetBool("quiet")
	console := output.NewConsole(output.ConsoleConfig{
		Writer:  cmd.OutOrStdout(),
		Quiet:   quiet,
		NoColor: v.GetBool("no-color"),
	})

	opts := []engine.Option{engine.WithLogger(logger)}
	if addr := v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		observer, err := metrics.NewPrometheusObserver(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		opts = append(opts, engine.WithObserver(observer))

		shutdown := startMetricsServer(addr, reg, logger)
		defer shutdown()
	}

	eng := engine.New(cfg, opts...)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			console.Progress("Stopping, waiting for in-flight requests... (press Ctrl+C again to exit)")
			eng.Stop()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "Interrupted")
			os.Exit(130)
		case <-ctx.Done():
		}
	}()

	console.PrintHeader(cfg)

	started := time.Now()
	if interval := v.GetDuration("status-interval"); interval > 0 && !quiet {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					console.PrintStatus(output.StatsFrom(eng, started, cfg.Users))
				}
			}
		}()
	}

	state, err := eng.Run(ctx, loadgen.Callback{
		OnProgress: console.Progress,
		OnComplete: func(results []metrics.Result) {
			console.PrintCompletion(metrics.Stats(results))
		},
	})
	if err != nil {
		return err
	}
	cancel()

	console.PrintSummary(state)
	return nil
}
