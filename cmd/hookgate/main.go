package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattjoyce/hookgate/internal/config"
	"github.com/mattjoyce/hookgate/internal/lock"
	"github.com/mattjoyce/hookgate/internal/log"
	"github.com/mattjoyce/hookgate/internal/metrics"
	"github.com/mattjoyce/hookgate/internal/queue"
	"github.com/mattjoyce/hookgate/internal/replay"
	"github.com/mattjoyce/hookgate/internal/signature"
	"github.com/mattjoyce/hookgate/internal/storage"
	"github.com/mattjoyce/hookgate/internal/webhook"
)

// exitRejected is returned by verify when the signature does not check out.
const exitRejected = 2

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(cmd string, args []string) int {
	switch cmd {
	case "serve":
		return runServe(args)
	case "sign":
		return runSign(args)
	case "verify":
		return runVerify(args)
	case "config":
		return runConfigNoun(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `hookgate - signed webhook ingress gateway

Usage:
  hookgate <command> [flags]

Commands:
  serve --config <path>             Run the gateway until SIGINT/SIGTERM
  sign --secret S --payload JSON    Print a signature header for a payload
  verify --secret S --header H --payload JSON
                                    Check a signature header (exit 2 when rejected)
  config check --config <path>      Validate configuration and integrity
  config lock --config <path>       Record the config BLAKE3 hash in .checksums
  version                           Show version information
  help                              Show this help message
`)
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: hookgate config <check|lock> --config <path>")
		return 1
	}
	switch args[0] {
	case "check":
		return runConfigCheck(args[1:])
	case "lock":
		return runConfigLock(args[1:])
	case "help", "--help", "-h":
		fmt.Println("Usage: hookgate config <check|lock> --config <path>")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", args[0])
		return 1
	}
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --config is required")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("hookgate starting", "version", version, "config", cfg.Path)

	pidLockPath := lock.PathFor(cfg.State.Path)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}

	store, err := replay.Open(ctx, replay.Options{
		Backend:    cfg.Webhooks.Replay.Backend,
		RedisURL:   cfg.Webhooks.Replay.RedisURL,
		MaxEntries: cfg.Webhooks.Replay.MaxEntries,
		MaxTTL:     2 * maxTolerance(webhookConfig.Sources),
	}, db)
	if err != nil {
		logger.Error("failed to open replay store", "backend", cfg.Webhooks.Replay.Backend, "error", err)
		return 1
	}
	if store != nil {
		defer store.Close()
	}
	logger.Info("replay guard configured", "backend", cfg.Webhooks.Replay.Backend)

	m := metrics.New()
	verifier := webhook.NewVerifier(signature.NewValidator(), store, m, log.WithComponent("verify"))
	server := webhook.New(webhookConfig, queue.New(db), verifier, m, log.WithComponent("webhook"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
		close(errCh)
	}()
	logger.Info("webhook server enabled", "listen", webhookConfig.Listen, "sources", len(webhookConfig.Sources))

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("shutdown error", "error", err)
			return 1
		}
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("component failed", "error", err)
			return 1
		}
	}

	logger.Info("hookgate stopped")
	return 0
}

func maxTolerance(sources []webhook.SourceEndpoint) time.Duration {
	longest := webhook.DefaultTolerance
	for _, s := range sources {
		if s.Tolerance > longest {
			longest = s.Tolerance
		}
	}
	return longest
}

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	secret := fs.String("secret", "", "Shared HMAC secret")
	payload := fs.String("payload", "", "JSON payload to sign")
	timestamp := fs.Int64("timestamp", 0, "Timestamp in Unix milliseconds (default: now)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	body, err := payloadArg(*payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ts := time.Now().UnixMilli()
	if flagSet(fs, "timestamp") {
		ts = *timestamp
	}

	sig, err := signature.CreateSignature(ts, body, *secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(signature.FormatHeader(ts, sig))
	return 0
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	secret := fs.String("secret", "", "Shared HMAC secret")
	header := fs.String("header", "", "Signature header value (t=...,v1=...)")
	payload := fs.String("payload", "", "JSON payload that was signed")
	tolerance := fs.Duration("tolerance", config.DefaultTolerance, "Accepted clock skew in either direction")
	jsonOut := fs.Bool("json", false, "Output verdict as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	body, err := payloadArg(*payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	res, err := signature.NewValidator().Validate(signature.Input{
		Header:   *header,
		Payload:  body,
		Secret:   *secret,
		ValidFor: *tolerance,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		out := map[string]any{"valid": res.Valid}
		if !res.Valid {
			out["reason"] = string(res.Reason)
		}
		data, _ := json.Marshal(out)
		fmt.Println(string(data))
	} else if res.Valid {
		fmt.Println("valid")
	} else {
		fmt.Printf("invalid: %s\n", res.Reason)
	}

	if !res.Valid {
		return exitRejected
	}
	return 0
}

func payloadArg(s string) (json.RawMessage, error) {
	if s == "" {
		return nil, errors.New("--payload is required")
	}
	if s == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		s = string(data)
	}
	if !json.Valid([]byte(s)) {
		return nil, errors.New("payload is not valid JSON")
	}
	return json.RawMessage(s), nil
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --config is required")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	integrity, err := config.VerifyIntegrity(cfg.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Integrity check error: %v\n", err)
		return 1
	}
	for _, w := range integrity.Warnings {
		fmt.Printf("WARN  %s\n", w)
	}

	if _, err := webhook.FromGlobalConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Webhook config error: %v\n", err)
		return 1
	}

	fmt.Printf("Configuration valid: %s\n", cfg.Path)
	fmt.Printf("  listen: %s\n", cfg.Webhooks.Listen)
	fmt.Printf("  replay backend: %s\n", cfg.Webhooks.Replay.Backend)
	for _, src := range cfg.Webhooks.Sources {
		fmt.Printf("  source %s: header=%s tolerance=%s\n", src.Name, src.SignatureHeader, src.Tolerance)
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --config is required")
		return 1
	}

	path := *configPath
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "config.yaml")
	}

	// The file must parse before its hash is blessed.
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		return 1
	}
	if _, err := config.Parse(data); err != nil {
		fmt.Fprintf(os.Stderr, "Refusing to lock invalid config: %v\n", err)
		return 1
	}

	hash, err := config.Lock(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("Locked %s (blake3 %s)\n", path, hash)
	return 0
}
