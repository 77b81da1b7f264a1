package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/civicline/civicline-api/config"
	"github.com/civicline/civicline-api/internal/adapters/sweeper"
	"github.com/civicline/civicline-api/internal/domain/ratelimit"
	"github.com/civicline/civicline-api/internal/ports"
)

type purgeOptions struct {
	OlderThan time.Duration
}

func parsePurgeFlags(args []string, stderr io.Writer) (purgeOptions, error) {
	fs := flag.NewFlagSet("purge-rate-limits", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts purgeOptions
	fs.DurationVar(&opts.OlderThan, "older-than", 0,
		"Override the configured retention; raised to the longest rate limit window if lower")

	if err := fs.Parse(args); err != nil {
		return purgeOptions{}, err
	}
	if opts.OlderThan < 0 {
		return purgeOptions{}, errors.New("--older-than must not be negative")
	}
	return opts, nil
}

func runPurgeRateLimits(cmdCtx *commandContext, args []string) error {
	opts, err := parsePurgeFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}

	infra, err := openRateLimitStore(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure failed", "error", closeErr)
		}
	}()

	return purgeRateLimits(cmdCtx.Ctx, purgeRequest{
		Store:   infra.Store,
		Config:  cmdCtx.Config.RateLimit,
		Options: opts,
		Logger:  cmdCtx.Logger,
		Out:     cmdCtx.Stdout,
	})
}

type purgeRequest struct {
	Store   ports.RateLimitStore
	Config  config.RateLimitConfig
	Options purgeOptions
	Logger  *slog.Logger
	Out     io.Writer
}

func purgeRateLimits(ctx context.Context, req purgeRequest) error {
	cfg := req.Config
	if req.Options.OlderThan > 0 {
		cfg.SweepRetention = req.Options.OlderThan
	}
	runner, err := sweeper.NewRunner(sweeper.RunnerOptions{
		Store:  req.Store,
		Config: cfg,
		Logger: req.Logger,
	})
	if err != nil {
		return err
	}
	removed, err := runner.SweepOnce(ctx)
	if err != nil {
		return err
	}
	return writef(req.Out, "removed %d rate limit entries\n", removed)
}

type clearOptions struct {
	Endpoint string
	Subject  string
	Yes      bool
}

func parseClearFlags(args []string, stderr io.Writer) (clearOptions, error) {
	fs := flag.NewFlagSet("clear-rate-limit", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts clearOptions
	fs.StringVar(&opts.Endpoint, "endpoint", ratelimit.EndpointLogin, "Rate limited endpoint: login or register")
	fs.StringVar(&opts.Subject, "subject", "", "Subject the entries are keyed by, usually the client address")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearOptions{}, err
	}
	opts.Endpoint = strings.ToLower(strings.TrimSpace(opts.Endpoint))
	if opts.Endpoint != ratelimit.EndpointLogin && opts.Endpoint != ratelimit.EndpointRegister {
		return clearOptions{}, fmt.Errorf("--endpoint must be %q or %q", ratelimit.EndpointLogin, ratelimit.EndpointRegister)
	}
	opts.Subject = strings.TrimSpace(opts.Subject)
	if opts.Subject == "" {
		return clearOptions{}, errors.New("--subject is required")
	}
	return opts, nil
}

func runClearRateLimit(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}
	key := ratelimit.Key(opts.Endpoint, opts.Subject)
	prompt := fmt.Sprintf("Clear %s rate limit entries for %s?", opts.Endpoint, opts.Subject)
	if err = confirm(cmdCtx.Stdin, cmdCtx.Stdout, prompt, opts.Yes); err != nil {
		return err
	}

	infra, err := openRateLimitStore(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure failed", "error", closeErr)
		}
	}()

	return clearRateLimit(cmdCtx.Ctx, infra.Store, key, cmdCtx.Stdout)
}

func clearRateLimit(ctx context.Context, store ports.RateLimitStore, key string, out io.Writer) error {
	if err := store.DeleteKey(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return writef(out, "cleared %s\n", key)
}
