package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"steam-release-calendar/internal/app"
	"steam-release-calendar/internal/calendar"
	"steam-release-calendar/internal/config"
	"steam-release-calendar/internal/logging"
	"steam-release-calendar/internal/metrics"
	"steam-release-calendar/internal/steam"
	"steam-release-calendar/internal/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
	}
}

type flags struct {
	file         string
	wishlist     string
	outputDir    string
	saveWishlist string
	wishlistOnly bool
	checkKey     bool
	configPath   string
	logLevel     string
	logFormat    string
	metricsFile  string
	quiet        bool
}

func parseFlags(args []string) (*flags, *pflag.FlagSet, error) {
	f := &flags{}
	fs := pflag.NewFlagSet("steam-release-calendar", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Create calendar events for upcoming game releases.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: steam-release-calendar [\"game one, game two\"] [flags]")
		fmt.Fprintln(os.Stderr)
		fs.PrintDefaults()
	}
	fs.StringVarP(&f.file, "file", "f", "", "file containing game names, one per line")
	fs.StringVarP(&f.wishlist, "wishlist", "w", "", "steam id, vanity name or profile URL whose wishlist to use")
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory to save calendar files (default calendar_events)")
	fs.StringVar(&f.saveWishlist, "save-wishlist", "", "write the wishlist's game names to this file")
	fs.BoolVar(&f.wishlistOnly, "wishlist-only", false, "fetch (and save) the wishlist without creating events")
	fs.BoolVar(&f.checkKey, "check-key", false, "check that the Steam Web API key is accepted and exit")
	fs.StringVar(&f.configPath, "config", "", "config file path")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "log format (text, json)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "no progress bar")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

func run(ctx context.Context, args []string) error {
	f, fs, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if fs.Changed("output-dir") {
		cfg.OutputDir = f.outputDir
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.Setup(cfg.Logging)

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "err", err)
		}
	}()
	defer func() {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warn("could not write metrics", "err", err)
		}
	}()

	client := steam.NewClient(steam.Options{
		APIKey:            cfg.Steam.APIKey,
		Country:           cfg.Steam.Country,
		Language:          cfg.Steam.Language,
		UserAgent:         cfg.Steam.UserAgent,
		Timeout:           cfg.HTTP.Timeout,
		RetryMax:          cfg.HTTP.RetryMax,
		RetryWaitMin:      cfg.HTTP.RetryWaitMin,
		RetryWaitMax:      cfg.HTTP.RetryWaitMax,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Logger:            log,
	})

	if f.checkKey {
		return checkKey(ctx, client)
	}

	req, err := buildRequest(f, fs)
	if err != nil {
		if errors.Is(err, app.ErrNoGames) {
			fs.Usage()
		}
		return err
	}

	var enricher steam.DateEnricher
	if cfg.IGDB.Enabled() {
		e, err := steam.NewIGDBEnricher(ctx, cfg.IGDB.ClientID, cfg.IGDB.ClientSecret, nil)
		if err != nil {
			log.Warn("IGDB date lookup disabled", "err", err)
		} else {
			enricher = e
		}
	}
	if req.Wishlist != "" && !cfg.HasAPIKey() {
		log.Info("no Steam Web API key configured, keyed wishlist strategies will be skipped")
	}

	svc := steam.NewService(client, nil, enricher)
	runner := app.NewRunner(svc, svc, calendar.NewWriter(cfg.GetOutputDir(), log), app.Options{
		Quiet:  f.quiet,
		Logger: log,
	})

	sum, err := runner.Run(ctx, req)
	printSummary(sum, req, cfg.GetOutputDir())
	return err
}

func buildRequest(f *flags, fs *pflag.FlagSet) (app.Request, error) {
	if f.wishlist != "" {
		if fs.NArg() > 0 || f.file != "" {
			return app.Request{}, app.ErrConflictingSrc
		}
		return app.Request{
			Wishlist:     f.wishlist,
			SaveWishlist: f.saveWishlist,
			WishlistOnly: f.wishlistOnly,
		}, nil
	}
	if f.saveWishlist != "" || f.wishlistOnly {
		return app.Request{}, errors.New("--save-wishlist and --wishlist-only need --wishlist")
	}

	names, err := app.CollectNames(fs.Arg(0), f.file)
	if err != nil {
		return app.Request{}, err
	}
	if len(names) == 0 {
		return app.Request{}, app.ErrNoGames
	}
	return app.Request{Names: names}, nil
}

func checkKey(ctx context.Context, client *steam.Client) error {
	err := client.CheckAPIKey(ctx)
	switch {
	case err == nil:
		fmt.Println("API key is valid.")
		return nil
	case errors.Is(err, steam.ErrAPIKeyRequired):
		return errors.New("no API key configured; set STEAM_API_KEY or steam.api_key")
	case errors.Is(err, steam.ErrInvalidAPIKey):
		return errors.New("API key was rejected by Steam")
	default:
		return fmt.Errorf("could not check API key: %w", err)
	}
}

func printSummary(sum *app.Summary, req app.Request, outputDir string) {
	if sum == nil {
		return
	}
	if req.Wishlist != "" {
		if len(sum.WishlistFailures) > 0 {
			fmt.Println("Wishlist strategies that failed:")
		}
		for _, fail := range sum.WishlistFailures {
			fmt.Printf("  %-12s %v\n", fail.Strategy+":", fail.Err)
		}
		if sum.WishlistStrategy != "" {
			fmt.Printf("Wishlist fetched with the %s strategy.\n", sum.WishlistStrategy)
		}
		if sum.WishlistFallback {
			fmt.Println("Warning: the wishlist could not be read; owned games were used instead.")
		}
		if sum.WishlistSaved != "" {
			fmt.Printf("Wishlist saved to %s\n", sum.WishlistSaved)
		}
		if req.WishlistOnly {
			return
		}
	}
	if sum.Processed == 0 {
		return
	}

	if sum.IndexFile != "" {
		fmt.Printf("\nCreated HTML page with calendar events: %s\n", sum.IndexFile)
	}
	if sum.CombinedFile != "" {
		fmt.Printf("Created combined calendar file: %s\n", sum.CombinedFile)
	}
	for _, name := range sum.Skipped {
		fmt.Printf("Could not find release information for '%s'.\n", name)
	}
	fmt.Printf("\nSummary: Created %d calendar event files out of %d games.\n", sum.EventsWritten, sum.Processed)
	fmt.Printf("Calendar files are saved in the '%s' directory.\n", outputDir)
}
