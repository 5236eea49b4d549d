package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/loadkit/internal/catalog"
	"git.home.luguber.info/inful/loadkit/internal/config"
	"git.home.luguber.info/inful/loadkit/internal/daemon"
	"git.home.luguber.info/inful/loadkit/internal/fetch"
	"git.home.luguber.info/inful/loadkit/internal/observability"
	"git.home.luguber.info/inful/loadkit/internal/persist"
	"git.home.luguber.info/inful/loadkit/internal/statestore"
	"git.home.luguber.info/inful/loadkit/internal/transport"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"loadkit.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Sync struct {
		Force bool `short:"f" help:"Refetch even if the local store is fresh"`
	} `cmd:"" help:"Load the country list into the local store"`

	Get struct {
		Code string `arg:"" help:"ISO 3166-1 alpha-2 country code"`
		Flag bool   `help:"Also load the flag image"`
	} `cmd:"" help:"Load one country's details"`

	Daemon struct{} `cmd:"" help:"Run the background catalog-sync daemon"`
}

func main() {
	_ = godotenv.Load()
	ctx := kong.Parse(&CLI)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	switch ctx.Command() {
	case "sync":
		if err := runSync(cfg, CLI.Sync.Force); err != nil {
			slog.Error("Sync failed", "error", err)
			os.Exit(1)
		}
	case "get <code>":
		if err := runGet(cfg, CLI.Get.Code, CLI.Get.Flag); err != nil {
			slog.Error("Get failed", "error", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// buildInteractors wires the collaborators for one-shot commands.
func buildInteractors(cfg *config.Config) (*catalog.Interactors, *persist.Store, error) {
	store, err := persist.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	app := statestore.New(catalog.State{})
	floor, _ := time.ParseDuration(cfg.Loading.MinimumFloor)
	orch := fetch.New(floor, observability.NewMetrics())
	client := transport.New(cfg.API)
	return catalog.NewInteractors(orch, store, client, app), store, nil
}

func runSync(cfg *config.Config, force bool) error {
	interactors, store, err := buildInteractors(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	subject := catalog.NewListSubject()
	result := interactors.LoadCountries(context.Background(), subject, force)
	if err := result.Err(); err != nil {
		return err
	}

	seq, _ := result.Value().Get()
	fmt.Printf("catalog holds %d countries\n", seq.Len())
	return nil
}

func runGet(cfg *config.Config, code string, withFlag bool) error {
	interactors, store, err := buildInteractors(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	subject := catalog.NewDetailSubject()
	result := interactors.LoadDetail(context.Background(), subject, code)
	if err := result.Err(); err != nil {
		return err
	}

	detail, _ := result.Value().Get()
	fmt.Printf("%s (%s)\n", detail.Name, detail.Code)
	fmt.Printf("  capital:    %s\n", detail.Capital)
	fmt.Printf("  region:     %s / %s\n", detail.Region, detail.Subregion)
	fmt.Printf("  population: %d\n", detail.Population)

	if withFlag {
		country, ok, err := store.GetCountry(context.Background(), detail.Code)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("country %s not in local catalog, run sync first", detail.Code)
		}
		flagSubject := catalog.NewFlagSubject()
		flagResult := interactors.LoadFlag(context.Background(), flagSubject, country)
		if err := flagResult.Err(); err != nil {
			return err
		}
		flag, _ := flagResult.Value().Get()
		fmt.Printf("  flag:       %d bytes (%s)\n", len(flag.Data), flag.ContentType)
	}
	return nil
}

func runDaemon(cfg *config.Config) error {
	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
