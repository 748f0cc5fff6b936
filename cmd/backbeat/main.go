// Command backbeat synchronizes per-artist metrics from external music
// platforms into the central artist store, and resolves artist names into
// platform identifiers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beatm8/backbeat/internal/config"
	"github.com/beatm8/backbeat/internal/logging"
	"github.com/beatm8/backbeat/internal/platform"
	"github.com/beatm8/backbeat/internal/review"
	"github.com/beatm8/backbeat/internal/scheduler"
	"github.com/beatm8/backbeat/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "refresh":
		err = runRefresh(os.Args[2:])
	case "resolve":
		err = runResolve(os.Args[2:])
	case "daemon":
		err = runDaemon(os.Args[2:])
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "version":
		fmt.Println("backbeat " + version.String())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: backbeat <command> [flags]

Commands:
  refresh   refresh stale platform metrics (one run)
  resolve   resolve missing platform identifiers (one run)
  daemon    run periodic refresh/resolve cycles until interrupted
  migrate   apply database migrations and exit
  version   print the version

Flags:
  -config   path to config file (default $BB_CONFIG_PATH or /data/config.yaml)
  -platform limit refresh/resolve to one platform (spotify, mixcloud)
`)
}

// runRefresh executes one refresh pass per selected platform.
func runRefresh(args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	platformFlag := fs.String("platform", "", "platform to refresh (default: all enabled)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	clients, err := app.selectClients(*platformFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, client := range clients {
		summary, err := app.runner.RunRefresh(ctx, client)
		if err != nil {
			return fmt.Errorf("refreshing %s: %w", client.Platform(), err)
		}
		fmt.Println(review.RenderRefreshSummary(summary))
	}
	return nil
}

// runResolve executes one identity-resolution pass per selected platform.
func runResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	platformFlag := fs.String("platform", "", "platform to resolve (default: all enabled)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	clients, err := app.selectClients(*platformFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink := review.NewSink(app.cfg.Data.Dir, app.logger)
	for _, client := range clients {
		summary, reviewSet, err := app.runner.RunResolve(ctx, client)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", client.Platform(), err)
		}
		fmt.Println(review.RenderResolveSummary(summary))

		if !reviewSet.Empty() {
			fmt.Println(review.RenderReviewSet(reviewSet))
		}
		unresolvedPath, ambiguousPath, err := sink.Write(reviewSet)
		if err != nil {
			return err
		}
		fmt.Printf("review files: %s, %s\n", unresolvedPath, ambiguousPath)
	}
	return nil
}

// runDaemon runs periodic cycles until interrupted, reloading logging
// configuration when the config file changes.
func runDaemon(args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go config.Watch(ctx, *configPath, app.logger, func(cfg *config.Config) {
		app.logManager.Reconfigure(logging.Config{
			Level:    cfg.Logging.Level,
			Format:   cfg.Logging.Format,
			FilePath: cfg.Logging.FilePath,
		})
	})

	sink := review.NewSink(app.cfg.Data.Dir, app.logger)
	sched := scheduler.New(app.runner, app.clients, sink, app.cfg.Sync.ResolveOnCycle, app.logger)
	sched.Start(ctx, app.cfg.Sync.Interval())
	return nil
}

// runMigrate applies pending migrations and exits.
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	app.logger.Info("migrations applied", "db", app.cfg.Database.Path)
	return nil
}

func defaultConfigPath() string {
	if p := os.Getenv("BB_CONFIG_PATH"); p != "" {
		return p
	}
	return "/data/config.yaml"
}

// selectClients returns the clients to operate on: all enabled platforms,
// or the one named by platformFlag.
func (a *app) selectClients(platformFlag string) ([]platform.Client, error) {
	if platformFlag == "" {
		if len(a.clients) == 0 {
			return nil, fmt.Errorf("no platforms enabled")
		}
		return a.clients, nil
	}

	tag := platform.Tag(platformFlag)
	if !tag.Valid() {
		return nil, fmt.Errorf("unknown platform: %s", platformFlag)
	}
	for _, c := range a.clients {
		if c.Platform() == tag {
			return []platform.Client{c}, nil
		}
	}
	return nil, fmt.Errorf("platform %s is not enabled", platformFlag)
}
