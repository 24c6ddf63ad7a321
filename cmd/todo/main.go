package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/idilsaglam/todoclient/internal/cli"
	"github.com/idilsaglam/todoclient/internal/config"
	"github.com/idilsaglam/todoclient/internal/logging"
	"github.com/idilsaglam/todoclient/internal/store/remote"
	"github.com/idilsaglam/todoclient/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("todo", flag.ExitOnError)
	groupPending := fs.Bool("group", false, "group ls output by pending/done")
	fs.Usage = func() {
		cli.PrintHelp(os.Stderr)
		fmt.Fprintln(os.Stderr, "\nAll flags:")
		fs.PrintDefaults()
	}

	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 2
	}
	ui.SetTheme(cfg.Theme)

	logger, closer, err := logging.New(logging.Options{
		Path:      cfg.LogFile,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Prefix:    "todo",
		Timestamp: true,
	})
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 1
	}
	defer closer.Close()
	logger.Debug("config loaded", "files", cfg.ConfigFiles)

	client, err := remote.New(cfg.BaseURL, remote.WithTimeout(cfg.Timeout), remote.WithLogger(logger))
	if err != nil {
		ui.Fail(os.Stderr, err.Error())
		return 2
	}
	logger.Debug("remote store", "base_url", client.BaseURL(), "timeout", cfg.Timeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	code := cli.Run(ctx, fs.Args(), cli.Options{
		Group:     *groupPending,
		Store:     client,
		Logger:    logger,
		BannerTTL: cfg.BannerTTL,
		Out:       os.Stdout,
		Err:       os.Stderr,
	})
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	return code
}
