package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arxivdl/pkg/cli"
	"arxivdl/pkg/config"
	"arxivdl/pkg/display"
	"arxivdl/pkg/downloader"
	"arxivdl/pkg/ledger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	res, err := ArxivEngine(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(res.ExitCode)
}

func ArxivEngine(ctx context.Context, args []string) (*cli.ExecutionResult, error) {
	// 1. Parse cli.def
	cliEngine, err := cli.NewEngine(cli.DefaultDSL)
	if err != nil {
		return nil, fmt.Errorf("INTERNAL ERROR: parsing CLI definition: %w", err)
	}

	// 2. Parse command line arguments
	pr := cliEngine.Parse(args)
	verbose := pr.Invocation.Bool("verbose")

	// 3. Logging goes to stderr, below the console output
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// 4. Initialize console
	disp := display.NewConsole()
	defer disp.Close()
	disp.SetVerbose(verbose)

	// 5. Generate any errors etc for the command line parsing
	if pr.Error != nil {
		return nil, pr.Error
	}
	if pr.Help {
		cliEngine.PrintHelp(pr.HelpArgs...)
		return &cli.ExecutionResult{ExitCode: 0}, nil
	}

	// 6. Load config: defaults, then config.star
	sysCfg := config.Init()
	path, explicit := config.ScriptPath(sysCfg, pr.Invocation.String("config"))
	if err := config.LoadScript(sysCfg.Checkout(), path, explicit); err != nil {
		return nil, err
	}
	sysCfg.Freeze()
	slog.Debug("Config loaded", "script", path, "host", sysCfg.GetHost(), "state", sysCfg.GetStateDir())

	// 7. Execute command
	managers := &cli.Managers{
		Cfg:    sysCfg,
		Disp:   disp,
		Client: downloader.NewClient(sysCfg.GetUserAgent()),
		Ledger: ledger.Open(sysCfg.GetLedgerPath()),
	}
	cli.RegisterHandlers(cliEngine, managers)

	res, err := cliEngine.Execute(ctx, pr.Invocation)
	if err != nil {
		return nil, err
	}
	if res.Output != nil {
		disp.Render(res.Output)
	}
	return res, nil
}
