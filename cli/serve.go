package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/gains/web"
)

type ServeCmd struct {
	File   string   `help:"CSV ledger file to serve." arg:"" type:"existingfile"`
	Addr   string   `help:"Address to listen on. Defaults to the configured server address." placeholder:"HOST:PORT"`
	Watch  bool     `help:"Recompute when the ledger file changes." short:"w"`
	Origin []string `help:"Origins allowed to call the API." default:"*"`
	Sort   bool     `help:"Sort each asset's records by timestamp and line instead of rejecting unsorted input."`
}

func (cmd *ServeCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "serve", cmd.File)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	ledgerFile, err := filepath.Abs(cmd.File)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	addr := cmd.Addr
	if addr == "" {
		addr = env.config.Server.Addr()
	}

	opts := []web.Option{
		web.WithAddr(addr),
		web.WithVersion(version()),
		web.WithLoader(env.loader(cmd.Sort)),
		web.WithOrigins(cmd.Origin...),
	}
	if cmd.Watch {
		opts = append(opts, web.WithWatch())
	}
	server := web.New(ledgerFile, env.ledger, opts...)

	printInfof(ctx.Stdout, "Starting server on http://%s", addr)
	printInfof(ctx.Stdout, "Serving ledger: %s", pathStyle.Render(ledgerFile))
	if cmd.Watch {
		printInfof(ctx.Stdout, "Watching for changes")
	}

	runCtx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(runCtx)
}

// version returns the build version with the commit, if known.
func version() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if CommitSHA == "" {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, CommitSHA)
}
