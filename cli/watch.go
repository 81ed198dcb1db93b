package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/gains/watch"
)

type WatchCmd struct {
	File string `help:"CSV ledger file." arg:"" type:"existingfile"`
	ReportFlags
	Debounce time.Duration `help:"How long to wait for further changes before recomputing." default:"100ms"`
}

func (cmd *WatchCmd) Run(ctx *kong.Context, globals *Globals) error {
	env, err := globals.setup(ctx, "watch", cmd.File)
	if err != nil {
		return err
	}
	defer env.reportTelemetry()

	runCtx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	env.ctx = runCtx

	return cmd.watch(runCtx, ctx, env)
}

// watch computes once and then after every change until ctx is done.
func (cmd *WatchCmd) watch(ctx context.Context, kctx *kong.Context, env *runEnv) error {
	var mu sync.Mutex
	run := func() {
		mu.Lock()
		defer mu.Unlock()

		_, result := compute(env, kctx.Stdout, kctx.Stderr, cmd.File, cmd.ReportFlags)
		var cmdErr *CommandError
		if result.Err != nil && !errors.As(result.Err, &cmdErr) {
			printError(kctx.Stderr, result.Err.Error())
		}
	}

	run()
	printInfof(kctx.Stderr, "Watching %s for changes (Ctrl+C to stop)", pathStyle.Render(cmd.File))

	w := watch.New(cmd.File, watch.WithDebounce(cmd.Debounce), watch.WithLogger(env.logger))
	return w.Watch(ctx, func() {
		_, _ = fmt.Fprintln(kctx.Stdout)
		printInfof(kctx.Stderr, "%s changed, recomputing", pathStyle.Render(cmd.File))
		run()
	})
}
