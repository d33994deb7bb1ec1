package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"pmojobs/internal/app"
	"pmojobs/internal/jobs"
	"pmojobs/internal/ops"
)

func main() {
	var (
		cfgPath   string
		syncOnly  bool
		syncForce bool
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml")
	flag.BoolVar(&syncOnly, "sync-overrides", false, "seed the override store from the static registry and exit")
	flag.BoolVar(&syncForce, "force", false, "with -sync-overrides: also rewrite existing triggers from static defaults")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Business capabilities are registered here by the full backend build;
	// the bare core schedules only the tasks that have a bound runner.
	a, err := app.New(cfgPath, jobs.Deps{})
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if syncOnly {
		res, err := a.Ops().SyncOverrides(ctx, ops.Actor{Name: "cli", Admin: true}, syncForce)
		if err != nil {
			fmt.Println("sync failed:", err)
			os.Exit(1)
		}
		fmt.Printf("overrides synced: created=%d updated=%d skipped=%d\n",
			res.Created, res.Updated, res.Skipped)
		_ = a.Stop(context.Background())
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	_ = a.Stop(context.Background())
}
