package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/park285/game-finalizer/internal/appbuilder"
	appcfg "github.com/park285/game-finalizer/internal/config"
	"github.com/park285/game-finalizer/internal/obslog"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load %s: %v", *envFile, err)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := appbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("deps_init_failed", zap.Error(err))
		obslog.Sync()
		os.Exit(1)
	}
	defer deps.Close()

	if *once {
		n, err := deps.Scheduler.RunOnce(ctx)
		if err != nil {
			logger.Error("finalize_once_failed", zap.Int("finalized", n), zap.Error(err))
			_ = deps.Close()
			obslog.Sync()
			os.Exit(1)
		}
		st := deps.Scheduler.Status()
		summary, rerr := deps.Catalog.Render("sweep.summary", map[string]any{"RunID": st.LastRunID, "Count": n})
		if rerr != nil {
			summary = fmt.Sprintf("finalized %d game(s)", n)
		}
		fmt.Println(summary)
		return
	}

	deps.Scheduler.Start()

	<-ctx.Done()
	logger.Info("shutdown_requested")

	sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := deps.Scheduler.Stop(sctx); err != nil {
		logger.Warn("scheduler_stop_timeout", zap.Error(err))
	}
}
