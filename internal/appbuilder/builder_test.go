package appbuilder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/game-finalizer/internal/config"
	"github.com/park285/game-finalizer/internal/domain"
	"github.com/park285/game-finalizer/internal/gamebuilder"
	"github.com/park285/game-finalizer/internal/notify"
)

func baseConfig() *config.AppConfig {
	return &config.AppConfig{
		StoreBackend:      config.BackendMemory,
		FinalizeSchedule:  "@every 1h",
		FinalizeStaleDays: 7,
		NotifyMode:        config.NotifyLog,
		NotifyTimeout:     time.Second,
	}
}

func TestNewMemoryAndLog(t *testing.T) {
	d, err := New(context.Background(), baseConfig(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if d.Store == nil || d.Finalizer == nil || d.Scheduler == nil || d.Games == nil || d.Catalog == nil {
		t.Fatalf("incomplete deps: %+v", d)
	}
	if _, ok := d.Sender.(*notify.LogSender); !ok {
		t.Fatalf("expected log sender, got %T", d.Sender)
	}
}

func TestNewRedisSweepsThroughHTTP(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	var health, sms atomic.Int32
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			health.Add(1)
		case "/sms":
			sms.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	cfg := baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.NotifyMode = config.NotifyHTTP
	cfg.NotifyBaseURL = gw.URL

	ctx := context.Background()
	d, err := New(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()
	if health.Load() != 1 {
		t.Fatalf("expected startup ping, got %d", health.Load())
	}

	old := gamebuilder.New().For("old").On(time.Now().AddDate(0, 0, -10)).
		Result(domain.NewParticipantWithID(1, "Ana"), 5).MustBuild()
	if err := d.Store.Persist(ctx, old); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	n, err := d.Scheduler.RunOnce(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RunOnce: n=%d err=%v", n, err)
	}
	if sms.Load() != 1 {
		t.Fatalf("expected one sms, got %d", sms.Load())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	cfg := baseConfig()
	cfg.StoreBackend = "mongo"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	cfg = baseConfig()
	cfg.FinalizeSchedule = "whenever"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for bad schedule")
	}
	cfg = baseConfig()
	cfg.StoreBackend = config.BackendRedis
	cfg.RedisURL = "redis://127.0.0.1:1"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}
