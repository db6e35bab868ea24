package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"meetsync/internal/apps"
	"meetsync/internal/authz"
	"meetsync/internal/claims"
	"meetsync/internal/identity"
	"meetsync/internal/keys"
	"meetsync/internal/mailer"
	"meetsync/internal/meetings"
	"meetsync/internal/store"
	"meetsync/internal/webhooks"
	"meetsync/internal/zoom"
	"meetsync/internal/zoomauth"
	"meetsync/pkg/config"
	"meetsync/pkg/db"
	"meetsync/pkg/logger"
	"meetsync/pkg/middleware"
	"meetsync/pkg/tenants"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	var docs store.Store
	if pool := db.MustConnect(cfg, log); pool != nil {
		if err := store.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		docs = store.NewPostgres(pool)
		defer pool.Close()
	} else {
		docs = store.NewMemory()
	}

	var dedupe webhooks.Deduper = webhooks.NewMemoryDeduper()
	if rdb := db.MustRedis(cfg, log); rdb != nil {
		dedupe = webhooks.NewRedisDeduper(rdb)
		defer func() { _ = rdb.Close() }()
	}

	var pub webhooks.Publisher = webhooks.NoopPublisher{}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("meetsync"))
		if err != nil {
			log.Fatalw("nats connect", "err", err)
		}
		defer nc.Drain()
		pub = nc
		log.Infow("nats ready", "url", cfg.NATSURL)
	}

	var mail mailer.Sender = mailer.Noop{}
	if cfg.SendGridAPIKey != "" {
		mail = mailer.NewSendGrid(cfg.SendGridAPIKey, cfg.InviteTemplateID, cfg.InviteFromEmail, cfg.InviteFromName)
	}

	az, err := authz.New(ctx)
	if err != nil {
		log.Fatalw("authz policy", "err", err)
	}

	registry := apps.NewRegistry(docs)
	if err := registry.SeedFromFile(ctx, cfg.AppsSeedFile); err != nil {
		log.Fatalw("apps seed", "err", err)
	}

	tenantProvider := tenants.NewStoreProvider(docs, log)
	directory := identity.NewDocDirectory(docs)
	zoomClient := zoom.NewClient(cfg.ZoomAuthURL, cfg.ZoomTokenURL, cfg.ZoomAPIBaseURL)
	keySvc := keys.NewService(docs, mail, log, cfg.MaxKeyWindowHours, cfg.InviteBaseURL)
	authSvc := zoomauth.NewService(docs, keySvc, registry, zoomClient, log, cfg.ZoomProvider, cfg.FrontBaseURL)
	claimSvc := claims.NewService(directory, docs, az, log)
	meetingSvc := meetings.NewService(docs, authSvc, zoomClient, log, cfg.MeetingTimezone)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing(cfg))
	r.Use(middleware.Auth(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	keys.NewHandler(keySvc, az, log).Register(r)
	claims.NewHandler(claimSvc).Register(r)
	zoomauth.NewHandler(authSvc, tenantProvider, log).Register(r)
	meetings.NewHandler(meetingSvc).Register(r)
	webhooks.NewHandler(pub, cfg.TaskSubject, dedupe, log).Register(r)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(cfg.RefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-t.C:
				if _, err := authSvc.Sweep(sweepCtx, tenantProvider); err != nil {
					log.Errorw("scheduled sweep", "err", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("serve", "err", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutting down")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown", "err", err)
	}
}
