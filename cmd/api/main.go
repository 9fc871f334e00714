package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"salesvoice/internal/agents"
	"salesvoice/internal/audit"
	"salesvoice/internal/campaigns"
	"salesvoice/internal/config"
	"salesvoice/internal/conversation"
	"salesvoice/internal/customers"
	"salesvoice/internal/httpapi"
	"salesvoice/internal/observability"
	"salesvoice/internal/reporting"
	"salesvoice/internal/routing"
	"salesvoice/internal/session"
	"salesvoice/internal/telephony"
	"salesvoice/internal/voiceai"
	"salesvoice/pkg/logger"
	"salesvoice/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is for local development only; deployed environments inject env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	metrics := observability.NewMetrics("salesvoice")

	// Stores
	agentStore := agents.NewPostgresStore(db)
	sessionStore := session.NewPostgresStore(db)
	customerStore := customers.NewPostgresStore(db)
	campaignStore := campaigns.NewPostgresStore(db)

	// Services
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db))
	campaignSvc := campaigns.NewService(campaignStore, agentStore, sessionStore, customerStore, log)

	caller := telephony.NewTwilioDialer(cfg.Twilio, cfg.VoiceWebhookURL())
	dialer := campaigns.NewDialer(campaignStore, agentStore, sessionStore, customerStore, caller, rdb, cfg.Dialer, log)
	dialer.Metrics = metrics

	// Call completion fan-out: learning recorder, customer tracker, dialer
	// contact settlement.
	machine := session.NewMachine(sessionStore, agentStore)
	machine.OnCompleted = []session.CompletionHook{
		agents.NewRecorder(agentStore, sessionStore, log).Hook(),
		customers.NewTracker(customerStore, log).Hook(),
		dialer.Hook(),
	}

	var ai voiceai.Client = voiceai.NewHTTPClient(cfg.VoiceAI.BaseURL, cfg.VoiceAI.APIKey, cfg.VoiceAI.RequestTimeout)
	detector := conversation.NewDetector(cfg.Conversation)
	orch := conversation.NewOrchestrator(sessionStore, agentStore, ai, detector, cfg.Conversation.ListenTimeout, log)
	orch.Metrics = metrics

	voice := &telephony.Handler{
		Machine:       machine,
		Sessions:      sessionStore,
		Router:        routing.NewEngine(agentStore, sessionStore, log),
		Orch:          orch,
		Journal:       session.NewJournal(rdb),
		Log:           log,
		Metrics:       metrics,
		ActionURL:     cfg.VoiceWebhookURL(),
		ListenTimeout: cfg.Conversation.ListenTimeout,
	}

	api := httpapi.Handlers{
		Agents:    agentStore,
		Sessions:  sessionStore,
		Customers: customerStore,
		Campaigns: campaignSvc,
		Reports:   reportSvc,
		Audit:     auditSvc,
		Keywords:  cfg.Conversation.PositiveKeywords,
	}

	if err := dialer.Start(); err != nil {
		log.Error("dialer start failed", "err", err)
		os.Exit(1)
	}
	defer dialer.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, voice, api)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
