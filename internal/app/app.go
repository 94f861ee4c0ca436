// Package app wires configuration into a running bot process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"surveybot/internal/cache"
	"surveybot/internal/config"
	"surveybot/internal/events"
	"surveybot/internal/logger"
	"surveybot/internal/metrics"
	"surveybot/internal/model"
	"surveybot/internal/questionnaire"
	"surveybot/internal/repository"
	"surveybot/internal/service"
	"surveybot/internal/sheets"
	"surveybot/internal/transport/rest"
	"surveybot/internal/transport/telegram"
	"surveybot/internal/transport/ws"
)

const connectTimeout = 10 * time.Second

// App is the assembled bot process
type App struct {
	cfg    *config.Config
	logger *logger.Logger

	Survey      *model.Questionnaire
	Store       cache.StateStore
	Submissions repository.SubmissionRepository // Nil when the archive is disabled
	Bus         events.Bus
	Engine      *service.Engine
	Hub         *ws.Hub
	Server      *http.Server
	Poller      *telegram.Poller // Nil in webhook mode

	closers []func()
}

// New connects every dependency. On error, whatever was opened is closed again.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Survey, err = questionnaire.Load(cfg.Questionnaire.Path)
	if err != nil {
		return nil, err
	}
	log.Info("Questionnaire loaded",
		zap.String("path", cfg.Questionnaire.Path),
		zap.String("entry", a.Survey.Entry),
		zap.Int("questions", a.Survey.Len()))

	if a.Store, err = a.stateStore(ctx); err != nil {
		return nil, err
	}

	var archive service.SubmissionArchive
	if cfg.Mongo.ArchiveEnabled() {
		if a.Submissions, err = a.submissionArchive(ctx); err != nil {
			return nil, err
		}
		archive = a.Submissions
	}

	sheet, err := sheets.New(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.Credentials, cfg.Sheets.Range)
	if err != nil {
		return nil, err
	}

	bus, closeBus, err := events.Provide(cfg, log)
	if err != nil {
		return nil, err
	}
	a.Bus = bus
	a.closers = append(a.closers, closeBus)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(reg)

	exporter := service.NewExporter(sheet, archive, cfg.Sheets.TimeoutDuration(), recorder, bus, log)
	a.Engine = service.NewEngine(a.Store, a.Survey, exporter,
		service.WithRecorder(recorder),
		service.WithPublisher(bus),
		service.WithLogger(log),
	)

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	log.Info("Authorized on Telegram", zap.String("bot", api.Self.UserName), zap.String("mode", cfg.Telegram.Mode))

	bot := telegram.NewBot(api, a.Engine, log)

	var webhook *telegram.WebhookHandler
	if cfg.Telegram.Mode == config.ModeWebhook {
		webhook = telegram.NewWebhookHandler(bot, cfg.Telegram.WebhookSecret, api.GetWebhookInfo, log)
	} else {
		a.Poller = telegram.NewPoller(api, bot, cfg.Telegram.PollingTimeout, log)
	}

	a.Hub = ws.NewHub(log)
	sub, err := a.Hub.Subscribe(bus)
	if err != nil {
		return nil, fmt.Errorf("subscribe operator feed: %w", err)
	}
	a.closers = append(a.closers, func() { _ = sub.Unsubscribe() })

	router := rest.NewRouter(&rest.Container{
		AuthService:   service.NewAuthService(cfg.Auth),
		Conversations: a.Engine,
		Questionnaire: a.Survey,
		Submissions:   a.Submissions,
		Webhook:       webhook,
		WSHub:         a.Hub,
		Metrics:       reg,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        log,
	})

	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}
	return a, nil
}

func (a *App) stateStore(ctx context.Context) (cache.StateStore, error) {
	if a.cfg.State.Backend != config.BackendRedis {
		a.logger.Info("Using in-memory conversation state")
		return cache.NewMemoryStateStore(), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.Redis.RedisAddr()})
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	a.logger.Info("Connected to Redis", zap.String("addr", a.cfg.Redis.RedisAddr()))
	return cache.NewRedisStateStore(rdb, a.cfg.State.TTLDuration()), nil
}

func (a *App) submissionArchive(ctx context.Context) (repository.SubmissionRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		_ = client.Disconnect(ctx)
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	if err := repository.EnsureIndexes(pingCtx, client, a.cfg.Mongo.Database); err != nil {
		return nil, err
	}
	a.logger.Info("Connected to MongoDB", zap.String("database", a.cfg.Mongo.Database))
	return repository.NewSubmissionRepository(client, a.cfg.Mongo.Database), nil
}

// Run serves until ctx is cancelled or a component fails, then shuts the HTTP server down
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.Hub.Run(gctx) })

	g.Go(func() error {
		a.logger.Info("HTTP server starting", zap.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if a.Poller != nil {
		g.Go(func() error { return a.Poller.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeoutDuration())
		defer cancel()
		a.logger.Info("Shutting down HTTP server")
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases connections in reverse order of opening
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
