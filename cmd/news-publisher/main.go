package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-news-publisher/internal/config"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/password"
	"github.com/pribylovaa/go-news-publisher/internal/service"
	"github.com/pribylovaa/go-news-publisher/internal/storage/mongo"
	"github.com/pribylovaa/go-news-publisher/internal/storage/postgres"
	"github.com/pribylovaa/go-news-publisher/internal/storage/redis"
	"github.com/pribylovaa/go-news-publisher/internal/token"
	transporthttp "github.com/pribylovaa/go-news-publisher/internal/transport/http"
	"github.com/pribylovaa/go-news-publisher/internal/transport/http/middleware"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// Подключение к хранилищам c таймаутом.
	connCtx, connCancel := context.WithTimeout(rootCtx, 10*time.Second)
	st, err := openStorages(connCtx, cfg, log)
	connCancel()
	if err != nil {
		log.Error("storage_connect_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	codec, err := token.New(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL(), cfg.Auth.Issuer)
	if err != nil {
		log.Error("token_codec_failed", slog.String("err", err.Error()))
		_ = closeStorages(st, log)
		rootCancel()
		os.Exit(1)
	}

	hasher := password.New(password.Params{
		MemoryKiB:   cfg.Password.MemoryKiB,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})

	// Сервис.
	srvc := service.New(service.Deps{
		Users:    st.pg,
		News:     st.pg,
		Comments: st.mongo,
		Sessions: st.redis,
		Hasher:   hasher,
		Tokens:   codec,
	}, cfg.Auth.RefreshTokenTTL())
	log.Info("service_initialized")

	var ready atomic.Bool

	router := transporthttp.NewRouter(srvc, transporthttp.Options{
		Logger:   log,
		Timeout:  cfg.HTTP.RequestTimeout,
		BasePath: cfg.HTTP.BasePath,
		Verifier: codec,
		Metrics:  middleware.NewMetrics(prometheus.DefaultRegisterer),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.ping(ctx); err != nil {
			log.Warn("readiness_check_failed", slog.String("err", err.Error()))
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	exitCode := 0
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
			exitCode = 1
		}
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}
	shutdownCancel()

	if err := closeStorages(st, log); err != nil {
		exitCode = 1
	}

	log.Info("service_stopped")
	rootCancel()
	os.Exit(exitCode)
}

// storages - открытые подключения к хранилищам.
type storages struct {
	pg    *postgres.Storage
	mongo *mongo.Mongo
	redis *redis.Storage
}

// openStorages подключается к Postgres, MongoDB и Redis. При ошибке
// уже открытые подключения закрываются.
func openStorages(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storages, error) {
	st := &storages{}

	pg, err := postgres.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		return nil, err
	}
	st.pg = pg
	log.Info("postgres_connected")

	m, err := mongo.New(ctx, cfg.Mongo.URL, cfg.Mongo.Database)
	if err != nil {
		return nil, errors.Join(err, closeStorages(st, log))
	}
	st.mongo = m
	log.Info("mongo_connected")

	rd, err := redis.New(ctx, redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, errors.Join(err, closeStorages(st, log))
	}
	st.redis = rd
	log.Info("redis_connected")

	return st, nil
}

func (s *storages) ping(ctx context.Context) error {
	return errors.Join(s.pg.Ping(ctx), s.mongo.Ping(ctx), s.redis.Ping(ctx))
}

// closeStorages закрывает открытые подключения; ошибки закрытия
// логируются и возвращаются вместе.
func closeStorages(s *storages, log *slog.Logger) error {
	var errs []error

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.mongo.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	if s.pg != nil {
		s.pg.Close()
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Error("storage_close_failed", slog.String("err", err.Error()))
	}

	return err
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
