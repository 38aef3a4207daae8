// Package main запускает административный клиент сервиса доставки еды.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/food-admin/internal/config"
	"github.com/mmeshcher/food-admin/internal/handler"
	"github.com/mmeshcher/food-admin/internal/metrics"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
	"github.com/mmeshcher/food-admin/internal/store"
	"github.com/mmeshcher/food-admin/internal/tui"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	client := remote.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	syncMetrics := metrics.NewSyncMetrics()

	notifiers := notify.Multi{notify.NewLog(logger)}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			sugar.Warnw("telegram notifications disabled", "error", err.Error())
		} else {
			notifiers = append(notifiers, notify.NewTelegram(bot, cfg.TelegramChatID, logger))
		}
	}

	if w := notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic); w != nil {
		defer w.Close()
		notifiers = append(notifiers, notify.NewKafka(w, logger))
	}

	var feed *tui.Feed
	if cfg.UI == config.UITUI {
		feed = tui.NewFeed()
		notifiers = append(notifiers, feed)
	}

	opts := []store.Option{
		store.WithLogger(logger),
		store.WithNotifier(notifiers),
		store.WithMetrics(syncMetrics),
		store.WithImageMaxWidth(cfg.ImageMaxWidth),
		store.WithSingleFlight(cfg.SyncSingleFlight),
		store.WithSyncInterval(cfg.SyncInterval),
	}

	if cfg.DatabaseURI != "" {
		repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
		if err != nil {
			sugar.Fatalw("database initialization error", "error", err.Error())
		}
		defer repo.Close()
		opts = append(opts, store.WithRepository(repo))
	}

	catalog := store.NewCatalogStore(client, opts...)
	orders := store.NewOrderStore(client, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := catalog.Warm(ctx); err != nil {
		sugar.Warnw("catalog snapshot not restored", "error", err.Error())
	}
	if err := orders.Warm(ctx); err != nil {
		sugar.Warnw("orders snapshot not restored", "error", err.Error())
	}

	if err := catalog.List(ctx); err != nil {
		sugar.Warnw("initial catalog fetch failed", "error", err.Error())
	}

	orders.StartSync(ctx)
	defer orders.StopSync()

	if cfg.UI == config.UITUI {
		if err := tui.Run(ctx, catalog, orders, feed); err != nil {
			sugar.Errorw("terminal ui terminated with error", "error", err)
		}
		return
	}

	h := handler.NewHandler(catalog, orders, logger, syncMetrics.Handler())

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: h.SetupRouter(),
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-консоли
	g.Go(func() error {
		sugar.Infow("starting admin console", "addr", cfg.RunAddress, "api", cfg.APIBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		orders.StopSync()
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
