package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/food-admin/internal/legacyid"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/repository"
	"github.com/mmeshcher/food-admin/internal/validation"
)

// OrderStore владеет локальным списком заказов и циклом его синхронизации.
type OrderStore struct {
	api  OrderAPI
	opts options

	group singleflight.Group

	mu     sync.Mutex
	orders []model.Order
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOrderStore создаёт хранилище заказов.
func NewOrderStore(api OrderAPI, opts ...Option) *OrderStore {
	return &OrderStore{
		api:  api,
		opts: buildOptions(opts),
	}
}

// Snapshot возвращает копию текущего списка заказов, отсортированного от новых к старым.
func (s *OrderStore) Snapshot() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]model.Order, len(s.orders))
	copy(res, s.orders)
	return res
}

// List загружает все заказы и заменяет локальный список. При ошибке прежний список сохраняется.
func (s *OrderStore) List(ctx context.Context) error {
	if !s.opts.singleFlight {
		return s.fetch(ctx)
	}
	_, err, _ := s.group.Do(storeOrders, func() (any, error) {
		return nil, s.fetch(ctx)
	})
	return err
}

func (s *OrderStore) fetch(ctx context.Context) error {
	start := time.Now()
	orders, err := s.api.ListOrders(ctx)
	if err != nil {
		s.opts.metrics.ObserveFetch(storeOrders, resultOf(err), time.Since(start), 0)
		s.opts.logger.Warn("failed to fetch orders", zap.Error(err))
		if _, rejected := rejectionMessage(err); rejected {
			s.opts.notifier.Error(ctx, "Error fetching orders")
		} else {
			s.opts.notifier.Error(ctx, "Server Error")
		}
		return fmt.Errorf("list orders: %w", err)
	}

	sorted := sortByCreation(orders)

	s.mu.Lock()
	s.orders = sorted
	s.mu.Unlock()

	s.opts.metrics.ObserveFetch(storeOrders, resultOf(nil), time.Since(start), len(sorted))
	s.opts.persist(ctx, repository.KindOrders, sorted)
	return nil
}

// sortByCreation упорядочивает заказы от новых к старым, сохраняя порядок ответа при равенстве.
// Заказ без определимого времени создания считается самым старым.
func sortByCreation(orders []model.Order) []model.Order {
	type keyed struct {
		order model.Order
		at    time.Time
	}

	tmp := make([]keyed, len(orders))
	for i, o := range orders {
		at, err := legacyid.Effective(o.ID, o.CreatedAt)
		if err != nil {
			at = time.Time{}
		}
		tmp[i] = keyed{order: o, at: at}
	}

	slices.SortStableFunc(tmp, func(a, b keyed) int {
		return b.at.Compare(a.at)
	})

	res := make([]model.Order, len(tmp))
	for i, k := range tmp {
		res[i] = k.order
	}
	return res
}

// UpdateStatus отправляет новый статус заказа и после успеха заново загружает весь список.
// Локально заказ не изменяется.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if err := validation.ValidateStatus(status); err != nil {
		s.opts.metrics.ObserveMutation(opStatus, resultOf(err))
		s.opts.notifier.Error(ctx, "Error updating status")
		return err
	}

	err := s.api.UpdateOrderStatus(ctx, orderID, status)
	s.opts.metrics.ObserveMutation(opStatus, resultOf(err))
	s.recordStatusChange(ctx, orderID, status, err)
	if err != nil {
		s.opts.logger.Error("failed to update order status",
			zap.String("order", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		s.opts.notifier.Error(ctx, "Error updating status")
		return fmt.Errorf("update status of order %s: %w", orderID, err)
	}

	s.opts.notifier.Success(ctx, "Order status updated")

	if err := s.resync(ctx); err != nil {
		s.opts.logger.Warn("resync after status update failed", zap.String("order", orderID), zap.Error(err))
	}
	return nil
}

// resync всегда выполняет новый запрос: загрузка, начатая до изменения, могла вернуть старые данные.
func (s *OrderStore) resync(ctx context.Context) error {
	if s.opts.singleFlight {
		s.group.Forget(storeOrders)
	}
	return s.List(ctx)
}

// History возвращает последние изменения статуса заказа. Без репозитория история пуста.
func (s *OrderStore) History(ctx context.Context, orderID string, limit int) ([]repository.StatusChange, error) {
	if s.opts.repo == nil {
		return nil, nil
	}
	changes, err := s.opts.repo.GetStatusChanges(ctx, orderID, limit)
	if err != nil {
		return nil, fmt.Errorf("status history of order %s: %w", orderID, err)
	}
	return changes, nil
}

func (s *OrderStore) recordStatusChange(ctx context.Context, orderID string, status model.OrderStatus, err error) {
	if s.opts.repo == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if rerr := s.opts.repo.RecordStatusChange(ctx, orderID, string(status), err == nil, msg); rerr != nil {
		s.opts.logger.Warn("failed to record status change", zap.String("order", orderID), zap.Error(rerr))
	}
}

// StartSync сразу загружает список и затем повторяет загрузку с заданным периодом до StopSync.
// Повторный вызов при активной синхронизации ничего не делает.
func (s *OrderStore) StartSync(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	syncCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	s.opts.logger.Info("order sync started", zap.Duration("interval", s.opts.interval))

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.opts.interval)
		defer ticker.Stop()

		s.spawnFetch(syncCtx)
		for {
			select {
			case <-syncCtx.Done():
				return
			case <-ticker.C:
				s.spawnFetch(syncCtx)
			}
		}
	}()
}

// spawnFetch не ждёт завершения предыдущей загрузки; остановка цикла не прерывает начатые загрузки.
func (s *OrderStore) spawnFetch(ctx context.Context) {
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		_ = s.List(fetchCtx)
	}()
}

// StopSync останавливает таймер синхронизации. Повторный вызов ничего не делает.
func (s *OrderStore) StopSync() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.opts.logger.Info("order sync stopped")
}

// Syncing сообщает, активен ли цикл синхронизации.
func (s *OrderStore) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Warm заполняет пустой кэш из последнего сохранённого снимка.
func (s *OrderStore) Warm(ctx context.Context) error {
	if s.opts.repo == nil {
		return nil
	}

	snap, err := s.opts.repo.LoadSnapshot(ctx, repository.KindOrders)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil
		}
		return fmt.Errorf("load orders snapshot: %w", err)
	}

	var orders []model.Order
	if err := json.Unmarshal(snap.Payload, &orders); err != nil {
		return fmt.Errorf("decode orders snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders == nil {
		s.orders = sortByCreation(orders)
	}
	return nil
}
