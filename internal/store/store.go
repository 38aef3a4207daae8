// Package store содержит локальные кэши каталога и заказов, синхронизируемые с удалённым сервисом.
package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/food-admin/internal/metrics"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
)

var (
	// ErrAlreadyInProgress возвращается при повторном удалении позиции, удаление которой ещё не завершено.
	ErrAlreadyInProgress = errors.New("operation already in progress")
	// ErrNotConfirmed возвращается, если пользователь не подтвердил удаление.
	ErrNotConfirmed = errors.New("operation not confirmed")
)

// DefaultSyncInterval задаёт период синхронизации заказов.
const DefaultSyncInterval = 10 * time.Second

// RemovePrompt показывается пользователю перед удалением блюда.
const RemovePrompt = "Are you sure you want to delete this food item?"

// Метки хранилищ и операций для метрик.
const (
	storeCatalog = "catalog"
	storeOrders  = "orders"

	opAdd    = "add"
	opRemove = "remove"
	opStatus = "status"
)

// CatalogAPI описывает операции удалённого сервиса над каталогом.
type CatalogAPI interface {
	ListFoods(ctx context.Context) ([]model.FoodItem, error)
	AddFood(ctx context.Context, f remote.FoodUpload) (string, error)
	RemoveFood(ctx context.Context, id string) (string, error)
}

// OrderAPI описывает операции удалённого сервиса над заказами.
type OrderAPI interface {
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

// SnapshotRepository сохраняет результаты успешных синхронизаций.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, kind string, payload any) error
	LoadSnapshot(ctx context.Context, kind string) (*repository.Snapshot, error)
	RecordStatusChange(ctx context.Context, orderID, status string, accepted bool, message string) error
	GetStatusChanges(ctx context.Context, orderID string, limit int) ([]repository.StatusChange, error)
}

// Confirmer спрашивает у пользователя подтверждение операции.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc адаптирует функцию к интерфейсу Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Approved возвращает Confirmer с заранее известным ответом.
func Approved(ok bool) Confirmer {
	return ConfirmFunc(func(context.Context, string) bool { return ok })
}

// FormResetter очищает форму добавления после успешной отправки.
type FormResetter interface {
	ResetForm()
}

// ResetFunc адаптирует функцию к интерфейсу FormResetter.
type ResetFunc func()

func (f ResetFunc) ResetForm() { f() }

type options struct {
	logger        *zap.Logger
	notifier      notify.Notifier
	metrics       *metrics.SyncMetrics
	repo          SnapshotRepository
	imageMaxWidth int
	singleFlight  bool
	interval      time.Duration
}

// Option настраивает хранилище.
type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRepository включает сохранение снимков. Для nil-репозитория передавать опцию не нужно.
func WithRepository(r SnapshotRepository) Option {
	return func(o *options) { o.repo = r }
}

// WithImageMaxWidth задаёт ширину, до которой уменьшаются загружаемые изображения. 0 отключает обработку.
func WithImageMaxWidth(w int) Option {
	return func(o *options) { o.imageMaxWidth = w }
}

// WithSingleFlight схлопывает одновременные загрузки списка заказов в одну.
func WithSingleFlight(on bool) Option {
	return func(o *options) { o.singleFlight = on }
}

func WithSyncInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   zap.NewNop(),
		notifier: notify.Discard,
		interval: DefaultSyncInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.notifier == nil {
		o.notifier = notify.Discard
	}
	if o.interval <= 0 {
		o.interval = DefaultSyncInterval
	}
	return o
}

func (o options) persist(ctx context.Context, kind string, payload any) {
	if o.repo == nil {
		return
	}
	if err := o.repo.SaveSnapshot(ctx, kind, payload); err != nil {
		o.logger.Warn("failed to save snapshot", zap.String("kind", kind), zap.Error(err))
	}
}

func rejectionMessage(err error) (string, bool) {
	var rej *remote.RemoteRejection
	if errors.As(err, &rej) {
		return rej.Message, true
	}
	return "", false
}

func resultOf(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if _, ok := rejectionMessage(err); ok {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
