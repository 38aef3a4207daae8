package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/food-admin/internal/imageprep"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
	"github.com/mmeshcher/food-admin/internal/validation"
)

// CatalogStore владеет локальным списком блюд.
type CatalogStore struct {
	api  CatalogAPI
	opts options

	mu       sync.Mutex
	items    []model.FoodItem
	removing map[string]struct{}
}

// NewCatalogStore создаёт хранилище каталога поверх клиента удалённого сервиса.
func NewCatalogStore(api CatalogAPI, opts ...Option) *CatalogStore {
	return &CatalogStore{
		api:      api,
		opts:     buildOptions(opts),
		removing: make(map[string]struct{}),
	}
}

// Snapshot возвращает копию текущего списка блюд.
func (s *CatalogStore) Snapshot() []model.FoodItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]model.FoodItem, len(s.items))
	copy(res, s.items)
	return res
}

// Removing сообщает, выполняется ли сейчас удаление позиции.
func (s *CatalogStore) Removing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.removing[id]
	return ok
}

// List загружает каталог и целиком заменяет локальный список. При ошибке прежний список сохраняется.
func (s *CatalogStore) List(ctx context.Context) error {
	start := time.Now()
	items, err := s.api.ListFoods(ctx)
	if err != nil {
		s.opts.metrics.ObserveFetch(storeCatalog, resultOf(err), time.Since(start), 0)
		s.opts.logger.Warn("failed to fetch food list", zap.Error(err))
		s.opts.notifier.Error(ctx, "Error fetching food list")
		return fmt.Errorf("list foods: %w", err)
	}

	fresh := make([]model.FoodItem, len(items))
	copy(fresh, items)

	s.mu.Lock()
	s.items = fresh
	s.mu.Unlock()

	s.opts.metrics.ObserveFetch(storeCatalog, resultOf(nil), time.Since(start), len(fresh))
	s.opts.persist(ctx, repository.KindCatalog, fresh)
	return nil
}

// Add проверяет черновик и отправляет новое блюдо. Локальный список не меняется до следующего List.
func (s *CatalogStore) Add(ctx context.Context, draft *model.Draft, reset FormResetter) error {
	price, err := validation.ValidateDraft(draft)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				s.opts.notifier.Error(ctx, f.Message)
			}
		}
		s.opts.metrics.ObserveMutation(opAdd, resultOf(err))
		return err
	}

	img, err := imageprep.Normalize(draft.Image, s.opts.imageMaxWidth)
	if err != nil {
		s.opts.logger.Warn("image sent without normalization", zap.String("file", draft.Image.Filename), zap.Error(err))
	}

	msg, err := s.api.AddFood(ctx, remote.FoodUpload{
		Name:        draft.Name,
		Description: draft.Description,
		Price:       price,
		Category:    draft.Category,
		Image:       img,
	})
	s.opts.metrics.ObserveMutation(opAdd, resultOf(err))
	if err != nil {
		if reason, ok := rejectionMessage(err); ok {
			s.opts.notifier.Error(ctx, orDefault(reason, "Failed to add food"))
		} else {
			s.opts.logger.Error("failed to add food", zap.String("name", draft.Name), zap.Error(err))
			s.opts.notifier.Error(ctx, "Error adding food")
		}
		return fmt.Errorf("add food: %w", err)
	}

	draft.Reset()
	if reset != nil {
		reset.ResetForm()
	}
	s.opts.notifier.Success(ctx, orDefault(msg, "Food Added Successfully"))
	return nil
}

// Remove удаляет блюдо после подтверждения. Повторный вызов для того же id до завершения первого
// возвращает ErrAlreadyInProgress без обращения к сервису.
func (s *CatalogStore) Remove(ctx context.Context, id string, confirm Confirmer) error {
	if confirm != nil && !confirm.Confirm(ctx, RemovePrompt) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	if _, busy := s.removing[id]; busy {
		s.mu.Unlock()
		return ErrAlreadyInProgress
	}
	s.removing[id] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.removing, id)
		s.mu.Unlock()
	}()

	msg, err := s.api.RemoveFood(ctx, id)
	s.opts.metrics.ObserveMutation(opRemove, resultOf(err))
	if err != nil {
		if reason, ok := rejectionMessage(err); ok {
			s.opts.notifier.Error(ctx, orDefault(reason, "Failed to remove food"))
		} else {
			s.opts.logger.Error("failed to remove food", zap.String("food", id), zap.Error(err))
			s.opts.notifier.Error(ctx, "Error removing food")
		}
		return fmt.Errorf("remove food %s: %w", id, err)
	}

	s.mu.Lock()
	kept := make([]model.FoodItem, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.opts.metrics.SetCacheSize(storeCatalog, len(kept))
	s.opts.notifier.Success(ctx, orDefault(msg, "Food Removed"))
	return nil
}

// Warm заполняет пустой кэш из последнего сохранённого снимка.
func (s *CatalogStore) Warm(ctx context.Context) error {
	if s.opts.repo == nil {
		return nil
	}

	snap, err := s.opts.repo.LoadSnapshot(ctx, repository.KindCatalog)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil
		}
		return fmt.Errorf("load catalog snapshot: %w", err)
	}

	var items []model.FoodItem
	if err := json.Unmarshal(snap.Payload, &items); err != nil {
		return fmt.Errorf("decode catalog snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = items
	}
	return nil
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
