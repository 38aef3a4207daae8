package store

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
)

type stubCatalogAPI struct {
	listFn   func(ctx context.Context) ([]model.FoodItem, error)
	addFn    func(ctx context.Context, f remote.FoodUpload) (string, error)
	removeFn func(ctx context.Context, id string) (string, error)

	listCalls   atomic.Int32
	addCalls    atomic.Int32
	removeCalls atomic.Int32
}

func (s *stubCatalogAPI) ListFoods(ctx context.Context) ([]model.FoodItem, error) {
	s.listCalls.Add(1)
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubCatalogAPI) AddFood(ctx context.Context, f remote.FoodUpload) (string, error) {
	s.addCalls.Add(1)
	if s.addFn != nil {
		return s.addFn(ctx, f)
	}
	return "", nil
}

func (s *stubCatalogAPI) RemoveFood(ctx context.Context, id string) (string, error) {
	s.removeCalls.Add(1)
	if s.removeFn != nil {
		return s.removeFn(ctx, id)
	}
	return "", nil
}

type stubOrderAPI struct {
	listFn   func(ctx context.Context) ([]model.Order, error)
	updateFn func(ctx context.Context, orderID string, status model.OrderStatus) error

	listCalls   atomic.Int32
	updateCalls atomic.Int32
}

func (s *stubOrderAPI) ListOrders(ctx context.Context) ([]model.Order, error) {
	s.listCalls.Add(1)
	if s.listFn != nil {
		return s.listFn(ctx)
	}
	return nil, nil
}

func (s *stubOrderAPI) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	s.updateCalls.Add(1)
	if s.updateFn != nil {
		return s.updateFn(ctx, orderID, status)
	}
	return nil
}

type statusChange struct {
	orderID  string
	status   string
	accepted bool
}

type stubRepo struct {
	mu        sync.Mutex
	snapshots map[string][]byte
	changes   []statusChange
}

func newStubRepo() *stubRepo {
	return &stubRepo{snapshots: make(map[string][]byte)}
}

func (r *stubRepo) SaveSnapshot(_ context.Context, kind string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[kind] = data
	return nil
}

func (r *stubRepo) LoadSnapshot(_ context.Context, kind string) (*repository.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.snapshots[kind]
	if !ok {
		return nil, repository.ErrSnapshotNotFound
	}
	return &repository.Snapshot{Kind: kind, Payload: data}, nil
}

func (r *stubRepo) RecordStatusChange(_ context.Context, orderID, status string, accepted bool, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, statusChange{orderID: orderID, status: status, accepted: accepted})
	return nil
}

func (r *stubRepo) GetStatusChanges(_ context.Context, orderID string, limit int) ([]repository.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []repository.StatusChange
	for i := len(r.changes) - 1; i >= 0 && len(res) < limit; i-- {
		c := r.changes[i]
		if c.orderID == orderID {
			res = append(res, repository.StatusChange{OrderID: c.orderID, Status: c.status, Accepted: c.accepted})
		}
	}
	return res, nil
}

type note struct {
	level notify.Level
	msg   string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) notifier() notify.Notifier {
	return notify.Func(func(_ context.Context, level notify.Level, msg string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.notes = append(r.notes, note{level: level, msg: msg})
	})
}

func (r *recorder) all() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]note, len(r.notes))
	copy(res, r.notes)
	return res
}
