package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/food-admin/internal/legacyid"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/validation"
)

// orderID строит идентификатор, первые 4 байта которого кодируют sec.
func orderID(sec int64, n int) string {
	return fmt.Sprintf("%08x%016x", sec, n)
}

func ids(orders []model.Order) []string {
	res := make([]string, len(orders))
	for i, o := range orders {
		res[i] = o.ID
	}
	return res
}

func TestOrderList_SortsNewestFirst(t *testing.T) {
	older := orderID(0x5f000000, 1)
	newer := orderID(0x5f100000, 2)
	tieA := orderID(0x5f050000, 3)
	tieB := orderID(0x5f050000, 4)

	api := &stubOrderAPI{listFn: func(context.Context) ([]model.Order, error) {
		return []model.Order{
			{ID: older},
			{ID: tieA},
			{ID: "not-hex"},
			{ID: newer},
			{ID: tieB},
		}, nil
	}}
	s := NewOrderStore(api)

	require.NoError(t, s.List(context.Background()))

	got := s.Snapshot()
	assert.Equal(t, []string{newer, tieA, tieB, older, "not-hex"}, ids(got))

	for i := 0; i+1 < len(got); i++ {
		a, errA := legacyid.Effective(got[i].ID, got[i].CreatedAt)
		b, errB := legacyid.Effective(got[i+1].ID, got[i+1].CreatedAt)
		if errA != nil {
			a = time.Time{}
		}
		if errB != nil {
			b = time.Time{}
		}
		assert.False(t, a.Before(b), "order %d is older than order %d", i, i+1)
	}
}

func TestOrderList_ExplicitCreatedAtWins(t *testing.T) {
	explicit := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &stubOrderAPI{listFn: func(context.Context) ([]model.Order, error) {
		return []model.Order{
			{ID: orderID(0x6f000000, 1)},
			{ID: "zzzz", CreatedAt: &explicit},
		}, nil
	}}
	s := NewOrderStore(api)

	require.NoError(t, s.List(context.Background()))
	assert.Equal(t, "zzzz", s.Snapshot()[0].ID)
}

func TestOrderList_FailureKeepsCache(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"network", &remote.NetworkError{Op: "list orders", StatusCode: 500}, "Server Error"},
		{"rejected", &remote.RemoteRejection{Op: "list orders"}, "Error fetching orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := false
			api := &stubOrderAPI{listFn: func(context.Context) ([]model.Order, error) {
				if fail {
					return nil, tt.err
				}
				return []model.Order{{ID: orderID(0x5f1b2c3c, 1)}}, nil
			}}
			rec := &recorder{}
			s := NewOrderStore(api, WithNotifier(rec.notifier()))

			require.NoError(t, s.List(context.Background()))
			before := s.Snapshot()

			fail = true
			err := s.List(context.Background())

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, before, s.Snapshot())
			assert.Equal(t, []note{{notify.LevelError, tt.msg}}, rec.all())
		})
	}
}

func TestOrderUpdateStatus_SuccessResyncs(t *testing.T) {
	id := orderID(0x5f1b2c3c, 1)
	remoteStatus := model.OrderStatusFoodProcessing

	var mu sync.Mutex
	api := &stubOrderAPI{
		listFn: func(context.Context) ([]model.Order, error) {
			mu.Lock()
			defer mu.Unlock()
			return []model.Order{{ID: id, Status: remoteStatus}}, nil
		},
		updateFn: func(_ context.Context, orderID string, status model.OrderStatus) error {
			mu.Lock()
			defer mu.Unlock()
			if orderID == id {
				remoteStatus = status
			}
			return nil
		},
	}
	repo := newStubRepo()
	rec := &recorder{}
	s := NewOrderStore(api, WithRepository(repo), WithNotifier(rec.notifier()))

	require.NoError(t, s.UpdateStatus(context.Background(), id, model.OrderStatusDelivered))

	assert.Equal(t, int32(1), api.listCalls.Load())
	got := s.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, model.OrderStatusDelivered, got[0].Status)
	assert.Equal(t, []note{{notify.LevelSuccess, "Order status updated"}}, rec.all())
	assert.Equal(t, []statusChange{{orderID: id, status: "Delivered", accepted: true}}, repo.changes)
}

func TestOrderUpdateStatus_CacheShowsRemoteStatus(t *testing.T) {
	id := orderID(0x5f1b2c3c, 1)
	api := &stubOrderAPI{
		listFn: func(context.Context) ([]model.Order, error) {
			return []model.Order{{ID: id, Status: model.OrderStatusFoodProcessing}}, nil
		},
		updateFn: func(context.Context, string, model.OrderStatus) error {
			return nil
		},
	}
	s := NewOrderStore(api)

	require.NoError(t, s.UpdateStatus(context.Background(), id, model.OrderStatusDelivered))

	got := s.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, model.OrderStatusFoodProcessing, got[0].Status)
}

func TestOrderUpdateStatus_InvalidStatusMakesNoRequest(t *testing.T) {
	api := &stubOrderAPI{}
	s := NewOrderStore(api)

	err := s.UpdateStatus(context.Background(), "abc123", model.OrderStatus("Cancelled"))

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(validation.FieldStatus))
	assert.Equal(t, int32(0), api.updateCalls.Load())
}

func TestOrderUpdateStatus_FailureDoesNotResync(t *testing.T) {
	api := &stubOrderAPI{updateFn: func(context.Context, string, model.OrderStatus) error {
		return &remote.NetworkError{Op: "update order status", Err: errors.New("timeout")}
	}}
	repo := newStubRepo()
	rec := &recorder{}
	s := NewOrderStore(api, WithRepository(repo), WithNotifier(rec.notifier()))

	err := s.UpdateStatus(context.Background(), "abc123", model.OrderStatusDelivered)

	var netErr *remote.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, int32(0), api.listCalls.Load())
	assert.Equal(t, []note{{notify.LevelError, "Error updating status"}}, rec.all())
	require.Len(t, repo.changes, 1)
	assert.False(t, repo.changes[0].accepted)
}

func TestOrderSync_StartStop(t *testing.T) {
	api := &stubOrderAPI{}
	s := NewOrderStore(api, WithSyncInterval(10*time.Millisecond), WithLogger(zap.NewNop()))

	s.StartSync(context.Background())
	s.StartSync(context.Background())
	assert.True(t, s.Syncing())

	require.Eventually(t, func() bool { return api.listCalls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	s.StopSync()
	assert.False(t, s.Syncing())
	s.StopSync()

	// Догоняющие загрузки могли стартовать до остановки таймера.
	time.Sleep(20 * time.Millisecond)
	calls := api.listCalls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, api.listCalls.Load(), "no fetches after StopSync")
}

func TestOrderSync_StopDoesNotCancelInFlightFetch(t *testing.T) {
	id := orderID(0x5f1b2c3c, 1)
	release := make(chan struct{})
	ctxErr := make(chan error, 1)
	api := &stubOrderAPI{listFn: func(ctx context.Context) ([]model.Order, error) {
		<-release
		ctxErr <- ctx.Err()
		return []model.Order{{ID: id}}, nil
	}}
	s := NewOrderStore(api, WithSyncInterval(time.Hour))

	s.StartSync(context.Background())
	require.Eventually(t, func() bool { return api.listCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.StopSync()
	close(release)

	assert.NoError(t, <-ctxErr)
	require.Eventually(t, func() bool { return len(s.Snapshot()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestOrderList_SingleFlightCollapsesOverlap(t *testing.T) {
	release := make(chan struct{})
	api := &stubOrderAPI{listFn: func(context.Context) ([]model.Order, error) {
		<-release
		return nil, nil
	}}
	s := NewOrderStore(api, WithSingleFlight(true))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.List(context.Background())
	}()
	require.Eventually(t, func() bool { return api.listCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	go func() {
		defer wg.Done()
		_ = s.List(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), api.listCalls.Load())
}

func TestOrderUpdateStatus_SingleFlightRefetchesAfterUpdate(t *testing.T) {
	id := orderID(0x5f1b2c3c, 1)

	var mu sync.Mutex
	remoteStatus := model.OrderStatusFoodProcessing
	read := make(chan struct{})
	release := make(chan struct{})

	var first sync.Once
	api := &stubOrderAPI{
		updateFn: func(_ context.Context, _ string, status model.OrderStatus) error {
			mu.Lock()
			defer mu.Unlock()
			remoteStatus = status
			return nil
		},
	}
	api.listFn = func(context.Context) ([]model.Order, error) {
		mu.Lock()
		status := remoteStatus
		mu.Unlock()

		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			close(read)
			<-release
		}
		return []model.Order{{ID: id, Status: status}}, nil
	}
	s := NewOrderStore(api, WithSingleFlight(true))

	tickDone := make(chan error, 1)
	go func() {
		tickDone <- s.List(context.Background())
	}()
	<-read

	require.NoError(t, s.UpdateStatus(context.Background(), id, model.OrderStatusDelivered))

	got := s.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, model.OrderStatusDelivered, got[0].Status)
	assert.Equal(t, int32(2), api.listCalls.Load())

	close(release)
	require.NoError(t, <-tickDone)
}

func TestOrderHistory(t *testing.T) {
	repo := newStubRepo()
	api := &stubOrderAPI{}
	s := NewOrderStore(api, WithRepository(repo))

	require.NoError(t, s.UpdateStatus(context.Background(), "abc123", model.OrderStatusOutForDelivery))
	require.NoError(t, s.UpdateStatus(context.Background(), "abc123", model.OrderStatusDelivered))
	require.NoError(t, s.UpdateStatus(context.Background(), "other", model.OrderStatusDelivered))

	changes, err := s.History(context.Background(), "abc123", 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "Delivered", changes[0].Status)
	assert.Equal(t, "Out for delivery", changes[1].Status)
}

func TestOrderHistory_WithoutRepository(t *testing.T) {
	s := NewOrderStore(&stubOrderAPI{})

	changes, err := s.History(context.Background(), "abc123", 10)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestOrderWarm_SortsSnapshot(t *testing.T) {
	repo := newStubRepo()
	older := orderID(0x5f000000, 1)
	newer := orderID(0x5f100000, 2)
	require.NoError(t, repo.SaveSnapshot(context.Background(), "orders", []model.Order{{ID: older}, {ID: newer}}))

	s := NewOrderStore(&stubOrderAPI{}, WithRepository(repo))
	require.NoError(t, s.Warm(context.Background()))

	assert.Equal(t, []string{newer, older}, ids(s.Snapshot()))
}
