package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/food-admin/internal/metrics"
	"github.com/mmeshcher/food-admin/internal/model"
	"github.com/mmeshcher/food-admin/internal/notify"
	"github.com/mmeshcher/food-admin/internal/remote"
	"github.com/mmeshcher/food-admin/internal/repository"
	"github.com/mmeshcher/food-admin/internal/validation"
)

func food(id, name string) model.FoodItem {
	return model.FoodItem{ID: id, Name: name, Price: decimal.NewFromInt(10), Category: model.CategoryRovu}
}

func filledDraft() *model.Draft {
	return &model.Draft{
		Name:        "Biryani",
		Description: "Spicy rice",
		Price:       "12.50",
		Category:    model.CategoryMurgam,
		Image:       &model.ImagePayload{Filename: "b.png", ContentType: "image/png", Data: []byte("not really an image")},
	}
}

func TestCatalogList_ReplacesCacheInServerOrder(t *testing.T) {
	api := &stubCatalogAPI{listFn: func(context.Context) ([]model.FoodItem, error) {
		return []model.FoodItem{food("b", "Second"), food("a", "First")}, nil
	}}
	repo := newStubRepo()
	s := NewCatalogStore(api, WithRepository(repo), WithMetrics(metrics.NewSyncMetrics()))

	require.NoError(t, s.List(context.Background()))

	items := s.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)

	_, err := repo.LoadSnapshot(context.Background(), repository.KindCatalog)
	assert.NoError(t, err)
}

func TestCatalogList_FailureKeepsCache(t *testing.T) {
	fail := false
	api := &stubCatalogAPI{listFn: func(context.Context) ([]model.FoodItem, error) {
		if fail {
			return nil, &remote.NetworkError{Op: "list foods", Err: errors.New("connection refused")}
		}
		return []model.FoodItem{food("a", "First")}, nil
	}}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))

	require.NoError(t, s.List(context.Background()))
	before := s.Snapshot()

	fail = true
	err := s.List(context.Background())

	var netErr *remote.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, []note{{notify.LevelError, "Error fetching food list"}}, rec.all())
}

func TestCatalogAdd_EmptyNameFailsWithoutRequest(t *testing.T) {
	api := &stubCatalogAPI{}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))

	d := filledDraft()
	d.Name = "  "

	err := s.Add(context.Background(), d, nil)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(validation.FieldName))
	assert.Equal(t, int32(0), api.addCalls.Load())
	assert.Equal(t, []note{{notify.LevelError, "Please enter a product name"}}, rec.all())
}

func TestCatalogAdd_SuccessResetsDraft(t *testing.T) {
	var got remote.FoodUpload
	api := &stubCatalogAPI{addFn: func(_ context.Context, f remote.FoodUpload) (string, error) {
		got = f
		return "", nil
	}}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))

	resets := 0
	d := filledDraft()
	err := s.Add(context.Background(), d, ResetFunc(func() { resets++ }))
	require.NoError(t, err)

	assert.Equal(t, "Biryani", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, model.CategoryMurgam, got.Category)
	require.NotNil(t, got.Image)

	assert.Equal(t, model.NewDraft(), d)
	assert.Equal(t, 1, resets)
	assert.Empty(t, s.Snapshot(), "add must not touch the cache")
	assert.Equal(t, []note{{notify.LevelSuccess, "Food Added Successfully"}}, rec.all())
}

func TestCatalogAdd_RejectedKeepsDraft(t *testing.T) {
	api := &stubCatalogAPI{addFn: func(context.Context, remote.FoodUpload) (string, error) {
		return "", &remote.RemoteRejection{Op: "add food", Message: "Duplicate name"}
	}}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))

	d := filledDraft()
	err := s.Add(context.Background(), d, ResetFunc(func() { t.Fatal("form must not be reset") }))

	var rej *remote.RemoteRejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "Biryani", d.Name)
	assert.Equal(t, []note{{notify.LevelError, "Duplicate name"}}, rec.all())
}

func TestCatalogRemove_DeclinedMakesNoRequest(t *testing.T) {
	api := &stubCatalogAPI{}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))

	err := s.Remove(context.Background(), "a", Approved(false))

	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Equal(t, int32(0), api.removeCalls.Load())
	assert.Empty(t, rec.all())
}

func TestCatalogRemove_SecondCallWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	api := &stubCatalogAPI{
		listFn: func(context.Context) ([]model.FoodItem, error) {
			return []model.FoodItem{food("a", "First"), food("b", "Second")}, nil
		},
		removeFn: func(context.Context, string) (string, error) {
			<-release
			return "", nil
		},
	}
	s := NewCatalogStore(api)
	require.NoError(t, s.List(context.Background()))

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- s.Remove(context.Background(), "a", Approved(true))
	}()

	require.Eventually(t, func() bool { return s.Removing("a") }, time.Second, 5*time.Millisecond)

	err := s.Remove(context.Background(), "a", Approved(true))
	assert.ErrorIs(t, err, ErrAlreadyInProgress)
	assert.Equal(t, int32(1), api.removeCalls.Load())

	close(release)
	require.NoError(t, <-firstErr)

	assert.False(t, s.Removing("a"))
	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)
}

func TestCatalogRemove_RejectedKeepsCache(t *testing.T) {
	api := &stubCatalogAPI{
		listFn: func(context.Context) ([]model.FoodItem, error) {
			return []model.FoodItem{food("a", "First")}, nil
		},
		removeFn: func(context.Context, string) (string, error) {
			return "", &remote.RemoteRejection{Op: "remove food"}
		},
	}
	rec := &recorder{}
	s := NewCatalogStore(api, WithNotifier(rec.notifier()))
	require.NoError(t, s.List(context.Background()))

	err := s.Remove(context.Background(), "a", nil)

	require.Error(t, err)
	assert.Len(t, s.Snapshot(), 1)
	assert.False(t, s.Removing("a"))
	assert.Equal(t, []note{{notify.LevelError, "Failed to remove food"}}, rec.all())
}

func TestCatalogWarm_FillsFromSnapshot(t *testing.T) {
	repo := newStubRepo()
	require.NoError(t, repo.SaveSnapshot(context.Background(), repository.KindCatalog, []model.FoodItem{food("a", "First")}))

	s := NewCatalogStore(&stubCatalogAPI{}, WithRepository(repo))
	require.NoError(t, s.Warm(context.Background()))

	items := s.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, "First", items[0].Name)
}

func TestCatalogWarm_NoSnapshot(t *testing.T) {
	s := NewCatalogStore(&stubCatalogAPI{}, WithRepository(newStubRepo()))
	assert.NoError(t, s.Warm(context.Background()))
	assert.Empty(t, s.Snapshot())
}
