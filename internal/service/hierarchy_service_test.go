package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetrecord/internal/domain"
	"meetrecord/internal/platform"
)

type fakeHierarchyCacheStore struct {
	items map[string]*domain.OperatorCache
	puts  int
}

func (s *fakeHierarchyCacheStore) Get(ctx context.Context, operatorID string) (*domain.OperatorCache, error) {
	return s.items[operatorID], nil
}

func (s *fakeHierarchyCacheStore) Put(ctx context.Context, item *domain.OperatorCache) error {
	if s.items == nil {
		s.items = make(map[string]*domain.OperatorCache)
	}
	s.items[item.OperatorID] = item
	s.puts++
	return nil
}

type fakeDirectory struct {
	profile *platform.OperatorProfile
	calls   int
}

func (d *fakeDirectory) DescribeOperator(ctx context.Context, operatorID string) (*platform.OperatorProfile, error) {
	d.calls++
	return d.profile, nil
}

func (d *fakeDirectory) UpdateContactAttributes(ctx context.Context, contactID string, attributes map[string]string) error {
	return nil
}

func newHierarchyFixture() (*HierarchyService, *fakeHierarchyCacheStore, *fakeDirectory) {
	store := &fakeHierarchyCacheStore{}
	dir := &fakeDirectory{profile: &platform.OperatorProfile{
		HierarchyGroupID:   "g1",
		Hierarchy:          &domain.HierarchyGroup{ID: "g1", LevelID: "3"},
		SecurityProfileIDs: []string{"sp-playback"},
	}}
	svc := NewHierarchyService(store, dir, 12*time.Hour, 5*time.Minute)
	return svc, store, dir
}

func TestResolveReadThrough(t *testing.T) {
	svc, store, dir := newHierarchyFixture()

	item, err := svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, "g1", item.HierarchyGroupID)
	assert.Equal(t, 1, dir.calls)
	assert.Equal(t, 1, store.puts)

	// Повторное разрешение отдается из кеша без похода в справочник
	_, err = svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.calls)
}

func TestResolveFreshDatabaseHit(t *testing.T) {
	svc, store, dir := newHierarchyFixture()
	store.items = map[string]*domain.OperatorCache{
		"op-1": {
			OperatorID:       "op-1",
			HierarchyGroupID: "g-db",
			CreatedAt:        time.Now(),
			ExpiresAt:        time.Now().Add(time.Hour),
		},
	}

	item, err := svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)

	assert.Equal(t, "g-db", item.HierarchyGroupID)
	assert.Zero(t, dir.calls)
}

func TestResolveExpiredDatabaseRow(t *testing.T) {
	svc, store, dir := newHierarchyFixture()
	store.items = map[string]*domain.OperatorCache{
		"op-1": {
			OperatorID:       "op-1",
			HierarchyGroupID: "g-stale",
			CreatedAt:        time.Now().Add(-24 * time.Hour),
			ExpiresAt:        time.Now().Add(-12 * time.Hour),
		},
	}

	item, err := svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)

	assert.Equal(t, "g1", item.HierarchyGroupID)
	assert.Equal(t, 1, dir.calls)
}

func TestRefreshCooldown(t *testing.T) {
	svc, store, dir := newHierarchyFixture()

	refreshed, err := svc.Refresh(context.Background(), "op-1")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 1, dir.calls)

	// Сразу за первым обновлением второе не проходит
	refreshed, err = svc.Refresh(context.Background(), "op-1")
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 1, dir.calls)

	// А после окна охлаждения проходит
	svc.now = func() time.Time { return time.Now().Add(6 * time.Minute) }
	refreshed, err = svc.Refresh(context.Background(), "op-1")
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 2, dir.calls)
	assert.Equal(t, 2, store.puts)
}

func TestInvalidateDropsHotCache(t *testing.T) {
	svc, store, dir := newHierarchyFixture()

	_, err := svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)

	svc.Invalidate("op-1")
	// Горячий кеш сброшен, но строка в базе еще свежая
	_, err = svc.Resolve(context.Background(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, dir.calls)
	assert.Equal(t, 1, store.puts)
}
