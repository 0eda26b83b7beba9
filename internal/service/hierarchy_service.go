package service

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"meetrecord/internal/domain"
	"meetrecord/internal/platform"
)

type hierarchyCacheStore interface {
	Get(ctx context.Context, operatorID string) (*domain.OperatorCache, error)
	Put(ctx context.Context, item *domain.OperatorCache) error
}

// HierarchyService отвечает за снимки иерархии операторов. Читает сквозь
// два слоя кеша: горячий в памяти процесса и долгий в базе, и только при
// промахе обоих идет в контакт-центр.
type HierarchyService struct {
	store         hierarchyCacheStore
	contactCenter platform.ContactCenter
	hot           *gocache.Cache

	ttl      time.Duration
	cooldown time.Duration

	// подменяется в тестах
	now func() time.Time
}

func NewHierarchyService(store hierarchyCacheStore, contactCenter platform.ContactCenter, ttl, cooldown time.Duration) *HierarchyService {
	return &HierarchyService{
		store:         store,
		contactCenter: contactCenter,
		hot:           gocache.New(5*time.Minute, 10*time.Minute),
		ttl:           ttl,
		cooldown:      cooldown,
		now:           time.Now,
	}
}

// Resolve возвращает снимок оператора, при необходимости наполняя кеши.
func (s *HierarchyService) Resolve(ctx context.Context, operatorID string) (*domain.OperatorCache, error) {
	if cached, ok := s.hot.Get(operatorID); ok {
		return cached.(*domain.OperatorCache), nil
	}

	item, err := s.store.Get(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	if item != nil && item.ExpiresAt.After(s.now()) {
		s.hot.Set(operatorID, item, gocache.DefaultExpiration)
		return item, nil
	}

	return s.fetch(ctx, operatorID)
}

// Refresh принудительно перечитывает снимок из контакт-центра. Чаще, чем
// раз за окно охлаждения, не обновляет и возвращает false — защита от
// того, чтобы кнопкой обновления не заддосили справочник.
func (s *HierarchyService) Refresh(ctx context.Context, operatorID string) (bool, error) {
	item, err := s.store.Get(ctx, operatorID)
	if err != nil {
		return false, err
	}
	if item != nil && s.now().Sub(item.CreatedAt) < s.cooldown {
		log.Printf("[Hierarchy] Refresh for operator %s throttled", operatorID)
		return false, nil
	}

	if _, err := s.fetch(ctx, operatorID); err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate сбрасывает горячий кеш оператора.
func (s *HierarchyService) Invalidate(operatorID string) {
	s.hot.Delete(operatorID)
}

func (s *HierarchyService) fetch(ctx context.Context, operatorID string) (*domain.OperatorCache, error) {
	profile, err := s.contactCenter.DescribeOperator(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve operator hierarchy: %w", err)
	}

	now := s.now()
	item := &domain.OperatorCache{
		OperatorID:         operatorID,
		HierarchyGroupID:   profile.HierarchyGroupID,
		HierarchySnapshot:  profile.Hierarchy,
		SecurityProfileIDs: profile.SecurityProfileIDs,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.ttl),
	}

	if err := s.store.Put(ctx, item); err != nil {
		return nil, err
	}
	s.hot.Set(operatorID, item, gocache.DefaultExpiration)

	log.Printf("[Hierarchy] Cached snapshot for operator %s (group %q)", operatorID, item.HierarchyGroupID)
	return item, nil
}
