package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"meetrecord/internal/domain"
)

type HierarchyCacheRepository struct {
	db *sqlx.DB
}

func NewHierarchyCacheRepository(db *sqlx.DB) *HierarchyCacheRepository {
	return &HierarchyCacheRepository{db: db}
}

// Get возвращает кешированный снимок оператора или nil, если его нет.
// Проверка срока жизни остается за вызывающим сервисом.
func (r *HierarchyCacheRepository) Get(ctx context.Context, operatorID string) (*domain.OperatorCache, error) {
	query := `
        SELECT operator_id, hierarchy_group_id, hierarchy_snapshot,
               security_profile_ids, created_at, expires_at
        FROM operator_hierarchy_cache
        WHERE operator_id = $1`

	var item domain.OperatorCache
	err := r.db.GetContext(ctx, &item, query, operatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operator cache: %w", err)
	}

	return &item, nil
}

// Put перезаписывает снимок оператора.
func (r *HierarchyCacheRepository) Put(ctx context.Context, item *domain.OperatorCache) error {
	query := `
        INSERT INTO operator_hierarchy_cache (
            operator_id, hierarchy_group_id, hierarchy_snapshot,
            security_profile_ids, created_at, expires_at
        )
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (operator_id) DO UPDATE
        SET hierarchy_group_id = EXCLUDED.hierarchy_group_id,
            hierarchy_snapshot = EXCLUDED.hierarchy_snapshot,
            security_profile_ids = EXCLUDED.security_profile_ids,
            created_at = EXCLUDED.created_at,
            expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		item.OperatorID, item.HierarchyGroupID, item.HierarchySnapshot,
		item.SecurityProfileIDs, item.CreatedAt, item.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put operator cache: %w", err)
	}

	return nil
}

// PurgeExpired удаляет снимки с истекшим TTL.
func (r *HierarchyCacheRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM operator_hierarchy_cache WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired operator cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged operator cache rows: %w", err)
	}

	return rows, nil
}
