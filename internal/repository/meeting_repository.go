package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"meetrecord/internal/domain"
)

type MeetingRepository struct {
	db *sqlx.DB
}

func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// GetByExternalID возвращает встречу или nil, если она не найдена.
func (r *MeetingRepository) GetByExternalID(ctx context.Context, externalMeetingID string) (*domain.Meeting, error) {
	query := `
        SELECT external_meeting_id, platform_meeting_id, owner_username,
               meeting_data, created_at, expires_at
        FROM meetings
        WHERE external_meeting_id = $1`

	var meeting domain.Meeting
	err := r.db.GetContext(ctx, &meeting, query, externalMeetingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	return &meeting, nil
}

// Save сохраняет встречу. Вызывается внешним потоком создания встреч,
// здесь нужен для сидинга в тестах и при локальном запуске.
func (r *MeetingRepository) Save(ctx context.Context, meeting *domain.Meeting) error {
	query := `
        INSERT INTO meetings (
            external_meeting_id, platform_meeting_id, owner_username,
            meeting_data, created_at, expires_at
        )
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (external_meeting_id) DO UPDATE
        SET platform_meeting_id = EXCLUDED.platform_meeting_id,
            owner_username = EXCLUDED.owner_username,
            meeting_data = EXCLUDED.meeting_data,
            expires_at = EXCLUDED.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		meeting.ExternalMeetingID, meeting.PlatformMeetingID, meeting.OwnerUsername,
		string(meeting.MeetingData), meeting.CreatedAt, meeting.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save meeting: %w", err)
	}

	return nil
}

// PurgeExpired удаляет встречи с истекшим TTL.
func (r *MeetingRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM meetings WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired meetings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged meetings: %w", err)
	}

	return rows, nil
}
