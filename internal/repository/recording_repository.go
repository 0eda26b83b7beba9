package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"meetrecord/internal/domain"
)

type RecordingRepository struct {
	db *sqlx.DB
}

func NewRecordingRepository(db *sqlx.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Save сохраняет новую запись. Частичный уникальный индекс по
// (external_meeting_id) WHERE ended_at IS NULL закрывает гонку
// "прочитал-потом-записал" на уровне хранилища: вторая параллельная вставка
// незавершенной записи для той же встречи упадет с конфликтом.
func (r *RecordingRepository) Save(ctx context.Context, recording *domain.Recording) error {
	query := `
        INSERT INTO recordings (
            recording_id, external_meeting_id, owner_username, owner_email,
            operator_id, hierarchy_group_id, hierarchy_snapshot,
            s3_bucket, s3_object, task_arn, created_at, expires_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		recording.RecordingID, recording.ExternalMeetingID,
		recording.OwnerUsername, recording.OwnerEmail,
		recording.OperatorID, recording.HierarchyGroupID, recording.HierarchySnapshot,
		recording.S3Bucket, recording.S3Object, recording.TaskARN,
		recording.CreatedAt, recording.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return domain.NewConflict("Recording already in progress")
		}
		return fmt.Errorf("failed to save recording: %w", err)
	}

	return nil
}

// ListByMeeting возвращает все записи встречи, отсортированные по времени
// создания по возрастанию.
func (r *RecordingRepository) ListByMeeting(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error) {
	query := `
        SELECT recording_id, external_meeting_id, owner_username, owner_email,
               operator_id, hierarchy_group_id, hierarchy_snapshot,
               s3_bucket, s3_object, task_arn, created_at, ended_at, expires_at
        FROM recordings
        WHERE external_meeting_id = $1
        ORDER BY created_at ASC`

	var recordings []*domain.Recording
	if err := r.db.SelectContext(ctx, &recordings, query, externalMeetingID); err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}

	return recordings, nil
}

// ListInProgress возвращает незавершенные записи встречи.
func (r *RecordingRepository) ListInProgress(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error) {
	query := `
        SELECT recording_id, external_meeting_id, owner_username, owner_email,
               operator_id, hierarchy_group_id, hierarchy_snapshot,
               s3_bucket, s3_object, task_arn, created_at, ended_at, expires_at
        FROM recordings
        WHERE external_meeting_id = $1 AND ended_at IS NULL
        ORDER BY created_at ASC`

	var recordings []*domain.Recording
	if err := r.db.SelectContext(ctx, &recordings, query, externalMeetingID); err != nil {
		return nil, fmt.Errorf("failed to list in-progress recordings: %w", err)
	}

	return recordings, nil
}

// SetEndedAt помечает запись завершенной. Обновляет только если ended_at
// еще не выставлен, повторный вызов ничего не меняет.
func (r *RecordingRepository) SetEndedAt(ctx context.Context, externalMeetingID string, recordingID string, endedAt time.Time) error {
	query := `
        UPDATE recordings
        SET ended_at = $1
        WHERE external_meeting_id = $2 AND recording_id = $3 AND ended_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, endedAt, externalMeetingID, recordingID)
	if err != nil {
		return fmt.Errorf("failed to set recording ended_at: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		log.Printf("[RecordingRepository] Recording %s already ended or not found", recordingID)
	}

	return nil
}

// PurgeExpired удаляет записи с истекшим TTL.
func (r *RecordingRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired recordings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged recordings: %w", err)
	}

	return rows, nil
}
