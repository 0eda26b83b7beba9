package domain

import (
	"time"
)

// Recording — одна попытка записи встречи. RecordingID одновременно служит
// ключевой частью внешнего идентификатора бота-участника на
// конференц-платформе.
type Recording struct {
	RecordingID       string          `json:"recordingId" db:"recording_id"`
	ExternalMeetingID string          `json:"externalMeetingId" db:"external_meeting_id"`
	OwnerUsername     string          `json:"ownerUsername" db:"owner_username"`
	OwnerEmail        string          `json:"ownerEmail" db:"owner_email"`
	OperatorID        string          `json:"operatorId" db:"operator_id"`
	HierarchyGroupID  string          `json:"hierarchyGroupId" db:"hierarchy_group_id"`
	HierarchySnapshot *HierarchyGroup `json:"hierarchySnapshot" db:"hierarchy_snapshot"`
	S3Bucket          string          `json:"s3Bucket" db:"s3_bucket"`
	S3Object          string          `json:"s3Object" db:"s3_object"`
	TaskARN           string          `json:"taskArn" db:"task_arn"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	EndedAt           *time.Time      `json:"endedAt,omitempty" db:"ended_at"`
	ExpiresAt         time.Time       `json:"-" db:"expires_at"`
}

// InProgress — запись идет, пока endedAt не выставлен.
func (r *Recording) InProgress() bool {
	return r.EndedAt == nil
}

// RecordingSummaryItem — элемент сводки для воспроизведения.
type RecordingSummaryItem struct {
	RecordingID  string     `json:"recordingId"`
	CreatedAt    time.Time  `json:"createdAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
	RecordingURL string     `json:"recordingURL"`
}
