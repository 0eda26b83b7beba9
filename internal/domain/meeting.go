package domain

import (
	"encoding/json"
	"time"
)

// Meeting — встреча, которой принадлежат записи. Создается внешним потоком
// создания встреч; здесь только читается. MeetingData — непрозрачный блоб
// с данными для подключения к конференц-платформе, он передается воркеру
// как есть.
type Meeting struct {
	ExternalMeetingID string          `json:"externalMeetingId" db:"external_meeting_id"`
	PlatformMeetingID string          `json:"platformMeetingId" db:"platform_meeting_id"`
	OwnerUsername     string          `json:"ownerUsername" db:"owner_username"`
	MeetingData       json.RawMessage `json:"meetingData" db:"meeting_data"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	ExpiresAt         time.Time       `json:"-" db:"expires_at"`
}
