package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"meetrecord/internal/auth"
	"meetrecord/internal/config"
	"meetrecord/internal/domain"
	"meetrecord/internal/platform"
)

type recordingStore interface {
	Save(ctx context.Context, recording *domain.Recording) error
	ListByMeeting(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error)
	ListInProgress(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error)
	SetEndedAt(ctx context.Context, externalMeetingID string, recordingID string, endedAt time.Time) error
}

type meetingStore interface {
	GetByExternalID(ctx context.Context, externalMeetingID string) (*domain.Meeting, error)
}

type hierarchyResolver interface {
	Resolve(ctx context.Context, operatorID string) (*domain.OperatorCache, error)
}

type workerScheduler interface {
	Launch(ctx context.Context, spec LaunchSpec) (string, error)
	Stop(ctx context.Context, taskARN string, reason string) (bool, error)
}

type urlSigner interface {
	PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error)
}

// StopResult — итог остановки записей встречи. Счетчики вместо жесткого
// успех/провал: часть контейнеров могла остановиться, часть нет, и клиент
// должен видеть оба числа.
type StopResult struct {
	StoppedCount    int `json:"stoppedCount"`
	NotStoppedCount int `json:"notStoppedCount"`
}

// StartParams — параметры запуска записи. ContactID и PlaybackCallbackURL
// опциональны: при первой записи встречи ссылка на воспроизведение
// дописывается в атрибуты контакта.
type StartParams struct {
	ExternalMeetingID   string `json:"externalMeetingId"`
	ContactID           string `json:"contactId,omitempty"`
	PlaybackCallbackURL string `json:"playbackCallbackURL,omitempty"`
}

// RecordingService — оркестратор записей: проверяет права, создает
// бота-участника, запускает контейнер и ведет журнал записей.
type RecordingService struct {
	recordings    recordingStore
	meetings      meetingStore
	hierarchy     hierarchyResolver
	scheduler     workerScheduler
	signer        urlSigner
	conferencing  platform.Conferencing
	contactCenter platform.ContactCenter
	cfg           *config.RecordingConfig
	features      config.FeatureFlags

	// подменяется в тестах
	now func() time.Time
}

func NewRecordingService(
	recordings recordingStore,
	meetings meetingStore,
	hierarchy hierarchyResolver,
	scheduler workerScheduler,
	signer urlSigner,
	conferencing platform.Conferencing,
	contactCenter platform.ContactCenter,
	cfg *config.RecordingConfig,
	features config.FeatureFlags,
) *RecordingService {
	return &RecordingService{
		recordings:    recordings,
		meetings:      meetings,
		hierarchy:     hierarchy,
		scheduler:     scheduler,
		signer:        signer,
		conferencing:  conferencing,
		contactCenter: contactCenter,
		cfg:           cfg,
		features:      features,
		now:           time.Now,
	}
}

// StartRecording запускает запись встречи. Запись в журнале появляется
// только после подтвержденного запуска контейнера: при любом сбое по
// дороге журнал остается нетронутым и клиент может повторить попытку.
func (s *RecordingService) StartRecording(ctx context.Context, operator auth.Operator, params StartParams) (*domain.Recording, error) {
	if err := s.checkStartEnabled(); err != nil {
		return nil, err
	}
	externalMeetingID := params.ExternalMeetingID
	if externalMeetingID == "" {
		return nil, domain.NewBadRequest("externalMeetingId is required")
	}

	meeting, err := s.meetings.GetByExternalID(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, domain.NewNotFound("Meeting not found")
	}
	if meeting.OwnerUsername != operator.Username {
		return nil, domain.NewForbidden("Only the meeting owner can start a recording")
	}

	existing, err := s.recordings.ListByMeeting(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}
	for _, rec := range existing {
		if rec.InProgress() {
			return nil, domain.NewConflict("Recording already in progress")
		}
	}
	firstRecording := len(existing) == 0

	// Снимок иерархии берется на момент старта записи
	cached, err := s.hierarchy.Resolve(ctx, operator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hierarchy for operator %s: %w", operator.ID, err)
	}
	hierarchyGroupID := cached.HierarchyGroupID
	snapshot := cached.HierarchySnapshot

	recordingID := uuid.New().String()
	attendee, err := s.conferencing.CreateAttendee(ctx, meeting.PlatformMeetingID, s.botExternalUserID(recordingID))
	if err != nil {
		return nil, fmt.Errorf("failed to create recording attendee: %w", err)
	}

	attendeeData, err := json.Marshal(attendee)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attendee data: %w", err)
	}

	now := s.now().UTC()
	objectKey := recordingObjectKey(externalMeetingID, recordingID, now)

	taskARN, err := s.scheduler.Launch(ctx, LaunchSpec{
		BotID:        recordingID,
		MeetingData:  meeting.MeetingData,
		AttendeeData: attendeeData,
		ObjectKey:    objectKey,
	})
	if err != nil {
		// Бот уже в встрече, убираем его, раз контейнер не поднялся
		if cleanupErr := s.conferencing.DeleteAttendeeByExternalID(ctx, meeting.PlatformMeetingID, s.botExternalUserID(recordingID)); cleanupErr != nil {
			log.Printf("[Recording] Failed to remove orphaned attendee %s: %v", recordingID, cleanupErr)
		}
		return nil, fmt.Errorf("failed to launch recording worker: %w", err)
	}

	// Ссылка на воспроизведение дописывается в контакт один раз, при
	// первой записи встречи. Неудача запись не отменяет.
	if firstRecording && params.ContactID != "" && params.PlaybackCallbackURL != "" {
		attrs := map[string]string{"recordingPlaybackURL": params.PlaybackCallbackURL}
		if err := s.contactCenter.UpdateContactAttributes(ctx, params.ContactID, attrs); err != nil {
			log.Printf("[Recording] Failed to update contact %s attributes: %v", params.ContactID, err)
		}
	}

	recording := &domain.Recording{
		RecordingID:       recordingID,
		ExternalMeetingID: externalMeetingID,
		OwnerUsername:     meeting.OwnerUsername,
		OwnerEmail:        operator.Email,
		OperatorID:        operator.ID,
		HierarchyGroupID:  hierarchyGroupID,
		HierarchySnapshot: snapshot,
		S3Bucket:          s.cfg.Bucket,
		S3Object:          objectKey,
		TaskARN:           taskARN,
		CreatedAt:         now,
		ExpiresAt:         now.Add(time.Duration(s.cfg.TTLDays) * 24 * time.Hour),
	}

	if err := s.recordings.Save(ctx, recording); err != nil {
		return nil, err
	}

	log.Printf("[Recording] Started recording %s for meeting %s", recordingID, externalMeetingID)
	return recording, nil
}

// StopRecording останавливает все незавершенные записи встречи по просьбе
// владельца. Для каждой остановленной записи удаляется и ее бот-участник.
func (s *RecordingService) StopRecording(ctx context.Context, operator auth.Operator, externalMeetingID string) (*StopResult, error) {
	if externalMeetingID == "" {
		return nil, domain.NewBadRequest("externalMeetingId is required")
	}

	meeting, err := s.meetings.GetByExternalID(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, domain.NewNotFound("Meeting not found")
	}
	if meeting.OwnerUsername != operator.Username {
		return nil, domain.NewForbidden("Only the meeting owner can stop a recording")
	}

	return s.stopAll(ctx, meeting, externalMeetingID, true, "Stopped by meeting owner")
}

// StopRecordingOnMeetingEnded останавливает записи завершившейся встречи.
// Боты-участники не трогаются: встречи больше нет, чистить некого.
func (s *RecordingService) StopRecordingOnMeetingEnded(ctx context.Context, externalMeetingID string) (*StopResult, error) {
	if externalMeetingID == "" {
		return nil, domain.NewBadRequest("externalMeetingId is required")
	}

	meeting, err := s.meetings.GetByExternalID(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, domain.NewNotFound("Meeting not found")
	}

	return s.stopAll(ctx, meeting, externalMeetingID, false, "Meeting ended")
}

func (s *RecordingService) stopAll(ctx context.Context, meeting *domain.Meeting, externalMeetingID string, removeAttendee bool, reason string) (*StopResult, error) {
	inProgress, err := s.recordings.ListInProgress(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}

	result := &StopResult{}
	for _, rec := range inProgress {
		stopped, err := s.scheduler.Stop(ctx, rec.TaskARN, reason)
		if err != nil {
			log.Printf("[Recording] Failed to stop task for recording %s: %v", rec.RecordingID, err)
		}
		if !stopped {
			result.NotStoppedCount++
			continue
		}

		if err := s.recordings.SetEndedAt(ctx, externalMeetingID, rec.RecordingID, s.now().UTC()); err != nil {
			log.Printf("[Recording] Failed to mark recording %s ended: %v", rec.RecordingID, err)
		}

		if removeAttendee {
			if err := s.conferencing.DeleteAttendeeByExternalID(ctx, meeting.PlatformMeetingID, s.botExternalUserID(rec.RecordingID)); err != nil {
				log.Printf("[Recording] Failed to remove attendee for recording %s: %v", rec.RecordingID, err)
			}
		}

		result.StoppedCount++
	}

	log.Printf("[Recording] Stop for meeting %s: %d stopped, %d not stopped",
		externalMeetingID, result.StoppedCount, result.NotStoppedCount)
	return result, nil
}

// GetRecordingSummary возвращает записи встречи, видимые запрашивающему
// оператору, с подписанными ссылками на воспроизведение.
func (s *RecordingService) GetRecordingSummary(ctx context.Context, operator auth.Operator, externalMeetingID string) ([]domain.RecordingSummaryItem, error) {
	if externalMeetingID == "" {
		return nil, domain.NewBadRequest("externalMeetingId is required")
	}

	cached, err := s.hierarchy.Resolve(ctx, operator.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve operator hierarchy: %w", err)
	}

	if s.cfg.PlaybackSecurityProfileID != "" && !cached.HasSecurityProfile(s.cfg.PlaybackSecurityProfileID) {
		return nil, domain.NewForbidden("Operator is not allowed to play back recordings")
	}

	recordings, err := s.recordings.ListByMeeting(ctx, externalMeetingID)
	if err != nil {
		return nil, err
	}
	if len(recordings) == 0 {
		return nil, domain.NewNotFound("No recordings found for this meeting")
	}

	var visible []*domain.Recording
	for _, rec := range recordings {
		if domain.InHierarchy(rec.HierarchyGroupID, rec.HierarchySnapshot, cached.HierarchyGroupID, cached.HierarchySnapshot) {
			visible = append(visible, rec)
		}
	}
	// Записи есть, но все чужие — это отказ в доступе, а не пустой список
	if len(visible) == 0 {
		return nil, domain.NewForbidden("Operator has no access to recordings of this meeting")
	}

	// Ссылки подписываются параллельно, порядок по created_at сохраняется
	items := make([]domain.RecordingSummaryItem, len(visible))
	g, gctx := errgroup.WithContext(ctx)
	expires := time.Duration(s.cfg.PresignExpiresMinutes) * time.Minute
	for i, rec := range visible {
		i, rec := i, rec
		g.Go(func() error {
			url, err := s.signer.PresignGetObject(gctx, rec.S3Object, expires)
			if err != nil {
				return err
			}
			items[i] = domain.RecordingSummaryItem{
				RecordingID:  rec.RecordingID,
				CreatedAt:    rec.CreatedAt,
				EndedAt:      rec.EndedAt,
				RecordingURL: url,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to presign recording URLs: %w", err)
	}

	return items, nil
}

// checkStartEnabled охраняет только запуск. Автозапуск не зависит от
// видимости ручной кнопки, поэтому достаточно любого из двух флагов.
// Остановка не охраняется вовсе: выключение флага посреди записи не должно
// оставить контейнер работать до конца встречи.
func (s *RecordingService) checkStartEnabled() error {
	if !s.features.RecordingStackDeployed {
		return domain.NewForbidden("Recording is not enabled")
	}
	if !s.features.StartStopEnabled && !s.features.AutoStartEnabled {
		return domain.NewForbidden("Recording is not enabled")
	}
	return nil
}

// botExternalUserID строит внешний идентификатор бота-участника:
// идентификатор записи плюс отображаемое имя через решетку. Клиенты
// показывают часть после решетки в ростере, а часть до нее остается
// стабильным ключом для поиска и удаления участника.
func (s *RecordingService) botExternalUserID(recordingID string) string {
	return recordingID + "#" + s.cfg.AttendeeName
}

// recordingObjectKey строит ключ объекта записи с почасовым партициями
// по времени UTC, чтобы листинг бакета оставался управляемым.
func recordingObjectKey(externalMeetingID, recordingID string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("RECORDINGS/%04d/%02d/%02d/%02d/%s_%s_%s_UTC.mp4",
		now.Year(), int(now.Month()), now.Day(), now.Hour(),
		externalMeetingID, recordingID, now.Format("20060102T15:04:05"))
}
