package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetrecord/internal/auth"
	"meetrecord/internal/config"
	"meetrecord/internal/domain"
	"meetrecord/internal/platform"
)

type fakeRecordingStore struct {
	recordings []*domain.Recording
	saveErr    error
}

func (s *fakeRecordingStore) Save(ctx context.Context, recording *domain.Recording) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, rec := range s.recordings {
		if rec.ExternalMeetingID == recording.ExternalMeetingID && rec.InProgress() {
			return domain.NewConflict("Recording already in progress")
		}
	}
	s.recordings = append(s.recordings, recording)
	return nil
}

func (s *fakeRecordingStore) ListByMeeting(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error) {
	var out []*domain.Recording
	for _, rec := range s.recordings {
		if rec.ExternalMeetingID == externalMeetingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeRecordingStore) ListInProgress(ctx context.Context, externalMeetingID string) ([]*domain.Recording, error) {
	var out []*domain.Recording
	for _, rec := range s.recordings {
		if rec.ExternalMeetingID == externalMeetingID && rec.InProgress() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *fakeRecordingStore) SetEndedAt(ctx context.Context, externalMeetingID string, recordingID string, endedAt time.Time) error {
	for _, rec := range s.recordings {
		if rec.ExternalMeetingID == externalMeetingID && rec.RecordingID == recordingID && rec.EndedAt == nil {
			rec.EndedAt = &endedAt
		}
	}
	return nil
}

type fakeMeetingStore struct {
	meetings map[string]*domain.Meeting
}

func (s *fakeMeetingStore) GetByExternalID(ctx context.Context, externalMeetingID string) (*domain.Meeting, error) {
	return s.meetings[externalMeetingID], nil
}

type fakeHierarchyResolver struct {
	item *domain.OperatorCache
	err  error
}

func (r *fakeHierarchyResolver) Resolve(ctx context.Context, operatorID string) (*domain.OperatorCache, error) {
	return r.item, r.err
}

type fakeScheduler struct {
	launchARN  string
	launchErr  error
	launchSpec LaunchSpec
	launched   int

	stopOK  map[string]bool
	stopErr map[string]error
	stopped []string
}

func (s *fakeScheduler) Launch(ctx context.Context, spec LaunchSpec) (string, error) {
	s.launched++
	s.launchSpec = spec
	if s.launchErr != nil {
		return "", s.launchErr
	}
	return s.launchARN, nil
}

func (s *fakeScheduler) Stop(ctx context.Context, taskARN string, reason string) (bool, error) {
	s.stopped = append(s.stopped, taskARN)
	if err := s.stopErr[taskARN]; err != nil {
		return false, err
	}
	return s.stopOK[taskARN], nil
}

type fakeSigner struct{}

func (fakeSigner) PresignGetObject(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

type fakeConferencing struct {
	created   []string
	deleted   []string
	createErr error
}

func (c *fakeConferencing) CreateAttendee(ctx context.Context, platformMeetingID, externalUserID string) (*platform.Attendee, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created = append(c.created, externalUserID)
	return &platform.Attendee{AttendeeID: "att-" + externalUserID, ExternalUserID: externalUserID, JoinToken: "token"}, nil
}

func (c *fakeConferencing) DeleteAttendeeByExternalID(ctx context.Context, platformMeetingID, externalUserID string) error {
	c.deleted = append(c.deleted, externalUserID)
	return nil
}

type fakeContactCenter struct {
	updatedContacts map[string]map[string]string
}

func (c *fakeContactCenter) DescribeOperator(ctx context.Context, operatorID string) (*platform.OperatorProfile, error) {
	return nil, errors.New("not used")
}

func (c *fakeContactCenter) UpdateContactAttributes(ctx context.Context, contactID string, attributes map[string]string) error {
	if c.updatedContacts == nil {
		c.updatedContacts = make(map[string]map[string]string)
	}
	c.updatedContacts[contactID] = attributes
	return nil
}

type recordingFixture struct {
	svc           *RecordingService
	store         *fakeRecordingStore
	meetings      *fakeMeetingStore
	hierarchy     *fakeHierarchyResolver
	scheduler     *fakeScheduler
	conferencing  *fakeConferencing
	contactCenter *fakeContactCenter
}

func operatorCache(groupID string) *domain.OperatorCache {
	var snap *domain.HierarchyGroup
	if groupID != "" {
		snap = &domain.HierarchyGroup{ID: groupID, Name: "group", LevelID: "3"}
	}
	return &domain.OperatorCache{
		OperatorID:         "op-1",
		HierarchyGroupID:   groupID,
		HierarchySnapshot:  snap,
		SecurityProfileIDs: []string{"sp-playback"},
	}
}

func newFixture() *recordingFixture {
	f := &recordingFixture{
		store: &fakeRecordingStore{},
		meetings: &fakeMeetingStore{meetings: map[string]*domain.Meeting{
			"M1": {
				ExternalMeetingID: "M1",
				PlatformMeetingID: "chime-m1",
				OwnerUsername:     "alice",
				MeetingData:       []byte(`{"mediaRegion":"us-east-1"}`),
			},
		}},
		hierarchy:     &fakeHierarchyResolver{item: operatorCache("g1")},
		scheduler:     &fakeScheduler{launchARN: "arn:task/1", stopOK: map[string]bool{}, stopErr: map[string]error{}},
		conferencing:  &fakeConferencing{},
		contactCenter: &fakeContactCenter{},
	}

	cfg := &config.RecordingConfig{
		Bucket:                    "rec-bucket",
		TTLDays:                   45,
		PresignExpiresMinutes:     15,
		AttendeeName:              "recording-bot",
		PlaybackSecurityProfileID: "sp-playback",
	}
	features := config.FeatureFlags{RecordingStackDeployed: true, StartStopEnabled: true}

	f.svc = NewRecordingService(
		f.store, f.meetings, f.hierarchy, f.scheduler, fakeSigner{},
		f.conferencing, f.contactCenter, cfg, features,
	)
	return f
}

func alice() auth.Operator {
	return auth.Operator{ID: "op-1", Username: "alice", Email: "alice@example.com"}
}

func TestStartRecording(t *testing.T) {
	f := newFixture()

	rec, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.RecordingID)
	assert.Equal(t, "arn:task/1", rec.TaskARN)
	assert.Equal(t, "g1", rec.HierarchyGroupID)
	assert.True(t, strings.HasPrefix(rec.S3Object, "RECORDINGS/"))
	assert.True(t, strings.HasSuffix(rec.S3Object, "_UTC.mp4"))
	assert.Contains(t, rec.S3Object, "M1_"+rec.RecordingID)

	require.Len(t, f.store.recordings, 1)
	assert.Equal(t, []string{rec.RecordingID + "#recording-bot"}, f.conferencing.created)
	assert.Equal(t, rec.RecordingID, f.scheduler.launchSpec.BotID)
	assert.NotEmpty(t, f.scheduler.launchSpec.MeetingData)
	assert.NotEmpty(t, f.scheduler.launchSpec.AttendeeData)
}

func TestStartRecordingObjectKeyLayout(t *testing.T) {
	f := newFixture()
	f.svc.now = func() time.Time {
		return time.Date(2026, 8, 31, 14, 5, 6, 0, time.UTC)
	}

	rec, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	require.NoError(t, err)

	want := "RECORDINGS/2026/08/31/14/M1_" + rec.RecordingID + "_20260831T14:05:06_UTC.mp4"
	assert.Equal(t, want, rec.S3Object)
}

func TestStartRecordingConflict(t *testing.T) {
	f := newFixture()

	_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	require.NoError(t, err)

	_, err = f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Code)
	assert.Len(t, f.store.recordings, 1)
}

func TestStartRecordingMeetingNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "missing"})

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
}

func TestStartRecordingNotOwner(t *testing.T) {
	f := newFixture()
	mallory := auth.Operator{ID: "op-2", Username: "mallory"}

	_, err := f.svc.StartRecording(context.Background(), mallory, StartParams{ExternalMeetingID: "M1"})

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Zero(t, f.scheduler.launched)
}

func TestStartRecordingLaunchFailureLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.scheduler.launchErr = errors.New("two tasks instead of one")

	_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	require.Error(t, err)

	// Журнал нетронут, осиротевший бот убран, повторная попытка возможна
	assert.Empty(t, f.store.recordings)
	assert.Len(t, f.conferencing.deleted, 1)

	f.scheduler.launchErr = nil
	_, err = f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})
	assert.NoError(t, err)
}

func TestStartRecordingHierarchyUnavailable(t *testing.T) {
	f := newFixture()
	f.hierarchy.err = errors.New("directory down")

	_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})

	require.Error(t, err)
	assert.Empty(t, f.store.recordings)
}

func TestStartRecordingDisabled(t *testing.T) {
	tests := []struct {
		name     string
		features config.FeatureFlags
	}{
		{"stack not deployed", config.FeatureFlags{StartStopEnabled: true, AutoStartEnabled: true}},
		{"no start path enabled", config.FeatureFlags{RecordingStackDeployed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.svc.features = tt.features

			_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, 403, apiErr.Code)
			assert.Zero(t, f.scheduler.launched)
		})
	}
}

func TestStartRecordingAutoStartOnly(t *testing.T) {
	f := newFixture()
	// Развертывание только с автозапуском: ручная кнопка скрыта, но запуск
	// от имени автозапуска проходить обязан
	f.svc.features = config.FeatureFlags{RecordingStackDeployed: true, AutoStartEnabled: true}

	_, err := f.svc.StartRecording(context.Background(), alice(), StartParams{ExternalMeetingID: "M1"})

	require.NoError(t, err)
	assert.Len(t, f.store.recordings, 1)
}

func TestStopRecordingIgnoresStartStopFlag(t *testing.T) {
	f := newFixture()
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", TaskARN: "arn:1"},
	}
	f.scheduler.stopOK["arn:1"] = true
	// Флаг выключили посреди записи: остановка все равно должна работать,
	// иначе контейнер доживет до конца встречи
	f.svc.features = config.FeatureFlags{RecordingStackDeployed: true}

	result, err := f.svc.StopRecording(context.Background(), alice(), "M1")

	require.NoError(t, err)
	assert.Equal(t, 1, result.StoppedCount)
	assert.NotNil(t, f.store.recordings[0].EndedAt)
}

func TestStartRecordingUpdatesContactOnce(t *testing.T) {
	f := newFixture()
	params := StartParams{ExternalMeetingID: "M1", ContactID: "c-1", PlaybackCallbackURL: "https://playback.example/M1"}

	_, err := f.svc.StartRecording(context.Background(), alice(), params)
	require.NoError(t, err)
	assert.Equal(t, "https://playback.example/M1", f.contactCenter.updatedContacts["c-1"]["recordingPlaybackURL"])

	// Завершаем первую запись и стартуем вторую: контакт уже помечен
	ended := time.Now()
	f.store.recordings[0].EndedAt = &ended
	f.contactCenter.updatedContacts = nil

	_, err = f.svc.StartRecording(context.Background(), alice(), params)
	require.NoError(t, err)
	assert.Empty(t, f.contactCenter.updatedContacts)
}

func TestStopRecordingCounts(t *testing.T) {
	f := newFixture()
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", TaskARN: "arn:1"},
		{RecordingID: "r2", ExternalMeetingID: "M1", TaskARN: "arn:2"},
	}
	f.scheduler.stopOK["arn:1"] = true
	f.scheduler.stopErr["arn:2"] = errors.New("substrate timeout")

	result, err := f.svc.StopRecording(context.Background(), alice(), "M1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.StoppedCount)
	assert.Equal(t, 1, result.NotStoppedCount)

	// Остановленная запись закрыта и ее бот удален; неостановленная
	// осталась в работе для повторной попытки
	assert.NotNil(t, f.store.recordings[0].EndedAt)
	assert.Nil(t, f.store.recordings[1].EndedAt)
	assert.Equal(t, []string{"r1#recording-bot"}, f.conferencing.deleted)
}

func TestStopRecordingNotOwner(t *testing.T) {
	f := newFixture()
	mallory := auth.Operator{ID: "op-2", Username: "mallory"}

	_, err := f.svc.StopRecording(context.Background(), mallory, "M1")

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
}

func TestStopOnMeetingEndedKeepsAttendees(t *testing.T) {
	f := newFixture()
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", TaskARN: "arn:1"},
	}
	f.scheduler.stopOK["arn:1"] = true

	result, err := f.svc.StopRecordingOnMeetingEnded(context.Background(), "M1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.StoppedCount)
	assert.NotNil(t, f.store.recordings[0].EndedAt)
	// Встреча сама разваливается, участника никто не трогает
	assert.Empty(t, f.conferencing.deleted)
}

func TestGetRecordingSummary(t *testing.T) {
	f := newFixture()
	ended := time.Now()
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", HierarchyGroupID: "g1", S3Object: "RECORDINGS/a.mp4", CreatedAt: time.Now().Add(-time.Hour), EndedAt: &ended},
		{RecordingID: "r2", ExternalMeetingID: "M1", HierarchyGroupID: "g-foreign", S3Object: "RECORDINGS/b.mp4", CreatedAt: time.Now()},
	}

	items, err := f.svc.GetRecordingSummary(context.Background(), alice(), "M1")
	require.NoError(t, err)

	// Чужая запись отфильтрована, своя подписана
	require.Len(t, items, 1)
	assert.Equal(t, "r1", items[0].RecordingID)
	assert.Equal(t, "https://signed.example/RECORDINGS/a.mp4", items[0].RecordingURL)
	assert.NotNil(t, items[0].EndedAt)
}

func TestGetRecordingSummarySecurityProfileGate(t *testing.T) {
	f := newFixture()
	f.hierarchy.item.SecurityProfileIDs = []string{"sp-other"}
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", HierarchyGroupID: "g1"},
	}

	_, err := f.svc.GetRecordingSummary(context.Background(), alice(), "M1")

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
}

func TestGetRecordingSummaryNoRecordings(t *testing.T) {
	f := newFixture()

	_, err := f.svc.GetRecordingSummary(context.Background(), alice(), "M1")

	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
}

func TestGetRecordingSummaryAllForeign(t *testing.T) {
	f := newFixture()
	f.store.recordings = []*domain.Recording{
		{RecordingID: "r1", ExternalMeetingID: "M1", HierarchyGroupID: "g-foreign"},
	}

	_, err := f.svc.GetRecordingSummary(context.Background(), alice(), "M1")

	// Записи есть, но все чужие: отказ, а не пустой список
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
}
