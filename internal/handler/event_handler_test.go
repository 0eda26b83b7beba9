package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"meetrecord/internal/service"
)

type fakeStopper struct {
	result  *service.StopResult
	err     error
	stopped []string
}

func (s *fakeStopper) StopRecordingOnMeetingEnded(ctx context.Context, externalMeetingID string) (*service.StopResult, error) {
	s.stopped = append(s.stopped, externalMeetingID)
	return s.result, s.err
}

type fakePreWarmer struct {
	err      error
	prewarms []string
}

func (p *fakePreWarmer) PreWarm(ctx context.Context, instanceID string) error {
	p.prewarms = append(p.prewarms, instanceID)
	return p.err
}

func TestMeetingEnded(t *testing.T) {
	stopper := &fakeStopper{result: &service.StopResult{StoppedCount: 1}}
	h := NewEventHandler(stopper, &fakePreWarmer{}, "rec-asg")

	body := `{"detail":{"externalMeetingId":"M1"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/meeting-ended", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.MeetingEnded(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"M1"}, stopper.stopped)
	assert.JSONEq(t, `{"stoppedCount":1,"notStoppedCount":0}`, w.Body.String())
}

func TestFleetScaleOut(t *testing.T) {
	warmer := &fakePreWarmer{}
	h := NewEventHandler(&fakeStopper{}, warmer, "rec-asg")

	body := `{"detail":{"AutoScalingGroupName":"rec-asg","EC2InstanceId":"i-0abc"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/fleet-scale-out", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.FleetScaleOut(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"i-0abc"}, warmer.prewarms)
}

func TestFleetScaleOutIgnoresForeignGroup(t *testing.T) {
	warmer := &fakePreWarmer{}
	h := NewEventHandler(&fakeStopper{}, warmer, "rec-asg")

	body := `{"detail":{"AutoScalingGroupName":"other-asg","EC2InstanceId":"i-0abc"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/fleet-scale-out", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.FleetScaleOut(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, warmer.prewarms)
}

func TestFleetScaleOutSwallowsPreWarmFailure(t *testing.T) {
	warmer := &fakePreWarmer{err: errors.New("instance never registered")}
	h := NewEventHandler(&fakeStopper{}, warmer, "rec-asg")

	body := `{"detail":{"AutoScalingGroupName":"rec-asg","EC2InstanceId":"i-0abc"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/events/fleet-scale-out", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.FleetScaleOut(w, req)

	// Одностороннее уведомление: автоскейлер не должен видеть 5xx
	assert.Equal(t, http.StatusNoContent, w.Code)
}
