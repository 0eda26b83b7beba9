package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"meetrecord/internal/service"
)

type meetingEndedStopper interface {
	StopRecordingOnMeetingEnded(ctx context.Context, externalMeetingID string) (*service.StopResult, error)
}

type fleetPreWarmer interface {
	PreWarm(ctx context.Context, instanceID string) error
}

// EventHandler принимает события инфраструктуры: завершение встречи и
// масштабирование парка хостов записи. События приходят от шины в
// конверте с полем detail.
type EventHandler struct {
	recordingService meetingEndedStopper
	scheduler        fleetPreWarmer
	autoScalingGroup string
}

func NewEventHandler(recordingService meetingEndedStopper, scheduler fleetPreWarmer, autoScalingGroup string) *EventHandler {
	return &EventHandler{
		recordingService: recordingService,
		scheduler:        scheduler,
		autoScalingGroup: autoScalingGroup,
	}
}

func (h *EventHandler) MeetingEnded(w http.ResponseWriter, r *http.Request) {
	var event struct {
		Detail struct {
			ExternalMeetingID string `json:"externalMeetingId"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.recordingService.StopRecordingOnMeetingEnded(r.Context(), event.Detail.ExternalMeetingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// FleetScaleOut обрабатывает запуск нового хоста в группе автоскейлинга.
// События чужих групп игнорируются молча: шина шлет все подряд.
func (h *EventHandler) FleetScaleOut(w http.ResponseWriter, r *http.Request) {
	var event struct {
		Detail struct {
			AutoScalingGroupName string `json:"AutoScalingGroupName"`
			EC2InstanceID        string `json:"EC2InstanceId"`
		} `json:"detail"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if event.Detail.AutoScalingGroupName != h.autoScalingGroup {
		log.Printf("[Event] Ignoring scale-out for foreign group %q", event.Detail.AutoScalingGroupName)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if event.Detail.EC2InstanceID == "" {
		http.Error(w, "EC2InstanceId is required", http.StatusBadRequest)
		return
	}

	// Уведомление одностороннее: неудачный прогрев не повод отвечать
	// ошибкой автоскейлеру, который ответ все равно не читает
	if err := h.scheduler.PreWarm(r.Context(), event.Detail.EC2InstanceID); err != nil {
		log.Printf("[Event] Pre-warm for instance %s failed: %v", event.Detail.EC2InstanceID, err)
	}

	w.WriteHeader(http.StatusNoContent)
}
