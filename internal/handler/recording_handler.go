package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"meetrecord/internal/auth"
	"meetrecord/internal/domain"
	"meetrecord/internal/service"
)

type recordingOrchestrator interface {
	StartRecording(ctx context.Context, operator auth.Operator, params service.StartParams) (*domain.Recording, error)
	StopRecording(ctx context.Context, operator auth.Operator, externalMeetingID string) (*service.StopResult, error)
	GetRecordingSummary(ctx context.Context, operator auth.Operator, externalMeetingID string) ([]domain.RecordingSummaryItem, error)
}

type RecordingHandler struct {
	recordingService recordingOrchestrator
}

func NewRecordingHandler(recordingService recordingOrchestrator) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
	}
}

func (h *RecordingHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	operator, err := auth.OperatorFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var params service.StartParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	recording, err := h.recordingService.StartRecording(r.Context(), operator, params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"recordingId": recording.RecordingID})
}

func (h *RecordingHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	operator, err := auth.OperatorFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	externalMeetingID := r.URL.Query().Get("externalMeetingId")

	result, err := h.recordingService.StopRecording(r.Context(), operator, externalMeetingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *RecordingHandler) GetRecordingSummary(w http.ResponseWriter, r *http.Request) {
	operator, err := auth.OperatorFromRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	externalMeetingID := r.URL.Query().Get("externalMeetingId")

	summary, err := h.recordingService.GetRecordingSummary(r.Context(), operator, externalMeetingID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
