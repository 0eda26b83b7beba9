package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type hierarchyRefresher interface {
	Refresh(ctx context.Context, operatorID string) (bool, error)
}

type OperatorHandler struct {
	hierarchyService hierarchyRefresher
}

func NewOperatorHandler(hierarchyService hierarchyRefresher) *OperatorHandler {
	return &OperatorHandler{
		hierarchyService: hierarchyService,
	}
}

// RefreshCache перечитывает снимок иерархии оператора из контакт-центра.
// Если снимок еще свежий, отвечаем 202 без обновления.
func (h *OperatorHandler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	operatorID := chi.URLParam(r, "operatorId")
	if operatorID == "" {
		http.Error(w, "operatorId is required", http.StatusBadRequest)
		return
	}

	refreshed, err := h.hierarchyService.Refresh(r.Context(), operatorID)
	if err != nil {
		writeError(w, err)
		return
	}

	if !refreshed {
		writeJSON(w, http.StatusAccepted, map[string]bool{"refreshed": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"refreshed": true})
}
