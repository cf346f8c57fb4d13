package handler

import (
	"net/http"
	"time"

	"github.com/iurnickita/raktkadi/internal/model"
)

type AlertJSONResponse struct {
	ID          int64     `json:"id"`
	BloodBank   string    `json:"blood_bank"`
	Type        string    `json:"alert_type"`
	BloodGroup  string    `json:"blood_group"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func alertsJSON(alerts []model.InventoryAlert) []AlertJSONResponse {
	alertsJSON := make([]AlertJSONResponse, 0, len(alerts))
	for _, alert := range alerts {
		alertsJSON = append(alertsJSON, AlertJSONResponse{
			ID:          alert.ID,
			BloodBank:   alert.Data.Bank,
			Type:        string(alert.Data.Type),
			BloodGroup:  string(alert.Data.Group),
			Description: alert.Data.Description,
			CreatedAt:   alert.Data.CreatedAt,
		})
	}
	return alertsJSON
}

func (h *handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.ListAlerts(r.Context(), r.URL.Query().Get("bank"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alertsJSON(alerts))
}

func (h *handler) PostResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := h.idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err = h.service.ResolveAlert(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
