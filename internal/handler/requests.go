package handler

import (
	"net/http"
	"time"

	"github.com/iurnickita/raktkadi/internal/auth"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/service"
)

type RequestJSONResponse struct {
	ID              int64      `json:"id"`
	Consumer        string     `json:"consumer"`
	BloodBank       string     `json:"blood_bank"`
	BloodGroup      string     `json:"blood_group"`
	UnitsRequired   int        `json:"units_required"`
	Priority        string     `json:"priority"`
	PatientName     string     `json:"patient_name"`
	PatientAge      int        `json:"patient_age"`
	PatientGender   string     `json:"patient_gender,omitempty"`
	HospitalName    string     `json:"hospital_name"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"request_date"`
	RequiredBy      string     `json:"required_by,omitempty"`
	RespondedAt     *time.Time `json:"response_date,omitempty"`
	AllocatedUnits  []string   `json:"allocated_units"`
	Notes           string     `json:"notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

func requestJSON(request model.BloodRequest) RequestJSONResponse {
	requestJSON := RequestJSONResponse{
		ID:              request.ID,
		Consumer:        request.Data.Consumer,
		BloodBank:       request.Data.Bank,
		BloodGroup:      string(request.Data.Group),
		UnitsRequired:   request.Data.UnitsRequired,
		Priority:        string(request.Data.Priority),
		PatientName:     request.Data.PatientName,
		PatientAge:      request.Data.PatientAge,
		PatientGender:   request.Data.PatientGender,
		HospitalName:    request.Data.HospitalName,
		Status:          string(request.Data.Status),
		RequestedAt:     request.Data.RequestedAt,
		AllocatedUnits:  request.Data.AllocatedUnits,
		Notes:           request.Data.Notes,
		RejectionReason: request.Data.RejectionReason,
	}
	if requestJSON.AllocatedUnits == nil {
		requestJSON.AllocatedUnits = []string{}
	}
	if !request.Data.RequiredBy.IsZero() {
		requestJSON.RequiredBy = request.Data.RequiredBy.Format(time.DateOnly)
	}
	if !request.Data.RespondedAt.IsZero() {
		respondedAt := request.Data.RespondedAt
		requestJSON.RespondedAt = &respondedAt
	}
	return requestJSON
}

type PostRequestJSONRequest struct {
	BloodBank     string `json:"blood_bank"`
	BloodGroup    string `json:"blood_group"`
	UnitsRequired int    `json:"units_required"`
	Priority      string `json:"priority"`
	PatientName   string `json:"patient_name"`
	PatientAge    int    `json:"patient_age"`
	PatientGender string `json:"patient_gender"`
	HospitalName  string `json:"hospital_name"`
	RequiredBy    string `json:"required_by"`
	Notes         string `json:"notes"`
}

func (h *handler) PostRequest(w http.ResponseWriter, r *http.Request) {
	defer h.metrics.ObserveOperation("create_request", time.Now())

	var requestJSONReq PostRequestJSONRequest
	if err := readJSON(r, &requestJSONReq); err != nil {
		h.writeError(w, r, err)
		return
	}
	group, err := model.ParseBloodGroup(requestJSONReq.BloodGroup)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var requiredBy time.Time
	if requestJSONReq.RequiredBy != "" {
		requiredBy, err = parseDate("required_by", requestJSONReq.RequiredBy)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	request, err := h.service.CreateBloodRequest(r.Context(), service.NewBloodRequest{
		Consumer:      auth.Actor(r.Context()),
		Bank:          requestJSONReq.BloodBank,
		Group:         group,
		UnitsRequired: requestJSONReq.UnitsRequired,
		Priority:      model.Priority(requestJSONReq.Priority),
		PatientName:   requestJSONReq.PatientName,
		PatientAge:    requestJSONReq.PatientAge,
		PatientGender: requestJSONReq.PatientGender,
		HospitalName:  requestJSONReq.HospitalName,
		RequiredBy:    requiredBy,
		Notes:         requestJSONReq.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestJSON(request))
}

func (h *handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := h.idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request, err := h.service.GetBloodRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestJSON(request))
}

// GetRequests lists by ?consumer= and/or ?bank=; without both it lists the caller's own requests.
func (h *handler) GetRequests(w http.ResponseWriter, r *http.Request) {
	consumer := r.URL.Query().Get("consumer")
	bank := r.URL.Query().Get("bank")
	if consumer == "" && bank == "" {
		consumer = auth.Actor(r.Context())
	}

	requests, err := h.service.ListRequests(r.Context(), consumer, bank)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(requests) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	requestsJSON := make([]RequestJSONResponse, 0, len(requests))
	for _, request := range requests {
		requestsJSON = append(requestsJSON, requestJSON(request))
	}
	writeJSON(w, http.StatusOK, requestsJSON)
}

type PostRespondJSONRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
	Notes           string `json:"notes"`
}

func (h *handler) PostRespond(w http.ResponseWriter, r *http.Request) {
	defer h.metrics.ObserveOperation("respond_request", time.Now())

	id, err := h.idParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var respondJSONReq PostRespondJSONRequest
	if err = readJSON(r, &respondJSONReq); err != nil {
		h.writeError(w, r, err)
		return
	}

	request, err := h.service.RespondToRequest(r.Context(), id,
		model.RequestStatus(respondJSONReq.Status),
		respondJSONReq.RejectionReason,
		respondJSONReq.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.IncrementRequestsResponded(string(request.Data.Status))
	h.metrics.AddUnitsAllocated(len(request.Data.AllocatedUnits))
	writeJSON(w, http.StatusOK, requestJSON(request))
}
