package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iurnickita/raktkadi/internal/auth"
	"github.com/iurnickita/raktkadi/internal/model"
	"github.com/iurnickita/raktkadi/internal/service"
)

type UnitJSONResponse struct {
	TrackingCode   string    `json:"tracking_code"`
	BloodBank      string    `json:"blood_bank"`
	Donor          string    `json:"donor,omitempty"`
	BloodGroup     string    `json:"blood_group"`
	Volume         float64   `json:"volume"`
	CollectionDate string    `json:"collection_date"`
	ExpirationDate string    `json:"expiration_date"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func unitJSON(unit model.BloodUnit) UnitJSONResponse {
	return UnitJSONResponse{
		TrackingCode:   unit.Code,
		BloodBank:      unit.Data.Bank,
		Donor:          unit.Data.Donor,
		BloodGroup:     string(unit.Data.Group),
		Volume:         unit.Data.VolumeML(),
		CollectionDate: unit.Data.CollectionDate.Format(time.DateOnly),
		ExpirationDate: unit.Data.ExpirationDate.Format(time.DateOnly),
		Status:         string(unit.Data.Status),
		Notes:          unit.Data.Notes,
		CreatedAt:      unit.Data.CreatedAt,
		UpdatedAt:      unit.Data.UpdatedAt,
	}
}

type TransactionJSONResponse struct {
	ID          int64     `json:"id"`
	BloodUnit   string    `json:"blood_unit"`
	Type        string    `json:"transaction_type"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func transactionsJSON(txs []model.StockTransaction) []TransactionJSONResponse {
	txsJSON := make([]TransactionJSONResponse, 0, len(txs))
	for _, tx := range txs {
		txsJSON = append(txsJSON, TransactionJSONResponse{
			ID:          tx.Key.Operation,
			BloodUnit:   tx.Key.Unit,
			Type:        string(tx.Data.Type),
			Timestamp:   tx.Data.Timestamp,
			Source:      tx.Data.Source,
			Destination: tx.Data.Destination,
			Notes:       tx.Data.Notes,
		})
	}
	return txsJSON
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}

func readJSON(r *http.Request, v any) error {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		return fmt.Errorf("%w: %w", model.ErrValidation, err)
	}
	if err := json.Unmarshal(buf.Bytes(), v); err != nil {
		return fmt.Errorf("%w: %w", model.ErrValidation, err)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", model.ErrValidation, field)
	}
	return date, nil
}

type PostUnitJSONRequest struct {
	BloodBank      string  `json:"blood_bank"`
	Donor          string  `json:"donor"`
	BloodGroup     string  `json:"blood_group"`
	Volume         float64 `json:"volume"`
	CollectionDate string  `json:"collection_date"`
	ExpirationDate string  `json:"expiration_date"`
	Notes          string  `json:"notes"`
}

func (h *handler) PostUnit(w http.ResponseWriter, r *http.Request) {
	defer h.metrics.ObserveOperation("create_unit", time.Now())

	var unitJSONReq PostUnitJSONRequest
	if err := readJSON(r, &unitJSONReq); err != nil {
		h.writeError(w, r, err)
		return
	}

	group, err := model.ParseBloodGroup(unitJSONReq.BloodGroup)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	collected, err := parseDate("collection_date", unitJSONReq.CollectionDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	expires, err := parseDate("expiration_date", unitJSONReq.ExpirationDate)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// банк по умолчанию - сам отправитель
	bank := unitJSONReq.BloodBank
	if bank == "" {
		bank = auth.Actor(r.Context())
	}

	unit, err := h.service.CreateBloodUnit(r.Context(), service.NewBloodUnit{
		Bank:           bank,
		Donor:          unitJSONReq.Donor,
		Group:          group,
		Volume:         model.VolumeFromML(unitJSONReq.Volume),
		CollectionDate: collected,
		ExpirationDate: expires,
		Notes:          unitJSONReq.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.metrics.IncrementUnitsCollected()
	writeJSON(w, http.StatusCreated, unitJSON(unit))
}

func (h *handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.service.GetBloodUnit(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(unit))
}

func (h *handler) GetUnitTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.service.UnitHistory(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsJSON(txs))
}

type PostUseUnitJSONRequest struct {
	Destination string `json:"destination"`
	Notes       string `json:"notes"`
}

func (h *handler) PostUseUnit(w http.ResponseWriter, r *http.Request) {
	var useJSONReq PostUseUnitJSONRequest
	if err := readJSON(r, &useJSONReq); err != nil {
		h.writeError(w, r, err)
		return
	}
	if useJSONReq.Destination == "" {
		h.writeError(w, r, fmt.Errorf("%w: destination is required", model.ErrValidation))
		return
	}

	unit, err := h.service.UseBloodUnit(r.Context(), chi.URLParam(r, "code"), useJSONReq.Destination, useJSONReq.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unitJSON(unit))
}

func (h *handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: from must be RFC3339", model.ErrValidation))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: to must be RFC3339", model.ErrValidation))
		return
	}

	txs, err := h.service.TransactionsBetween(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsJSON(txs))
}

type BankJSONResponse struct {
	BloodBank      string `json:"blood_bank"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Contact        string `json:"contact,omitempty"`
	Address        string `json:"address,omitempty"`
	AvailableUnits int    `json:"available_units"`
}

func (h *handler) GetBloodBanks(w http.ResponseWriter, r *http.Request) {
	defer h.metrics.ObserveOperation("list_banks", time.Now())

	group, err := h.groupParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	banks, err := h.service.ListAvailableBanks(r.Context(), group)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	banksJSON := make([]BankJSONResponse, 0, len(banks))
	for _, bank := range banks {
		banksJSON = append(banksJSON, BankJSONResponse{
			BloodBank:      bank.Bank,
			Name:           bank.Name,
			Email:          bank.Email,
			Contact:        bank.Contact,
			Address:        bank.Address,
			AvailableUnits: bank.AvailableUnits,
		})
	}
	writeJSON(w, http.StatusOK, banksJSON)
}

type BloodGroupJSONResponse struct {
	BloodGroup     string `json:"blood_group"`
	UnitsAvailable int    `json:"units_available"`
}

func (h *handler) GetBloodGroup(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	count, err := h.service.UnitsAvailable(r.Context(), group)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BloodGroupJSONResponse{BloodGroup: string(group), UnitsAvailable: count})
}
