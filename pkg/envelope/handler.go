package envelope

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"
	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/internal/rest"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
)

type EnvelopeDTO struct {
	Id       int    `json:"id"`
	PeriodId int    `json:"periodId"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Budgeted string `json:"budgeted"`
	Funded   string `json:"funded"`
	System   bool   `json:"system"`
}

type createEnvelopeDTO struct {
	PeriodId int    `json:"periodId"`
	Name     string `json:"name"`
	Budgeted string `json:"budgeted"`
	Color    string `json:"color"`
}

func (d createEnvelopeDTO) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.PeriodId, validation.Required),
		validation.Field(&d.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&d.Budgeted, validation.Required),
	)
}

type updateEnvelopeDTO struct {
	Name     *string `json:"name"`
	Budgeted *string `json:"budgeted"`
	Color    *string `json:"color"`
}

type capacityDTO struct {
	Capacity string `json:"capacity"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateEnvelope godoc
// @Summary Create an envelope in a budget period
// @Tags Envelope
// @Accept json
// @Produce json
// @Success 200 {object} EnvelopeDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request or reserved name"
// @Failure 403 {string} string "Period owned by another user"
// @Failure 404 {string} string "Period not found"
// @Router /api/envelope [post]
// @Security XUserId
func (h *Handler) CreateEnvelope(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto createEnvelopeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := dto.Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid envelope", Details: err.Error()})
		return
	}
	budgeted, err := decimal.NewFromString(dto.Budgeted)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid budgeted amount"})
		return
	}

	created, err := h.service.Create(r.Context(), dto.PeriodId, dto.Name, budgeted, dto.Color)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(ToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListEnvelopes godoc
// @Summary List all envelopes of a period
// @Tags Envelope
// @Produce json
// @Success 200 {array} EnvelopeDTO
// @Failure 404 {string} string "Period not found"
// @Router /api/period/{periodId}/envelope [get]
// @Security XUserId
func (h *Handler) ListEnvelopes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	periodId, err := pathId(r, "periodId")
	if err != nil {
		http.Error(w, "invalid period id", http.StatusBadRequest)
		return
	}
	envelopes, err := h.service.ListForPeriod(r.Context(), periodId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]EnvelopeDTO, 0, len(envelopes))
	for _, env := range envelopes {
		dtos = append(dtos, ToDTO(env))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdateEnvelope godoc
// @Summary Update an envelope's name, budgeted target, or color
// @Tags Envelope
// @Accept json
// @Produce json
// @Success 200 {object} EnvelopeDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request or protected envelope"
// @Failure 404 {string} string "Envelope not found"
// @Router /api/envelope/{envelopeId} [put]
// @Security XUserId
func (h *Handler) UpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := pathId(r, "envelopeId")
	if err != nil {
		http.Error(w, "invalid envelope id", http.StatusBadRequest)
		return
	}
	var dto updateEnvelopeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}

	update := Update{Name: dto.Name, Color: dto.Color}
	if dto.Budgeted != nil {
		budgeted, err := decimal.NewFromString(*dto.Budgeted)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid budgeted amount"})
			return
		}
		update.Budgeted = &budgeted
	}

	updated, err := h.service.Update(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(ToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeleteEnvelope godoc
// @Summary Delete an envelope
// @Tags Envelope
// @Success 204 {string} string "Deleted"
// @Failure 400 {object} rest.ErrorResponse "Protected envelope"
// @Failure 404 {string} string "Envelope not found"
// @Router /api/envelope/{envelopeId} [delete]
// @Security XUserId
func (h *Handler) DeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r, "envelopeId")
	if err != nil {
		http.Error(w, "invalid envelope id", http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePeriodCapacity godoc
// @Summary Set a period's total capacity
// @Description Updates the capacity and re-derives the Unallocated envelope.
// @Tags Period
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} rest.ErrorResponse "Invalid capacity"
// @Failure 404 {string} string "Period not found"
// @Router /api/period/{periodId}/capacity [put]
// @Security XUserId
func (h *Handler) UpdatePeriodCapacity(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	periodId, err := pathId(r, "periodId")
	if err != nil {
		http.Error(w, "invalid period id", http.StatusBadRequest)
		return
	}
	var dto capacityDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	capacity, err := decimal.NewFromString(dto.Capacity)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid capacity"})
		return
	}

	updated, err := h.service.UpdatePeriodCapacity(r.Context(), periodId, capacity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	response := map[string]string{
		"periodId": strconv.Itoa(updated.ID),
		"capacity": updated.Capacity.String(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func ToDTO(env Envelope) EnvelopeDTO {
	return EnvelopeDTO{
		Id:       env.ID,
		PeriodId: env.PeriodID,
		Name:     env.Name,
		Color:    env.Color,
		Budgeted: env.Budgeted.String(),
		Funded:   env.Funded.String(),
		System:   env.System,
	}
}

func pathId(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProtectedEnvelope), errors.Is(err, ErrReservedName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrEnvelopeNotFound), errors.Is(err, period.ErrPeriodNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
