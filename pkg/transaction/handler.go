package transaction

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"
	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/internal/rest"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/shopspring/decimal"
)

type TransactionDTO struct {
	Id             int    `json:"id"`
	EnvelopeId     int    `json:"envelopeId"`
	DestEnvelopeId *int   `json:"destEnvelopeId,omitempty"`
	Kind           string `json:"kind"`
	Amount         string `json:"amount"`
	Description    string `json:"description,omitempty"`
	Entity         string `json:"entity,omitempty"`
	Reference      string `json:"reference,omitempty"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime,omitempty"`
	EndTime        string `json:"endTime,omitempty"`
}

type expenseDTO struct {
	EnvelopeId  int    `json:"envelopeId"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Entity      string `json:"entity"`
	Reference   string `json:"reference"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

func (d expenseDTO) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.EnvelopeId, validation.Required),
		validation.Field(&d.Amount, validation.Required),
	)
}

type amountDTO struct {
	Amount string `json:"amount"`
}

type transferDTO struct {
	FromEnvelopeId int    `json:"fromEnvelopeId"`
	ToEnvelopeId   int    `json:"toEnvelopeId"`
	Amount         string `json:"amount"`
}

func (d transferDTO) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.FromEnvelopeId, validation.Required),
		validation.Field(&d.ToEnvelopeId, validation.Required),
		validation.Field(&d.Amount, validation.Required),
	)
}

type fillDTO struct {
	TotalAmount string `json:"totalAmount"`
	Description string `json:"description"`
	Allocations []struct {
		EnvelopeId int    `json:"envelopeId"`
		Amount     string `json:"amount"`
	} `json:"allocations"`
}

type updateTransactionDTO struct {
	EnvelopeId  *int    `json:"envelopeId"`
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Entity      *string `json:"entity"`
	Reference   *string `json:"reference"`
	Date        *string `json:"date"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RecordExpense godoc
// @Summary Record an expense against an envelope
// @Tags Transaction
// @Accept json
// @Produce json
// @Success 200 {object} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount"
// @Failure 404 {string} string "Envelope not found"
// @Router /api/transaction [post]
// @Security XUserId
func (h *Handler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto expenseDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := dto.Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid expense", Details: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid amount"})
		return
	}
	meta, err := metadataFromDTO(dto)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error:   "Incorrect date format",
			Details: "Dates must be in RFC3339 format",
		})
		return
	}

	created, err := h.service.RecordExpense(r.Context(), dto.EnvelopeId, amount, meta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(ToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RecordIncome godoc
// @Summary Deposit income into a period
// @Description Grows the period capacity and the Unallocated envelope.
// @Tags Transaction
// @Accept json
// @Produce json
// @Success 200 {object} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount"
// @Failure 404 {string} string "Period not found"
// @Router /api/period/{periodId}/income [post]
// @Security XUserId
func (h *Handler) RecordIncome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	periodId, err := strconv.Atoi(mux.Vars(r)["periodId"])
	if err != nil {
		http.Error(w, "invalid period id", http.StatusBadRequest)
		return
	}
	var dto amountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid amount"})
		return
	}

	created, err := h.service.RecordIncome(r.Context(), periodId, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(ToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Transfer godoc
// @Summary Move funded balance between two envelopes
// @Tags Transaction
// @Accept json
// @Produce json
// @Success 200 {array} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount or same envelope"
// @Failure 404 {string} string "Envelope not found"
// @Router /api/transfer [post]
// @Security XUserId
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto transferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := dto.Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid transfer", Details: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid amount"})
		return
	}

	entries, err := h.service.Transfer(r.Context(), dto.FromEnvelopeId, dto.ToEnvelopeId, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(entries))
	for _, t := range entries {
		dtos = append(dtos, ToDTO(t))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// FillEnvelopes godoc
// @Summary Deposit income and distribute it across envelopes
// @Description Income commits first; transfers run independently afterwards.
// @Tags Transaction
// @Accept json
// @Success 204 {string} string "Applied"
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/period/{periodId}/fill [post]
// @Security XUserId
func (h *Handler) FillEnvelopes(w http.ResponseWriter, r *http.Request) {
	periodId, err := strconv.Atoi(mux.Vars(r)["periodId"])
	if err != nil {
		http.Error(w, "invalid period id", http.StatusBadRequest)
		return
	}
	var dto fillDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	total, err := decimal.NewFromString(dto.TotalAmount)
	if err != nil {
		http.Error(w, "invalid total amount", http.StatusBadRequest)
		return
	}
	allocations := make([]Allocation, 0, len(dto.Allocations))
	for _, a := range dto.Allocations {
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			http.Error(w, "invalid allocation amount", http.StatusBadRequest)
			return
		}
		allocations = append(allocations, Allocation{EnvelopeID: a.EnvelopeId, Amount: amount})
	}

	if err := h.service.FillEnvelopes(r.Context(), periodId, total, allocations, dto.Description); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions godoc
// @Summary List the current user's transactions in a domain
// @Tags Transaction
// @Produce json
// @Param domain query string true "TIME or MONEY"
// @Success 200 {array} TransactionDTO
// @Router /api/transaction [get]
// @Security XUserId
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	domain, err := period.ParseDomain(r.URL.Query().Get("domain"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	transactions, err := h.service.List(r.Context(), domain)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(transactions))
	for _, t := range transactions {
		dtos = append(dtos, ToDTO(t))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdateTransaction godoc
// @Summary Edit an audit entry
// @Tags Transaction
// @Accept json
// @Produce json
// @Success 200 {object} TransactionDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid amount"
// @Failure 404 {string} string "Transaction not found"
// @Router /api/transaction/{transactionId} [put]
// @Security XUserId
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := strconv.Atoi(mux.Vars(r)["transactionId"])
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	var dto updateTransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	update, err := updateFromDTO(dto)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid update", Details: err.Error()})
		return
	}

	updated, err := h.service.UpdateTransaction(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(ToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DeleteTransaction godoc
// @Summary Delete an audit entry
// @Tags Transaction
// @Success 204 {string} string "Deleted"
// @Failure 404 {string} string "Transaction not found"
// @Router /api/transaction/{transactionId} [delete]
// @Security XUserId
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["transactionId"])
	if err != nil {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteTransaction(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ToDTO(t Transaction) TransactionDTO {
	dto := TransactionDTO{
		Id:             t.ID,
		EnvelopeId:     t.EnvelopeID,
		DestEnvelopeId: t.DestEnvelopeID,
		Kind:           string(t.Kind),
		Amount:         t.Amount.String(),
		Description:    t.Description,
		Entity:         t.Entity,
		Reference:      t.Reference,
		Date:           t.Date.Format(time.RFC3339),
	}
	if t.StartTime != nil {
		dto.StartTime = t.StartTime.Format(time.RFC3339)
	}
	if t.EndTime != nil {
		dto.EndTime = t.EndTime.Format(time.RFC3339)
	}
	return dto
}

func metadataFromDTO(dto expenseDTO) (Metadata, error) {
	meta := Metadata{
		Description: dto.Description,
		Entity:      dto.Entity,
		Reference:   dto.Reference,
	}
	if dto.Date != "" {
		date, err := time.Parse(time.RFC3339, dto.Date)
		if err != nil {
			return Metadata{}, err
		}
		meta.Date = date
	}
	if dto.StartTime != "" {
		start, err := time.Parse(time.RFC3339, dto.StartTime)
		if err != nil {
			return Metadata{}, err
		}
		meta.StartTime = &start
	}
	if dto.EndTime != "" {
		end, err := time.Parse(time.RFC3339, dto.EndTime)
		if err != nil {
			return Metadata{}, err
		}
		meta.EndTime = &end
	}
	return meta, nil
}

func updateFromDTO(dto updateTransactionDTO) (Update, error) {
	update := Update{
		EnvelopeID:  dto.EnvelopeId,
		Description: dto.Description,
		Entity:      dto.Entity,
		Reference:   dto.Reference,
	}
	if dto.Amount != nil {
		amount, err := decimal.NewFromString(*dto.Amount)
		if err != nil {
			return Update{}, err
		}
		update.Amount = &amount
	}
	if dto.Date != nil {
		date, err := time.Parse(time.RFC3339, *dto.Date)
		if err != nil {
			return Update{}, err
		}
		update.Date = &date
	}
	if dto.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *dto.StartTime)
		if err != nil {
			return Update{}, err
		}
		update.StartTime = &start
	}
	if dto.EndTime != nil {
		end, err := time.Parse(time.RFC3339, *dto.EndTime)
		if err != nil {
			return Update{}, err
		}
		update.EndTime = &end
	}
	return update, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrSameEnvelope),
		errors.Is(err, ErrCrossPeriodTransfer):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, apperr.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, envelope.ErrEnvelopeNotFound),
		errors.Is(err, period.ErrPeriodNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
