package summary

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/internal/utils"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
	"github.com/kuvert/kuvert/pkg/transaction"
)

type EnvelopeSummaryDTO struct {
	envelope.EnvelopeDTO
	Spent     string `json:"spent"`
	Remaining string `json:"remaining"`
}

type PeriodSummaryDTO struct {
	PeriodId       int                  `json:"periodId"`
	Domain         string               `json:"domain"`
	Kind           string               `json:"kind"`
	StartDate      string               `json:"startDate"`
	Capacity       string               `json:"capacity"`
	Currency       string               `json:"currency"`
	Envelopes      []EnvelopeSummaryDTO `json:"envelopes"`
	TotalBudgeted  string               `json:"totalBudgeted"`
	TotalFunded    string               `json:"totalFunded"`
	TotalSpent     string               `json:"totalSpent"`
	TotalRemaining string               `json:"totalRemaining"`
}

type EnvelopeDetailsDTO struct {
	EnvelopeSummaryDTO
	Transactions []transaction.TransactionDTO `json:"transactions"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// GetSummary godoc
// @Summary Aggregated view of the period containing a date
// @Tags Summary
// @Produce json
// @Param domain query string true "TIME or MONEY"
// @Param kind query string true "WEEKLY or MONTHLY"
// @Param date query string false "RFC3339 date, defaults to now"
// @Success 200 {object} PeriodSummaryDTO
// @Failure 400 {string} string "Invalid query parameters"
// @Router /api/summary [get]
// @Security XUserId
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	domain, err := period.ParseDomain(r.URL.Query().Get("domain"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := period.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	date := h.clock.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "date must be in RFC3339 format", http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.GetSummary(r.Context(), domain, kind, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(toPeriodSummaryDTO(result)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetEnvelopeDetails godoc
// @Summary One envelope with derived figures and transaction history
// @Tags Summary
// @Produce json
// @Success 200 {object} EnvelopeDetailsDTO
// @Failure 404 {string} string "Envelope not found"
// @Router /api/envelope/{envelopeId} [get]
// @Security XUserId
func (h *Handler) GetEnvelopeDetails(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	envelopeId, err := strconv.Atoi(mux.Vars(r)["envelopeId"])
	if err != nil {
		http.Error(w, "invalid envelope id", http.StatusBadRequest)
		return
	}
	details, err := h.service.GetEnvelopeDetails(r.Context(), envelopeId)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dto := EnvelopeDetailsDTO{
		EnvelopeSummaryDTO: toEnvelopeSummaryDTO(details.EnvelopeSummary),
		Transactions:       make([]transaction.TransactionDTO, 0, len(details.Transactions)),
	}
	for _, t := range details.Transactions {
		dto.Transactions = append(dto.Transactions, transaction.ToDTO(t))
	}
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toEnvelopeSummaryDTO(es EnvelopeSummary) EnvelopeSummaryDTO {
	return EnvelopeSummaryDTO{
		EnvelopeDTO: envelope.ToDTO(es.Envelope),
		Spent:       es.Spent.String(),
		Remaining:   es.Remaining.String(),
	}
}

func toPeriodSummaryDTO(result PeriodSummary) PeriodSummaryDTO {
	dto := PeriodSummaryDTO{
		PeriodId:       result.Period.ID,
		Domain:         string(result.Period.Domain),
		Kind:           string(result.Period.Kind),
		StartDate:      result.Period.StartDate.Format(time.RFC3339),
		Capacity:       result.Period.Capacity.String(),
		Currency:       result.Currency,
		Envelopes:      make([]EnvelopeSummaryDTO, 0, len(result.Envelopes)),
		TotalBudgeted:  result.TotalBudgeted.String(),
		TotalFunded:    result.TotalFunded.String(),
		TotalSpent:     result.TotalSpent.String(),
		TotalRemaining: result.TotalRemaining.String(),
	}
	for _, es := range result.Envelopes {
		dto.Envelopes = append(dto.Envelopes, toEnvelopeSummaryDTO(es))
	}
	return dto
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, envelope.ErrEnvelopeNotFound), errors.Is(err, period.ErrPeriodNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
