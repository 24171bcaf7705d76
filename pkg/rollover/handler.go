package rollover

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kuvert/kuvert/internal/apperr"
	"github.com/kuvert/kuvert/internal/utils"
	"github.com/kuvert/kuvert/pkg/envelope"
	"github.com/kuvert/kuvert/pkg/period"
)

type PeriodDTO struct {
	Id        int                    `json:"id"`
	Domain    string                 `json:"domain"`
	Kind      string                 `json:"kind"`
	StartDate string                 `json:"startDate"`
	Capacity  string                 `json:"capacity"`
	Envelopes []envelope.EnvelopeDTO `json:"envelopes"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// GetOrCreatePeriod godoc
// @Summary Resolve the budget period containing a date, creating it on first access
// @Tags Period
// @Produce json
// @Param domain query string true "TIME or MONEY"
// @Param kind query string true "WEEKLY or MONTHLY"
// @Param date query string false "RFC3339 date, defaults to now"
// @Success 200 {object} PeriodDTO
// @Failure 400 {string} string "Invalid query parameters"
// @Router /api/period [get]
// @Security XUserId
func (h *Handler) GetOrCreatePeriod(w http.ResponseWriter, r *http.Request) {
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

	resolved, err := h.service.GetOrCreatePeriod(r.Context(), domain, kind, date)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(toPeriodDTO(resolved)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toPeriodDTO(resolved PeriodWithEnvelopes) PeriodDTO {
	envelopes := make([]envelope.EnvelopeDTO, 0, len(resolved.Envelopes))
	for _, env := range resolved.Envelopes {
		envelopes = append(envelopes, envelope.ToDTO(env))
	}
	return PeriodDTO{
		Id:        resolved.Period.ID,
		Domain:    string(resolved.Period.Domain),
		Kind:      string(resolved.Period.Kind),
		StartDate: resolved.Period.StartDate.Format(time.RFC3339),
		Capacity:  resolved.Period.Capacity.String(),
		Envelopes: envelopes,
	}
}
