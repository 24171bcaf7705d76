package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kuvert/kuvert/internal/rest"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type UserDTO struct {
	Uid         string      `json:"uid"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Settings    SettingsDTO `json:"settings"`
}

type SettingsDTO struct {
	Currency     string `json:"currency"`
	WeekFirstDay int    `json:"weekFirstDay"`
	TimeCapacity string `json:"timeCapacity"`
	BaseIncome   string `json:"baseIncome"`
	// Omitting the flag leaves the choice to the configured default.
	AutoCopyEnvelopes *bool `json:"autoCopyEnvelopes"`
}

func (d UserDTO) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Username, validation.Required, validation.Length(3, 60)),
		validation.Field(&d.DisplayName, validation.Length(0, 120)),
	)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateUser godoc
// @Summary Provision a new user
// @Description Create a user with default budgeting settings. Idempotent per uid.
// @Tags User
// @Accept json
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto UserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := dto.Validate(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid user", Details: err.Error()})
		return
	}

	created, err := h.service.CreateUser(r.Context(), userFromDTO(dto))
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(userToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CurrentUser godoc
// @Summary Get the current user
// @Tags User
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 403 {string} string "User not found"
// @Router /api/user/current [get]
// @Security XUserId
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	current, err := h.service.GetCurrentUser(r.Context())
	if err != nil {
		if errors.Is(err, ErrNoUser) || errors.Is(err, ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(userToDTO(current)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// UpdateSettings godoc
// @Summary Update the current user's budgeting settings
// @Tags User
// @Accept json
// @Produce json
// @Success 200 {object} UserDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Router /api/user/current [put]
// @Security XUserId
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var dto SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid request body"})
		return
	}
	settings, err := settingsFromDTO(dto)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(rest.ErrorResponse{Error: "Invalid settings", Details: err.Error()})
		return
	}

	updated, err := h.service.UpdateSettings(r.Context(), settings)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(userToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func userFromDTO(dto UserDTO) User {
	settings, err := settingsFromDTO(dto.Settings)
	if err != nil {
		// Defaults are applied by the service for unset fields.
		settings = Settings{}
	}
	return User{
		Uid:         dto.Uid,
		Username:    dto.Username,
		DisplayName: dto.DisplayName,
		Settings:    settings,
	}
}

func settingsFromDTO(dto SettingsDTO) (Settings, error) {
	settings := Settings{
		Currency:          dto.Currency,
		WeekFirstDay:      time.Weekday(dto.WeekFirstDay),
		AutoCopyEnvelopes: dto.AutoCopyEnvelopes,
	}
	var err error
	if dto.TimeCapacity != "" {
		if settings.TimeCapacity, err = decimal.NewFromString(dto.TimeCapacity); err != nil {
			return Settings{}, err
		}
	}
	if dto.BaseIncome != "" {
		if settings.BaseIncome, err = decimal.NewFromString(dto.BaseIncome); err != nil {
			return Settings{}, err
		}
	}
	return settings, nil
}

func userToDTO(u User) UserDTO {
	return UserDTO{
		Uid:         u.Uid,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Settings: SettingsDTO{
			Currency:          u.Settings.Currency,
			WeekFirstDay:      int(u.Settings.WeekFirstDay),
			TimeCapacity:      u.Settings.TimeCapacity.String(),
			BaseIncome:        u.Settings.BaseIncome.String(),
			AutoCopyEnvelopes: u.Settings.AutoCopyEnvelopes,
		},
	}
}
