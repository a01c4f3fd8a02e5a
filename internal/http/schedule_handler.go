package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/home-scheduler/internal/application"
	"github.com/example/home-scheduler/internal/remote"
)

type scheduleService interface {
	CreateSchedule(ctx context.Context, input application.ScheduleInput) (application.ScheduleView, []application.ConflictWarning, error)
	GetSchedule(ctx context.Context, id int64) (application.ScheduleView, error)
	ListSchedules(ctx context.Context) ([]application.ScheduleView, error)
	UpdateDateTime(ctx context.Context, id int64, dateTime time.Time) (application.ScheduleView, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) (application.ScheduleView, error)
	DeleteSchedule(ctx context.Context, id int64) error
	RunNow(ctx context.Context, id int64) *remote.Future[application.RunResult]
}

type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode schedule request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	schedule, warnings, err := h.service.CreateSchedule(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{
		Schedule: toScheduleDTO(schedule),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ScheduleIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	schedules, err := h.service.ListSchedules(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List").With("result_count", len(schedules)).DebugContext(r.Context(), "schedules listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSchedulesResponse{Schedules: toScheduleDTOs(schedules)})
}

func (h *ScheduleHandler) UpdateDateTime(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ScheduleIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req dateTimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateDateTime", "schedule_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode date_time update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	dateTime, err := parseDateTime("date_time", req.DateTime)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	schedule, err := h.service.UpdateDateTime(r.Context(), id, dateTime)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ScheduleIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	schedule, err := h.service.SetEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{Schedule: toScheduleDTO(schedule)})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ScheduleIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Run fires a schedule now. The response is 202 unless the caller passes
// wait=true, in which case it waits for the firing and returns its result.
func (h *ScheduleHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := ScheduleIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidScheduleID)
		return
	}

	pending := h.service.RunNow(r.Context(), id)
	if r.URL.Query().Get("wait") == "true" {
		result, err := pending.Await(r.Context())
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeJSON(r.Context(), w, http.StatusOK, runResponse{Run: toRunDTO(result)})
		return
	}

	select {
	case <-pending.Done():
		if _, err := pending.Await(r.Context()); err != nil {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
	default:
	}
	h.log(r.Context(), "Run", "schedule_id", id).InfoContext(r.Context(), "manual run accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, runAcceptedResponse{ScheduleID: id})
}

type scheduleRequest struct {
	DateTime      string           `json:"date_time"`
	HouseID       int64            `json:"house_id"`
	Commands      []commandPayload `json:"commands"`
	RecurringDays []int            `json:"recurring_days"`
	IsEnabled     *bool            `json:"is_enabled"`
}

type commandPayload struct {
	PeripheralID   string `json:"peripheral_id"`
	PeripheralType string `json:"peripheral_type"`
	Command        string `json:"command"`
}

func (r scheduleRequest) toInput() (application.ScheduleInput, error) {
	input := application.ScheduleInput{
		HouseID:       r.HouseID,
		RecurringDays: append([]int(nil), r.RecurringDays...),
		IsEnabled:     r.IsEnabled,
	}
	if strings.TrimSpace(r.DateTime) != "" {
		dateTime, err := parseDateTime("date_time", r.DateTime)
		if err != nil {
			return application.ScheduleInput{}, err
		}
		input.DateTime = dateTime
	}
	for _, cmd := range r.Commands {
		input.Commands = append(input.Commands, application.CommandInput{
			PeripheralID:   cmd.PeripheralID,
			PeripheralType: cmd.PeripheralType,
			Command:        cmd.Command,
		})
	}
	return input, nil
}

type dateTimeRequest struct {
	DateTime string `json:"date_time"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func parseDateTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Time{}, &application.ValidationError{FieldErrors: map[string]string{
		field: "must be an RFC 3339 date-time",
	}}
}

type scheduleResponse struct {
	Schedule scheduleDTO          `json:"schedule"`
	Warnings []conflictWarningDTO `json:"warnings,omitempty"`
}

type listSchedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
}

type scheduleDTO struct {
	ID              int64            `json:"id"`
	DateTime        string           `json:"date_time"`
	HouseID         int64            `json:"house_id"`
	Commands        []commandPayload `json:"commands"`
	RecurringDays   []int            `json:"recurring_days,omitempty"`
	IsEnabled       bool             `json:"is_enabled"`
	NextOccurrences []string         `json:"next_occurrences,omitempty"`
}

func toScheduleDTO(schedule application.ScheduleView) scheduleDTO {
	dto := scheduleDTO{
		ID:        schedule.ID,
		DateTime:  schedule.DateTime.Format(time.RFC3339),
		HouseID:   schedule.HouseID,
		Commands:  make([]commandPayload, 0, len(schedule.Commands)),
		IsEnabled: schedule.IsEnabled,
	}
	for _, cmd := range schedule.Commands {
		dto.Commands = append(dto.Commands, commandPayload{
			PeripheralID:   cmd.PeripheralID,
			PeripheralType: cmd.PeripheralType,
			Command:        cmd.Command,
		})
	}
	for _, day := range schedule.RecurringDays {
		dto.RecurringDays = append(dto.RecurringDays, int(day))
	}
	for _, next := range schedule.NextOccurrences {
		dto.NextOccurrences = append(dto.NextOccurrences, next.Format(time.RFC3339))
	}
	return dto
}

func toScheduleDTOs(schedules []application.ScheduleView) []scheduleDTO {
	out := make([]scheduleDTO, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, toScheduleDTO(schedule))
	}
	return out
}

type conflictWarningDTO struct {
	ScheduleID   int64  `json:"schedule_id"`
	PeripheralID string `json:"peripheral_id"`
	Command      string `json:"command"`
	OtherCommand string `json:"other_command"`
	Days         []int  `json:"days"`
}

func toWarningDTOs(warnings []application.ConflictWarning) []conflictWarningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]conflictWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		dto := conflictWarningDTO{
			ScheduleID:   warning.ScheduleID,
			PeripheralID: warning.PeripheralID,
			Command:      warning.Command,
			OtherCommand: warning.OtherCommand,
		}
		for _, day := range warning.Days {
			dto.Days = append(dto.Days, int(day))
		}
		out = append(out, dto)
	}
	return out
}

type runAcceptedResponse struct {
	ScheduleID int64 `json:"schedule_id"`
}

type runResponse struct {
	Run runDTO `json:"run"`
}

type runDTO struct {
	ScheduleID int64  `json:"schedule_id"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
	NextAt     string `json:"next_at,omitempty"`
	Deleted    bool   `json:"deleted"`
	Skipped    bool   `json:"skipped"`
}

func toRunDTO(result application.RunResult) runDTO {
	dto := runDTO{
		ScheduleID: result.ScheduleID,
		Dispatched: result.Dispatched,
		Failed:     result.Failed,
		Deleted:    result.Deleted,
		Skipped:    result.Skipped,
	}
	if !result.NextAt.IsZero() {
		dto.NextAt = result.NextAt.Format(time.RFC3339)
	}
	return dto
}
