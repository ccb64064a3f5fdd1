package commitment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/commitly/commitly/internal/rest"
	"github.com/commitly/commitly/internal/utils"
	"github.com/commitly/commitly/pkg/calendar"
	"github.com/commitly/commitly/pkg/google"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	ics "github.com/arran4/golang-ical"
)

type CommitmentDTO struct {
	Id              string     `json:"id"`
	Title           string     `json:"title"`
	SourceUrl       string     `json:"sourceUrl"`
	ImageUrl        string     `json:"imageUrl,omitempty"`
	ScheduledAt     time.Time  `json:"scheduledAt"`
	DurationMinutes int        `json:"durationMinutes"`
	State           string     `json:"state"`
	Overdue         bool       `json:"overdue"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type ScheduleRequestDTO struct {
	Title           string    `json:"title"`
	SourceUrl       string    `json:"sourceUrl"`
	ImageUrl        string    `json:"imageUrl"`
	SharedText      string    `json:"sharedText"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
}

type RescheduleRequestDTO struct {
	ScheduledAt     time.Time `json:"scheduledAt"`
	DurationMinutes int       `json:"durationMinutes"`
}

type SummaryDTO struct {
	Upcoming          int    `json:"upcoming"`
	Overdue           int    `json:"overdue"`
	CompletedLastWeek int    `json:"completedLastWeek"`
	WeeklyGoal        int    `json:"weeklyGoal"`
	Streak            int    `json:"streak"`
	Message           string `json:"message"`
}

type Handler struct {
	service Service
	clock   utils.Clock
}

func NewHandler(service Service, clock utils.Clock) *Handler {
	return &Handler{
		service: service,
		clock:   clock,
	}
}

// Schedule godoc
// @Summary Schedule a new commitment from a link or shared text
// @Tags Commitment
// @Accept json
// @Produce json
// @Success 201 {object} CommitmentDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid request"
// @Failure 401 {object} rest.ErrorResponse "Not authenticated with Google"
// @Failure 502 {object} rest.ErrorResponse "Remote calendar failure"
// @Router /api/commitment [post]
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Debug("Scheduling new commitment")

	var request ScheduleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}
	if request.SourceUrl == "" && request.SharedText == "" {
		rest.WriteError(w, http.StatusBadRequest, "Either sourceUrl or sharedText is required")
		return
	}

	created, err := h.service.ScheduleNew(r.Context(), NewCommitment{
		Title:           request.Title,
		SourceURL:       request.SourceUrl,
		ImageURL:        request.ImageUrl,
		SharedText:      request.SharedText,
		Start:           request.ScheduledAt,
		DurationMinutes: request.DurationMinutes,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	h.writeCommitment(w, created)
}

// List godoc
// @Summary List commitments by lifecycle state
// @Tags Commitment
// @Produce json
// @Param state query string false "UPCOMING (default), COMPLETED or ARCHIVED"
// @Success 200 {array} CommitmentDTO
// @Router /api/commitment [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stateParam := r.URL.Query().Get("state")
	if stateParam == "" {
		stateParam = string(StateUpcoming)
	}
	state, ok := ParseState(stateParam)
	if !ok || state == StateDeleted {
		rest.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid state: %s", stateParam))
		return
	}

	commitments, err := h.service.ListByState(r.Context(), state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := h.clock.Now()
	dtos := make([]CommitmentDTO, 0, len(commitments))
	for _, c := range commitments {
		dtos = append(dtos, commitmentToDTO(c, now))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Get godoc
// @Summary Get a single commitment
// @Tags Commitment
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 404 {object} rest.ErrorResponse "Not found"
// @Router /api/commitment/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	c, err := h.service.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeCommitment(w, c)
}

// Reschedule godoc
// @Summary Move an upcoming commitment to a new time
// @Tags Commitment
// @Accept json
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/schedule [put]
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var request RescheduleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	updated, err := h.service.Reschedule(r.Context(), mux.Vars(r)["id"], request.ScheduledAt, request.DurationMinutes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeCommitment(w, updated)
}

// Complete godoc
// @Summary Mark an upcoming commitment as completed
// @Tags Commitment
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/complete [post]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.transition(w, r, h.service.MarkCompleted)
}

// UndoComplete godoc
// @Summary Undo a completion, returning the commitment to upcoming
// @Tags Commitment
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/undo-complete [post]
func (h *Handler) UndoComplete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.transition(w, r, h.service.UndoComplete)
}

// Archive godoc
// @Summary Archive an upcoming commitment
// @Tags Commitment
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/archive [post]
func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.transition(w, r, h.service.Archive)
}

// Restore godoc
// @Summary Restore an archived commitment onto a new schedule
// @Tags Commitment
// @Accept json
// @Produce json
// @Success 200 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/restore [post]
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var request RescheduleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	restored, err := h.service.RestoreFromArchive(r.Context(), mux.Vars(r)["id"], request.ScheduledAt, request.DurationMinutes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeCommitment(w, restored)
}

// ScheduleAgain godoc
// @Summary Schedule a completed or archived commitment again as a new one
// @Tags Commitment
// @Accept json
// @Produce json
// @Success 201 {object} CommitmentDTO
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id}/schedule-again [post]
func (h *Handler) ScheduleAgain(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var request RescheduleRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format")
		return
	}

	created, err := h.service.ScheduleAgain(r.Context(), mux.Vars(r)["id"], request.ScheduledAt, request.DurationMinutes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	h.writeCommitment(w, created)
}

// Delete godoc
// @Summary Permanently delete an archived commitment
// @Tags Commitment
// @Success 204
// @Failure 409 {object} rest.ErrorResponse "Not in the required state"
// @Router /api/commitment/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteForever(r.Context(), mux.Vars(r)["id"]); err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary godoc
// @Summary Commitment counts, streak and the derived summary message
// @Tags Stats
// @Produce json
// @Success 200 {object} SummaryDTO
// @Router /api/stats/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(SummaryDTO(summary)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

// Feed godoc
// @Summary Upcoming commitments as an iCalendar feed
// @Tags Commitment
// @Produce text/calendar
// @Success 200 {string} string "ICS document"
// @Router /api/commitment/feed.ics [get]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	commitments, err := h.service.ListByState(r.Context(), StateUpcoming)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Commitly//Commitment Feed//EN")
	for _, c := range commitments {
		event := cal.AddEvent(c.ID)
		event.SetCreatedTime(c.CreatedAt)
		event.SetStartAt(c.ScheduledAt)
		event.SetEndAt(c.ScheduledAt.Add(time.Duration(c.DurationMinutes) * time.Minute))
		event.SetSummary(c.Title)
		event.SetDescription(c.SourceURL)
		event.SetURL(c.SourceURL)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	if _, err := fmt.Fprint(w, cal.Serialize()); err != nil {
		log.Errorf("failed to write calendar feed: %v", err)
	}
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (Commitment, error)) {
	updated, err := op(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeCommitment(w, updated)
}

func (h *Handler) writeCommitment(w http.ResponseWriter, c Commitment) {
	if err := json.NewEncoder(w).Encode(commitmentToDTO(c, h.clock.Now())); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, google.ErrNotAuthenticated):
		rest.WriteError(w, http.StatusUnauthorized, "Google Calendar authentication is required")
	case errors.Is(err, ErrNotFound):
		rest.WriteError(w, http.StatusNotFound, "Commitment not found")
	case errors.Is(err, ErrInvalidState):
		rest.WriteError(w, http.StatusConflict, "Commitment is not in the required state")
	case errors.Is(err, ErrPastSchedule), errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrNoSourceURL):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, calendar.ErrRemoteUnavailable), errors.Is(err, calendar.ErrRemoteRejected):
		rest.WriteError(w, http.StatusBadGateway, "Remote calendar request failed", err.Error())
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func commitmentToDTO(c Commitment, now time.Time) CommitmentDTO {
	return CommitmentDTO{
		Id:              c.ID,
		Title:           c.Title,
		SourceUrl:       c.SourceURL,
		ImageUrl:        c.ImageURL,
		ScheduledAt:     c.ScheduledAt,
		DurationMinutes: c.DurationMinutes,
		State:           string(c.State),
		Overdue:         c.Overdue(now),
		CompletedAt:     c.CompletedAt,
		CreatedAt:       c.CreatedAt,
	}
}
