package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"choreboard/internal/models"
	"choreboard/internal/service"
	"choreboard/internal/validation"
)

// ActivityHandler handles the activity ledger, dashboard, and stats endpoints
type ActivityHandler struct {
	activityService    *service.ActivityService
	aggregationService *service.AggregationService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityService *service.ActivityService, aggregationService *service.AggregationService) *ActivityHandler {
	return &ActivityHandler{
		activityService:    activityService,
		aggregationService: aggregationService,
	}
}

type categoryResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Icon            string `json:"icon"`
	DefaultDuration int    `json:"defaultDuration"`
	Color           string `json:"color"`
}

// ListCategories returns the category catalog. A storage failure degrades to
// an empty list so clients can still render the logging screen.
func (h *ActivityHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.activityService.ListCategories()
	if err != nil && !errors.Is(err, service.ErrUnavailable) {
		writeServiceError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			ID:              c.ID,
			Name:            c.Name,
			Icon:            c.Icon,
			DefaultDuration: c.DefaultDuration,
			Color:           c.Color,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type logActivityRequest struct {
	CategoryID      int64     `json:"categoryId"`
	CategoryName    string    `json:"categoryName"`
	CategoryIcon    string    `json:"categoryIcon"`
	CategoryColor   string    `json:"categoryColor"`
	DurationMinutes int       `json:"durationMinutes"`
	CustomNote      string    `json:"customNote"`
	LoggedAt        time.Time `json:"loggedAt"`
}

type logResponse struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"userId"`
	CategoryID      int64     `json:"categoryId"`
	CategoryName    string    `json:"categoryName"`
	CategoryIcon    string    `json:"categoryIcon"`
	CategoryColor   string    `json:"categoryColor"`
	DurationMinutes int       `json:"durationMinutes"`
	CustomNote      string    `json:"customNote"`
	LoggedAt        time.Time `json:"loggedAt"`
}

func toLogResponse(l *models.ActivityLog) logResponse {
	return logResponse{
		ID:              l.ID,
		UserID:          l.UserID,
		CategoryID:      l.CategoryID,
		CategoryName:    l.CategoryName,
		CategoryIcon:    l.CategoryIcon,
		CategoryColor:   l.CategoryColor,
		DurationMinutes: l.DurationMinutes,
		CustomNote:      l.CustomNote,
		LoggedAt:        l.LoggedAt,
	}
}

// LogActivity appends an entry to the caller's family ledger
func (h *ActivityHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var req logActivityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	entry, err := h.activityService.Log(user, service.LogInput{
		CategoryID:      req.CategoryID,
		CategoryName:    req.CategoryName,
		CategoryIcon:    req.CategoryIcon,
		CategoryColor:   req.CategoryColor,
		DurationMinutes: req.DurationMinutes,
		CustomNote:      req.CustomNote,
		LoggedAt:        req.LoggedAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLogResponse(entry))
}

// GetHistory reads the family ledger, newest first. A storage failure
// degrades to an empty list.
func (h *ActivityHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	q := service.HistoryQuery{}
	query := r.URL.Query()

	if v := query.Get("userId"); v != "" {
		userID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "userId", Message: "userId must be an integer"})
			return
		}
		q.UserID = &userID
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "limit", Message: "limit must be an integer"})
			return
		}
		q.Limit = &limit
	}
	if v := query.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "offset", Message: "offset must be an integer"})
			return
		}
		q.Offset = offset
	}
	if v := query.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "from", Message: "from must be an RFC 3339 timestamp"})
			return
		}
		q.From = &from
	}
	if v := query.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "to", Message: "to must be an RFC 3339 timestamp"})
			return
		}
		q.To = &to
	}

	logs, err := h.activityService.History(user, q)
	if err != nil && !errors.Is(err, service.ErrUnavailable) {
		writeServiceError(w, err)
		return
	}

	out := make([]logResponse, 0, len(logs))
	for i := range logs {
		out = append(out, toLogResponse(&logs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

type userRollupResponse struct {
	UserID       int64 `json:"userId"`
	TotalMinutes int   `json:"totalMinutes"`
	LogCount     int   `json:"logCount"`
}

type categoryRollupResponse struct {
	UserID        int64  `json:"userId"`
	CategoryName  string `json:"categoryName"`
	CategoryIcon  string `json:"categoryIcon"`
	CategoryColor string `json:"categoryColor"`
	TotalMinutes  int    `json:"totalMinutes"`
	LogCount      int    `json:"logCount"`
}

func toRollupResponses(byUser []models.UserRollup, byCategory []models.CategoryRollup) ([]userRollupResponse, []categoryRollupResponse) {
	users := make([]userRollupResponse, 0, len(byUser))
	for _, ru := range byUser {
		users = append(users, userRollupResponse{
			UserID:       ru.UserID,
			TotalMinutes: ru.TotalMinutes,
			LogCount:     ru.LogCount,
		})
	}
	categories := make([]categoryRollupResponse, 0, len(byCategory))
	for _, ru := range byCategory {
		categories = append(categories, categoryRollupResponse{
			UserID:        ru.UserID,
			CategoryName:  ru.CategoryName,
			CategoryIcon:  ru.CategoryIcon,
			CategoryColor: ru.CategoryColor,
			TotalMinutes:  ru.TotalMinutes,
			LogCount:      ru.LogCount,
		})
	}
	return users, categories
}

type dashboardResponse struct {
	Period     string                   `json:"period"`
	From       time.Time                `json:"from"`
	To         time.Time                `json:"to"`
	ByUser     []userRollupResponse     `json:"byUser"`
	ByCategory []categoryRollupResponse `json:"byCategory"`
	Members    []memberResponse         `json:"members"`
}

// GetDashboard aggregates the family ledger over a calendar window
func (h *ActivityHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = service.PeriodDaily
	}

	ref := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "date", Message: "date must be formatted YYYY-MM-DD"})
			return
		}
		ref = parsed
	}

	dashboard, err := h.aggregationService.GetDashboard(user, period, ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	byUser, byCategory := toRollupResponses(dashboard.ByUser, dashboard.ByCategory)
	writeJSON(w, http.StatusOK, dashboardResponse{
		Period:     dashboard.Period,
		From:       dashboard.From,
		To:         dashboard.To,
		ByUser:     byUser,
		ByCategory: byCategory,
		Members:    toMembersResponse(dashboard.Members),
	})
}

type statsResponse struct {
	Days       int                      `json:"days"`
	From       time.Time                `json:"from"`
	To         time.Time                `json:"to"`
	ByUser     []userRollupResponse     `json:"byUser"`
	ByCategory []categoryRollupResponse `json:"byCategory"`
	Members    []memberResponse         `json:"members"`
}

// GetStats aggregates the family ledger over a trailing window of days
func (h *ActivityHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var days *int
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeServiceError(w, validation.ValidationError{Field: "days", Message: "days must be an integer"})
			return
		}
		days = &parsed
	}

	stats, err := h.aggregationService.GetStats(user, days, time.Now())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	byUser, byCategory := toRollupResponses(stats.ByUser, stats.ByCategory)
	writeJSON(w, http.StatusOK, statsResponse{
		Days:       stats.Days,
		From:       stats.From,
		To:         stats.To,
		ByUser:     byUser,
		ByCategory: byCategory,
		Members:    toMembersResponse(stats.Members),
	})
}
