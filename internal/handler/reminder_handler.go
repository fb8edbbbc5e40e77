package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/kalendar/internal/model"
	"github.com/hitoshi/kalendar/internal/reminder"
)

// ReminderServiceInterface はリマインダーハンドラーが必要とするサービスインターフェース。
type ReminderServiceInterface interface {
	RemindersOnDate(ctx context.Context, caller model.Caller, date time.Time) ([]*model.Reminder, error)
	AllRemindersForUser(ctx context.Context, caller model.Caller) ([]*model.Reminder, error)
	Create(ctx context.Context, caller model.Caller, input model.ReminderInput) (*model.Reminder, error)
	Update(ctx context.Context, caller model.Caller, id string, input model.ReminderInput) (*model.Reminder, error)
	Delete(ctx context.Context, caller model.Caller, id string) (reminder.DeleteOutcome, error)
}

// ReminderHandler はリマインダー操作のHTTPハンドラー。
type ReminderHandler struct {
	service ReminderServiceInterface
}

// NewReminderHandler はReminderHandlerを生成する。
func NewReminderHandler(service ReminderServiceInterface) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// reminderRequest はリマインダー作成・更新のリクエストボディ。
// timeはHH:MMまたはHH:MM:SS形式。終日の場合は無視する。
type reminderRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Time        *string  `json:"time"`
	AllDay      bool     `json:"allDay"`
	Usernames   []string `json:"usernames"`
	Color       string   `json:"color"`
}

// participantResponse は参加者のAPIレスポンス。
type participantResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// reminderResponse はリマインダーのAPIレスポンス。
type reminderResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	ReminderDate string                `json:"reminderDate"`
	ReminderTime *string               `json:"reminderTime"`
	AllDay       bool                  `json:"allDay"`
	Color        string                `json:"color"`
	Owner        string                `json:"owner"`
	Participants []participantResponse `json:"participants"`
}

func toReminderResponse(rem *model.Reminder) reminderResponse {
	resp := reminderResponse{
		ID:           rem.ID,
		Title:        rem.Title,
		Description:  rem.Description,
		ReminderDate: rem.Date.Format(model.DateLayout),
		AllDay:       rem.AllDay,
		Color:        rem.Color,
		Owner:        rem.OwnerUsername,
		Participants: make([]participantResponse, 0, len(rem.Participants)),
	}
	if rem.Time != nil {
		s := rem.Time.String()
		resp.ReminderTime = &s
	}
	for _, p := range rem.Participants {
		resp.Participants = append(resp.Participants, participantResponse{ID: p.UserID, Username: p.Username})
	}
	return resp
}

func toReminderResponses(reminders []*model.Reminder) []reminderResponse {
	resp := make([]reminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		resp = append(resp, toReminderResponse(rem))
	}
	return resp
}

// toInput はリクエストを入力値に変換する。日付・時刻の形式エラーはAPIErrorで返す。
// 必須項目や長さの検証はサービス層で行う。
func (req reminderRequest) toInput() (model.ReminderInput, error) {
	input := model.ReminderInput{
		Title:       req.Title,
		Description: req.Description,
		AllDay:      req.AllDay,
		Usernames:   req.Usernames,
		Color:       req.Color,
	}

	if strings.TrimSpace(req.Date) != "" {
		date, err := model.ParseDate(strings.TrimSpace(req.Date))
		if err != nil {
			return model.ReminderInput{}, model.NewInvalidDateError(req.Date)
		}
		input.Date = date
	}

	if !req.AllDay && req.Time != nil && strings.TrimSpace(*req.Time) != "" {
		tod, err := model.ParseTimeOfDay(strings.TrimSpace(*req.Time))
		if err != nil {
			return model.ReminderInput{}, model.NewValidationError("時刻はHH:MM形式で指定してください")
		}
		input.Time = &tod
	}

	return input, nil
}

// reminderIDParam はURLのリマインダーIDを取り出す。UUIDとして不正な場合は404を書き込む。
func reminderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewReminderNotFoundError(id))
		return "", false
	}
	return id, true
}

// ListByDate は指定日のリマインダー一覧を返す。
// GET /api/reminders?date=YYYY-MM-DD
func (h *ReminderHandler) ListByDate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("date")
	date, err := model.ParseDate(raw)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDateError(raw))
		return
	}

	reminders, err := h.service.RemindersOnDate(r.Context(), caller, date)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponses(reminders))
}

// ListAll は呼び出し元が参加している全リマインダーを日付順に返す。
// GET /api/reminders/all
func (h *ReminderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	reminders, err := h.service.AllRemindersForUser(r.Context(), caller)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponses(reminders))
}

// Create はリマインダーを作成する。
// POST /api/reminders
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rem, err := h.service.Create(r.Context(), caller, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReminderResponse(rem))
}

// Update はリマインダーを全項目置換で更新する。作成者のみ実行できる。
// PUT /api/reminders/{id}
func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := reminderIDParam(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	input, err := req.toInput()
	if err != nil {
		handleServiceError(w, err)
		return
	}

	rem, err := h.service.Update(r.Context(), caller, id, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// Delete は作成者なら削除し、参加者なら自分の参加のみを解除する。
// DELETE /api/reminders/{id}
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := reminderIDParam(w, r)
	if !ok {
		return
	}

	outcome, err := h.service.Delete(r.Context(), caller, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: string(outcome)})
}
