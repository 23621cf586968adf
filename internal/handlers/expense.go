package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stanstork/workforce-api/internal/expense"
	"github.com/stanstork/workforce-api/internal/models"
)

type ExpenseHandler struct {
	service expense.Service
	logger  zerolog.Logger
}

func NewExpenseHandler(service expense.Service, logger zerolog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		service: service,
		logger:  logger.With().Str("handler", "expense").Logger(),
	}
}

func (h *ExpenseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		ProjectID   string          `json:"project_id"`
		ExpenseType string          `json:"expense_type"`
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
		Receipts    []string        `json:"receipts"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD or RFC 3339", http.StatusBadRequest)
		return
	}

	e, err := h.service.SubmitExpense(r.Context(), uid, expense.SubmitRequest{
		ProjectID:   payload.ProjectID,
		ExpenseType: payload.ExpenseType,
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		Description: payload.Description,
		Date:        date,
		Receipts:    payload.Receipts,
	})
	if err != nil {
		writeError(w, h.logger, err, "submit expense")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *ExpenseHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	status := models.ExpenseStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	expenses, err := h.service.ListMyExpenses(r.Context(), uid, status)
	if err != nil {
		writeError(w, h.logger, err, "list expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	expenses, err := h.service.ListExpenses(r.Context(), models.ExpenseFilter{
		UserID:     strings.TrimSpace(q.Get("user_id")),
		ProjectID:  strings.TrimSpace(q.Get("project_id")),
		Status:     models.ExpenseStatus(strings.TrimSpace(q.Get("status"))),
		UnpaidOnly: strings.EqualFold(q.Get("unpaid"), "true"),
	})
	if err != nil {
		writeError(w, h.logger, err, "list expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

// ListUnpaidForUser lists the approved claims a payment to the user may settle.
func (h *ExpenseHandler) ListUnpaidForUser(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.service.ListUnpaidApproved(r.Context(), mux.Vars(r)["userID"])
	if err != nil {
		writeError(w, h.logger, err, "list unpaid expenses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"expenses": expenses})
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	expenseID, ok := pathID(w, r, "expenseID", "expense")
	if !ok {
		return
	}
	e, err := h.service.GetExpense(r.Context(), expenseID)
	if err != nil {
		writeError(w, h.logger, err, "load expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Approve(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID", "expense")
	if !ok {
		return
	}
	e, err := h.service.ApproveExpense(r.Context(), expenseID, adminID)
	if err != nil {
		writeError(w, h.logger, err, "approve expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Reject(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseID", "expense")
	if !ok {
		return
	}
	var payload struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	e, err := h.service.RejectExpense(r.Context(), expenseID, adminID, payload.Reason)
	if err != nil {
		writeError(w, h.logger, err, "reject expense")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
