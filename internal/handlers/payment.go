package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stanstork/workforce-api/internal/models"
	"github.com/stanstork/workforce-api/internal/payment"
)

type PaymentHandler struct {
	service payment.Service
	logger  zerolog.Logger
}

// paymentView adds the statuses an admin may move the payment to next.
type paymentView struct {
	models.Payment
	AvailableStatuses []models.PaymentStatus `json:"available_statuses"`
}

func NewPaymentHandler(service payment.Service, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With().Str("handler", "payment").Logger(),
	}
}

func (h *PaymentHandler) view(p models.Payment) paymentView {
	next := h.service.AvailableStatuses(p)
	if next == nil {
		next = []models.PaymentStatus{}
	}
	return paymentView{Payment: p, AvailableStatuses: next}
}

func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var payload payment.CreateRequest
	if !decodeJSON(w, r, &payload) {
		return
	}
	p, err := h.service.CreatePayment(r.Context(), payload, adminID)
	if err != nil {
		writeError(w, h.logger, err, "create payment")
		return
	}
	writeJSON(w, http.StatusCreated, h.view(p))
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.list(w, r, models.PaymentFilter{
		UserID:      strings.TrimSpace(q.Get("user_id")),
		Status:      models.PaymentStatus(strings.TrimSpace(q.Get("status"))),
		PaymentType: strings.TrimSpace(q.Get("payment_type")),
	})
}

// ListMyPayments lists the caller's own payments.
func (h *PaymentHandler) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUser(w, r)
	if !ok {
		return
	}
	h.list(w, r, models.PaymentFilter{
		UserID: uid,
		Status: models.PaymentStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
	})
}

func (h *PaymentHandler) list(w http.ResponseWriter, r *http.Request, filter models.PaymentFilter) {
	if filter.Status != "" && !filter.Status.IsValid() {
		http.Error(w, "Unknown payment status", http.StatusBadRequest)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err, "list payments")
		return
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, h.view(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": views})
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := pathID(w, r, "paymentID", "payment")
	if !ok {
		return
	}
	p, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		writeError(w, h.logger, err, "load payment")
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}

func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID", "payment")
	if !ok {
		return
	}
	var payload payment.StatusUpdate
	if !decodeJSON(w, r, &payload) {
		return
	}
	payload.AdminID = adminID

	p, err := h.service.UpdatePaymentStatus(r.Context(), paymentID, payload)
	if err != nil {
		writeError(w, h.logger, err, "update payment status")
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}

func (h *PaymentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	adminID, ok := currentUser(w, r)
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentID", "payment")
	if !ok {
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	p, err := h.service.AddComment(r.Context(), paymentID, payload.Text, adminID)
	if err != nil {
		writeError(w, h.logger, err, "add payment comment")
		return
	}
	writeJSON(w, http.StatusOK, h.view(p))
}
