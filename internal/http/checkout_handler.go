package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ErnestIssa/peak-mode/internal/checkout"
	"github.com/ErnestIssa/peak-mode/internal/domain"
)

// Checkouts owns the open checkout dialogs.
type Checkouts interface {
	Open(profileID string) *checkout.Dialog
	Dialog(id, profileID string) (*checkout.Dialog, error)
	Close(id, profileID string) (checkout.View, error)
}

// CheckoutHandler drives dialogs. Requests carry no timeout of their own: every
// outbound call made by a dialog is bounded by the orchestrator.
type CheckoutHandler struct {
	checkouts Checkouts
}

func NewCheckoutHandler(c Checkouts) *CheckoutHandler {
	return &CheckoutHandler{checkouts: c}
}

type CustomerInfoDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type PayRequestDTO struct {
	Token string `json:"token"`
}

type RetryRequestDTO struct {
	From string `json:"from"`
}

type RedirectDTO struct {
	Path    string `json:"path"`
	AfterMS int64  `json:"after_ms"`
}

type CheckoutResponseDTO struct {
	CheckoutID      string       `json:"checkout_id"`
	Status          string       `json:"status"`
	Reason          string       `json:"reason,omitempty"`
	Notice          string       `json:"notice,omitempty"`
	PublicKey       string       `json:"public_key,omitempty"`
	PaymentIntentID string       `json:"payment_intent_id,omitempty"`
	Amount          json.Number  `json:"amount,omitempty"`
	Currency        string       `json:"currency,omitempty"`
	CanRetryCard    bool         `json:"can_retry_card"`
	Loading         bool         `json:"loading"`
	Redirect        *RedirectDTO `json:"redirect,omitempty"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Open(w http.ResponseWriter, r *http.Request) {
	d := h.checkouts.Open(profileFromContext(r.Context()))
	respondJSON(w, http.StatusCreated, toCheckoutResponse(d.View()))
}

// GET /api/v1/checkout/{id}
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(d.View()))
}

// POST /api/v1/checkout/{id}/continue
func (h *CheckoutHandler) Continue(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	var req CustomerInfoDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := d.Continue(r.Context(), domain.CustomerInfo{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(view))
}

// POST /api/v1/checkout/{id}/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	var req PayRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	view, err := d.Pay(r.Context(), req.Token)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(view))
}

// POST /api/v1/checkout/{id}/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	d, ok := h.dialog(w, r)
	if !ok {
		return
	}
	var req RetryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	from, ok := checkout.ParseRetryFrom(req.From)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_retry", `from must be "info" or "card"`)
		return
	}

	view, err := d.Retry(from)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(view))
}

// DELETE /api/v1/checkout/{id}
func (h *CheckoutHandler) Close(w http.ResponseWriter, r *http.Request) {
	view, err := h.checkouts.Close(chi.URLParam(r, "id"), profileFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCheckoutResponse(view))
}

func (h *CheckoutHandler) dialog(w http.ResponseWriter, r *http.Request) (*checkout.Dialog, bool) {
	d, err := h.checkouts.Dialog(chi.URLParam(r, "id"), profileFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return d, true
}

func toCheckoutResponse(v checkout.View) CheckoutResponseDTO {
	res := CheckoutResponseDTO{
		CheckoutID:      v.ID,
		Status:          v.State.String(),
		Reason:          v.Reason,
		Notice:          v.Notice,
		PublicKey:       v.PublicKey,
		PaymentIntentID: v.PaymentIntentID,
		Currency:        v.Currency,
		CanRetryCard:    v.CanRetryCard,
		Loading:         v.Loading,
	}
	if v.Currency != "" {
		res.Amount = json.Number(v.Amount.String())
	}
	if v.Redirect != nil {
		res.Redirect = &RedirectDTO{Path: v.Redirect.Path, AfterMS: v.Redirect.After.Milliseconds()}
	}
	return res
}
