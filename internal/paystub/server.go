// Package paystub is a local stand-in for the hosted payment service and the card
// processor's client API. It keeps payment intents in memory.
package paystub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusProcessing            = "processing"
	StatusSucceeded             = "succeeded"
)

type Intent struct {
	ID           string
	ClientSecret string
	Amount       json.Number
	Currency     string
	Status       string
	Email        string
}

type Server struct {
	publicKey string
	decider   Decider

	mu      sync.Mutex
	intents map[string]*Intent

	scriptLoads atomic.Int64
	// set by FailNext; consumed by the next gateway command
	failNext atomic.Pointer[string]
}

func NewServer(publicKey string, decider Decider) *Server {
	if decider == nil {
		decider = RandomDecider{}
	}
	return &Server{
		publicKey: publicKey,
		decider:   decider,
		intents:   make(map[string]*Intent),
	}
}

// Handler serves the gateway at POST / and the processor API under /v1 and /v3.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.handleCommand)
	r.Head("/v3", s.handleScript)
	r.Get("/v3", s.handleScript)
	r.Post("/v1/payment_intents/{id}/confirm", s.handleConfirm)
	return r
}

func (s *Server) FailNext(message string) {
	s.failNext.Store(&message)
}

func (s *Server) ScriptLoads() int64 {
	return s.scriptLoads.Load()
}

func (s *Server) Intent(id string) (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in, ok := s.intents[id]
	if !ok {
		return Intent{}, false
	}
	return *in, true
}

// SetStatus forces an intent's status, for simulating upstream settlement.
func (s *Server) SetStatus(id, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in, ok := s.intents[id]; ok {
		in.Status = status
	}
}

type command struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		respond(w, http.StatusBadRequest, map[string]any{"status": false, "error": "invalid JSON body"})
		return
	}

	if msg := s.failNext.Swap(nil); msg != nil {
		respond(w, http.StatusOK, map[string]any{"status": false, "error": *msg})
		return
	}

	switch cmd.Command {
	case "payment":
		s.createPayment(w, cmd.Data)
	case "verify":
		s.verifyPayment(w, cmd.Data)
	default:
		respond(w, http.StatusBadRequest, map[string]any{"status": false, "error": fmt.Sprintf("unknown command %q", cmd.Command)})
	}
}

func (s *Server) createPayment(w http.ResponseWriter, raw json.RawMessage) {
	var data struct {
		Amount      json.Number `json:"amount"`
		Currency    string      `json:"currency"`
		ProductData struct {
			Email string `json:"email"`
		} `json:"product_data"`
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.Amount == "" || data.Currency == "" {
		respond(w, http.StatusBadRequest, map[string]any{"status": false, "error": "amount and currency are required"})
		return
	}

	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	in := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:       data.Amount,
		Currency:     data.Currency,
		Status:       StatusRequiresPaymentMethod,
		Email:        data.ProductData.Email,
	}

	s.mu.Lock()
	s.intents[id] = in
	s.mu.Unlock()

	slog.Info("payment intent created", "amount", data.Amount.String(), "currency", data.Currency)
	respond(w, http.StatusOK, map[string]any{
		"status":            true,
		"client_secret":     in.ClientSecret,
		"public_key":        s.publicKey,
		"payment_intent_id": in.ID,
	})
}

func (s *Server) verifyPayment(w http.ResponseWriter, raw json.RawMessage) {
	var data struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.Unmarshal(raw, &data); err != nil || data.PaymentIntentID == "" {
		respond(w, http.StatusBadRequest, map[string]any{"status": false, "error": "payment_intent_id is required"})
		return
	}

	in, ok := s.Intent(data.PaymentIntentID)
	if !ok {
		respond(w, http.StatusNotFound, map[string]any{"status": false, "error": "payment intent not found"})
		return
	}
	respond(w, http.StatusOK, map[string]any{"status": true, "payment_status": in.Status})
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	s.scriptLoads.Add(1)
	w.Header().Set("Content-Type", "application/javascript")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte("/* processor sdk */"))
	}
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.publicKey {
		processorError(w, http.StatusUnauthorized, "invalid_request_error", "Invalid API Key provided.")
		return
	}
	if err := r.ParseForm(); err != nil {
		processorError(w, http.StatusBadRequest, "invalid_request_error", "malformed form body")
		return
	}

	id := chi.URLParam(r, "id")
	secret := r.PostForm.Get("client_secret")
	pm := r.PostForm.Get("payment_method")
	if pm == "" {
		pm = r.PostForm.Get("payment_method_data[card][token]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.intents[id]
	if !ok || in.ClientSecret != secret {
		processorError(w, http.StatusNotFound, "invalid_request_error", "No such payment_intent.")
		return
	}
	if in.Status != StatusRequiresPaymentMethod {
		processorError(w, http.StatusBadRequest, "invalid_request_error",
			fmt.Sprintf("This PaymentIntent's status is %s and cannot be confirmed.", in.Status))
		return
	}
	if pm == "" {
		processorError(w, http.StatusBadRequest, "invalid_request_error", "A payment method is required.")
		return
	}

	decision := s.decider.Decide(pm)
	in.Status = decision.Status
	if decision.Decline != "" {
		processorError(w, http.StatusPaymentRequired, "card_error", decision.Decline)
		return
	}
	respond(w, http.StatusOK, map[string]any{"id": in.ID, "object": "payment_intent", "status": in.Status})
}

func processorError(w http.ResponseWriter, status int, typ, message string) {
	respond(w, status, map[string]any{"error": map[string]string{"type": typ, "message": message}})
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
