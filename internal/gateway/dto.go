package gateway

import (
	"encoding/json"
	"strings"
)

type request struct {
	Command string `json:"command"`
	Data    any    `json:"data"`
}

type createData struct {
	Amount      json.Number `json:"amount"`
	Currency    string      `json:"currency"`
	PaymentType string      `json:"payment_type"`
	ProductData productData `json:"product_data"`
}

type productData struct {
	Name         string     `json:"name"`
	ProductID    string     `json:"product_id"`
	Description  string     `json:"description"`
	CustomerName string     `json:"customer_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Items        []lineItem `json:"items"`
}

type lineItem struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Size     *string     `json:"size"`
	Color    *string     `json:"color"`
}

type verifyData struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// envelope is the union of the create and verify responses.
type envelope struct {
	Status          bool            `json:"status"`
	Error           json.RawMessage `json:"error,omitempty"`
	Message         string          `json:"message,omitempty"`
	ClientSecret    string          `json:"client_secret,omitempty"`
	PublicKey       string          `json:"public_key,omitempty"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
	PaymentStatus   string          `json:"payment_status,omitempty"`
}

// errorMessage accepts both `"error": "text"` and `"error": {"message": "text"}`.
func (e *envelope) errorMessage() string {
	if len(e.Error) > 0 {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil && strings.TrimSpace(obj.Message) != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(e.Message)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
