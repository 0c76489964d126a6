package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ErnestIssa/peak-mode/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	d "github.com/ErnestIssa/peak-mode/internal/domain"
)

const (
	commandPayment = "payment"
	commandVerify  = "verify"

	paymentTypeOneTime = "onetime"
	statusSucceeded    = "succeeded"

	maxResponseBytes = 1 << 20
)

type LineItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
	Size     string
	Color    string
}

// OrderDescriptor describes what is being paid for.
type OrderDescriptor struct {
	Name         string
	ProductID    string
	Description  string
	CustomerName string
	Email        string
	Phone        string
	Items        []LineItem
}

type Verification struct {
	Succeeded bool
	Status    string
}

// Client talks to the hosted VornifyPay endpoint. Each call is single-shot.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *circuitbreaker.Breaker[*envelope]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithBreaker(s circuitbreaker.Settings) Option {
	return func(cl *Client) {
		s.IsFailure = isUnreachable
		cl.breaker = circuitbreaker.New[*envelope](s)
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	settings := circuitbreaker.DefaultSettings("vornifypay")
	settings.IsFailure = isUnreachable

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breaker:  circuitbreaker.New[*envelope](settings),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, currency string, order OrderDescriptor) (*d.PaymentSession, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}

	items := make([]lineItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = lineItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    json.Number(it.Price.String()),
			Quantity: it.Quantity,
			Size:     nullable(it.Size),
			Color:    nullable(it.Color),
		}
	}

	data := createData{
		Amount:      json.Number(amount.String()),
		Currency:    currency,
		PaymentType: paymentTypeOneTime,
		ProductData: productData{
			Name:         order.Name,
			ProductID:    order.ProductID,
			Description:  order.Description,
			CustomerName: order.CustomerName,
			Email:        order.Email,
			Phone:        order.Phone,
			Items:        items,
		},
	}

	env, err := c.call(ctx, commandPayment, data)
	if err != nil {
		return nil, err
	}
	if env.ClientSecret == "" || env.PublicKey == "" {
		return nil, rejected("payment service returned an incomplete payment session")
	}

	return &d.PaymentSession{
		PublicKey:       env.PublicKey,
		ClientSecret:    env.ClientSecret,
		PaymentIntentID: env.PaymentIntentID,
	}, nil
}

// VerifyPayment reports the current status of a payment intent. It never changes
// remote state, so repeated calls with the same id are safe.
func (c *Client) VerifyPayment(ctx context.Context, paymentIntentID string) (*Verification, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", ErrInvalidRequest)
	}

	env, err := c.call(ctx, commandVerify, verifyData{PaymentIntentID: paymentIntentID})
	if err != nil {
		return nil, err
	}

	return &Verification{
		Succeeded: env.PaymentStatus == statusSucceeded,
		Status:    env.PaymentStatus,
	}, nil
}

func (c *Client) call(ctx context.Context, command string, data any) (*envelope, error) {
	body, err := json.Marshal(request{Command: command, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", command, err)
	}

	env, err := c.breaker.Execute(func() (*envelope, error) {
		return c.post(ctx, body)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, unreachable("too many recent failures", err)
	}
	return env, err
}

func (c *Client) post(ctx context.Context, body []byte) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, unreachable("request timed out", err)
		}
		return nil, unreachable("", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unreachable("failed to read response", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode >= 500 && decodeErr != nil:
		return nil, unreachable(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	case decodeErr != nil && resp.StatusCode >= 400:
		return nil, rejected(http.StatusText(resp.StatusCode))
	case decodeErr != nil:
		return nil, unreachable("malformed response", decodeErr)
	case !env.Status || resp.StatusCode >= 400:
		return nil, rejected(env.errorMessage())
	}

	return &env, nil
}

func isUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
