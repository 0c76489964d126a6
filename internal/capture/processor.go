package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	intentSucceeded       = "succeeded"
	intentProcessing      = "processing"
	intentRequiresCapture = "requires_capture"
	intentRequiresAction  = "requires_action"
)

// ProcessorSDK speaks the processor's client-side API: it fetches the library
// asset and confirms payment intents with a publishable key and a client secret.
type ProcessorSDK struct {
	scriptURL string
	apiURL    string
	http      *http.Client
	loaded    atomic.Bool
}

func NewProcessorSDK(scriptURL, apiURL string, client *http.Client) *ProcessorSDK {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &ProcessorSDK{
		scriptURL: scriptURL,
		apiURL:    strings.TrimRight(apiURL, "/"),
		http:      client,
	}
}

func (p *ProcessorSDK) Loaded() bool {
	return p.loaded.Load()
}

func (p *ProcessorSDK) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build script request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch processor script: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("processor script returned status %d", resp.StatusCode)
	}
	p.loaded.Store(true)
	return nil
}

func (p *ProcessorSDK) NewInstance(publicKey string) (Instance, error) {
	if strings.TrimSpace(publicKey) == "" {
		return nil, ErrMissingPublicKey
	}
	return &processorInstance{sdk: p, publicKey: publicKey}, nil
}

type processorInstance struct {
	sdk       *ProcessorSDK
	publicKey string
	destroyed atomic.Bool
}

type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (i *processorInstance) Confirm(ctx context.Context, clientSecret, cardToken string, billing Billing) (string, error) {
	if i.destroyed.Load() {
		return "", ErrStaleHandle
	}
	intentID, ok := intentIDFromSecret(clientSecret)
	if !ok {
		return "", declined("invalid payment session")
	}

	form := url.Values{}
	form.Set("client_secret", clientSecret)
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][token]", cardToken)
	form.Set("payment_method_data[billing_details][name]", billing.Name)
	form.Set("payment_method_data[billing_details][email]", billing.Email)
	if billing.Phone != "" {
		form.Set("payment_method_data[billing_details][phone]", billing.Phone)
	}

	endpoint := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", i.sdk.apiURL, url.PathEscape(intentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+i.publicKey)

	resp, err := i.sdk.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var body intentResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: malformed confirm response: %v", ErrUnavailable, err)
	}

	if body.Error != nil {
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, body.Error.Message)
		}
		return "", declined(body.Error.Message)
	}

	switch body.Status {
	case intentSucceeded, intentProcessing, intentRequiresCapture:
		return body.ID, nil
	case intentRequiresAction:
		return "", declined("Your card requires additional authentication.")
	default:
		if body.LastPaymentError != nil && body.LastPaymentError.Message != "" {
			return "", declined(body.LastPaymentError.Message)
		}
		return "", declined(fmt.Sprintf("payment could not be completed (status %s)", body.Status))
	}
}

func (i *processorInstance) Destroy() {
	i.destroyed.Store(true)
}

// intentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func intentIDFromSecret(secret string) (string, bool) {
	idx := strings.Index(secret, "_secret_")
	if idx <= 0 {
		return "", false
	}
	return secret[:idx], true
}
