package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/checkout"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
	"github.com/ErnestIssa/peak-mode/internal/paystub"
	"github.com/ErnestIssa/peak-mode/internal/repository"
	"github.com/ErnestIssa/peak-mode/pkg/metrics"
)

type storefront struct {
	handler http.Handler
	stub    *paystub.Server
	store   *cart.Store
}

// newStorefront wires the full router against the local payment stub.
func newStorefront(t *testing.T) *storefront {
	t.Helper()
	stub := paystub.NewServer("pk_test_peak", paystub.TokenDecider{})
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	products := &CatalogMock{products: testProducts()}
	store := cart.NewStore(repository.NewMemoryRepository(), nil)
	gw := gateway.NewClient(srv.URL, gateway.WithHTTPClient(srv.Client()))
	sdk := capture.NewProcessorSDK(srv.URL+"/v3", srv.URL, srv.Client())
	o := checkout.New(gw, capture.NewLibrary(sdk), store, checkout.Config{
		CallTimeout:   5 * time.Second,
		RedirectDelay: 2 * time.Second,
	})
	t.Cleanup(o.Wait)

	reg := metrics.NewRegistry()
	router := NewRouter(
		RouterConfig{RequestTimeout: 10 * time.Second, MaxRequestBodySize: 1 << 20},
		NewProductHandler(products, 5*time.Second),
		NewCartHandler(store, products, 5*time.Second),
		NewCheckoutHandler(o),
		metrics.NewServerMetrics(reg, "storefront"),
		metrics.Handler(reg),
	)
	return &storefront{handler: router, stub: stub, store: store}
}

func (s *storefront) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func profileCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == ProfileCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie issued", ProfileCookie)
	return nil
}

func decodeCheckout(t *testing.T, rec *httptest.ResponseRecorder) CheckoutResponseDTO {
	t.Helper()
	var res CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

// openWithCart issues a profile, fills its cart and opens a checkout dialog.
func (s *storefront) openWithCart(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := profileCookie(t, rec)

	rec = s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{
		ItemKeyDTO: ItemKeyDTO{ID: "test-product", Source: "test"},
		Quantity:   2,
	}, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout", nil, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeCheckout(t, rec)
	require.Equal(t, "COLLECTING_INFO", res.Status)
	return cookie, res.CheckoutID
}

var janeDTO = CustomerInfoDTO{Name: "Jane Doe", Email: "jane@example.com"}

func TestCheckout_HappyPath(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/continue", janeDTO, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeCheckout(t, rec)
	require.Equal(t, "AWAITING_CARD_INPUT", res.Status)
	assert.Equal(t, "pk_test_peak", res.PublicKey)
	assert.Equal(t, json.Number("10"), res.Amount)
	assert.Equal(t, "SEK", res.Currency)
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/pay", PayRequestDTO{Token: "tok_visa"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res = decodeCheckout(t, rec)
	require.Equal(t, "SUCCEEDED", res.Status)
	require.NotNil(t, res.Redirect)
	assert.Equal(t, "/order-confirmation?payment_intent="+res.PaymentIntentID, res.Redirect.Path)
	assert.Equal(t, int64(2000), res.Redirect.AfterMS)
	assert.NotEmpty(t, res.Notice)

	rec = s.do(t, http.MethodGet, "/api/v1/cart", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var cartRes CartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&cartRes))
	assert.Empty(t, cartRes.Items)
}

func TestCheckout_DeclineThenRetryCard(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/continue", janeDTO, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/pay", PayRequestDTO{Token: "tok_chargeDeclined"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeCheckout(t, rec)
	require.Equal(t, "FAILED", res.Status)
	assert.Equal(t, "Your card was declined.", res.Reason)
	assert.True(t, res.CanRetryCard)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/retry", RetryRequestDTO{From: "card"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AWAITING_CARD_INPUT", decodeCheckout(t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/pay", PayRequestDTO{Token: "tok_visa"}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SUCCEEDED", decodeCheckout(t, rec).Status)
}

func TestCheckout_InvalidCustomerInfo(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/continue", CustomerInfoDTO{Name: "Jane"}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errRes ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errRes))
	assert.Equal(t, "email", errRes.Details)

	rec = s.do(t, http.MethodGet, "/api/v1/checkout/"+id, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeCheckout(t, rec)
	assert.Equal(t, "COLLECTING_INFO", res.Status)
	assert.Equal(t, "Please enter your email", res.Reason)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newStorefront(t)
	rec := s.do(t, http.MethodPost, "/api/v1/checkout", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := profileCookie(t, rec)
	id := decodeCheckout(t, rec).CheckoutID

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/continue", janeDTO, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCheckout_OtherProfileCannotSeeDialog(t *testing.T) {
	s := newStorefront(t)
	_, id := s.openWithCart(t)

	rec := s.do(t, http.MethodGet, "/api/v1/checkout/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_CloseForgetsDialog(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodDelete, "/api/v1/checkout/"+id, nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CANCELLED", decodeCheckout(t, rec).Status)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/continue", janeDTO, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/checkout/"+id, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_PayBeforeContinue(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/pay", PayRequestDTO{Token: "tok_visa"}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/pay", PayRequestDTO{}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_RetryValidation(t *testing.T) {
	s := newStorefront(t)
	cookie, id := s.openWithCart(t)

	rec := s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/retry", RetryRequestDTO{From: "somewhere"}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// not failed yet
	rec = s.do(t, http.MethodPost, "/api/v1/checkout/"+id+"/retry", nil, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStorefront(t)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	rec = s.do(t, http.MethodGet, "/api/v1/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `peakmode_storefront_http_requests_total{handler="GET /api/v1/products",status="200"} 1`)
}
