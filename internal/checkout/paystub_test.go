package checkout

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
	"github.com/ErnestIssa/peak-mode/internal/paystub"
	"github.com/ErnestIssa/peak-mode/internal/repository"
)

type stubEnv struct {
	stub  *paystub.Server
	gw    *gateway.Client
	o     *Orchestrator
	store *cart.Store
}

func newStubEnv(t *testing.T) *stubEnv {
	t.Helper()
	stub := paystub.NewServer("pk_test_peak", paystub.TokenDecider{})
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	gw := gateway.NewClient(srv.URL, gateway.WithHTTPClient(srv.Client()))
	sdk := capture.NewProcessorSDK(srv.URL+"/v3", srv.URL, srv.Client())
	store := cart.NewStore(repository.NewMemoryRepository(), nil)

	_, err := store.AddOrMergeItem(context.Background(), profile, domain.CartItem{
		ID:        "1",
		Name:      "Training Tee",
		UnitPrice: decimal.RequireFromString("49.5"),
		Quantity:  2,
		Currency:  "SEK",
		Source:    domain.SourceTest,
	})
	require.NoError(t, err)

	return &stubEnv{
		stub:  stub,
		gw:    gw,
		o:     New(gw, capture.NewLibrary(sdk), store, Config{}),
		store: store,
	}
}

func TestStub_FullCheckout(t *testing.T) {
	env := newStubEnv(t)
	d := env.o.Open(profile)

	view, err := d.Continue(context.Background(), jane)
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutStateAwaitingCardInput, view.State)
	assert.Equal(t, "pk_test_peak", view.PublicKey)

	view, err = d.Pay(context.Background(), "tok_visa")
	require.NoError(t, err)
	require.Equal(t, domain.CheckoutStateSucceeded, view.State)

	intent, ok := env.stub.Intent(view.PaymentIntentID)
	require.True(t, ok)
	assert.Equal(t, paystub.StatusSucceeded, intent.Status)
	assert.Equal(t, "99", intent.Amount.String())
	assert.Equal(t, "sek", intent.Currency)
	assert.Equal(t, int64(1), env.stub.ScriptLoads())

	items, err := env.store.GetAll(context.Background(), profile)
	require.NoError(t, err)
	assert.Empty(t, items)

	// verification is read-only
	for i := 0; i < 2; i++ {
		v, err := env.gw.VerifyPayment(context.Background(), view.PaymentIntentID)
		require.NoError(t, err)
		assert.True(t, v.Succeeded)
	}
}

func TestStub_ProcessingIsNotSuccess(t *testing.T) {
	env := newStubEnv(t)
	d := env.o.Open(profile)

	_, err := d.Continue(context.Background(), jane)
	require.NoError(t, err)

	view, err := d.Pay(context.Background(), "tok_processing")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStateFailed, view.State)
	assert.Equal(t, reasonNotConfirmed, view.Reason)

	items, err := env.store.GetAll(context.Background(), profile)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStub_GatewayRejection(t *testing.T) {
	env := newStubEnv(t)
	env.stub.FailNext("card network down")
	d := env.o.Open(profile)

	view, err := d.Continue(context.Background(), jane)
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStateFailed, view.State)
	assert.Equal(t, "card network down", view.Reason)
	assert.Zero(t, env.stub.ScriptLoads())
}

func TestStub_DeclineThenRetryCard(t *testing.T) {
	env := newStubEnv(t)
	d := env.o.Open(profile)

	_, err := d.Continue(context.Background(), jane)
	require.NoError(t, err)

	view, err := d.Pay(context.Background(), "tok_chargeDeclined")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStateFailed, view.State)
	assert.Equal(t, "Your card was declined.", view.Reason)
	require.True(t, view.CanRetryCard)

	_, err = d.Retry(RetryFromCard)
	require.NoError(t, err)

	view, err = d.Pay(context.Background(), "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutStateSucceeded, view.State)
}
