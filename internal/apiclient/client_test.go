package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokokasir/internal/cache"
	"tokokasir/internal/domain"
	"tokokasir/internal/httpapi"
	"tokokasir/internal/register"
	"tokokasir/internal/service"
	"tokokasir/internal/store"
	"tokokasir/internal/store/memory"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopCatalogCache{}, time.Minute, "")
	general, err := svc.GeneralMember(context.Background())
	require.NoError(t, err)
	registry := register.NewRegistry(svc, register.SessionContext{GeneralMember: general}, 0)
	auth := httpapi.NewAuthManager("test-secret-key", time.Hour, repo)

	srv := httptest.NewServer(httpapi.New(svc, registry, auth, "*").Handler())
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	client := New(srv.URL+"/", "")
	_, err := client.Login(context.Background(), "cashier", "cashier123")
	require.NoError(t, err)
	return client
}

func TestClientLookups(t *testing.T) {
	srv := newServer(t)
	client := loggedIn(t, srv)
	ctx := context.Background()

	product, err := client.GetProduct(ctx, "MNY-1")
	require.NoError(t, err)
	assert.Equal(t, "prd-minyak-1l", product.ID)
	assert.Len(t, product.PriceTiers, 2)

	_, err = client.GetProduct(ctx, "does-not-exist")
	assert.ErrorIs(t, err, store.ErrNotFound)

	products, err := client.SearchProducts(ctx, "kopi")
	require.NoError(t, err)
	require.Len(t, products, 1)

	member, err := client.GetMember(ctx, "mbr-warung-ijo")
	require.NoError(t, err)
	assert.Equal(t, "7.5", member.Discount.String())

	attendants, err := client.ListAttendants(ctx)
	require.NoError(t, err)
	assert.Len(t, attendants, 3)
}

func TestClientRequiresToken(t *testing.T) {
	srv := newServer(t)
	_, err := New(srv.URL, "").SearchProducts(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = New(srv.URL, "").Login(context.Background(), "cashier", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionOverHTTP(t *testing.T) {
	srv := newServer(t)
	client := loggedIn(t, srv)
	ctx := context.Background()

	general, err := client.GetMember(ctx, domain.DefaultGeneralMemberID)
	require.NoError(t, err)
	session := register.NewSession(register.SessionContext{
		TerminalID:    "kasir-remote",
		CashierID:     "cashier",
		GeneralMember: general,
	}, client, 0)

	_, err = session.AddProduct(ctx, "AIR-600")
	require.NoError(t, err)
	_, err = session.UpdateQuantity("prd-air-600", 24)
	require.NoError(t, err)
	_, err = session.SelectAttendant(ctx, "att-dewi")
	require.NoError(t, err)

	pending, err := session.RequestSettlement(register.ModePaid, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(84000), pending.GrandTotal)

	result, err := session.ConfirmSettlement(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(16000), result.Sale.Change)
	assert.False(t, result.Sale.Duplicate)

	product, err := client.GetProduct(ctx, "prd-air-600")
	require.NoError(t, err)
	assert.Equal(t, 216, product.Stock)
}

func TestSuspendedSalesOverHTTP(t *testing.T) {
	srv := newServer(t)
	client := loggedIn(t, srv)
	ctx := context.Background()

	saved, err := client.CreateSuspendedSale(ctx, domain.SuspendRequest{
		Label: "meja 2",
		Lines: []domain.CartLine{{ProductID: "prd-teh-celup", Name: "Teh Celup 25s", Quantity: 2, StockCeiling: 90,
			PriceTiers: []domain.PriceTier{{MinQty: 1, Price: 9800}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cashier", saved.CashierID)

	listed, err := client.ListSuspendedSales(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, client.DeleteSuspendedSale(ctx, saved.ID))
	assert.ErrorIs(t, client.DeleteSuspendedSale(ctx, saved.ID), store.ErrNotFound)
}

func TestResponseErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, store.ErrNotFound},
		{http.StatusConflict, store.ErrInsufficientStock},
		{http.StatusBadRequest, store.ErrInvalidTransaction},
		{http.StatusUnprocessableEntity, store.ErrInvalidTransaction},
		{http.StatusForbidden, ErrUnauthorized},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))
		err := New(srv.URL, "t").DeleteSuspendedSale(context.Background(), "x")
		srv.Close()
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.ErrorContains(t, err, "nope")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	err := New(srv.URL, "t").DeleteSuspendedSale(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
