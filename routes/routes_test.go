package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"storefront/libs"
	"storefront/middleware"
	"storefront/models"
	"storefront/repositories"
	"storefront/services"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	products   []models.Product
	productErr error
	password   string
	submitted  []models.OrderSubmission
	profile    models.UserProfile
}

func (f *fakeStore) Signup(_ context.Context, req models.SignupRequest) error {
	f.profile = models.UserProfile{ID: "1", FullName: req.FullName, Phone: req.Phone}
	return nil
}

func (f *fakeStore) Me(_ context.Context, token string) (*models.UserProfile, error) {
	p := f.profile
	return &p, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, token string, update models.UpdateProfileRequest) (*models.UserProfile, error) {
	f.profile.FullName, f.profile.Phone, f.profile.Email = update.FullName, update.Phone, update.Email
	p := f.profile
	return &p, nil
}

func (f *fakeStore) GetProducts(_ context.Context) ([]models.Product, error) {
	return f.products, f.productErr
}

func (f *fakeStore) GetProduct(_ context.Context, id int) (*models.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, libs.ErrNotFound
}

func (f *fakeStore) Login(_ context.Context, username, password string) (string, error) {
	if password != f.password {
		return "", libs.ErrUnauthorized
	}
	return "tok-" + username, nil
}

func (f *fakeStore) ListOrders(_ context.Context, token string) ([]models.Order, error) {
	return []models.Order{{ID: 1, ItemsSummary: "Mug x1", TotalPrice: 120.5, Status: "pending"}}, nil
}

func (f *fakeStore) SubmitOrder(_ context.Context, token string, sub models.OrderSubmission) (*models.CheckoutResult, error) {
	f.submitted = append(f.submitted, sub)
	return &models.CheckoutResult{OrderID: 7, WhatsAppLink: "https://wa.me/1", ItemsSummary: sub.ItemsSummary, Total: sub.TotalPrice}, nil
}

type fixedLookup struct{}

func (fixedLookup) Resolve(_ context.Context, coord models.Coordinate) (models.StructuredAddress, bool) {
	if coord.Lat == 0 && coord.Lng == 0 {
		return models.StructuredAddress{}, false
	}
	return models.StructuredAddress{StreetAddress: "1 Long St", City: "Cape Town", Province: "Western Cape", Country: "South Africa", Lat: coord.Lat, Lng: coord.Lng}, true
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	store  *fakeStore
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &fakeStore{
		products: []models.Product{{ID: 1, Name: "Mug", Price: 120.5}, {ID: 2, Name: "Cap", Price: 80}},
		password: "secret",
	}
	logger := zap.NewNop()
	registry := services.NewSessionRegistry(repositories.NewMemoryStore(), fixedLookup{}, time.Hour, logger)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Registry: registry,
		Session:  middleware.SessionConfig{Secret: "test-secret", TTL: time.Hour},
		Products: services.NewProductService(store, logger),
		Auth:     services.NewAuthService(store, logger),
		Checkout: services.NewCheckoutService(store, nil, nil, 1024, logger),
		Logger:   logger,

		MaxUploadSize: 1024,
	})
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	if s.token != "" {
		req.Header.Set(middleware.SessionHeader, s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if token := w.Header().Get(middleware.SessionHeader); token != "" {
		s.token = token
	}

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) send(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req)
}

func decodeCart(t *testing.T, env envelope) models.CartResponse {
	t.Helper()
	var cart models.CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	return cart
}

func TestRoutes_Health(t *testing.T) {
	srv := newTestServer(t)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_CartFlow(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.send(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, srv.token)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.SessionCookie+"=")
	assert.Empty(t, decodeCart(t, env).Items)

	mug := models.ProductInput{ProductID: 1, Name: "Mug", UnitPrice: 120.5}
	srv.send(t, http.MethodPost, "/cart/items", mug)
	_, env = srv.send(t, http.MethodPost, "/cart/items", mug)
	cart := decodeCart(t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Count)
	assert.Equal(t, 241.0, cart.Total)

	_, env = srv.send(t, http.MethodPost, "/products/2/cart", nil)
	assert.Equal(t, 3, decodeCart(t, env).Count)

	_, env = srv.send(t, http.MethodPatch, "/cart/items/1", map[string]int{"quantity": 0})
	cart = decodeCart(t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].ProductID)

	_, env = srv.send(t, http.MethodDelete, "/cart/items/2", nil)
	assert.Empty(t, decodeCart(t, env).Items)
}

func TestRoutes_SessionsAreIsolated(t *testing.T) {
	alice := newTestServer(t)
	alice.send(t, http.MethodPost, "/cart/items", models.ProductInput{ProductID: 1, Name: "Mug", UnitPrice: 10})

	bob := &testServer{router: alice.router}
	_, env := bob.send(t, http.MethodGet, "/cart", nil)
	assert.Empty(t, decodeCart(t, env).Items)
	assert.NotEqual(t, alice.token, bob.token)

	_, env = alice.send(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, 1, decodeCart(t, env).Count)
}

func TestRoutes_TamperedTokenStartsNewSession(t *testing.T) {
	srv := newTestServer(t)
	srv.send(t, http.MethodPost, "/cart/items", models.ProductInput{ProductID: 1, Name: "Mug", UnitPrice: 10})

	srv.token += "x"
	_, env := srv.send(t, http.MethodGet, "/cart", nil)
	assert.Empty(t, decodeCart(t, env).Items)
}

func TestRoutes_InvalidRequests(t *testing.T) {
	srv := newTestServer(t)

	w, env := srv.send(t, http.MethodPost, "/cart/items", map[string]any{"name": "No id"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = srv.send(t, http.MethodPatch, "/cart/items/abc", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.send(t, http.MethodPatch, "/cart/items/1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.send(t, http.MethodPost, "/address/resolve", map[string]float64{"lat": 120, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = srv.send(t, http.MethodGet, "/products/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutes_Products(t *testing.T) {
	srv := newTestServer(t)
	_, env := srv.send(t, http.MethodGet, "/products", nil)

	var products []models.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 2)

	srv.store.productErr = errors.New("connection refused")
	w, env := srv.send(t, http.MethodGet, "/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestRoutes_Address(t *testing.T) {
	srv := newTestServer(t)

	_, env := srv.send(t, http.MethodPost, "/address/resolve", map[string]float64{"lat": -33.92, "lng": 18.42})
	var draft models.AddressDraftResponse
	require.NoError(t, json.Unmarshal(env.Data, &draft))
	assert.Equal(t, "applied", draft.Outcome)
	require.NotNil(t, draft.Address)
	assert.Equal(t, "Cape Town", draft.Address.City)

	_, env = srv.send(t, http.MethodPost, "/address/resolve", map[string]float64{"lat": 0, "lng": 0})
	require.NoError(t, json.Unmarshal(env.Data, &draft))
	assert.Equal(t, "failed", draft.Outcome)
	assert.Equal(t, "Cape Town", draft.Address.City)

	srv.send(t, http.MethodPut, "/address", models.StructuredAddress{StreetAddress: "9 Beach Rd", City: "Durban"})
	_, env = srv.send(t, http.MethodGet, "/address", nil)
	require.NoError(t, json.Unmarshal(env.Data, &draft))
	assert.Equal(t, "Durban", draft.Address.City)
}

func multipartCheckout(t *testing.T, withFile bool) *http.Request {
	t.Helper()
	if withFile {
		return multipartReceipt(t, []byte("png"))
	}
	return multipartReceipt(t, nil)
}

func multipartReceipt(t *testing.T, receipt []byte) *http.Request {
	t.Helper()
	withFile := receipt != nil
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("address", `{"street_address":"1 Long St","city":"Cape Town"}`))
	if withFile {
		part, err := mw.CreateFormFile("file", "proof.png")
		require.NoError(t, err)
		_, err = part.Write(receipt)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/checkout", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRoutes_CheckoutFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.send(t, http.MethodPost, "/products/1/cart", nil)

	w, _ := srv.do(t, multipartCheckout(t, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = srv.send(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "amy", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := srv.send(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "amy", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	var status models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.IsLoggedIn)
	assert.Equal(t, 1, status.CartCount)

	w, _ = srv.do(t, multipartCheckout(t, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = srv.do(t, multipartCheckout(t, true))
	require.Equal(t, http.StatusCreated, w.Code)
	var result models.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 7, result.OrderID)
	assert.Equal(t, "https://wa.me/1", result.WhatsAppLink)

	require.Len(t, srv.store.submitted, 1)
	assert.Equal(t, "Mug x1", srv.store.submitted[0].ItemsSummary)
	assert.Equal(t, "Cape Town", srv.store.submitted[0].Address.City)

	_, env = srv.send(t, http.MethodGet, "/cart", nil)
	assert.Empty(t, decodeCart(t, env).Items)

	w, env = srv.send(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	assert.Len(t, orders, 1)

	srv.send(t, http.MethodPost, "/auth/logout", nil)
	w, _ = srv.send(t, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_CheckoutRejectsOversizedReceipt(t *testing.T) {
	srv := newTestServer(t)
	srv.send(t, http.MethodPost, "/products/1/cart", nil)
	srv.send(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "amy", Password: "secret"})

	w, env := srv.do(t, multipartReceipt(t, make([]byte, 2048)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = srv.do(t, multipartReceipt(t, make([]byte, 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Empty(t, srv.store.submitted)
	_, env = srv.send(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, 1, decodeCart(t, env).Count)
}

func TestRoutes_SignupAndProfile(t *testing.T) {
	srv := newTestServer(t)

	w, _ := srv.send(t, http.MethodPost, "/auth/signup", models.SignupRequest{FullName: "Amy Adams", Phone: "0821234567"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := srv.send(t, http.MethodPost, "/auth/signup", models.SignupRequest{FullName: "Amy Adams", Phone: "0821234567", Password: "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var status models.SessionStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.False(t, status.IsLoggedIn)

	w, _ = srv.send(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	srv.send(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "0821234567", Password: "secret"})

	w, env = srv.send(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile models.ProfileResponse
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Amy Adams", profile.User.FullName)
	assert.Equal(t, 1, profile.TotalOrders)
	assert.InDelta(t, 120.5, profile.TotalSpent, 0.001)

	w, _ = srv.send(t, http.MethodPut, "/auth/me", models.UpdateProfileRequest{FullName: "Amy Adams", Phone: "0821234567", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = srv.send(t, http.MethodPut, "/auth/me", models.UpdateProfileRequest{FullName: "Amy A.", Phone: "0831234567", Email: "amy@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var user models.UserProfile
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Amy A.", user.FullName)
	assert.Equal(t, "amy@example.com", srv.store.profile.Email)
}
