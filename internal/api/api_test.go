package api_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/slick-storefront/internal/api"
	"github.com/example/slick-storefront/internal/api/middleware"
	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/checkout"
	"github.com/example/slick-storefront/internal/domain"
	"github.com/example/slick-storefront/internal/domain/cart"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/domain/user"
	"github.com/example/slick-storefront/internal/infrastructure/store/mocks"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/query"
)

const testSecret = "test-secret-key-that-is-32-chars!"

var (
	airMax   = catalog.Product{ID: "p-air", Name: "Air Max", Price: 300000, Category: "Nam", Sizes: []string{"41", "42"}}
	ballet   = catalog.Product{ID: "p-ballet", Name: "Ballet Flat", Price: 100000, Category: "Nữ"}
	runner   = catalog.Product{ID: "p-run", Name: "Runner", Price: 200000, Category: "Nam", IsTrending: true}
	products = []catalog.Product{airMax, ballet, runner}
)

type testServer struct {
	handler  http.Handler
	source   *mocks.MockProductSource
	accounts *mocks.MockCartRepository
	devices  *mocks.MockCartRepository
	orders   *mocks.MockOrderRepository
	users    *mocks.MockUserRepository
	jwt      *auth.JWTService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()
	s := &testServer{
		source:   mocks.NewMockProductSource(products...),
		accounts: mocks.NewMockCartRepository(),
		devices:  mocks.NewMockCartRepository(),
		orders:   mocks.NewMockOrderRepository(),
		users:    mocks.NewMockUserRepository(),
		jwt:      auth.NewJWTService(testSecret, 15*time.Minute, 24*time.Hour),
	}

	hub := notification.NewHub(time.Minute)
	t.Cleanup(hub.Close)

	reader := catalog.NewReader(s.source, s.source, log)
	handlers := api.NewHandlers(api.Deps{
		Catalog:  reader,
		Accounts: s.accounts,
		Devices:  s.devices,
		Checkout: checkout.NewAssembler(reader, s.orders, log, checkout.WithToaster(hub)),
		Orders:   query.NewHandler(s.orders, reader, log),
		Toasts:   hub,
		Logger:   log,
	})
	s.handler = api.NewRouter(api.RouterConfig{
		Handlers: handlers,
		Auth:     api.NewAuthHandlers(user.NewService(s.users, log), s.jwt, hub, log),
		JWT:      s.jwt,
	})
	return s
}

type request struct {
	method string
	path   string
	body   any
	token  string
	device string
}

func (s *testServer) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.body))
	}
	r := httptest.NewRequest(req.method, req.path, &body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.device != "" {
		r.Header.Set(middleware.DeviceIDHeader, req.device)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	return rec
}

// register signs up a user and returns its access token.
func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: map[string]string{
		"name": "An", "email": email, "password": "secret-123",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func validForm() checkout.Form {
	return checkout.Form{
		Contact: order.Contact{
			Email: "an@example.com", FirstName: "An", LastName: "Nguyen",
			Address: "1 Le Loi", City: "HCM", ZipCode: "700000", Phone: "0900000000",
		},
		PaymentMethod: order.PaymentCOD,
	}
}

// ============================================
// Catalog Tests
// ============================================

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/health"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListProducts_FilterAndSort(t *testing.T) {
	s := newTestServer(t)

	q := url.Values{"category": {"Nam"}, "sort": {"price-asc"}}
	rec := s.do(t, request{method: http.MethodGet, path: "/api/products?" + q.Encode()})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]catalog.Product](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "p-run", got[0].ID)
	assert.Equal(t, "p-air", got[1].ID)
	assert.Empty(t, rec.Header().Get(api.DegradedHeader))
}

func TestListProducts_Search(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/products?q=ballet"})

	got := decode[[]catalog.Product](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "p-ballet", got[0].ID)
}

func TestListProducts_BackendDownDegrades(t *testing.T) {
	s := newTestServer(t)
	s.source.ListErr = errors.New("connection refused")

	rec := s.do(t, request{method: http.MethodGet, path: "/api/products"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(api.DegradedHeader))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTrendingProducts(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/products/trending"})

	got := decode[[]catalog.Product](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "p-run", got[0].ID)
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/products/p-air"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Air Max", decode[catalog.Product](t, rec).Name)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/products/nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_BackendDown(t *testing.T) {
	s := newTestServer(t)
	s.source.GetErr = errors.New("timeout")

	rec := s.do(t, request{method: http.MethodGet, path: "/api/products/p-air"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListCategories(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/categories"})

	assert.Equal(t, catalog.Categories, decode[[]string](t, rec))
}

// ============================================
// Cart Tests
// ============================================

func TestAddToCart_GuestDevice(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "p-air", Size: "42", Color: "Đen", Quantity: 2,
	}})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.CartResponse](t, rec)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, []cart.Line{{ProductID: "p-air", Size: "42", Color: "Đen", Quantity: 2}}, s.devices.Lines("dev-1"))
	assert.Empty(t, s.accounts.SaveCalls)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/notifications", device: "dev-1"})
	toasts := decode[[]notification.Toast](t, rec)
	require.Len(t, toasts, 1)
	assert.Equal(t, notification.KindSuccess, toasts[0].Kind)
	assert.Equal(t, "Đã thêm 2 x Air Max (Size: 42) vào giỏ hàng.", toasts[0].Message)
}

func TestAddToCart_SizeRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "p-air", Quantity: 1,
	}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.devices.SaveCalls)

	toasts := decode[[]notification.Toast](t, s.do(t, request{method: http.MethodGet, path: "/api/notifications", device: "dev-1"}))
	require.Len(t, toasts, 1)
	assert.Equal(t, notification.KindError, toasts[0].Kind)
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "nope", Quantity: 1,
	}})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddToCart_InvalidQuantity(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "p-ballet", Quantity: 0,
	}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddToCart_QuantityAboveLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "p-ballet", Quantity: 92233720368548,
	}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.devices.Lines("dev-1"))
}

func TestAddToCart_NoOwner(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", body: api.CartItemRequest{
		ProductID: "p-ballet", Quantity: 1,
	}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCart_LoadFailureIsUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.devices.ListErr = domain.Unavailable("list lines", errors.New("redis down"))

	rec := s.do(t, request{method: http.MethodGet, path: "/api/cart", device: "dev-1"})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	s := newTestServer(t)
	s.devices.SetLines("dev-1",
		cart.Line{ProductID: "p-air", Size: "42", Quantity: 1},
		cart.Line{ProductID: "p-ballet", Quantity: 1},
	)

	rec := s.do(t, request{method: http.MethodPut, path: "/api/cart/items", device: "dev-1", body: api.CartItemRequest{
		ProductID: "p-air", Size: "42", Quantity: 5,
	}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, decode[api.CartResponse](t, rec).TotalCount)

	rec = s.do(t, request{method: http.MethodDelete, path: "/api/cart/items?product_id=p-ballet", device: "dev-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []cart.Line{{ProductID: "p-air", Size: "42", Quantity: 5}}, s.devices.Lines("dev-1"))

	rec = s.do(t, request{method: http.MethodDelete, path: "/api/cart", device: "dev-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.devices.Lines("dev-1"))
}

// ============================================
// Checkout Tests
// ============================================

func TestCheckout_FullFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")

	for _, item := range []api.CartItemRequest{
		{ProductID: "p-air", Size: "42", Quantity: 2},
		{ProductID: "p-ballet", Quantity: 1},
	} {
		rec := s.do(t, request{method: http.MethodPost, path: "/api/cart/items", token: token, body: item})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(t, request{method: http.MethodPost, path: "/api/checkout/quote", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decode[checkout.Quote](t, rec)
	assert.Equal(t, int64(700000), quote.Subtotal)
	assert.Equal(t, int64(899000), quote.Total)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/checkout", token: token, body: validForm()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[query.OrderReadModel](t, rec)
	assert.Equal(t, int64(899000), placed.Total)
	assert.Equal(t, "Air Max", placed.Items[0].Name)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/cart", token: token})
	assert.Equal(t, 0, decode[api.CartResponse](t, rec).TotalCount)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/orders", token: token})
	orders := decode[[]query.OrderReadModel](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, placed.ID, orders[0].ID)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/orders/" + placed.ID, token: token})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckout_RequiresLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodPost, path: "/api/checkout", device: "dev-1", body: validForm()})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, s.orders.CreateCalls)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")

	rec := s.do(t, request{method: http.MethodPost, path: "/api/checkout", token: token, body: validForm()})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_CartLoadFailureIsUnavailable(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")
	s.accounts.ListErr = domain.Unavailable("list lines", errors.New("connection refused"))

	rec := s.do(t, request{method: http.MethodPost, path: "/api/checkout", token: token, body: validForm()})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Empty(t, s.orders.CreateCalls)
}

func TestCheckout_InvalidContact(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")
	form := validForm()
	form.Contact.Phone = "  "

	rec := s.do(t, request{method: http.MethodPost, path: "/api/checkout", token: token, body: form})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_OtherOwner(t *testing.T) {
	s := newTestServer(t)
	s.orders.SetOrder(order.Order{ID: "order-1", OwnerID: "someone-else"})
	token := s.register(t, "an@example.com")

	rec := s.do(t, request{method: http.MethodGet, path: "/api/orders/order-1", token: token})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrders_RequiresLogin(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, request{method: http.MethodGet, path: "/api/orders"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Auth Tests
// ============================================

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "an@example.com")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"duplicate email", map[string]string{"name": "B", "email": "AN@example.com", "password": "secret-123"}, http.StatusConflict},
		{"short password", map[string]string{"name": "B", "email": "b@example.com", "password": "short"}, http.StatusBadRequest},
		{"missing name", map[string]string{"email": "c@example.com", "password": "secret-123"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, request{method: http.MethodPost, path: "/api/auth/register", body: tt.body})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "an@example.com")

	rec := s.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "an@example.com", "password": "secret-123",
	}})
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"access_token", "refresh_token"}, names)

	rec = s.do(t, request{method: http.MethodPost, path: "/api/auth/login", body: map[string]string{
		"email": "an@example.com", "password": "wrong-password",
	}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")

	rec := s.do(t, request{method: http.MethodGet, path: "/api/auth/me", token: token})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "an@example.com", decode[api.UserResponse](t, rec).Email)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")
	claims, err := s.jwt.ValidateAccessToken(token)
	require.NoError(t, err)
	refresh, _, err := s.jwt.GenerateRefreshToken(claims.UserID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: refresh})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode[api.AuthResponse](t, rec).AccessToken)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")

	r := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	r.AddCookie(&http.Cookie{Name: "refresh_token", Value: token})
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_DropsToasts(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "an@example.com")
	s.do(t, request{method: http.MethodPost, path: "/api/cart/items", token: token, body: api.CartItemRequest{
		ProductID: "p-ballet", Quantity: 1,
	}})

	rec := s.do(t, request{method: http.MethodPost, path: "/api/auth/logout", token: token})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, request{method: http.MethodGet, path: "/api/notifications", token: token})
	assert.JSONEq(t, `[]`, rec.Body.String())
}
