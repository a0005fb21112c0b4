package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/config"
	"github.com/tailorbook/tailorbook-api/controllers"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
)

func TestMain(m *testing.M) {
	os.Setenv("GO_ENV", "test")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// newTestApplication wires the application against an in-memory database and
// in-process cache implementations
func newTestApplication(t *testing.T) *application {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.MeasurementSet{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	cfg := &config.Config{
		GoEnv:         "test",
		JWTSecret:     "test-secret",
		JWTIssuer:     "tailorbook-test",
		JWTExpiration: time.Hour,
	}

	viewCache := services.NewInMemoryCustomerViewCache()
	blacklist := services.NewInMemoryTokenBlacklist()
	auth := services.NewAuthService(db, cfg, blacklist)
	lifecycle := services.NewOrderLifecycleService(db, viewCache)

	return &application{
		db:           db,
		auth:         auth,
		authCtrl:     controllers.NewAuthController(auth),
		customerCtrl: controllers.NewCustomerController(db, viewCache, nil),
		measureCtrl:  controllers.NewMeasurementController(db, lifecycle, viewCache, nil),
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(newTestApplication(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "TailorBook CRM API is running", body["message"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := setupRouter(newTestApplication(t))

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/customers"},
		{http.MethodGet, "/api/v1/customers"},
		{http.MethodGet, "/api/v1/customers/1"},
		{http.MethodPut, "/api/v1/customers/1"},
		{http.MethodDelete, "/api/v1/customers/1"},
		{http.MethodPost, "/api/v1/customers/1/measurement-sets"},
		{http.MethodGet, "/api/v1/customers/1/measurement-sets"},
		{http.MethodPut, "/api/v1/customers/1/measurement-sets/1/order-status"},
		{http.MethodPut, "/api/v1/customers/1/measurement-sets/1/payment-status"},
		{http.MethodPost, "/api/v1/customers/1/measurement-sets/1/photo"},
		{http.MethodPost, "/api/v1/auth/logout"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "/login", body["redirect"])
		})
	}
}

func TestPhotoRouteWithoutS3Configured(t *testing.T) {
	app := newTestApplication(t)
	router := setupRouter(app)

	_, token, err := app.auth.SignUp(context.Background(), "Kamala Silva", "kamala@example.com", "secret123")
	if err != nil {
		t.Fatalf("Failed to sign up test user: %v", err)
	}

	customer := models.Customer{Name: "Nimal Perera", NIC: "199012345678", Contact: "0771234567", UserID: 1}
	if err := app.db.Create(&customer).Error; err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}
	set := models.MeasurementSet{CustomerID: customer.ID, Date: time.Now(), Measurements: `{"chest":40}`}
	if err := app.db.Create(&set).Error; err != nil {
		t.Fatalf("Failed to create test measurement set: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("photo", "garment.jpg")
	part.Write([]byte("fake image bytes"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/photo", customer.ID, set.ID), body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Without S3 the route answers with an envelope instead of panicking
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var decoded map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "PHOTOS_DISABLED", decoded["error"].(map[string]interface{})["code"])
}

func TestSignupRouteRegistered(t *testing.T) {
	router := setupRouter(newTestApplication(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", nil)
	router.ServeHTTP(w, req)

	// Empty body fails validation, proving the handler is wired
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
