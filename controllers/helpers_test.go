package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/models"
)

// setupControllerTestDB creates an in-memory database with all tables migrated
func setupControllerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Customer{}, &models.MeasurementSet{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// mockAuthMiddleware injects a fixed authenticated user, standing in for the
// real token middleware
func mockAuthMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

// createTestUser inserts a shop user and returns it
func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Name: "Test Tailor", Email: email}
	if err := user.SetPassword("secret123"); err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// createTestCustomer inserts a customer owned by the given user
func createTestCustomer(t *testing.T, db *gorm.DB, userID uint, name string) *models.Customer {
	t.Helper()

	customer := &models.Customer{
		Name:    name,
		NIC:     "199012345678",
		Contact: "0771234567",
		UserID:  userID,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("Failed to create test customer: %v", err)
	}

	return customer
}

// performJSONRequest runs a request with an optional JSON body through the
// router and returns the recorder
func performJSONRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

// performAuthedRequest runs a bodyless request carrying a Bearer token
func performAuthedRequest(router *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

// decodeBody unmarshals a recorded response body into a generic map
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}

	return body
}

// errorCode pulls the error code out of a failure envelope
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	body := decodeBody(t, w)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Response has no error object: %s", w.Body.String())
	}
	code, _ := errObj["code"].(string)

	return code
}
