package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/controllers"
	"github.com/tailorbook/tailorbook-api/middleware"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
	"github.com/tailorbook/tailorbook-api/tests/testutil"
)

// LifecycleIntegrationSuite drives the customer and order lifecycle through
// the real controllers, service layer and view cache
type LifecycleIntegrationSuite struct {
	suite.Suite
	db     *gorm.DB
	auth   *services.AuthService
	cache  services.CustomerViewCache
	router *gin.Engine
	token  string
}

func (s *LifecycleIntegrationSuite) SetupSuite() {
	s.db = testutil.SetupTestDB(s.T())
	s.auth = testutil.NewTestAuthService(s.db)
	s.cache = services.NewInMemoryCustomerViewCache()

	lifecycle := services.NewOrderLifecycleService(s.db, s.cache)
	customerCtrl := controllers.NewCustomerController(s.db, s.cache, nil)
	measureCtrl := controllers.NewMeasurementController(s.db, lifecycle, s.cache, nil)

	s.router = gin.New()
	customers := s.router.Group("/api/v1/customers", middleware.RequireAuth(s.auth))
	customers.POST("", customerCtrl.CreateCustomer)
	customers.GET("", customerCtrl.ListCustomers)
	customers.GET("/:id", customerCtrl.GetCustomer)
	customers.PUT("/:id", customerCtrl.UpdateCustomer)
	customers.DELETE("/:id", customerCtrl.DeleteCustomer)
	customers.POST("/:id/measurement-sets", measureCtrl.AddMeasurementSet)
	customers.GET("/:id/measurement-sets", measureCtrl.ListMeasurementSets)
	customers.PUT("/:id/measurement-sets/:setId/order-status", measureCtrl.UpdateOrderStatus)
	customers.PUT("/:id/measurement-sets/:setId/payment-status", measureCtrl.UpdatePaymentStatus)
}

func (s *LifecycleIntegrationSuite) SetupTest() {
	testutil.CleanupTables(s.T(), s.db)
	_, token := testutil.SignUpUser(s.T(), s.auth, "Kamala Silva", "kamala@example.com", "secret123")
	s.token = token
}

func (s *LifecycleIntegrationSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	return w
}

func (s *LifecycleIntegrationSuite) data(w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	data, ok := body["data"].(map[string]interface{})
	s.Require().True(ok, "Response has no data object: %s", w.Body.String())
	return data
}

func (s *LifecycleIntegrationSuite) createCustomer() uint {
	w := s.request(http.MethodPost, "/api/v1/customers", gin.H{
		"name":    "Nimal Perera",
		"nic":     "199012345678",
		"contact": "0771234567",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	return uint(s.data(w)["id"].(float64))
}

func (s *LifecycleIntegrationSuite) createSet(customerID uint) uint {
	w := s.request(http.MethodPost, fmt.Sprintf("/api/v1/customers/%d/measurement-sets", customerID), gin.H{
		"measurements": gin.H{"chest": 40, "waist": 34},
		"job_number":   "JOB-1042",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	return uint(s.data(w)["id"].(float64))
}

func (s *LifecycleIntegrationSuite) TestOrderLifecycleStampsDates() {
	customerID := s.createCustomer()
	setID := s.createSet(customerID)

	// Walk the order through its stages
	for _, status := range []string{"In Progress", "Ready"} {
		w := s.request(http.MethodPut,
			fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/order-status", customerID, setID),
			gin.H{"status": status})
		s.Equal(http.StatusOK, w.Code)

		data := s.data(w)
		s.Equal(status, data["order_status"])
		s.Nil(data["completion_date"], "Only Completed stamps the completion date")
	}

	before := time.Now()
	w := s.request(http.MethodPut,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/order-status", customerID, setID),
		gin.H{"status": "Completed"})
	s.Equal(http.StatusOK, w.Code)

	var stored models.MeasurementSet
	s.Require().NoError(s.db.First(&stored, setID).Error)
	s.Require().NotNil(stored.CompletionDate)
	s.WithinDuration(before, *stored.CompletionDate, 5*time.Second)
	s.Nil(stored.HandoverDate)

	w = s.request(http.MethodPut,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/order-status", customerID, setID),
		gin.H{"status": "Handed Over"})
	s.Equal(http.StatusOK, w.Code)

	s.Require().NoError(s.db.First(&stored, setID).Error)
	s.Require().NotNil(stored.HandoverDate)
	s.NotNil(stored.CompletionDate, "Moving on never clears the completion date")
}

func (s *LifecycleIntegrationSuite) TestReopeningKeepsStampedDates() {
	customerID := s.createCustomer()
	setID := s.createSet(customerID)

	statusPath := fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/order-status", customerID, setID)

	w := s.request(http.MethodPut, statusPath, gin.H{"status": "Completed"})
	s.Equal(http.StatusOK, w.Code)

	var stored models.MeasurementSet
	s.Require().NoError(s.db.First(&stored, setID).Error)
	s.Require().NotNil(stored.CompletionDate)
	stamped := *stored.CompletionDate

	// Any transition is allowed, including going backwards
	w = s.request(http.MethodPut, statusPath, gin.H{"status": "In Progress"})
	s.Equal(http.StatusOK, w.Code)

	s.Require().NoError(s.db.First(&stored, setID).Error)
	s.Equal("In Progress", stored.OrderStatus)
	s.Require().NotNil(stored.CompletionDate)
	s.Equal(stamped.Unix(), stored.CompletionDate.Unix())
}

func (s *LifecycleIntegrationSuite) TestPaymentStatusIndependentOfOrderStatus() {
	customerID := s.createCustomer()
	setID := s.createSet(customerID)

	w := s.request(http.MethodPut,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/payment-status", customerID, setID),
		gin.H{"status": "Partial"})
	s.Equal(http.StatusOK, w.Code)

	data := s.data(w)
	s.Equal("Partial", data["payment_status"])
	s.Equal("Pending", data["order_status"])

	w = s.request(http.MethodPut,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/payment-status", customerID, setID),
		gin.H{"status": "Paid"})
	s.Equal(http.StatusOK, w.Code)
	s.Equal("Paid", s.data(w)["payment_status"])
}

func (s *LifecycleIntegrationSuite) TestDetailViewReflectsStatusChange() {
	customerID := s.createCustomer()
	setID := s.createSet(customerID)

	// Prime the cached detail view
	w := s.request(http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", customerID), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodPut,
		fmt.Sprintf("/api/v1/customers/%d/measurement-sets/%d/order-status", customerID, setID),
		gin.H{"status": "Ready"})
	s.Equal(http.StatusOK, w.Code)

	// The next read must not serve the stale cached view
	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", customerID), nil)
	s.Equal(http.StatusOK, w.Code)

	sets := s.data(w)["measurement_sets"].([]interface{})
	s.Require().Len(sets, 1)
	s.Equal("Ready", sets[0].(map[string]interface{})["order_status"])
}

func (s *LifecycleIntegrationSuite) TestCustomersIsolatedBetweenUsers() {
	customerID := s.createCustomer()

	// A second shop user cannot see or touch the first user's customer
	_, otherToken := testutil.SignUpUser(s.T(), s.auth, "Other Tailor", "other@example.com", "secret123")
	ownToken := s.token
	s.token = otherToken
	defer func() { s.token = ownToken }()

	w := s.request(http.MethodGet, "/api/v1/customers", nil)
	s.Equal(http.StatusOK, w.Code)

	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Empty(body["data"])

	w = s.request(http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", customerID), nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func TestLifecycleIntegrationSuite(t *testing.T) {
	suite.Run(t, new(LifecycleIntegrationSuite))
}
