package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/middleware"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
)

// customerDetailTTL bounds how long a cached detail view can serve stale
// presigned photo URLs
const customerDetailTTL = 5 * time.Minute

// CreateCustomerRequest represents the request body for creating a customer
type CreateCustomerRequest struct {
	Name         string `json:"name" binding:"required,min=2"`
	NIC          string `json:"nic" binding:"required,min=5"`
	Contact      string `json:"contact" binding:"required"`
	OrderHistory string `json:"order_history" binding:"omitempty"`
	Preferences  string `json:"preferences" binding:"omitempty"`
}

// UpdateCustomerRequest represents the request body for updating a customer
type UpdateCustomerRequest struct {
	Name         string `json:"name" binding:"omitempty,min=2"`
	NIC          string `json:"nic" binding:"omitempty,min=5"`
	Contact      string `json:"contact" binding:"omitempty"`
	OrderHistory *string `json:"order_history" binding:"omitempty"`
	Preferences  *string `json:"preferences" binding:"omitempty"`
}

// CustomerController handles the customer CRUD surface. All operations are
// scoped to the authenticated shop user.
type CustomerController struct {
	db     *gorm.DB
	cache  services.CustomerViewCache
	images services.ImageService
}

// NewCustomerController creates a new customer controller
func NewCustomerController(db *gorm.DB, cache services.CustomerViewCache, images services.ImageService) *CustomerController {
	return &CustomerController{db: db, cache: cache, images: images}
}

// CreateCustomer handles POST /api/v1/customers - creates a customer record
func (ctrl *CustomerController) CreateCustomer(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	customer := models.Customer{
		Name:         req.Name,
		NIC:          req.NIC,
		Contact:      req.Contact,
		OrderHistory: req.OrderHistory,
		Preferences:  req.Preferences,
		UserID:       userID,
	}

	if err := ctrl.db.Create(&customer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create customer",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"redirect": fmt.Sprintf("/dashboard/customer/%d", customer.ID),
		"data":     customer,
	})
}

// ListCustomers handles GET /api/v1/customers - lists the user's customers
func (ctrl *CustomerController) ListCustomers(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	var customers []models.Customer
	if err := ctrl.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&customers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch customers",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customers,
	})
}

// GetCustomer handles GET /api/v1/customers/:id - returns the customer detail
// view (customer plus measurement sets), served from the view cache when
// possible
func (ctrl *CustomerController) GetCustomer(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	customer, ok := ctrl.findOwnedCustomer(c, customerID, userID)
	if !ok {
		return
	}

	// Serve from cache when a fresh detail view exists. Ownership is checked
	// above, so a cached payload is never leaked across users.
	if ctrl.cache != nil {
		if payload, found, err := ctrl.cache.GetCustomerDetail(c.Request.Context(), customerID); err != nil {
			log.Printf("warning: customer view cache read failed: %v", err)
		} else if found {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
	}

	if err := ctrl.db.Where("customer_id = ?", customer.ID).
		Order("date DESC").
		Find(&customer.MeasurementSets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch measurement sets",
			},
		})
		return
	}

	// Attach presigned photo URLs
	if ctrl.images != nil {
		for i := range customer.MeasurementSets {
			set := &customer.MeasurementSets[i]
			if set.PhotoS3Key == nil {
				continue
			}
			url, err := ctrl.images.GetImageURL(*set.PhotoS3Key)
			if err != nil {
				log.Printf("warning: failed to presign photo URL for set %d: %v", set.ID, err)
				continue
			}
			set.PhotoURL = &url
		}
	}

	body := gin.H{
		"success": true,
		"data":    customer,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ENCODING_ERROR",
				"message": "Failed to render customer detail",
			},
		})
		return
	}

	if ctrl.cache != nil {
		if err := ctrl.cache.SetCustomerDetail(c.Request.Context(), customerID, payload, customerDetailTTL); err != nil {
			log.Printf("warning: customer view cache write failed: %v", err)
		}
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// UpdateCustomer handles PUT /api/v1/customers/:id - updates a customer record
func (ctrl *CustomerController) UpdateCustomer(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	customer, ok := ctrl.findOwnedCustomer(c, customerID, userID)
	if !ok {
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.NIC != "" {
		updates["nic"] = req.NIC
	}
	if req.Contact != "" {
		updates["contact"] = req.Contact
	}
	if req.OrderHistory != nil {
		updates["order_history"] = *req.OrderHistory
	}
	if req.Preferences != nil {
		updates["preferences"] = *req.Preferences
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    customer,
		})
		return
	}

	if err := ctrl.db.Model(customer).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update customer",
			},
		})
		return
	}

	ctrl.invalidate(c, customerID)

	if err := ctrl.db.First(customer, customerID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch updated customer",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    customer,
	})
}

// DeleteCustomer handles DELETE /api/v1/customers/:id - deletes a customer
// and all of its measurement sets
func (ctrl *CustomerController) DeleteCustomer(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return
	}

	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	customer, ok := ctrl.findOwnedCustomer(c, customerID, userID)
	if !ok {
		return
	}

	// Cascade: measurement sets go with their customer
	err = ctrl.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", customer.ID).Delete(&models.MeasurementSet{}).Error; err != nil {
			return err
		}
		return tx.Delete(customer).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete customer",
			},
		})
		return
	}

	ctrl.invalidate(c, customerID)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"redirect": "/dashboard",
	})
}

// findOwnedCustomer fetches the customer and verifies it belongs to the
// authenticated user, writing the error response itself on failure
func (ctrl *CustomerController) findOwnedCustomer(c *gin.Context, customerID, userID uint) (*models.Customer, bool) {
	var customer models.Customer
	if err := ctrl.db.Where("id = ? AND user_id = ?", customerID, userID).First(&customer).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CUSTOMER_NOT_FOUND",
				"message": "Customer not found",
			},
		})
		return nil, false
	}
	return &customer, true
}

// invalidate drops the cached detail view for a customer
func (ctrl *CustomerController) invalidate(c *gin.Context, customerID uint) {
	if ctrl.cache == nil {
		return
	}
	if err := ctrl.cache.InvalidateCustomer(c.Request.Context(), customerID); err != nil {
		log.Printf("warning: failed to invalidate customer view cache for customer %d: %v", customerID, err)
	}
}

// parseIDParam parses a numeric URL parameter, writing the error response
// itself on failure
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": fmt.Sprintf("Invalid %s parameter", name),
			},
		})
		return 0, false
	}
	return uint(id), true
}

// respondUnauthorized writes the standard unauthenticated envelope
func respondUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"success":  false,
		"redirect": "/login",
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": "Could not extract user information",
		},
	})
}
