package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tailorbook/tailorbook-api/middleware"
	"github.com/tailorbook/tailorbook-api/models"
	"github.com/tailorbook/tailorbook-api/services"
)

// AddMeasurementSetRequest represents the request body for attaching a
// measurement set to a customer. The measurements payload is opaque and is
// stored as-is.
type AddMeasurementSetRequest struct {
	Measurements  json.RawMessage `json:"measurements" binding:"required"`
	JobNumber     *string         `json:"job_number" binding:"omitempty"`
	RequestDate   *time.Time      `json:"request_date" binding:"omitempty"`
	PaymentStatus string          `json:"payment_status" binding:"omitempty"`
	OrderStatus   string          `json:"order_status" binding:"omitempty"`
}

// UpdateStatusRequest represents the request body for a status update
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// MeasurementController handles the measurement-set surface: creation,
// listing, order/payment status updates and garment photo upload
type MeasurementController struct {
	db        *gorm.DB
	lifecycle *services.OrderLifecycleService
	cache     services.CustomerViewCache
	images    services.ImageService
}

// NewMeasurementController creates a new measurement controller
func NewMeasurementController(db *gorm.DB, lifecycle *services.OrderLifecycleService, cache services.CustomerViewCache, images services.ImageService) *MeasurementController {
	return &MeasurementController{db: db, lifecycle: lifecycle, cache: cache, images: images}
}

// AddMeasurementSet handles POST /api/v1/customers/:id/measurement-sets
func (ctrl *MeasurementController) AddMeasurementSet(c *gin.Context) {
	customerID, ok := ctrl.resolveCustomer(c)
	if !ok {
		return
	}

	var req AddMeasurementSetRequest
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

	set, err := ctrl.lifecycle.AddMeasurementSet(c.Request.Context(), customerID, services.AddMeasurementSetInput{
		Measurements:  string(req.Measurements),
		JobNumber:     req.JobNumber,
		RequestDate:   req.RequestDate,
		PaymentStatus: models.PaymentStatus(req.PaymentStatus),
		OrderStatus:   models.OrderStatus(req.OrderStatus),
	})
	if err != nil {
		ctrl.respondLifecycleError(c, err, "Failed to create measurement set")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    set,
	})
}

// ListMeasurementSets handles GET /api/v1/customers/:id/measurement-sets
func (ctrl *MeasurementController) ListMeasurementSets(c *gin.Context) {
	customerID, ok := ctrl.resolveCustomer(c)
	if !ok {
		return
	}

	var sets []models.MeasurementSet
	if err := ctrl.db.Where("customer_id = ?", customerID).
		Order("date DESC").
		Find(&sets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch measurement sets",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sets,
	})
}

// UpdateOrderStatus handles PUT /api/v1/customers/:id/measurement-sets/:setId/order-status
func (ctrl *MeasurementController) UpdateOrderStatus(c *gin.Context) {
	customerID, ok := ctrl.resolveCustomer(c)
	if !ok {
		return
	}
	setID, ok := parseIDParam(c, "setId")
	if !ok {
		return
	}

	var req UpdateStatusRequest
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

	set, err := ctrl.lifecycle.UpdateOrderStatus(c.Request.Context(), customerID, setID, models.OrderStatus(req.Status))
	if err != nil {
		ctrl.respondLifecycleError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    set,
	})
}

// UpdatePaymentStatus handles PUT /api/v1/customers/:id/measurement-sets/:setId/payment-status
func (ctrl *MeasurementController) UpdatePaymentStatus(c *gin.Context) {
	customerID, ok := ctrl.resolveCustomer(c)
	if !ok {
		return
	}
	setID, ok := parseIDParam(c, "setId")
	if !ok {
		return
	}

	var req UpdateStatusRequest
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

	set, err := ctrl.lifecycle.UpdatePaymentStatus(c.Request.Context(), customerID, setID, models.PaymentStatus(req.Status))
	if err != nil {
		ctrl.respondLifecycleError(c, err, "Failed to update payment status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    set,
	})
}

// UploadPhoto handles POST /api/v1/customers/:id/measurement-sets/:setId/photo
// - attaches a garment reference photo to a measurement set
func (ctrl *MeasurementController) UploadPhoto(c *gin.Context) {
	// No image service is wired when S3 is not configured
	if ctrl.images == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PHOTOS_DISABLED",
				"message": "Photo uploads are not configured on this server",
			},
		})
		return
	}

	customerID, ok := ctrl.resolveCustomer(c)
	if !ok {
		return
	}
	setID, ok := parseIDParam(c, "setId")
	if !ok {
		return
	}

	var set models.MeasurementSet
	if err := ctrl.db.Where("id = ? AND customer_id = ?", setID, customerID).First(&set).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MEASUREMENT_SET_NOT_FOUND",
				"message": "Measurement set not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "A 'photo' file field is required",
			},
		})
		return
	}

	s3Key, err := ctrl.images.UploadImage(fileHeader)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// Replace any previous photo
	oldKey := set.PhotoS3Key
	if err := ctrl.db.Model(&set).Update("photo_s3_key", s3Key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save photo reference",
			},
		})
		return
	}
	if oldKey != nil && *oldKey != s3Key {
		if err := ctrl.images.DeleteImage(*oldKey); err != nil {
			log.Printf("warning: failed to delete replaced photo %s: %v", *oldKey, err)
		}
	}

	url, err := ctrl.images.GetImageURL(s3Key)
	if err != nil {
		log.Printf("warning: failed to presign photo URL for set %d: %v", set.ID, err)
	}

	set.PhotoS3Key = &s3Key
	if url != "" {
		set.PhotoURL = &url
	}

	ctrl.invalidate(c, customerID)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    set,
	})
}

// resolveCustomer parses the customer ID parameter and verifies the customer
// belongs to the authenticated user
func (ctrl *MeasurementController) resolveCustomer(c *gin.Context) (uint, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondUnauthorized(c)
		return 0, false
	}

	customerID, ok := parseIDParam(c, "id")
	if !ok {
		return 0, false
	}

	var customer models.Customer
	if err := ctrl.db.Where("id = ? AND user_id = ?", customerID, userID).First(&customer).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CUSTOMER_NOT_FOUND",
				"message": "Customer not found",
			},
		})
		return 0, false
	}

	return customerID, true
}

// respondLifecycleError maps lifecycle service errors to envelope responses
func (ctrl *MeasurementController) respondLifecycleError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidOrderStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ORDER_STATUS",
				"message": "Unknown order status value",
			},
		})
	case errors.Is(err, services.ErrInvalidPaymentStatus):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PAYMENT_STATUS",
				"message": "Unknown payment status value",
			},
		})
	case errors.Is(err, services.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CUSTOMER_NOT_FOUND",
				"message": "Customer not found",
			},
		})
	case errors.Is(err, services.ErrMeasurementSetNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MEASUREMENT_SET_NOT_FOUND",
				"message": "Measurement set not found",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": fallback,
			},
		})
	}
}

// invalidate drops the cached detail view; photo uploads change the rendered
// view as well
func (ctrl *MeasurementController) invalidate(c *gin.Context, customerID uint) {
	if ctrl.cache == nil {
		return
	}
	if err := ctrl.cache.InvalidateCustomer(c.Request.Context(), customerID); err != nil {
		log.Printf("warning: failed to invalidate customer view cache for customer %d: %v", customerID, err)
	}
}
