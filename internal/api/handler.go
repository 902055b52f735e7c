package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"booking-service/internal/models"
	"booking-service/internal/service"
	"booking-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	accommodationService *service.AccommodationService
	bookingService       *service.BookingService
	paymentService       *service.PaymentService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	accommodationService *service.AccommodationService,
	bookingService *service.BookingService,
	paymentService *service.PaymentService,
) *Handler {
	return &Handler{
		accommodationService: accommodationService,
		bookingService:       bookingService,
		paymentService:       paymentService,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(identityMiddleware())
	{
		v1.GET("/accommodations", h.listAccommodations)
		v1.GET("/accommodations/:id", h.getAccommodation)
		v1.POST("/accommodations", h.createAccommodation)
		v1.PATCH("/accommodations/:id", h.updateAccommodation)
		v1.DELETE("/accommodations/:id", h.deleteAccommodation)

		v1.POST("/bookings", h.createBooking)
		v1.GET("/bookings/my", h.listMyBookings)
		v1.GET("/bookings", h.listBookings)
		v1.GET("/bookings/:id", h.getBooking)
		v1.PATCH("/bookings/:id", h.updateBooking)
		v1.DELETE("/bookings/:id", h.cancelBooking)

		v1.GET("/payments", h.listPayments)
		v1.POST("/payments", h.createPayment)
		v1.GET("/payments/success", h.paymentSuccess)
		v1.GET("/payments/cancel", h.paymentCancel)
		v1.POST("/payments/renew", h.renewPayment)
		v1.GET("/payments/:id", h.getPayment)
		v1.DELETE("/payments/:id", h.cancelPayment)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// --- accommodations ---

func (h *Handler) listAccommodations(c *gin.Context) {
	accs, err := h.accommodationService.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list accommodations")
		return
	}
	c.JSON(http.StatusOK, accs)
}

func (h *Handler) getAccommodation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acc, err := h.accommodationService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get accommodation")
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) createAccommodation(c *gin.Context) {
	var req service.CreateAccommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	acc, err := h.accommodationService.Create(c.Request.Context(), capability(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create accommodation")
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (h *Handler) updateAccommodation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateAccommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	acc, err := h.accommodationService.Update(c.Request.Context(), capability(c), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update accommodation")
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) deleteAccommodation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.accommodationService.Delete(c.Request.Context(), capability(c), id); err != nil {
		respondError(c, err, "Failed to delete accommodation")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- bookings ---

func (h *Handler) createBooking(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.bookingService.Create(c.Request.Context(), capability(c), &req)
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (h *Handler) listMyBookings(c *gin.Context) {
	bookings, err := h.bookingService.ListMine(c.Request.Context(), capability(c))
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) listBookings(c *gin.Context) {
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		userID = &id
	}

	var status *models.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := models.BookingStatus(strings.ToUpper(raw))
		status = &s
	}

	bookings, err := h.bookingService.List(c.Request.Context(), capability(c), userID, status)
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) getBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	booking, err := h.bookingService.Get(c.Request.Context(), capability(c), id)
	if err != nil {
		respondError(c, err, "Failed to get booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) updateBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	booking, err := h.bookingService.Update(c.Request.Context(), capability(c), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *Handler) cancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.bookingService.Cancel(c.Request.Context(), capability(c), id); err != nil {
		respondError(c, err, "Failed to cancel booking")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- payments ---

type createPaymentRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

func (h *Handler) listPayments(c *gin.Context) {
	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		userID = &id
	}

	payments, err := h.paymentService.List(c.Request.Context(), capability(c), userID)
	if err != nil {
		respondError(c, err, "Failed to list payments")
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) createPayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	payment, err := h.paymentService.CreateSession(c.Request.Context(), capability(c), req.BookingID)
	if err != nil {
		respondError(c, err, "Failed to create payment")
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// paymentSuccess is the processor redirect target after a completed
// checkout. The session is verified server-side before anything changes.
func (h *Handler) paymentSuccess(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	result, err := h.paymentService.ConfirmSuccess(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err, "Failed to confirm payment")
		return
	}
	c.JSON(http.StatusOK, result)
}

// paymentCancel is the processor redirect target when the user backs out.
// Nothing changes server-side; the response carries a renewal handle.
func (h *Handler) paymentCancel(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session_id"})
		return
	}

	result, err := h.paymentService.HandleCancel(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err, "Failed to look up payment")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) renewPayment(c *gin.Context) {
	raw := c.Query("payment_id")
	paymentID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment_id"})
		return
	}

	payment, err := h.paymentService.Renew(c.Request.Context(), capability(c), paymentID)
	if err != nil {
		respondError(c, err, "Failed to renew payment")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) getPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	payment, err := h.paymentService.Get(c.Request.Context(), capability(c), id)
	if err != nil {
		respondError(c, err, "Failed to get payment")
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) cancelPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.paymentService.Cancel(c.Request.Context(), capability(c), id); err != nil {
		respondError(c, err, "Failed to cancel payment")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- plumbing ---

const capabilityKey = "capability"

// identityMiddleware trusts the identity headers stamped by the gateway.
// Requests without a user identity are rejected before any handler runs.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid user identity",
			})
			return
		}

		elevated := false
		for _, role := range strings.Split(c.GetHeader("X-User-Roles"), ",") {
			switch strings.ToUpper(strings.TrimSpace(role)) {
			case "MANAGER", "ADMIN":
				elevated = true
			}
		}

		c.Set(capabilityKey, models.Capability{UserID: userID, Elevated: elevated})
		c.Next()
	}
}

func capability(c *gin.Context) models.Capability {
	cap, _ := c.Get(capabilityKey)
	return cap.(models.Capability)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidDate):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnavailable),
		errors.Is(err, models.ErrOverlap),
		errors.Is(err, models.ErrPendingPayment),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrDuplicatePayment),
		errors.Is(err, models.ErrAlreadyProcessed):
		status = http.StatusConflict
	case errors.Is(err, models.ErrVerification):
		status = http.StatusPaymentRequired
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
