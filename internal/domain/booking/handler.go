package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"odysseum/internal/domain/payment"
	"odysseum/internal/pkg/response"
	"odysseum/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CheckAvailability godoc
// @Summary		Remaining capacity of a service on a date
// @Tags		Bookings
// @Param		id		path	int		true	"service id"
// @Param		date	query	string	true	"YYYY-MM-DD"
// @Router		/services/{id}/availability [get]
func (h *Handler) CheckAvailability(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required")
		return
	}
	a, err := h.service.CheckAvailability(c.Request.Context(), id, date)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"availability": a})
}

// CreateBooking godoc
// @Summary		Book a service
// @Tags		Bookings
// @Security	BearerAuth
// @Param		body	body	CreateBookingRequest	true	"payload"
// @Router		/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Fields(err))
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), actor(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetBookingStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.service.GetBookingStatus(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, v)
}

func (h *Handler) GetMyBookings(c *gin.Context) {
	p, err := h.service.ListMyBookings(c.Request.Context(), actor(c), queryInt(c, "page"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) GetServiceBookings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.service.ListServiceBookings(c.Request.Context(), actor(c), id, queryInt(c, "page"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// ApproveBooking godoc
// @Summary		Approve a pending booking
// @Tags		Bookings
// @Security	BearerAuth
// @Param		id			path	int	true	"booking id"
// @Param		service_id	query	int	false	"service id"
// @Router		/bookings/{id}/approve [post]
func (h *Handler) ApproveBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.ApproveBooking(c.Request.Context(), actor(c), id, queryInt64(c, "service_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RejectBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.RejectBooking(c.Request.Context(), actor(c), id, queryInt64(c, "service_id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Booking rejected"})
}

// CancelBooking godoc
// @Summary		Cancel own booking
// @Tags		Bookings
// @Security	BearerAuth
// @Param		id		path	int				true	"booking id"
// @Param		body	body	CancelRequest	false	"reason"
// @Router		/bookings/{id}/cancel [post]
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Fields(err))
			return
		}
	}
	res, err := h.service.CancelBooking(c.Request.Context(), actor(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) UpdateBookingStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Fields(err))
		return
	}
	b, err := h.service.UpdateBookingStatus(c.Request.Context(), actor(c), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

type statusShortcut func(ctx context.Context, a Actor, bookingID int64) (*Booking, error)

func (h *Handler) shortcut(fn statusShortcut) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		b, err := fn(c.Request.Context(), actor(c), id)
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"booking": b})
	}
}

// UpdatePayment godoc
// @Summary		Pay down the remaining balance
// @Tags		Bookings
// @Security	BearerAuth
// @Param		id		path	int						true	"booking id"
// @Param		body	body	UpdatePaymentRequest	true	"payload"
// @Router		/bookings/{id}/payments [post]
func (h *Handler) UpdatePayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Fields(err))
		return
	}
	res, err := h.service.UpdatePayment(c.Request.Context(), actor(c), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ProcessRefund(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.service.ProcessRefund(c.Request.Context(), actor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// ExpireUnpaid runs one timeout sweep on demand.
// @Summary		Cancel bookings left unpaid past their timeout
// @Tags		Admin
// @Security	BearerAuth
// @Router		/admin/bookings/expire [post]
func (h *Handler) ExpireUnpaid(c *gin.Context) {
	limit := queryInt(c, "limit")
	if limit <= 0 {
		limit = 100
	}
	n, err := h.service.ExpireUnpaid(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": n})
}

func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	serviceID := queryInt64(c, "service_id")
	if serviceID <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "service_id query parameter is required")
		return
	}
	if err := h.service.DeleteBooking(c.Request.Context(), actor(c), id, serviceID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Booking deleted"})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to access this booking")
	case errors.Is(err, ErrInsufficientCapacity), errors.Is(err, ErrNotAvailable):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", err.Error())
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "PAYMENT_UNAVAILABLE", "Payment provider is unavailable, try again later")
	case errors.Is(err, ErrPayment):
		response.Error(c, http.StatusPaymentRequired, "PAYMENT_FAILED", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}

func actor(c *gin.Context) Actor {
	return Actor{UserID: c.GetInt64("user_id"), Role: c.GetString("role")}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func queryInt64(c *gin.Context, key string) int64 {
	n, _ := strconv.ParseInt(c.Query(key), 10, 64)
	return n
}
