package booking

import (
	"time"

	"odysseum/internal/domain/payment"
)

type TimeSlot struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type HotelBooking struct {
	IsHotel        bool   `json:"is_hotel"`
	NumberOfNights int    `json:"number_of_nights"`
	CheckOutDate   string `json:"check_out_date"`
}

type CreateBookingRequest struct {
	ServiceID      int64           `json:"service_id" binding:"required"`
	NumberOfPeople int             `json:"number_of_people" binding:"required,gt=0"`
	BookingDate    string          `json:"booking_date" binding:"required"`
	TimeSlot       TimeSlot        `json:"time_slot" binding:"required"`
	HotelBooking   *HotelBooking   `json:"hotel_booking,omitempty"`
	PaymentMethod  payment.Method  `json:"payment_method,omitempty"`
	PaymentDetails payment.Details `json:"payment_details,omitempty"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdatePaymentRequest struct {
	PaymentMethod  payment.Method  `json:"payment_method" binding:"required"`
	PaymentDetails payment.Details `json:"payment_details" binding:"required"`
	// nil pays the whole remaining balance
	Amount *float64 `json:"amount,omitempty"`
}

type PaymentInfo struct {
	TotalAmount         float64 `json:"total_amount"`
	PaidAmount          float64 `json:"paid_amount"`
	RemainingBalance    float64 `json:"remaining_balance"`
	AcceptOnlinePayment bool    `json:"accept_online_payment"`
	PaymentRequired     bool    `json:"payment_required"`
}

type ApproveResult struct {
	Booking     *Booking    `json:"booking"`
	PaymentInfo PaymentInfo `json:"payment_info"`
}

type CancelResult struct {
	Booking         *Booking `json:"booking"`
	RefundAmount    float64  `json:"refund_amount"`
	CancellationFee float64  `json:"cancellation_fee"`
}

type PaymentResult struct {
	AmountPaid       float64       `json:"amount_paid"`
	RemainingBalance float64       `json:"remaining_balance"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	Transaction      Transaction   `json:"transaction"`
}

type RefundResult struct {
	RefundAmount float64 `json:"refund_amount"`
	RefundID     string  `json:"refund_id"`
}

type StatusView struct {
	ID            int64         `json:"id"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Cancelled     bool          `json:"cancelled"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

type Page struct {
	Bookings   []Booking `json:"bookings"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"total_pages"`
}
