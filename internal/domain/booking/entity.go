package booking

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"odysseum/internal/domain/catalog"
	"odysseum/internal/domain/payment"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

type PaymentStatus string

const (
	PaymentPending     PaymentStatus = "pending"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentFullyPaid   PaymentStatus = "fully_paid"
	PaymentRefunded    PaymentStatus = "refunded"
	PaymentFailed      PaymentStatus = "failed"
)

type TransactionType string

const (
	TxnDeposit        TransactionType = "deposit"
	TxnFullPayment    TransactionType = "full_payment"
	TxnPartialPayment TransactionType = "partial_payment"
	TxnBalancePayment TransactionType = "balance_payment"
	TxnRefund         TransactionType = "refund"
)

type TransactionStatus string

const (
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

type AppliedSpecialPrice struct {
	Applied bool    `json:"applied"`
	Name    string  `json:"name,omitempty" gorm:"size:255"`
	Price   float64 `json:"price,omitempty"`
}

// PricingBreakdown is the price snapshot taken at creation. It is never
// recalculated afterwards.
type PricingBreakdown struct {
	// subtotal after the pricing model multiplier
	BasePrice     float64             `json:"base_price"`
	SpecialPrice  AppliedSpecialPrice `json:"special_price" gorm:"embedded;embeddedPrefix:special_"`
	TaxAmount     float64             `json:"tax_amount"`
	DepositAmount float64             `json:"deposit_amount"`
	TotalAmount   float64             `json:"total_amount"`
}

type Cancellation struct {
	Cancelled    bool       `json:"cancelled"`
	Date         *time.Time `json:"cancellation_date,omitempty"`
	Reason       string     `json:"reason,omitempty" gorm:"type:text"`
	RefundAmount float64    `json:"refund_amount"`
	Fee          float64    `json:"cancellation_fee"`
	// set while a refund is being paid out, so only one request reaches the gateway
	RefundPending   bool       `json:"refund_pending"`
	RefundProcessed bool       `json:"refund_processed"`
	RefundDate      *time.Time `json:"refund_date,omitempty"`
	RefundedBy      *int64     `json:"refunded_by,omitempty"`
	RefundID        string     `json:"refund_id,omitempty" gorm:"size:64"`
}

type Booking struct {
	ID         int64 `json:"id" gorm:"primaryKey"`
	UserID     int64 `json:"user_id" gorm:"not null;index"`
	ServiceID  int64 `json:"service_id" gorm:"not null;index"`
	BusinessID int64 `json:"business_id" gorm:"not null;index"`

	BookingDate    time.Time `json:"booking_date"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	NumberOfPeople int       `json:"number_of_people" gorm:"not null"`

	IsHotel        bool       `json:"is_hotel"`
	NumberOfNights int        `json:"number_of_nights,omitempty"`
	CheckOutDate   *time.Time `json:"check_out_date,omitempty"`

	Status Status `json:"status" gorm:"size:16;not null;index"`

	Pricing PricingBreakdown `json:"pricing" gorm:"embedded;embeddedPrefix:pricing_"`

	PaymentStatus PaymentStatus `json:"payment_status" gorm:"size:16;not null;index"`
	// running sum of completed charges, guarded against exceeding the total
	AmountPaid   float64       `json:"amount_paid" gorm:"not null;default:0"`
	Transactions []Transaction `json:"transactions" gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`

	Cancellation Cancellation `json:"cancellation" gorm:"embedded;embeddedPrefix:cancellation_"`

	// unpaid online bookings are cancelled by the sweeper after this instant
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// PaidAmount sums completed non-refund transactions.
func (b *Booking) PaidAmount() float64 {
	var paid float64
	for _, t := range b.Transactions {
		if t.Status == TxnCompleted && t.Type != TxnRefund {
			paid += t.Amount
		}
	}
	return payment.Round(paid)
}

func (b *Booking) RemainingBalance() float64 {
	rem := payment.Round(b.Pricing.TotalAmount - b.PaidAmount())
	if rem < 0 {
		return 0
	}
	return rem
}

// LastPayment returns the most recent completed charge, if any.
func (b *Booking) LastPayment() *Transaction {
	for i := len(b.Transactions) - 1; i >= 0; i-- {
		t := &b.Transactions[i]
		if t.Status == TxnCompleted && t.Type != TxnRefund && t.TransactionID != "" {
			return t
		}
	}
	return nil
}

// Schedule rebuilds the slot or stay the booking was made for.
func (b *Booking) Schedule() Schedule {
	if b.IsHotel {
		return HotelStay{Date: catalog.Day(b.BookingDate), CheckIn: b.StartTime, CheckOut: b.EndTime, Nights: b.NumberOfNights}
	}
	return RegularSlot{Date: catalog.Day(b.BookingDate), Start: b.StartTime, End: b.EndTime}
}

// Transaction is an append-only audit record of money movement.
type Transaction struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID     int64             `json:"booking_id" gorm:"not null;index"`
	Type          TransactionType   `json:"type" gorm:"size:24;not null"`
	Amount        float64           `json:"amount"`
	Status        TransactionStatus `json:"status" gorm:"size:16;not null"`
	PaymentMethod payment.Method    `json:"payment_method,omitempty" gorm:"size:24"`
	TransactionID string            `json:"transaction_id,omitempty" gorm:"size:64;index"`
	PayerRef      string            `json:"-" gorm:"size:128"`
	Error         string            `json:"error,omitempty" gorm:"type:text"`
	CreatedAt     time.Time         `json:"date"`
}

func (Transaction) TableName() string { return "booking_transactions" }

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
