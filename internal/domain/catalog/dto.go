package catalog

type CreateBusinessRequest struct {
	Name        string `json:"name" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
}

type SpecialPriceInput struct {
	Name          string   `json:"name" binding:"required"`
	Price         float64  `json:"price" binding:"gte=0"`
	DaysOfWeek    []string `json:"days_of_week"`
	SpecificDates []string `json:"specific_dates"`
	MinPeople     int      `json:"min_people" binding:"gte=0"`
}

type AvailabilityInput struct {
	DayOfWeek string `json:"day_of_week"`
	Date      string `json:"date"`
	Capacity  int    `json:"capacity" binding:"gte=0"`
}

type CreateServiceRequest struct {
	BusinessID  int64  `json:"business_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Capacity    int    `json:"capacity" binding:"required,gt=0"`

	BasePrice     float64             `json:"base_price" binding:"gte=0"`
	PricingModel  string              `json:"pricing_model" binding:"required"`
	SpecialPrices []SpecialPriceInput `json:"special_prices" binding:"dive"`

	AcceptOnlinePayment bool    `json:"accept_online_payment"`
	TaxRate             float64 `json:"tax_rate" binding:"gte=0,lte=100"`
	DepositEnabled      bool    `json:"deposit_enabled"`
	DepositPercentage   float64 `json:"deposit_percentage" binding:"gte=0,lte=100"`

	RequiresApproval  bool `json:"requires_approval"`
	MinAdvanceBooking *int `json:"min_advance_booking"`
	MaxAdvanceBooking *int `json:"max_advance_booking"`
	BookingTimeout    *int `json:"booking_timeout"`

	AllowCancellation     *bool    `json:"allow_cancellation"`
	FreeCancellationHours *int     `json:"free_cancellation_hours"`
	CancellationFee       *float64 `json:"cancellation_fee"`

	Recurring          bool                `json:"recurring"`
	RecurringStartDate string              `json:"recurring_start_date"`
	Availability       []AvailabilityInput `json:"availability" binding:"required,min=1,dive"`
}
