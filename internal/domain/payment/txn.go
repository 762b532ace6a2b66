package payment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewTransactionID returns an opaque id of the form txn_<unixmillis>_<random>.
func NewTransactionID() string {
	return newTransactionID(time.Now())
}

func newTransactionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("txn_%d_%s", now.UnixMilli(), suffix)
}

// Round rounds a monetary amount to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}
