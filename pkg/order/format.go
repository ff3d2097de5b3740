package order

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultAmountPrecision is the number of fraction digits in amount strings
	DefaultAmountPrecision = 6
	// UsdPrecision is the number of fraction digits in USD strings
	UsdPrecision = 2

	timeLayout = "2006-01-02 15:04"
)

// toUnits converts a base-unit integer into token units
func toUnits(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}

func formatAmount(amount *big.Int, decimals uint8, precision int32) string {
	if amount == nil {
		return ""
	}
	return toUnits(amount, decimals).StringFixed(precision)
}

func formatTime(unix int64) string {
	if unix <= 0 {
		return ""
	}
	return time.Unix(unix, 0).UTC().Format(timeLayout)
}

// formatInterval renders a duration as "1d 2h 3m 4s", skipping zero parts
func formatInterval(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
