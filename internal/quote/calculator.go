// Package quote turns a euro order amount into a local-currency price.
package quote

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidItemCount = errors.New("invalid item count")
	ErrInvalidRate      = errors.New("invalid rate")
)

// CommissionMultiplier is the markup applied on top of the converted price
var CommissionMultiplier = decimal.RequireFromString("1.3")

// IncludedItemLimit is the largest order size whose delivery is covered by the quote
const IncludedItemLimit = 5

// MaxItemCount is the largest accepted number of items in an order
const MaxItemCount = 999

// MaxAmount is the largest accepted order amount in euro
var MaxAmount = decimal.NewFromInt(1_000_000)

// amountPattern accepts plain digits with an optional fraction of up to six digits
var amountPattern = regexp.MustCompile(`^[0-9]{1,9}(?:[.,][0-9]{1,6})?$`)

// Quote is a computed price. Total is in whole units of the local currency.
type Quote struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
	Total  decimal.Decimal
}

// Compute returns round(amount * rate * CommissionMultiplier).
//
// Rounding is half away from zero (decimal.Round), which for the positive
// totals produced here is round-half-up: 0.5 becomes 1.
func Compute(amount, rate decimal.Decimal) (Quote, error) {
	if !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return Quote{}, ErrInvalidAmount
	}
	if !rate.IsPositive() {
		return Quote{}, ErrInvalidRate
	}

	total := amount.Mul(rate).Mul(CommissionMultiplier).Round(0)
	return Quote{Amount: amount, Rate: rate, Total: total}, nil
}

// ParseAmount parses user input such as "150", "99,90" or "12.5 €".
// Exponents are rejected and the result is at most MaxAmount.
func ParseAmount(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(s, "€"))
	s = strings.ReplaceAll(s, " ", "")
	if !amountPattern.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}

	amount, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// ParseItemCount parses a whole number of items between 1 and MaxItemCount
func ParseItemCount(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 || n > MaxItemCount {
		return 0, ErrInvalidItemCount
	}
	return n, nil
}

// Notice selects the delivery remark attached to a two-step quote
type Notice int

const (
	// NoticeUnknownSize is used when the item count was not asked
	NoticeUnknownSize Notice = iota
	NoticeIncluded
	NoticeSurcharge
)

// NoticeFor returns NoticeUnknownSize for a zero count, NoticeIncluded up to
// IncludedItemLimit items and NoticeSurcharge above it
func NoticeFor(itemCount int) Notice {
	if itemCount <= 0 {
		return NoticeUnknownSize
	}
	if itemCount <= IncludedItemLimit {
		return NoticeIncluded
	}
	return NoticeSurcharge
}
