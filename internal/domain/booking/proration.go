package booking

import (
	"errors"
	"fmt"

	"gymbook/internal/domain/shared/caldate"
	"gymbook/internal/domain/shared/money"
)

var ErrInvalidPeriod = errors.New("booking: end date precedes start date")

// ComputeRefund prorates the total over the inclusive [start, end] day range.
// Used days count from start to the reference date and are clamped into the
// range, so a reference on the start day refunds everything and a reference
// past the end refunds nothing. Rounding is half-up on the minor unit.
func ComputeRefund(total money.Money, start, end, reference caldate.Date) (money.Money, error) {
	if end.Before(start) {
		return money.Money{}, fmt.Errorf("%w: %s > %s", ErrInvalidPeriod, start, end)
	}
	totalDays := caldate.DaysBetween(start, end) + 1
	usedDays := caldate.DaysBetween(start, reference)
	if usedDays < 0 {
		usedDays = 0
	}
	if usedDays > totalDays {
		usedDays = totalDays
	}
	remainingDays := totalDays - usedDays
	if remainingDays <= 0 {
		return total.Zero(), nil
	}
	return total.ScaleRatio(int64(remainingDays), int64(totalDays)), nil
}
