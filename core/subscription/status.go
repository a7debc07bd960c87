package subscription

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Status is the derived, non-persisted access level of a User.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
)

var planDurations = map[Plan]int{
	PlanMonthly:   30,
	PlanQuarterly: 90,
}

// PlanDurationDays returns the number of days a successful payment grants access for.
// Unknown plans grant 0 days; ok reports whether the plan is known.
func PlanDurationDays(plan Plan) (days int, ok bool) {
	days, ok = planDurations[plan]
	return days, ok
}

// ExpiresAt returns when the access granted by an approved Payment ends.
func ExpiresAt(p Payment) null.Time {
	if p.Status != PaymentSuccess || !p.ApprovedAt.Valid {
		return null.Time{}
	}
	days, _ := PlanDurationDays(p.Plan)
	return null.TimeFrom(p.ApprovedAt.Time.AddDate(0, 0, days))
}

// ResolveStatus derives the subscription status from the latest non-FAILED Payment (nil if none).
// It is recomputed on every query; nothing is stored.
func ResolveStatus(latest *Payment, now time.Time) Status {
	if latest == nil || latest.Status == PaymentFailed {
		return StatusInactive
	}
	if latest.Status == PaymentPending || !latest.ApprovedAt.Valid {
		return StatusPending
	}
	if ExpiresAt(*latest).Time.Before(now) {
		return StatusExpired
	}
	return StatusActive
}

// ResolveStatusView is ResolveStatus plus the dates the status was derived from.
func ResolveStatusView(latest *Payment, now time.Time) StatusView {
	view := StatusView{Status: ResolveStatus(latest, now)}
	if latest != nil && latest.Status != PaymentFailed {
		view.Plan = latest.Plan
		view.ApprovedAt = latest.ApprovedAt
		view.ExpiresAt = ExpiresAt(*latest)
	}
	return view
}
