package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestResolveStatus(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) null.Time { return null.TimeFrom(now.AddDate(0, 0, -d)) }
	payment := func(status PaymentStatus, plan Plan, approvedAt null.Time) *Payment {
		return &Payment{ID: "p", Status: status, Plan: plan, CreatedAt: now.AddDate(0, -6, 0), ApprovedAt: approvedAt}
	}

	tests := []struct {
		name   string
		latest *Payment
		want   Status
	}{
		{name: "no payment", latest: nil, want: StatusInactive},
		{name: "failed payment is ignored", latest: payment(PaymentFailed, PlanMonthly, null.Time{}), want: StatusInactive},
		{name: "pending monthly", latest: payment(PaymentPending, PlanMonthly, null.Time{}), want: StatusPending},
		{name: "pending quarterly", latest: payment(PaymentPending, PlanQuarterly, null.Time{}), want: StatusPending},
		{name: "success without approval date", latest: payment(PaymentSuccess, PlanMonthly, null.Time{}), want: StatusPending},
		{name: "monthly approved 10 days ago", latest: payment(PaymentSuccess, PlanMonthly, daysAgo(10)), want: StatusActive},
		{name: "monthly approved 30 days ago", latest: payment(PaymentSuccess, PlanMonthly, daysAgo(30)), want: StatusActive},
		{name: "monthly approved 31 days ago", latest: payment(PaymentSuccess, PlanMonthly, daysAgo(31)), want: StatusExpired},
		{name: "quarterly approved 89 days ago", latest: payment(PaymentSuccess, PlanQuarterly, daysAgo(89)), want: StatusActive},
		{name: "quarterly approved 91 days ago", latest: payment(PaymentSuccess, PlanQuarterly, daysAgo(91)), want: StatusExpired},
		{name: "unknown plan grants no days", latest: payment(PaymentSuccess, Plan("YEARLY"), daysAgo(1)), want: StatusExpired},
		{name: "unknown plan approved now", latest: payment(PaymentSuccess, Plan("YEARLY"), null.TimeFrom(now)), want: StatusActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(tt.latest, now))
		})
	}
}

func TestResolveStatusView(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	approvedAt := now.AddDate(0, 0, -10)

	t.Run("active", func(t *testing.T) {
		got := ResolveStatusView(&Payment{Status: PaymentSuccess, Plan: PlanQuarterly, ApprovedAt: null.TimeFrom(approvedAt)}, now)
		assert.Equal(t, StatusView{
			Status:     StatusActive,
			Plan:       PlanQuarterly,
			ApprovedAt: null.TimeFrom(approvedAt),
			ExpiresAt:  null.TimeFrom(approvedAt.AddDate(0, 0, 90)),
		}, got)
	})

	t.Run("pending", func(t *testing.T) {
		got := ResolveStatusView(&Payment{Status: PaymentPending, Plan: PlanMonthly}, now)
		assert.Equal(t, StatusView{Status: StatusPending, Plan: PlanMonthly}, got)
	})

	t.Run("inactive", func(t *testing.T) {
		assert.Equal(t, StatusView{Status: StatusInactive}, ResolveStatusView(nil, now))
		assert.Equal(t, StatusView{Status: StatusInactive}, ResolveStatusView(&Payment{Status: PaymentFailed, Plan: PlanMonthly}, now))
	})
}

func TestPlanDurationDays(t *testing.T) {
	days, ok := PlanDurationDays(PlanMonthly)
	assert.True(t, ok)
	assert.Equal(t, 30, days)

	days, ok = PlanDurationDays(PlanQuarterly)
	assert.True(t, ok)
	assert.Equal(t, 90, days)

	days, ok = PlanDurationDays("WEEKLY")
	assert.False(t, ok)
	assert.Zero(t, days)

	for _, plan := range Plans {
		_, ok := PlanDurationDays(plan)
		assert.True(t, ok, plan)
	}
	assert.Equal(t, "must be one of MONTHLY or QUARTERLY", planText)
}
