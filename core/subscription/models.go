package subscription

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examhall/core"
)

// PaymentStatus is the review state of a Payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Plan is a subscription billing interval.
type Plan string

const (
	PlanMonthly   Plan = "MONTHLY"
	PlanQuarterly Plan = "QUARTERLY"
)

var Plans = []Plan{PlanMonthly, PlanQuarterly}

// Payment is a proof of payment submitted by a User for a Plan.
// ApprovedAt is only set when the payment is reviewed as SUCCESS.
type Payment struct {
	ID             string        `json:"id" db:"id"`
	UserID         string        `json:"user_id" db:"user_id"`
	Status         PaymentStatus `json:"status" db:"status"`
	Plan           Plan          `json:"plan" db:"plan"`
	TransactionRef string        `json:"transaction_ref" db:"transaction_ref"`
	Amount         int64         `json:"amount" db:"amount"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	ApprovedAt     null.Time     `json:"approved_at" db:"approved_at"`
	ReviewedAt     null.Time     `json:"reviewed_at" db:"reviewed_at"`
	ReviewedBy     null.String   `json:"reviewed_by" db:"reviewed_by"`
}

// StatusView is the derived subscription state of a User.
type StatusView struct {
	Status     Status    `json:"status"`
	Plan       Plan      `json:"plan,omitempty"`
	ApprovedAt null.Time `json:"approved_at"`
	ExpiresAt  null.Time `json:"expires_at"`
}

// NewPayment contains information needed to submit a payment proof.
type NewPayment struct {
	Plan           Plan   `json:"plan" validate:"required,plan"`
	TransactionRef string `json:"transaction_ref" validate:"required,notblank,max=64"`
	Amount         int64  `json:"amount" validate:"required,gt=0"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.TransactionRef = core.CleanString(np.TransactionRef)
	return validate.Struct(np)
}

// ReviewPayment is the administrator's verdict on a pending Payment.
type ReviewPayment struct {
	Status PaymentStatus `json:"status" validate:"required,oneof=SUCCESS FAILED"`
}

func (rp ReviewPayment) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	UserID string        `query:"user_id"`
	Status PaymentStatus `query:"status"`
	Plan   Plan          `query:"plan"`
}
