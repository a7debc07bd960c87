package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/subscription"
)

const paymentColumns = `id, user_id, status, plan, transaction_ref, amount, created_at, approved_at, reviewed_at, reviewed_by`

var paymentOrderings = map[string]string{
	"created_at":  "created_at",
	"approved_at": "approved_at",
	"amount":      "amount",
}

type paymentRepository struct {
	db core.DB
}

var _ subscription.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db core.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p subscription.Payment) (subscription.Payment, error) {
	q := `INSERT INTO payment (` + paymentColumns + `) VALUES (
		:id, :user_id, :status, :plan, :transaction_ref, :amount, :created_at, :approved_at, :reviewed_at, :reviewed_by)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, p); err != nil {
		if isUniqueViolation(err, "payment_user_pending_key") {
			return subscription.Payment{}, subscription.ErrPaymentPending
		}
		return subscription.Payment{}, dbErr(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPayment(ctx context.Context, id string) (subscription.Payment, error) {
	if !isValidID(id) {
		return subscription.Payment{}, subscription.ErrPaymentNotFound
	}
	var p subscription.Payment
	q := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &p, q, id); err != nil {
		return subscription.Payment{}, trapNoRowsErr(err, subscription.ErrPaymentNotFound, "finding payment")
	}
	return p, nil
}

func (repo *paymentRepository) LatestPayment(ctx context.Context, userID string) (*subscription.Payment, error) {
	if !isValidID(userID) {
		return nil, nil
	}
	var p subscription.Payment
	q := `SELECT ` + paymentColumns + ` FROM payment
		WHERE user_id = $1 AND status <> $2
		ORDER BY created_at DESC LIMIT 1`
	if err := repo.db.GetContext(ctx, &p, q, userID, subscription.PaymentFailed); err != nil {
		if err = trapNoRowsErr(err, nil, "finding latest payment"); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &p, nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *subscription.QueryFilter, ordering []core.DBOrdering) ([]subscription.Payment, error) {
	payments := make([]subscription.Payment, 0)
	var where whereClause
	if filter != nil {
		if filter.UserID != "" {
			if !isValidID(filter.UserID) {
				return payments, nil
			}
			where.add("user_id = ?", filter.UserID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.Plan != "" {
			where.add("plan = ?", filter.Plan)
		}
	}
	q := where.query(
		`SELECT `+paymentColumns+` FROM payment`,
		` ORDER BY `+core.OrderByClause(ordering, paymentOrderings, "created_at DESC"),
	)
	if err := repo.db.SelectContext(ctx, &payments, q, where.args...); err != nil {
		return nil, dbErr(err, "querying payments")
	}
	return payments, nil
}

// ReviewPayment only updates PENDING payments, so that concurrent reviews cannot both succeed.
func (repo *paymentRepository) ReviewPayment(ctx context.Context, p subscription.Payment) (subscription.Payment, error) {
	q := `UPDATE payment SET status = :status, approved_at = :approved_at, reviewed_at = :reviewed_at, reviewed_by = :reviewed_by
		WHERE id = :id AND status = 'PENDING'`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, p)
	if err != nil {
		return subscription.Payment{}, dbErr(err, "reviewing payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err = repo.GetPayment(ctx, p.ID); err != nil {
			return subscription.Payment{}, err
		}
		return subscription.Payment{}, subscription.ErrAlreadyReviewed
	}
	return repo.GetPayment(ctx, p.ID)
}
