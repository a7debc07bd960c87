package inmemdb

import (
	"context"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/subscription"
)

var paymentComparators = map[string]comparator[subscription.Payment]{
	"created_at":  func(a, b subscription.Payment) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	"approved_at": func(a, b subscription.Payment) int { return cmpTime(a.ApprovedAt.Time, b.ApprovedAt.Time) },
	"amount":      func(a, b subscription.Payment) int { return int(a.Amount - b.Amount) },
}

type paymentRepository struct {
	db *paymentTable
}

var _ subscription.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.subscription}
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p subscription.Payment) (subscription.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.Status == subscription.PaymentPending {
		for _, other := range repo.db.table {
			if other.UserID == p.UserID && other.Status == subscription.PaymentPending {
				return subscription.Payment{}, subscription.ErrPaymentPending
			}
		}
	}
	repo.db.table[p.ID] = &p
	return p, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string) (subscription.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[id]; ok {
		return *p, nil
	}
	return subscription.Payment{}, subscription.ErrPaymentNotFound
}

func (repo *paymentRepository) LatestPayment(_ context.Context, userID string) (*subscription.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *subscription.Payment
	for _, p := range repo.db.table {
		if p.UserID != userID || p.Status == subscription.PaymentFailed {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	p := *latest
	return &p, nil
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *subscription.QueryFilter, ordering []core.DBOrdering) ([]subscription.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	payments := make([]subscription.Payment, 0)
	for _, p := range repo.db.table {
		if filter != nil {
			if filter.UserID != "" && p.UserID != filter.UserID {
				continue
			}
			if filter.Status != "" && p.Status != filter.Status {
				continue
			}
			if filter.Plan != "" && p.Plan != filter.Plan {
				continue
			}
		}
		payments = append(payments, *p)
	}
	orderBy(payments, ordering, paymentComparators, core.DBOrdering{Field: "created_at"})
	return payments, nil
}

func (repo *paymentRepository) ReviewPayment(_ context.Context, p subscription.Payment) (subscription.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok {
		return subscription.Payment{}, subscription.ErrPaymentNotFound
	}
	if orig.Status != subscription.PaymentPending {
		return subscription.Payment{}, subscription.ErrAlreadyReviewed
	}
	orig.Status = p.Status
	orig.ApprovedAt = p.ApprovedAt
	orig.ReviewedAt = p.ReviewedAt
	orig.ReviewedBy = p.ReviewedBy
	return *orig, nil
}
