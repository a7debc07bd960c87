package subscription

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrPaymentNotFound      = core.NewNotFoundError("payment not found")
	ErrPaymentPending       = core.NewValidationError(errors.New("please wait for your payment to be approved"))
	ErrAlreadyReviewed      = core.NewValidationError(errors.New("payment has already been reviewed"))
	ErrSubscriptionRequired = core.NewForbiddenError("an active subscription is required")
)

type (
	Repository interface {
		// CreatePayment returns ErrPaymentPending if p is PENDING and the User already has a PENDING Payment.
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		// LatestPayment returns the most recent non-FAILED Payment of a User, nil if none.
		LatestPayment(ctx context.Context, userID string) (*Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
		// ReviewPayment persists the review of a Payment, only if it is still PENDING.
		// ErrAlreadyReviewed is returned otherwise.
		ReviewPayment(ctx context.Context, p Payment) (Payment, error)
	}

	// UserFinder looks up the owner of a Payment for notifications.
	UserFinder interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	ServiceInterface interface {
		Submit(ctx context.Context, userID string, np NewPayment) (Payment, error)
		Review(ctx context.Context, reviewer user.User, paymentID string, rp ReviewPayment) (Payment, error)
		Status(ctx context.Context, userID string) (StatusView, error)
		RequireActive(ctx context.Context, userID string) error
		ListForUser(ctx context.Context, userID string) ([]Payment, error)
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error)
	}

	Service struct {
		repo      Repository
		users     UserFinder
		mailSvc   core.EmailService
		publisher core.EventPublisher
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	users UserFinder,
	mailSvc core.EmailService,
	publisher core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		mailSvc:   mailSvc,
		publisher: publisher,
		logger:    logger,
	}
}

// Submit records a PENDING payment proof. A User cannot submit while a previous payment awaits review.
func (svc *Service) Submit(ctx context.Context, userID string, np NewPayment) (Payment, error) {
	latest, err := svc.repo.LatestPayment(ctx, userID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "finding latest payment")
	}
	if latest != nil && latest.Status == PaymentPending {
		return Payment{}, ErrPaymentPending
	}

	p, err := svc.repo.CreatePayment(ctx, Payment{
		ID:             uuid.New().String(),
		UserID:         userID,
		Status:         PaymentPending,
		Plan:           np.Plan,
		TransactionRef: np.TransactionRef,
		Amount:         np.Amount,
		CreatedAt:      NowFunc().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrPaymentPending {
			return Payment{}, ErrPaymentPending
		}
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	svc.publish(ctx, core.TopicPaymentSubmitted, p)
	return p, nil
}

// Review transitions a PENDING payment to SUCCESS (stamping ApprovedAt) or FAILED.
func (svc *Service) Review(ctx context.Context, reviewer user.User, paymentID string, rp ReviewPayment) (Payment, error) {
	p, err := svc.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if p.Status != PaymentPending {
		return Payment{}, ErrAlreadyReviewed
	}

	now := NowFunc().UTC()
	p.Status = rp.Status
	p.ReviewedAt = null.TimeFrom(now)
	p.ReviewedBy = null.StringFrom(reviewer.ID)
	if rp.Status == PaymentSuccess {
		p.ApprovedAt = null.TimeFrom(now)
	}

	p, err = svc.repo.ReviewPayment(ctx, p)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyReviewed {
			return Payment{}, ErrAlreadyReviewed
		}
		return Payment{}, errors.Wrap(err, "reviewing payment")
	}

	svc.publish(ctx, core.TopicPaymentReviewed, p)
	svc.notifyReviewed(ctx, p)
	return p, nil
}

func (svc *Service) Status(ctx context.Context, userID string) (StatusView, error) {
	latest, err := svc.repo.LatestPayment(ctx, userID)
	if err != nil {
		return StatusView{}, errors.Wrap(err, "finding latest payment")
	}
	if latest != nil {
		if _, ok := PlanDurationDays(latest.Plan); !ok {
			svc.logger.Warn(fmt.Sprintf("payment %s has unknown plan %q", latest.ID, latest.Plan))
		}
	}
	return ResolveStatusView(latest, NowFunc()), nil
}

// RequireActive returns ErrSubscriptionRequired unless the User's subscription is active.
func (svc *Service) RequireActive(ctx context.Context, userID string) error {
	view, err := svc.Status(ctx, userID)
	if err != nil {
		return err
	}
	if view.Status != StatusActive {
		return ErrSubscriptionRequired
	}
	return nil
}

func (svc *Service) ListForUser(ctx context.Context, userID string) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, &QueryFilter{UserID: userID}, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *Service) QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter, ordering)
}

func (svc *Service) publish(ctx context.Context, topic string, p Payment) {
	if err := svc.publisher.Publish(ctx, topic, p.UserID, p); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s: %v", topic, err), err)
	}
}

func (svc *Service) notifyReviewed(ctx context.Context, p Payment) {
	usr, err := svc.users.GetByID(ctx, p.UserID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("finding payment owner: %v", err), err)
		return
	}
	if usr.Email == "" {
		return
	}

	msg := &core.EmailMessage{
		To: []mail.Address{{Name: usr.Name, Address: usr.Email}},
	}
	if p.Status == PaymentSuccess {
		days, _ := PlanDurationDays(p.Plan)
		msg.Subject = "Your payment has been approved"
		msg.Body = fmt.Sprintf(
			"Hi %s,\n\nyour %s subscription is now active for %d days, until %s.\n",
			usr.Name, p.Plan, days, ExpiresAt(p).Time.Format("2 Jan 2006"),
		)
	} else {
		msg.Subject = "Your payment could not be verified"
		msg.Body = fmt.Sprintf(
			"Hi %s,\n\nwe could not verify your payment (ref: %s). Please submit a new payment proof.\n",
			usr.Name, p.TransactionRef,
		)
	}
	svc.mailSvc.SendMessages(msg)
}
