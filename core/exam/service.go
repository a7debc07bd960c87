package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrSheetNotFound    = core.NewNotFoundError("answer sheet not found")
	ErrQuestionNotInSet = core.NewValidationError(
		errors.New("question is not part of this test"),
		core.FieldError{Field: "question_id", Error: "question is not part of this test"},
	)
	ErrAnswerExists = core.NewValidationError(
		errors.New("question already answered"),
		core.FieldError{Field: "question_id", Error: "question already answered"},
	)
)

type (
	Repository interface {
		CreateSheet(ctx context.Context, s AnswerSheet) (AnswerSheet, error)
		GetSheet(ctx context.Context, id string) (AnswerSheet, error)
		// QuerySheets returns the sheets of a User, newest first.
		QuerySheets(ctx context.Context, userID string) ([]AnswerSheet, error)
		// CreateAnswer stores a new Answer. ErrAnswerExists is returned if the
		// question has already been answered on that sheet.
		CreateAnswer(ctx context.Context, a Answer) (Answer, error)
		// GetAnswer returns the Answer to a question on a sheet, nil if none.
		GetAnswer(ctx context.Context, sheetID, questionID string) (*Answer, error)
		QueryAnswers(ctx context.Context, sheetID string) ([]Answer, error)
		CountAnswers(ctx context.Context, questionID string) (Stats, error)
	}

	QuestionSetFinder interface {
		GetQuestionSet(ctx context.Context, id string, populate catalog.Populate) (catalog.QuestionSet, error)
	}

	SubscriptionChecker interface {
		RequireActive(ctx context.Context, userID string) error
	}

	// StatsCache is a read-through cache of question Stats.
	// Every Invalidate bumps the generation of the question; Set is dropped when the generation
	// is no longer the one returned by Get, so counts read before an invalidation are never cached.
	StatsCache interface {
		Get(ctx context.Context, questionID string) (stats Stats, generation int64, found bool, err error)
		Set(ctx context.Context, stats Stats, generation int64) error
		Invalidate(ctx context.Context, questionID string) error
	}

	ServiceInterface interface {
		Start(ctx context.Context, userID, setID string) (AnswerSheet, error)
		AddAnswer(ctx context.Context, userID, sheetID string, na NewAnswer) (Answer, error)
		GetSheet(ctx context.Context, userID, sheetID string) (SheetView, error)
		GetOwnSheet(ctx context.Context, userID, sheetID string) (AnswerSheet, error)
		ListSheets(ctx context.Context, userID string) ([]AnswerSheet, error)
		QuestionStats(ctx context.Context, questionID string) (Stats, error)
	}

	Service struct {
		repo      Repository
		sets      QuestionSetFinder
		subs      SubscriptionChecker
		cache     StatsCache
		publisher core.EventPublisher
		logger    core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	sets QuestionSetFinder,
	subs SubscriptionChecker,
	cache StatsCache,
	publisher core.EventPublisher,
	logger core.Logger,
) *Service {
	return &Service{
		repo:      repo,
		sets:      sets,
		subs:      subs,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
	}
}

// Start creates a new AnswerSheet on a QuestionSet. Non-free sets require an active subscription.
func (svc *Service) Start(ctx context.Context, userID, setID string) (AnswerSheet, error) {
	set, err := svc.sets.GetQuestionSet(ctx, setID, catalog.PopulateNone)
	if err != nil {
		return AnswerSheet{}, err
	}
	if !set.IsFree {
		if err = svc.subs.RequireActive(ctx, userID); err != nil {
			return AnswerSheet{}, err
		}
	}

	now := NowFunc().UTC()
	sheet, err := svc.repo.CreateSheet(ctx, AnswerSheet{
		ID:            uuid.New().String(),
		UserID:        userID,
		QuestionSetID: set.ID,
		CreatedAt:     now,
		ExpireAt:      ExpiryFor(set.Duration, now),
	})
	if err != nil {
		return AnswerSheet{}, errors.Wrap(err, "creating answer sheet")
	}
	svc.publish(ctx, core.TopicAnswerSheetStarted, userID, sheet)
	return sheet, nil
}

// AddAnswer records the answer of the sheet's owner to one of the set's questions.
func (svc *Service) AddAnswer(ctx context.Context, userID, sheetID string, na NewAnswer) (Answer, error) {
	sheet, err := svc.GetOwnSheet(ctx, userID, sheetID)
	if err != nil {
		return Answer{}, err
	}
	now := NowFunc().UTC()
	if err = sheet.CheckSubmission(now); err != nil {
		return Answer{}, err
	}

	set, err := svc.sets.GetQuestionSet(ctx, sheet.QuestionSetID, catalog.PopulateNone)
	if err != nil {
		return Answer{}, errors.Wrap(err, "finding question set")
	}
	if !set.Contains(na.QuestionID) {
		return Answer{}, ErrQuestionNotInSet
	}

	existing, err := svc.repo.GetAnswer(ctx, sheet.ID, na.QuestionID)
	if err != nil {
		return Answer{}, errors.Wrap(err, "finding answer")
	}
	if existing != nil {
		return Answer{}, ErrAnswerExists
	}

	ans, err := svc.repo.CreateAnswer(ctx, Answer{
		ID:            uuid.New().String(),
		AnswerSheetID: sheet.ID,
		QuestionID:    na.QuestionID,
		Option:        na.Option,
		CreatedAt:     now,
	})
	if err != nil {
		if errors.Cause(err) == ErrAnswerExists {
			return Answer{}, ErrAnswerExists
		}
		return Answer{}, errors.Wrap(err, "creating answer")
	}

	if err = svc.cache.Invalidate(ctx, ans.QuestionID); err != nil {
		svc.logger.Error(fmt.Sprintf("invalidating stats of question %s: %v", ans.QuestionID, err), err)
	}
	svc.publish(ctx, core.TopicAnswerCreated, userID, ans)
	return ans, nil
}

// GetOwnSheet returns ErrSheetNotFound if the sheet does not exist or belongs to someone else.
func (svc *Service) GetOwnSheet(ctx context.Context, userID, sheetID string) (AnswerSheet, error) {
	sheet, err := svc.repo.GetSheet(ctx, sheetID)
	if err != nil {
		if core.IsNotFound(err) {
			return AnswerSheet{}, ErrSheetNotFound
		}
		return AnswerSheet{}, errors.Wrap(err, "finding answer sheet")
	}
	if sheet.UserID != userID {
		return AnswerSheet{}, ErrSheetNotFound
	}
	return sheet, nil
}

func (svc *Service) GetSheet(ctx context.Context, userID, sheetID string) (SheetView, error) {
	sheet, err := svc.GetOwnSheet(ctx, userID, sheetID)
	if err != nil {
		return SheetView{}, err
	}
	set, err := svc.sets.GetQuestionSet(ctx, sheet.QuestionSetID, catalog.PopulateQuestions)
	if err != nil {
		return SheetView{}, errors.Wrap(err, "finding question set")
	}
	answers, err := svc.repo.QueryAnswers(ctx, sheet.ID)
	if err != nil {
		return SheetView{}, errors.Wrap(err, "querying answers")
	}

	now := NowFunc()
	view := SheetView{
		Sheet:     sheet,
		Questions: make([]catalog.Question, 0, len(set.Questions)),
		Answers:   answers,
		Remaining: int64(sheet.Remaining(now) / time.Second),
		Expired:   sheet.IsExpired(now),
		Result:    Result{Total: len(set.Questions)},
	}

	given := make(map[string]string, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Option
	}
	for _, q := range set.Questions {
		opt, answered := given[q.ID]
		if !answered {
			view.Questions = append(view.Questions, q.Redacted())
			continue
		}
		view.Questions = append(view.Questions, q)
		view.Result.Answered++
		if opt == q.Correct {
			view.Result.Correct++
		} else {
			view.Result.Wrong++
		}
	}
	return view, nil
}

func (svc *Service) ListSheets(ctx context.Context, userID string) ([]AnswerSheet, error) {
	return svc.repo.QuerySheets(ctx, userID)
}

// QuestionStats returns how many times each option of a question was picked.
func (svc *Service) QuestionStats(ctx context.Context, questionID string) (Stats, error) {
	stats, gen, found, err := svc.cache.Get(ctx, questionID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cached stats of question %s: %v", questionID, err))
	}
	if found {
		return stats, nil
	}

	if stats, err = svc.repo.CountAnswers(ctx, questionID); err != nil {
		return Stats{}, errors.Wrap(err, "counting answers")
	}
	if err = svc.cache.Set(ctx, stats, gen); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching stats of question %s: %v", questionID, err))
	}
	return stats, nil
}

func (svc *Service) publish(ctx context.Context, topic, key string, payload interface{}) {
	if err := svc.publisher.Publish(ctx, topic, key, payload); err != nil {
		svc.logger.Error(fmt.Sprintf("publishing %s: %v", topic, err), err)
	}
}
