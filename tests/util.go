// Package testutil contains fixtures shared by the test suites.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
	"github.com/trezcool/examhall/storage/database"
)

// OpenDB connects to & migrates the test database named by TEST_DATABASE_NAME.
// The test is skipped if it is not set.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := os.Getenv("TEST_DATABASE_NAME")
	if name == "" {
		t.Skip("TEST_DATABASE_NAME not set")
	}

	conf := core.NewConfig()
	conf.Database.Name = name
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("Open(): %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("Migrate(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ResetDB(t, db)
	return db
}

// ResetDB deletes all rows from the app tables.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	q := `TRUNCATE answer, answer_sheet, payment, comment, question_set_item, question_set, note, question, chapter, subject, "user" CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

func CreateUser(t *testing.T, repo user.Repository, name, email string, roles []string, isActive bool, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr, err := repo.CreateUser(context.Background(), user.User{
		ExternalID: "ext-" + uuid.New().String(),
		Name:       name,
		Email:      email,
		IsActive:   isActive,
		Roles:      roles,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
		LastLogin:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateSubject(t *testing.T, repo catalog.Repository, name string) catalog.Subject {
	t.Helper()
	s, err := repo.CreateSubject(context.Background(), catalog.Subject{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSubject(): %v", err)
	}
	return s
}

func CreateChapter(t *testing.T, repo catalog.Repository, subjectID, name string, position int) catalog.Chapter {
	t.Helper()
	c, err := repo.CreateChapter(context.Background(), catalog.Chapter{
		ID:        uuid.New().String(),
		SubjectID: subjectID,
		Name:      name,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateChapter(): %v", err)
	}
	return c
}

// CreateQuestion creates a question whose options are "<text> A".."<text> D".
func CreateQuestion(t *testing.T, repo catalog.Repository, chapterID, text, correct string) catalog.Question {
	t.Helper()
	q, err := repo.CreateQuestion(context.Background(), catalog.Question{
		ID:          uuid.New().String(),
		ChapterID:   chapterID,
		Text:        text,
		OptionA:     text + " A",
		OptionB:     text + " B",
		OptionC:     text + " C",
		OptionD:     text + " D",
		Correct:     correct,
		Explanation: "because " + correct,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateQuestion(): %v", err)
	}
	return q
}

// CreateQuestionSet creates a set holding the questions, in order.
func CreateQuestionSet(t *testing.T, repo catalog.Repository, title string, duration int, isFree bool, questions ...catalog.Question) catalog.QuestionSet {
	t.Helper()
	ctx := context.Background()
	qs, err := repo.CreateQuestionSet(ctx, catalog.QuestionSet{
		ID:        uuid.New().String(),
		Title:     title,
		Kind:      catalog.KindModelTest,
		Duration:  duration,
		IsFree:    isFree,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateQuestionSet(): %v", err)
	}

	items := make([]catalog.QuestionSetItem, 0, len(questions))
	for i, q := range questions {
		items = append(items, catalog.QuestionSetItem{QuestionSetID: qs.ID, QuestionID: q.ID, Order: i + 1})
	}
	if err = repo.ReplaceQuestionSetItems(ctx, qs.ID, items); err != nil {
		t.Fatalf("ReplaceQuestionSetItems(): %v", err)
	}
	if qs, err = repo.GetQuestionSet(ctx, qs.ID); err != nil {
		t.Fatalf("GetQuestionSet(): %v", err)
	}
	return qs
}

// CreatePayment creates a payment; approvedAt is only kept for SUCCESS payments.
func CreatePayment(
	t *testing.T,
	repo subscription.Repository,
	userID string,
	status subscription.PaymentStatus,
	plan subscription.Plan,
	createdAt time.Time,
	approvedAt ...time.Time,
) subscription.Payment {
	t.Helper()
	p := subscription.Payment{
		ID:             uuid.New().String(),
		UserID:         userID,
		Status:         status,
		Plan:           plan,
		TransactionRef: "TX-" + uuid.New().String()[:8],
		Amount:         1000,
		CreatedAt:      createdAt.UTC(),
	}
	if status == subscription.PaymentSuccess && len(approvedAt) > 0 {
		p.ApprovedAt = null.TimeFrom(approvedAt[0].UTC())
	}
	p, err := repo.CreatePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePayment(): %v", err)
	}
	return p
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

type RecordedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

// EventRecorder is an in-process core.EventPublisher; Err is returned by every Publish when set.
type EventRecorder struct {
	mu     sync.Mutex
	events []RecordedEvent
	Err    error
}

var _ core.EventPublisher = (*EventRecorder)(nil)

func (r *EventRecorder) Publish(_ context.Context, topic, key string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, RecordedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

// Topics returns the topics published so far, in order.
func (r *EventRecorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, 0, len(r.events))
	for _, e := range r.events {
		topics = append(topics, e.Topic)
	}
	return topics
}

func (r *EventRecorder) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent{}, r.events...)
}
