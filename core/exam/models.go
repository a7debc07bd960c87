package exam

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
)

// AnswerSheet is one attempt of a User at a QuestionSet.
// ExpireAt is null for untimed sets.
type AnswerSheet struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	QuestionSetID string    `json:"question_set_id" db:"question_set_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	ExpireAt      null.Time `json:"expire_at" db:"expire_at"`
}

// Answer is immutable once created; there is at most one per (AnswerSheet, Question).
type Answer struct {
	ID            string    `json:"id" db:"id"`
	AnswerSheetID string    `json:"answer_sheet_id" db:"answer_sheet_id"`
	QuestionID    string    `json:"question_id" db:"question_id"`
	Option        string    `json:"option" db:"option"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type NewAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Option     string `json:"option" validate:"required,option"`
}

func (na *NewAnswer) Validate(validate *validator.Validate) error {
	na.Option = strings.ToUpper(core.CleanString(na.Option))
	return validate.Struct(na)
}

type NewSheet struct {
	QuestionSetID string `json:"question_set_id" validate:"required"`
}

func (ns NewSheet) Validate(validate *validator.Validate) error { return validate.Struct(ns) }

// Stats aggregates the answers given to a Question, across all sheets.
type Stats struct {
	QuestionID string         `json:"question_id"`
	Total      int            `json:"total"`
	Counts     map[string]int `json:"counts"`
}

// NewStats returns empty Stats with a zero count for every option.
func NewStats(questionID string) Stats {
	counts := make(map[string]int, len(core.Options))
	for _, opt := range core.Options {
		counts[opt] = 0
	}
	return Stats{QuestionID: questionID, Counts: counts}
}

type Result struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Wrong    int `json:"wrong"`
}

// SheetView is an AnswerSheet as presented to its owner.
// The solution of a question is only revealed once it has been answered.
type SheetView struct {
	Sheet     AnswerSheet        `json:"sheet"`
	Questions []catalog.Question `json:"questions"`
	Answers   []Answer           `json:"answers"`
	Remaining int64              `json:"remaining"` // seconds, 0 for untimed or expired sheets
	Expired   bool               `json:"expired"`
	Result    Result             `json:"result"`
}
