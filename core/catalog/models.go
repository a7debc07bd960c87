package catalog

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examhall/core"
)

// SetKind tells what a QuestionSet is used for.
type SetKind string

const (
	KindModelTest    SetKind = "MODEL_TEST"
	KindPreviousYear SetKind = "PREVIOUS_YEAR"
	KindQuestionBank SetKind = "QUESTION_BANK"
)

type Subject struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Chapters    []Chapter `json:"chapters,omitempty" db:"-"`
}

type Chapter struct {
	ID        string     `json:"id" db:"id"`
	SubjectID string     `json:"subject_id" db:"subject_id"`
	Name      string     `json:"name" db:"name"`
	Position  int        `json:"position" db:"position"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Questions []Question `json:"questions,omitempty" db:"-"`
	Notes     []Note     `json:"notes,omitempty" db:"-"`
}

type Question struct {
	ID          string    `json:"id" db:"id"`
	ChapterID   string    `json:"chapter_id" db:"chapter_id"`
	Text        string    `json:"text" db:"text"`
	OptionA     string    `json:"option_a" db:"option_a"`
	OptionB     string    `json:"option_b" db:"option_b"`
	OptionC     string    `json:"option_c" db:"option_c"`
	OptionD     string    `json:"option_d" db:"option_d"`
	Correct     string    `json:"correct,omitempty" db:"correct"`
	Explanation string    `json:"explanation,omitempty" db:"explanation"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Redacted hides the solution of the Question.
func (q Question) Redacted() Question {
	q.Correct = ""
	q.Explanation = ""
	return q
}

// RedactAll hides the solution of all questions.
func RedactAll(questions []Question) []Question {
	redacted := make([]Question, 0, len(questions))
	for _, q := range questions {
		redacted = append(redacted, q.Redacted())
	}
	return redacted
}

// Note is a short note attached to a Chapter.
type Note struct {
	ID        string    `json:"id" db:"id"`
	ChapterID string    `json:"chapter_id" db:"chapter_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// QuestionSet is a named and ordered collection of questions, optionally time-boxed.
// Duration is in minutes; 0 means untimed.
type QuestionSet struct {
	ID        string            `json:"id" db:"id"`
	Title     string            `json:"title" db:"title"`
	Kind      SetKind           `json:"kind" db:"kind"`
	Duration  int               `json:"duration" db:"duration"`
	IsFree    bool              `json:"is_free" db:"is_free"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	Items     []QuestionSetItem `json:"items" db:"-"`
	Questions []Question        `json:"questions,omitempty" db:"-"`
}

// Contains tells whether the question is part of the set.
func (qs QuestionSet) Contains(questionID string) bool {
	for _, it := range qs.Items {
		if it.QuestionID == questionID {
			return true
		}
	}
	return false
}

// QuestionSetItem places a Question in a QuestionSet. Order is 1-based and contiguous per set.
type QuestionSetItem struct {
	QuestionSetID string `json:"-" db:"question_set_id"`
	QuestionID    string `json:"question_id" db:"question_id"`
	Order         int    `json:"order" db:"position"`
}

type Comment struct {
	ID         string    `json:"id" db:"id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Inputs

type SubjectInput struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

func (in *SubjectInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

type ChapterInput struct {
	SubjectID string `json:"subject_id" validate:"required"`
	Name      string `json:"name" validate:"required,notblank,max=120"`
	Position  int    `json:"position" validate:"gte=0"`
}

func (in *ChapterInput) Validate(validate *validator.Validate) error {
	in.Name = core.CleanString(in.Name)
	return validate.Struct(in)
}

type QuestionInput struct {
	ChapterID   string `json:"chapter_id" validate:"required"`
	Text        string `json:"text" validate:"required,notblank"`
	OptionA     string `json:"option_a" validate:"required,notblank"`
	OptionB     string `json:"option_b" validate:"required,notblank"`
	OptionC     string `json:"option_c" validate:"required,notblank"`
	OptionD     string `json:"option_d" validate:"required,notblank"`
	Correct     string `json:"correct" validate:"required,option"`
	Explanation string `json:"explanation"`
}

func (in *QuestionInput) Validate(validate *validator.Validate) error {
	in.Correct = strings.ToUpper(core.CleanString(in.Correct))
	in.Explanation = core.CleanString(in.Explanation)
	return validate.Struct(in)
}

type NoteInput struct {
	ChapterID string `json:"chapter_id" validate:"required"`
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Content   string `json:"content" validate:"required,notblank"`
}

func (in *NoteInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

type QuestionSetInput struct {
	Title    string  `json:"title" validate:"required,notblank,max=200"`
	Kind     SetKind `json:"kind" validate:"required,oneof=MODEL_TEST PREVIOUS_YEAR QUESTION_BANK"`
	Duration int     `json:"duration" validate:"gte=0,lte=600"`
	IsFree   bool    `json:"is_free"`
}

func (in *QuestionSetInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

// SetQuestions replaces the questions of a QuestionSet; the order of QuestionIDs is the set order.
type SetQuestions struct {
	QuestionIDs []string `json:"question_ids" validate:"required,unique,dive,required"`
}

func (in SetQuestions) Validate(validate *validator.Validate) error { return validate.Struct(in) }

type NewComment struct {
	Body string `json:"body" validate:"required,notblank,max=2000"`
}

func (in *NewComment) Validate(validate *validator.Validate) error {
	in.Body = core.CleanString(in.Body)
	return validate.Struct(in)
}

// Filters

type SubjectFilter struct {
	Search string `query:"search"`
}

type QuestionFilter struct {
	ChapterID string `query:"chapter_id"`
	Search    string `query:"search"`
}

type QuestionSetFilter struct {
	Kind   SetKind `query:"kind"`
	IsFree *bool   `query:"is_free"`
}
