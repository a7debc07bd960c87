package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/exam"
)

const (
	sheetColumns  = `id, user_id, question_set_id, created_at, expire_at`
	answerColumns = `id, answer_sheet_id, question_id, option, created_at`

	answerUniqueConstraint = "answer_sheet_question_key"
)

type examRepository struct {
	db core.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db core.DB) *examRepository {
	return &examRepository{db: db}
}

func (repo *examRepository) CreateSheet(ctx context.Context, s exam.AnswerSheet) (exam.AnswerSheet, error) {
	q := `INSERT INTO answer_sheet (` + sheetColumns + `) VALUES (:id, :user_id, :question_set_id, :created_at, :expire_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, s); err != nil {
		return exam.AnswerSheet{}, dbErr(err, "inserting answer sheet")
	}
	return s, nil
}

func (repo *examRepository) GetSheet(ctx context.Context, id string) (exam.AnswerSheet, error) {
	if !isValidID(id) {
		return exam.AnswerSheet{}, exam.ErrSheetNotFound
	}
	var s exam.AnswerSheet
	q := `SELECT ` + sheetColumns + ` FROM answer_sheet WHERE id = $1`
	if err := repo.db.GetContext(ctx, &s, q, id); err != nil {
		return exam.AnswerSheet{}, trapNoRowsErr(err, exam.ErrSheetNotFound, "finding answer sheet")
	}
	return s, nil
}

func (repo *examRepository) QuerySheets(ctx context.Context, userID string) ([]exam.AnswerSheet, error) {
	sheets := make([]exam.AnswerSheet, 0)
	if !isValidID(userID) {
		return sheets, nil
	}
	q := `SELECT ` + sheetColumns + ` FROM answer_sheet WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &sheets, q, userID); err != nil {
		return nil, dbErr(err, "querying answer sheets")
	}
	return sheets, nil
}

// CreateAnswer relies on the (answer_sheet_id, question_id) unique constraint.
func (repo *examRepository) CreateAnswer(ctx context.Context, a exam.Answer) (exam.Answer, error) {
	q := `INSERT INTO answer (` + answerColumns + `) VALUES (:id, :answer_sheet_id, :question_id, :option, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, a); err != nil {
		if isUniqueViolation(err, answerUniqueConstraint) {
			return exam.Answer{}, exam.ErrAnswerExists
		}
		return exam.Answer{}, dbErr(err, "inserting answer")
	}
	return a, nil
}

func (repo *examRepository) GetAnswer(ctx context.Context, sheetID, questionID string) (*exam.Answer, error) {
	if !isValidID(sheetID) || !isValidID(questionID) {
		return nil, nil
	}
	var a exam.Answer
	q := `SELECT ` + answerColumns + ` FROM answer WHERE answer_sheet_id = $1 AND question_id = $2`
	if err := repo.db.GetContext(ctx, &a, q, sheetID, questionID); err != nil {
		if err = trapNoRowsErr(err, nil, "finding answer"); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &a, nil
}

func (repo *examRepository) QueryAnswers(ctx context.Context, sheetID string) ([]exam.Answer, error) {
	answers := make([]exam.Answer, 0)
	if !isValidID(sheetID) {
		return answers, nil
	}
	q := `SELECT ` + answerColumns + ` FROM answer WHERE answer_sheet_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &answers, q, sheetID); err != nil {
		return nil, dbErr(err, "querying answers")
	}
	return answers, nil
}

func (repo *examRepository) CountAnswers(ctx context.Context, questionID string) (exam.Stats, error) {
	stats := exam.NewStats(questionID)
	if !isValidID(questionID) {
		return stats, nil
	}

	var rows []struct {
		Option string `db:"option"`
		Count  int    `db:"count"`
	}
	q := `SELECT option, COUNT(*) AS count FROM answer WHERE question_id = $1 GROUP BY option`
	if err := repo.db.SelectContext(ctx, &rows, q, questionID); err != nil {
		return exam.Stats{}, dbErr(err, "counting answers")
	}
	for _, r := range rows {
		stats.Counts[r.Option] = r.Count
		stats.Total += r.Count
	}
	return stats, nil
}
