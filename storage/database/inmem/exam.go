package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/examhall/core/exam"
)

type examRepository struct {
	db *examTables
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) *examRepository {
	return &examRepository{db: db.exam}
}

func (repo *examRepository) CreateSheet(_ context.Context, s exam.AnswerSheet) (exam.AnswerSheet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sheets[s.ID] = &s
	return s, nil
}

func (repo *examRepository) GetSheet(_ context.Context, id string) (exam.AnswerSheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.sheets[id]; ok {
		return *s, nil
	}
	return exam.AnswerSheet{}, exam.ErrSheetNotFound
}

func (repo *examRepository) QuerySheets(_ context.Context, userID string) ([]exam.AnswerSheet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sheets := make([]exam.AnswerSheet, 0)
	for _, s := range repo.db.sheets {
		if s.UserID == userID {
			sheets = append(sheets, *s)
		}
	}
	sort.SliceStable(sheets, func(i, j int) bool { return sheets[i].CreatedAt.After(sheets[j].CreatedAt) })
	return sheets, nil
}

// CreateAnswer checks & inserts under the same lock, like a unique constraint.
func (repo *examRepository) CreateAnswer(_ context.Context, a exam.Answer) (exam.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := [2]string{a.AnswerSheetID, a.QuestionID}
	if _, ok := repo.db.answered[key]; ok {
		return exam.Answer{}, exam.ErrAnswerExists
	}
	repo.db.answers[a.ID] = &a
	repo.db.answered[key] = a.ID
	return a, nil
}

func (repo *examRepository) GetAnswer(_ context.Context, sheetID, questionID string) (*exam.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	id, ok := repo.db.answered[[2]string{sheetID, questionID}]
	if !ok {
		return nil, nil
	}
	a := *repo.db.answers[id]
	return &a, nil
}

func (repo *examRepository) QueryAnswers(_ context.Context, sheetID string) ([]exam.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	answers := make([]exam.Answer, 0)
	for _, a := range repo.db.answers {
		if a.AnswerSheetID == sheetID {
			answers = append(answers, *a)
		}
	}
	sort.SliceStable(answers, func(i, j int) bool { return answers[i].CreatedAt.Before(answers[j].CreatedAt) })
	return answers, nil
}

func (repo *examRepository) CountAnswers(_ context.Context, questionID string) (exam.Stats, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := exam.NewStats(questionID)
	for _, a := range repo.db.answers {
		if a.QuestionID == questionID {
			stats.Counts[a.Option]++
			stats.Total++
		}
	}
	return stats, nil
}
