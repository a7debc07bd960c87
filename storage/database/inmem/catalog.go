package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
)

var (
	subjectComparators = map[string]comparator[catalog.Subject]{
		"name":       func(a, b catalog.Subject) int { return cmpString(a.Name, b.Name) },
		"created_at": func(a, b catalog.Subject) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
	questionComparators = map[string]comparator[catalog.Question]{
		"text":       func(a, b catalog.Question) int { return cmpString(a.Text, b.Text) },
		"created_at": func(a, b catalog.Question) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
	questionSetComparators = map[string]comparator[catalog.QuestionSet]{
		"title":      func(a, b catalog.QuestionSet) int { return cmpString(a.Title, b.Title) },
		"duration":   func(a, b catalog.QuestionSet) int { return cmpInt(a.Duration, b.Duration) },
		"created_at": func(a, b catalog.QuestionSet) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
	}
)

type catalogRepository struct {
	db *catalogTables
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) *catalogRepository {
	return &catalogRepository{db: db.catalog}
}

// Subjects

func (repo *catalogRepository) CreateSubject(_ context.Context, s catalog.Subject) (catalog.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	s.Chapters = nil
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *catalogRepository) UpdateSubject(_ context.Context, s catalog.Subject) (catalog.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[s.ID]; !ok {
		return catalog.Subject{}, catalog.ErrSubjectNotFound
	}
	s.Chapters = nil
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *catalogRepository) GetSubject(_ context.Context, id string) (catalog.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subjects[id]; ok {
		return *s, nil
	}
	return catalog.Subject{}, catalog.ErrSubjectNotFound
}

func (repo *catalogRepository) QuerySubjects(_ context.Context, filter *catalog.SubjectFilter, ordering []core.DBOrdering) ([]catalog.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]catalog.Subject, 0, len(repo.db.subjects))
	for _, s := range repo.db.subjects {
		if filter != nil && filter.Search != "" && !containsFold(s.Name, filter.Search) {
			continue
		}
		subjects = append(subjects, *s)
	}
	orderBy(subjects, ordering, subjectComparators, core.DBOrdering{Field: "name", Ascending: true})
	return subjects, nil
}

func (repo *catalogRepository) DeleteSubject(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subjects[id]; !ok {
		return catalog.ErrSubjectNotFound
	}
	delete(repo.db.subjects, id)
	for _, c := range repo.db.chapters {
		if c.SubjectID == id {
			repo.deleteChapter(c.ID)
		}
	}
	return nil
}

// Chapters

func (repo *catalogRepository) CreateChapter(_ context.Context, c catalog.Chapter) (catalog.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.Questions, c.Notes = nil, nil
	repo.db.chapters[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) UpdateChapter(_ context.Context, c catalog.Chapter) (catalog.Chapter, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[c.ID]; !ok {
		return catalog.Chapter{}, catalog.ErrChapterNotFound
	}
	c.Questions, c.Notes = nil, nil
	repo.db.chapters[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) GetChapter(_ context.Context, id string) (catalog.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.chapters[id]; ok {
		return *c, nil
	}
	return catalog.Chapter{}, catalog.ErrChapterNotFound
}

func (repo *catalogRepository) QueryChapters(_ context.Context, subjectID string) ([]catalog.Chapter, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	chapters := make([]catalog.Chapter, 0)
	for _, c := range repo.db.chapters {
		if c.SubjectID == subjectID {
			chapters = append(chapters, *c)
		}
	}
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].Position != chapters[j].Position {
			return chapters[i].Position < chapters[j].Position
		}
		return chapters[i].Name < chapters[j].Name
	})
	return chapters, nil
}

func (repo *catalogRepository) DeleteChapter(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.chapters[id]; !ok {
		return catalog.ErrChapterNotFound
	}
	repo.deleteChapter(id)
	return nil
}

// deleteChapter cascades to the chapter's questions & notes. Lock must be held.
func (repo *catalogRepository) deleteChapter(id string) {
	delete(repo.db.chapters, id)
	for _, q := range repo.db.questions {
		if q.ChapterID == id {
			repo.deleteQuestion(q.ID)
		}
	}
	for _, n := range repo.db.notes {
		if n.ChapterID == id {
			delete(repo.db.notes, n.ID)
		}
	}
}

// Questions

func (repo *catalogRepository) CreateQuestion(_ context.Context, q catalog.Question) (catalog.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *catalogRepository) UpdateQuestion(_ context.Context, q catalog.Question) (catalog.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return catalog.Question{}, catalog.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *catalogRepository) GetQuestion(_ context.Context, id string) (catalog.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return catalog.Question{}, catalog.ErrQuestionNotFound
}

func (repo *catalogRepository) GetQuestions(_ context.Context, ids []string) ([]catalog.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]catalog.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := repo.db.questions[id]; ok {
			questions = append(questions, *q)
		}
	}
	return questions, nil
}

func (repo *catalogRepository) QueryQuestions(_ context.Context, filter *catalog.QuestionFilter, ordering []core.DBOrdering) ([]catalog.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]catalog.Question, 0, len(repo.db.questions))
	for _, q := range repo.db.questions {
		if filter != nil {
			if filter.ChapterID != "" && q.ChapterID != filter.ChapterID {
				continue
			}
			if filter.Search != "" && !containsFold(q.Text, filter.Search) {
				continue
			}
		}
		questions = append(questions, *q)
	}
	orderBy(questions, ordering, questionComparators, core.DBOrdering{Field: "created_at", Ascending: true})
	return questions, nil
}

func (repo *catalogRepository) DeleteQuestion(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[id]; !ok {
		return catalog.ErrQuestionNotFound
	}
	repo.deleteQuestion(id)
	return nil
}

// deleteQuestion removes the question from every set, keeping their order contiguous. Lock must be held.
func (repo *catalogRepository) deleteQuestion(id string) {
	delete(repo.db.questions, id)
	for _, c := range repo.db.comments {
		if c.QuestionID == id {
			delete(repo.db.comments, c.ID)
		}
	}
	for _, set := range repo.db.sets {
		if !set.Contains(id) {
			continue
		}
		items := make([]catalog.QuestionSetItem, 0, len(set.Items)-1)
		for _, it := range set.Items {
			if it.QuestionID != id {
				it.Order = len(items) + 1
				items = append(items, it)
			}
		}
		set.Items = items
	}
}

// Notes

func (repo *catalogRepository) CreateNote(_ context.Context, n catalog.Note) (catalog.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.notes[n.ID] = &n
	return n, nil
}

func (repo *catalogRepository) UpdateNote(_ context.Context, n catalog.Note) (catalog.Note, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notes[n.ID]; !ok {
		return catalog.Note{}, catalog.ErrNoteNotFound
	}
	repo.db.notes[n.ID] = &n
	return n, nil
}

func (repo *catalogRepository) GetNote(_ context.Context, id string) (catalog.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.notes[id]; ok {
		return *n, nil
	}
	return catalog.Note{}, catalog.ErrNoteNotFound
}

func (repo *catalogRepository) QueryNotes(_ context.Context, chapterID string) ([]catalog.Note, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notes := make([]catalog.Note, 0)
	for _, n := range repo.db.notes {
		if n.ChapterID == chapterID {
			notes = append(notes, *n)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].CreatedAt.Before(notes[j].CreatedAt) })
	return notes, nil
}

func (repo *catalogRepository) DeleteNote(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.notes[id]; !ok {
		return catalog.ErrNoteNotFound
	}
	delete(repo.db.notes, id)
	return nil
}

// Question Sets

func copySet(qs catalog.QuestionSet) catalog.QuestionSet {
	qs.Items = append([]catalog.QuestionSetItem{}, qs.Items...)
	qs.Questions = nil
	return qs
}

func (repo *catalogRepository) CreateQuestionSet(_ context.Context, qs catalog.QuestionSet) (catalog.QuestionSet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	qs = copySet(qs)
	repo.db.sets[qs.ID] = &qs
	return copySet(qs), nil
}

// UpdateQuestionSet updates the set's fields; items are only changed by ReplaceQuestionSetItems.
func (repo *catalogRepository) UpdateQuestionSet(_ context.Context, qs catalog.QuestionSet) (catalog.QuestionSet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.sets[qs.ID]
	if !ok {
		return catalog.QuestionSet{}, catalog.ErrQuestionSetNotFound
	}
	orig.Title = qs.Title
	orig.Kind = qs.Kind
	orig.Duration = qs.Duration
	orig.IsFree = qs.IsFree
	return copySet(*orig), nil
}

func (repo *catalogRepository) GetQuestionSet(_ context.Context, id string) (catalog.QuestionSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if qs, ok := repo.db.sets[id]; ok {
		return copySet(*qs), nil
	}
	return catalog.QuestionSet{}, catalog.ErrQuestionSetNotFound
}

func (repo *catalogRepository) QueryQuestionSets(_ context.Context, filter *catalog.QuestionSetFilter, ordering []core.DBOrdering) ([]catalog.QuestionSet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sets := make([]catalog.QuestionSet, 0, len(repo.db.sets))
	for _, qs := range repo.db.sets {
		if filter != nil {
			if filter.Kind != "" && qs.Kind != filter.Kind {
				continue
			}
			if filter.IsFree != nil && qs.IsFree != *filter.IsFree {
				continue
			}
		}
		sets = append(sets, copySet(*qs))
	}
	orderBy(sets, ordering, questionSetComparators, core.DBOrdering{Field: "created_at"})
	return sets, nil
}

func (repo *catalogRepository) DeleteQuestionSet(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.sets[id]; !ok {
		return catalog.ErrQuestionSetNotFound
	}
	delete(repo.db.sets, id)
	return nil
}

func (repo *catalogRepository) ReplaceQuestionSetItems(_ context.Context, setID string, items []catalog.QuestionSetItem) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	qs, ok := repo.db.sets[setID]
	if !ok {
		return catalog.ErrQuestionSetNotFound
	}
	qs.Items = append([]catalog.QuestionSetItem{}, items...)
	sort.SliceStable(qs.Items, func(i, j int) bool { return qs.Items[i].Order < qs.Items[j].Order })
	return nil
}

// Comments

func (repo *catalogRepository) CreateComment(_ context.Context, c catalog.Comment) (catalog.Comment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.comments[c.ID] = &c
	return c, nil
}

func (repo *catalogRepository) QueryComments(_ context.Context, questionID string) ([]catalog.Comment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	comments := make([]catalog.Comment, 0)
	for _, c := range repo.db.comments {
		if c.QuestionID == questionID {
			comments = append(comments, *c)
		}
	}
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}
