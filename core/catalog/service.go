package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrSubjectNotFound     = core.NewNotFoundError("subject not found")
	ErrChapterNotFound     = core.NewNotFoundError("chapter not found")
	ErrQuestionNotFound    = core.NewNotFoundError("question not found")
	ErrNoteNotFound        = core.NewNotFoundError("note not found")
	ErrQuestionSetNotFound = core.NewNotFoundError("question set not found")
	ErrUnknownQuestions    = core.NewValidationError(
		errors.New("unknown questions"),
		core.FieldError{Field: "question_ids", Error: "some questions do not exist"},
	)
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering) ([]Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateChapter(ctx context.Context, c Chapter) (Chapter, error)
		UpdateChapter(ctx context.Context, c Chapter) (Chapter, error)
		GetChapter(ctx context.Context, id string) (Chapter, error)
		QueryChapters(ctx context.Context, subjectID string) ([]Chapter, error)
		DeleteChapter(ctx context.Context, id string) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		// GetQuestions returns the questions matching ids, in no particular order.
		GetQuestions(ctx context.Context, ids []string) ([]Question, error)
		QueryQuestions(ctx context.Context, filter *QuestionFilter, ordering []core.DBOrdering) ([]Question, error)
		DeleteQuestion(ctx context.Context, id string) error

		CreateNote(ctx context.Context, n Note) (Note, error)
		UpdateNote(ctx context.Context, n Note) (Note, error)
		GetNote(ctx context.Context, id string) (Note, error)
		QueryNotes(ctx context.Context, chapterID string) ([]Note, error)
		DeleteNote(ctx context.Context, id string) error

		CreateQuestionSet(ctx context.Context, qs QuestionSet) (QuestionSet, error)
		UpdateQuestionSet(ctx context.Context, qs QuestionSet) (QuestionSet, error)
		// GetQuestionSet returns the set with its Items sorted by Order.
		GetQuestionSet(ctx context.Context, id string) (QuestionSet, error)
		QueryQuestionSets(ctx context.Context, filter *QuestionSetFilter, ordering []core.DBOrdering) ([]QuestionSet, error)
		DeleteQuestionSet(ctx context.Context, id string) error
		ReplaceQuestionSetItems(ctx context.Context, setID string, items []QuestionSetItem) error

		CreateComment(ctx context.Context, c Comment) (Comment, error)
		QueryComments(ctx context.Context, questionID string) ([]Comment, error)
	}

	ServiceInterface interface {
		CreateSubject(ctx context.Context, in SubjectInput) (Subject, error)
		UpdateSubject(ctx context.Context, id string, in SubjectInput) (Subject, error)
		GetSubject(ctx context.Context, id string, populate Populate) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering, populate Populate) ([]Subject, error)
		DeleteSubject(ctx context.Context, id string) error

		CreateChapter(ctx context.Context, in ChapterInput) (Chapter, error)
		UpdateChapter(ctx context.Context, id string, in ChapterInput) (Chapter, error)
		GetChapter(ctx context.Context, id string, populate Populate) (Chapter, error)
		DeleteChapter(ctx context.Context, id string) error

		CreateQuestion(ctx context.Context, in QuestionInput) (Question, error)
		UpdateQuestion(ctx context.Context, id string, in QuestionInput) (Question, error)
		GetQuestion(ctx context.Context, id string) (Question, error)
		QueryQuestions(ctx context.Context, filter *QuestionFilter, ordering []core.DBOrdering) ([]Question, error)
		DeleteQuestion(ctx context.Context, id string) error

		CreateNote(ctx context.Context, in NoteInput) (Note, error)
		UpdateNote(ctx context.Context, id string, in NoteInput) (Note, error)
		GetNote(ctx context.Context, id string) (Note, error)
		DeleteNote(ctx context.Context, id string) error

		CreateQuestionSet(ctx context.Context, in QuestionSetInput) (QuestionSet, error)
		UpdateQuestionSet(ctx context.Context, id string, in QuestionSetInput) (QuestionSet, error)
		GetQuestionSet(ctx context.Context, id string, populate Populate) (QuestionSet, error)
		QueryQuestionSets(ctx context.Context, filter *QuestionSetFilter, ordering []core.DBOrdering) ([]QuestionSet, error)
		DeleteQuestionSet(ctx context.Context, id string) error
		SetQuestions(ctx context.Context, setID string, in SetQuestions) (QuestionSet, error)

		AddComment(ctx context.Context, userID, questionID string, in NewComment) (Comment, error)
		QueryComments(ctx context.Context, questionID string) ([]Comment, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func newID() string { return uuid.New().String() }

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, in SubjectInput) (Subject, error) {
	s, err := svc.repo.CreateSubject(ctx, Subject{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   NowFunc().UTC(),
	})
	return s, errors.Wrap(err, "creating subject")
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, in SubjectInput) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	s.Name = in.Name
	s.Description = in.Description
	s, err = svc.repo.UpdateSubject(ctx, s)
	return s, errors.Wrap(err, "updating subject")
}

func (svc *Service) GetSubject(ctx context.Context, id string, populate Populate) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if populate == PopulateChapters {
		if s.Chapters, err = svc.repo.QueryChapters(ctx, s.ID); err != nil {
			return Subject{}, errors.Wrap(err, "querying chapters")
		}
	}
	return s, nil
}

func (svc *Service) QuerySubjects(ctx context.Context, filter *SubjectFilter, ordering []core.DBOrdering, populate Populate) ([]Subject, error) {
	subjects, err := svc.repo.QuerySubjects(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	if populate == PopulateChapters {
		for i := range subjects {
			if subjects[i].Chapters, err = svc.repo.QueryChapters(ctx, subjects[i].ID); err != nil {
				return nil, errors.Wrap(err, "querying chapters")
			}
		}
	}
	return subjects, nil
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return svc.repo.DeleteSubject(ctx, id)
}

// Chapters

func (svc *Service) checkSubject(ctx context.Context, id string) error {
	if _, err := svc.repo.GetSubject(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "subject_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding subject")
	}
	return nil
}

func (svc *Service) CreateChapter(ctx context.Context, in ChapterInput) (Chapter, error) {
	if err := svc.checkSubject(ctx, in.SubjectID); err != nil {
		return Chapter{}, err
	}
	c, err := svc.repo.CreateChapter(ctx, Chapter{
		ID:        newID(),
		SubjectID: in.SubjectID,
		Name:      in.Name,
		Position:  in.Position,
		CreatedAt: NowFunc().UTC(),
	})
	return c, errors.Wrap(err, "creating chapter")
}

func (svc *Service) UpdateChapter(ctx context.Context, id string, in ChapterInput) (Chapter, error) {
	c, err := svc.repo.GetChapter(ctx, id)
	if err != nil {
		return Chapter{}, err
	}
	if in.SubjectID != c.SubjectID {
		if err = svc.checkSubject(ctx, in.SubjectID); err != nil {
			return Chapter{}, err
		}
	}
	c.SubjectID = in.SubjectID
	c.Name = in.Name
	c.Position = in.Position
	c, err = svc.repo.UpdateChapter(ctx, c)
	return c, errors.Wrap(err, "updating chapter")
}

func (svc *Service) GetChapter(ctx context.Context, id string, populate Populate) (Chapter, error) {
	c, err := svc.repo.GetChapter(ctx, id)
	if err != nil {
		return Chapter{}, err
	}
	switch populate {
	case PopulateQuestions:
		c.Questions, err = svc.repo.QueryQuestions(ctx, &QuestionFilter{ChapterID: c.ID}, nil)
		err = errors.Wrap(err, "querying questions")
	case PopulateNotes:
		c.Notes, err = svc.repo.QueryNotes(ctx, c.ID)
		err = errors.Wrap(err, "querying notes")
	}
	if err != nil {
		return Chapter{}, err
	}
	return c, nil
}

func (svc *Service) DeleteChapter(ctx context.Context, id string) error {
	return svc.repo.DeleteChapter(ctx, id)
}

// Questions

func (svc *Service) checkChapter(ctx context.Context, id string) error {
	if _, err := svc.repo.GetChapter(ctx, id); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(err, core.FieldError{Field: "chapter_id", Error: err.Error()})
		}
		return errors.Wrap(err, "finding chapter")
	}
	return nil
}

func (svc *Service) CreateQuestion(ctx context.Context, in QuestionInput) (Question, error) {
	if err := svc.checkChapter(ctx, in.ChapterID); err != nil {
		return Question{}, err
	}
	q := Question{ID: newID(), CreatedAt: NowFunc().UTC()}
	in.apply(&q)
	q, err := svc.repo.CreateQuestion(ctx, q)
	return q, errors.Wrap(err, "creating question")
}

func (svc *Service) UpdateQuestion(ctx context.Context, id string, in QuestionInput) (Question, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if in.ChapterID != q.ChapterID {
		if err = svc.checkChapter(ctx, in.ChapterID); err != nil {
			return Question{}, err
		}
	}
	in.apply(&q)
	q, err = svc.repo.UpdateQuestion(ctx, q)
	return q, errors.Wrap(err, "updating question")
}

func (in QuestionInput) apply(q *Question) {
	q.ChapterID = in.ChapterID
	q.Text = in.Text
	q.OptionA = in.OptionA
	q.OptionB = in.OptionB
	q.OptionC = in.OptionC
	q.OptionD = in.OptionD
	q.Correct = in.Correct
	q.Explanation = in.Explanation
}

func (svc *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return svc.repo.GetQuestion(ctx, id)
}

func (svc *Service) QueryQuestions(ctx context.Context, filter *QuestionFilter, ordering []core.DBOrdering) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx, filter, ordering)
}

func (svc *Service) DeleteQuestion(ctx context.Context, id string) error {
	return svc.repo.DeleteQuestion(ctx, id)
}

// Notes

func (svc *Service) CreateNote(ctx context.Context, in NoteInput) (Note, error) {
	if err := svc.checkChapter(ctx, in.ChapterID); err != nil {
		return Note{}, err
	}
	now := NowFunc().UTC()
	n, err := svc.repo.CreateNote(ctx, Note{
		ID:        newID(),
		ChapterID: in.ChapterID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return n, errors.Wrap(err, "creating note")
}

func (svc *Service) UpdateNote(ctx context.Context, id string, in NoteInput) (Note, error) {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if in.ChapterID != n.ChapterID {
		if err = svc.checkChapter(ctx, in.ChapterID); err != nil {
			return Note{}, err
		}
	}
	n.ChapterID = in.ChapterID
	n.Title = in.Title
	n.Content = in.Content
	n.UpdatedAt = NowFunc().UTC()
	n, err = svc.repo.UpdateNote(ctx, n)
	return n, errors.Wrap(err, "updating note")
}

func (svc *Service) GetNote(ctx context.Context, id string) (Note, error) {
	return svc.repo.GetNote(ctx, id)
}

func (svc *Service) DeleteNote(ctx context.Context, id string) error {
	return svc.repo.DeleteNote(ctx, id)
}

// Question Sets

func (svc *Service) CreateQuestionSet(ctx context.Context, in QuestionSetInput) (QuestionSet, error) {
	qs, err := svc.repo.CreateQuestionSet(ctx, QuestionSet{
		ID:        newID(),
		Title:     in.Title,
		Kind:      in.Kind,
		Duration:  in.Duration,
		IsFree:    in.IsFree,
		CreatedAt: NowFunc().UTC(),
		Items:     []QuestionSetItem{},
	})
	return qs, errors.Wrap(err, "creating question set")
}

func (svc *Service) UpdateQuestionSet(ctx context.Context, id string, in QuestionSetInput) (QuestionSet, error) {
	qs, err := svc.repo.GetQuestionSet(ctx, id)
	if err != nil {
		return QuestionSet{}, err
	}
	qs.Title = in.Title
	qs.Kind = in.Kind
	qs.Duration = in.Duration
	qs.IsFree = in.IsFree
	qs, err = svc.repo.UpdateQuestionSet(ctx, qs)
	return qs, errors.Wrap(err, "updating question set")
}

// GetQuestionSet returns the set; PopulateQuestions loads its questions in set order.
func (svc *Service) GetQuestionSet(ctx context.Context, id string, populate Populate) (QuestionSet, error) {
	qs, err := svc.repo.GetQuestionSet(ctx, id)
	if err != nil {
		return QuestionSet{}, err
	}
	if populate == PopulateQuestions {
		if qs.Questions, err = svc.orderedQuestions(ctx, qs.Items); err != nil {
			return QuestionSet{}, err
		}
	}
	return qs, nil
}

func (svc *Service) orderedQuestions(ctx context.Context, items []QuestionSetItem) ([]Question, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.QuestionID)
	}
	found, err := svc.repo.GetQuestions(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "finding questions")
	}
	byID := make(map[string]Question, len(found))
	for _, q := range found {
		byID[q.ID] = q
	}
	questions := make([]Question, 0, len(items))
	for _, it := range items {
		if q, ok := byID[it.QuestionID]; ok {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

func (svc *Service) QueryQuestionSets(ctx context.Context, filter *QuestionSetFilter, ordering []core.DBOrdering) ([]QuestionSet, error) {
	return svc.repo.QueryQuestionSets(ctx, filter, ordering)
}

func (svc *Service) DeleteQuestionSet(ctx context.Context, id string) error {
	return svc.repo.DeleteQuestionSet(ctx, id)
}

// SetQuestions replaces the questions of a set, numbering them 1..n in the given order.
func (svc *Service) SetQuestions(ctx context.Context, setID string, in SetQuestions) (QuestionSet, error) {
	if _, err := svc.repo.GetQuestionSet(ctx, setID); err != nil {
		return QuestionSet{}, err
	}
	found, err := svc.repo.GetQuestions(ctx, in.QuestionIDs)
	if err != nil {
		return QuestionSet{}, errors.Wrap(err, "finding questions")
	}
	if len(found) != len(in.QuestionIDs) {
		return QuestionSet{}, ErrUnknownQuestions
	}

	items := make([]QuestionSetItem, 0, len(in.QuestionIDs))
	for i, qid := range in.QuestionIDs {
		items = append(items, QuestionSetItem{QuestionSetID: setID, QuestionID: qid, Order: i + 1})
	}
	if err = svc.repo.ReplaceQuestionSetItems(ctx, setID, items); err != nil {
		return QuestionSet{}, errors.Wrap(err, "replacing question set items")
	}
	return svc.GetQuestionSet(ctx, setID, PopulateNone)
}

// Comments

func (svc *Service) AddComment(ctx context.Context, userID, questionID string, in NewComment) (Comment, error) {
	if _, err := svc.repo.GetQuestion(ctx, questionID); err != nil {
		return Comment{}, err
	}
	c, err := svc.repo.CreateComment(ctx, Comment{
		ID:         newID(),
		QuestionID: questionID,
		UserID:     userID,
		Body:       in.Body,
		CreatedAt:  NowFunc().UTC(),
	})
	return c, errors.Wrap(err, "creating comment")
}

func (svc *Service) QueryComments(ctx context.Context, questionID string) ([]Comment, error) {
	if _, err := svc.repo.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return svc.repo.QueryComments(ctx, questionID)
}
