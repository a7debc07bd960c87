package catalog_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/storage/database/inmem"
	"github.com/trezcool/examhall/tests"
)

func setup() (*catalog.Service, catalog.Repository) {
	repo := inmemdb.NewCatalogRepository(inmemdb.Open())
	return catalog.NewService(repo), repo
}

func questionIDs(questions []catalog.Question) []string {
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func itemOrders(items []catalog.QuestionSetItem) []int {
	orders := make([]int, 0, len(items))
	for _, it := range items {
		orders = append(orders, it.Order)
	}
	return orders
}

func TestService_Subjects(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()

	math, err := svc.CreateSubject(ctx, catalog.SubjectInput{Name: "Maths"})
	require.NoError(t, err)
	testutil.CreateSubject(t, repo, "Biology")
	testutil.CreateChapter(t, repo, math.ID, "Algebra", 1)
	testutil.CreateChapter(t, repo, math.ID, "Geometry", 2)

	got, err := svc.GetSubject(ctx, math.ID, catalog.PopulateNone)
	require.NoError(t, err)
	assert.Empty(t, got.Chapters)

	got, err = svc.GetSubject(ctx, math.ID, catalog.PopulateChapters)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, "Algebra", got.Chapters[0].Name)
	assert.Equal(t, "Geometry", got.Chapters[1].Name)

	subjects, err := svc.QuerySubjects(ctx, nil, nil, catalog.PopulateNone)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "Biology", subjects[0].Name, "sorted by name")

	subjects, err = svc.QuerySubjects(ctx, &catalog.SubjectFilter{Search: "MATH"}, nil, catalog.PopulateChapters)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.Len(t, subjects[0].Chapters, 2)

	updated, err := svc.UpdateSubject(ctx, math.ID, catalog.SubjectInput{Name: "Mathematics", Description: "numbers"})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", updated.Name)
	assert.Equal(t, math.CreatedAt, updated.CreatedAt)

	require.NoError(t, svc.DeleteSubject(ctx, math.ID))
	_, err = svc.GetSubject(ctx, math.ID, catalog.PopulateNone)
	assert.Equal(t, catalog.ErrSubjectNotFound, err)
	_, err = svc.UpdateSubject(ctx, math.ID, catalog.SubjectInput{Name: "x"})
	assert.Equal(t, catalog.ErrSubjectNotFound, err)
}

func TestService_Chapters(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()
	subj := testutil.CreateSubject(t, repo, "Physics")

	_, err := svc.CreateChapter(ctx, catalog.ChapterInput{SubjectID: "nope", Name: "Optics"})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "subject_id", verr.Fields[0].Field)

	chap, err := svc.CreateChapter(ctx, catalog.ChapterInput{SubjectID: subj.ID, Name: "Optics", Position: 1})
	require.NoError(t, err)
	testutil.CreateQuestion(t, repo, chap.ID, "Q1", "A")
	_, err = svc.CreateNote(ctx, catalog.NoteInput{ChapterID: chap.ID, Title: "Lenses", Content: "..."})
	require.NoError(t, err)

	got, err := svc.GetChapter(ctx, chap.ID, catalog.PopulateQuestions)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 1)
	assert.Empty(t, got.Notes)

	got, err = svc.GetChapter(ctx, chap.ID, catalog.PopulateNotes)
	require.NoError(t, err)
	assert.Empty(t, got.Questions)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Lenses", got.Notes[0].Title)

	_, err = svc.UpdateChapter(ctx, chap.ID, catalog.ChapterInput{SubjectID: "nope", Name: "Optics"})
	assert.True(t, errors.As(err, &verr))

	_, err = svc.CreateQuestion(ctx, catalog.QuestionInput{ChapterID: "nope", Text: "?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", Correct: "A"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "chapter_id", verr.Fields[0].Field)

	// deleting a subject deletes its chapters & their content
	require.NoError(t, svc.DeleteSubject(ctx, subj.ID))
	_, err = svc.GetChapter(ctx, chap.ID, catalog.PopulateNone)
	assert.Equal(t, catalog.ErrChapterNotFound, err)
	questions, err := svc.QueryQuestions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestService_SetQuestions(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()
	chap := testutil.CreateChapter(t, repo, testutil.CreateSubject(t, repo, "Physics").ID, "Optics", 1)
	q1 := testutil.CreateQuestion(t, repo, chap.ID, "Q1", "A")
	q2 := testutil.CreateQuestion(t, repo, chap.ID, "Q2", "B")
	q3 := testutil.CreateQuestion(t, repo, chap.ID, "Q3", "C")

	set, err := svc.CreateQuestionSet(ctx, catalog.QuestionSetInput{Title: "Mock", Kind: catalog.KindModelTest, Duration: 30})
	require.NoError(t, err)
	assert.Empty(t, set.Items)

	t.Run("order follows the given ids", func(t *testing.T) {
		set, err := svc.SetQuestions(ctx, set.ID, catalog.SetQuestions{QuestionIDs: []string{q3.ID, q1.ID, q2.ID}})
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3}, itemOrders(set.Items))
		assert.True(t, set.Contains(q2.ID))

		set, err = svc.GetQuestionSet(ctx, set.ID, catalog.PopulateQuestions)
		require.NoError(t, err)
		assert.Equal(t, []string{q3.ID, q1.ID, q2.ID}, questionIDs(set.Questions))
	})

	t.Run("replaces previous questions", func(t *testing.T) {
		set, err := svc.SetQuestions(ctx, set.ID, catalog.SetQuestions{QuestionIDs: []string{q2.ID, q1.ID}})
		require.NoError(t, err)
		assert.False(t, set.Contains(q3.ID))
		assert.Equal(t, []int{1, 2}, itemOrders(set.Items))
	})

	t.Run("unknown questions are rejected", func(t *testing.T) {
		_, err := svc.SetQuestions(ctx, set.ID, catalog.SetQuestions{QuestionIDs: []string{q1.ID, "nope"}})
		assert.Equal(t, catalog.ErrUnknownQuestions, err)

		set, err := svc.GetQuestionSet(ctx, set.ID, catalog.PopulateNone)
		require.NoError(t, err)
		assert.Len(t, set.Items, 2, "unchanged")
	})

	t.Run("unknown set", func(t *testing.T) {
		_, err := svc.SetQuestions(ctx, "nope", catalog.SetQuestions{QuestionIDs: []string{q1.ID}})
		assert.Equal(t, catalog.ErrQuestionSetNotFound, err)
	})

	t.Run("deleting a question keeps the order contiguous", func(t *testing.T) {
		_, err := svc.SetQuestions(ctx, set.ID, catalog.SetQuestions{QuestionIDs: []string{q1.ID, q2.ID, q3.ID}})
		require.NoError(t, err)
		require.NoError(t, svc.DeleteQuestion(ctx, q2.ID))

		set, err := svc.GetQuestionSet(ctx, set.ID, catalog.PopulateQuestions)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, itemOrders(set.Items))
		assert.Equal(t, []string{q1.ID, q3.ID}, questionIDs(set.Questions))
	})

	t.Run("updating keeps the questions", func(t *testing.T) {
		updated, err := svc.UpdateQuestionSet(ctx, set.ID, catalog.QuestionSetInput{Title: "Mock 2", Kind: catalog.KindQuestionBank, IsFree: true})
		require.NoError(t, err)
		assert.Equal(t, "Mock 2", updated.Title)
		assert.Zero(t, updated.Duration)
		assert.Len(t, updated.Items, 2)
	})
}

func TestService_Comments(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup()
	chap := testutil.CreateChapter(t, repo, testutil.CreateSubject(t, repo, "Physics").ID, "Optics", 1)
	q := testutil.CreateQuestion(t, repo, chap.ID, "Q1", "A")

	c, err := svc.AddComment(ctx, "user-1", q.ID, catalog.NewComment{Body: "why A?"})
	require.NoError(t, err)
	assert.Equal(t, q.ID, c.QuestionID)
	assert.Equal(t, "user-1", c.UserID)

	comments, err := svc.QueryComments(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []catalog.Comment{c}, comments)

	_, err = svc.AddComment(ctx, "user-1", "nope", catalog.NewComment{Body: "?"})
	assert.Equal(t, catalog.ErrQuestionNotFound, err)
	_, err = svc.QueryComments(ctx, "nope")
	assert.Equal(t, catalog.ErrQuestionNotFound, err)

	require.NoError(t, svc.DeleteQuestion(ctx, q.ID))
	_, err = svc.QueryComments(ctx, q.ID)
	assert.Equal(t, catalog.ErrQuestionNotFound, err)
}

func TestQuestionInput_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	valid := func() catalog.QuestionInput {
		return catalog.QuestionInput{ChapterID: "c", Text: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "22", Correct: " B "}
	}

	in := valid()
	require.NoError(t, in.Validate(validate))
	assert.Equal(t, "B", in.Correct)

	in = valid()
	in.Correct = "E"
	assert.Error(t, in.Validate(validate))

	in = valid()
	in.OptionC = "   "
	assert.Error(t, in.Validate(validate))
}

func TestParsePopulate(t *testing.T) {
	tests := []struct {
		in      string
		want    catalog.Populate
		wantErr bool
	}{
		{in: "", want: catalog.PopulateNone},
		{in: "chapters", want: catalog.PopulateChapters},
		{in: " Questions ", want: catalog.PopulateQuestions},
		{in: "notes", want: catalog.PopulateNotes},
		{in: "everything", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := catalog.ParsePopulate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
