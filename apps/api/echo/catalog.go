package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core/catalog"
)

type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request body to data, then validates it.
func bindAndValidate(ctx echo.Context, data validatable, validate *validator.Validate) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrapf(err, "binding to %T", data)
	}
	return data.Validate(validate)
}

type catalogApi struct {
	svc      catalog.ServiceInterface
	validate *validator.Validate
}

func registerCatalogAPI(g *echo.Group, svc catalog.ServiceInterface, validate *validator.Validate) {
	api := catalogApi{svc: svc, validate: validate}

	sg := g.Group("/subjects")
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, editorMiddleware)
	sg.GET("/:id", api.retrieveSubject)
	sg.PUT("/:id", api.updateSubject, editorMiddleware)
	sg.DELETE("/:id", api.destroySubject, editorMiddleware)

	cg := g.Group("/chapters")
	cg.POST("", api.createChapter, editorMiddleware)
	cg.GET("/:id", api.retrieveChapter)
	cg.PUT("/:id", api.updateChapter, editorMiddleware)
	cg.DELETE("/:id", api.destroyChapter, editorMiddleware)

	qg := g.Group("/questions")
	qg.GET("", api.queryQuestions)
	qg.POST("", api.createQuestion, editorMiddleware)
	qg.GET("/:id", api.retrieveQuestion)
	qg.PUT("/:id", api.updateQuestion, editorMiddleware)
	qg.DELETE("/:id", api.destroyQuestion, editorMiddleware)
	qg.GET("/:id/comments", api.queryComments)
	qg.POST("/:id/comments", api.createComment)

	ng := g.Group("/notes")
	ng.POST("", api.createNote, editorMiddleware)
	ng.GET("/:id", api.retrieveNote)
	ng.PUT("/:id", api.updateNote, editorMiddleware)
	ng.DELETE("/:id", api.destroyNote, editorMiddleware)

	qsg := g.Group("/question-sets")
	qsg.GET("", api.queryQuestionSets)
	qsg.POST("", api.createQuestionSet, editorMiddleware)
	qsg.GET("/:id", api.retrieveQuestionSet)
	qsg.PUT("/:id", api.updateQuestionSet, editorMiddleware)
	qsg.DELETE("/:id", api.destroyQuestionSet, editorMiddleware)
	qsg.PUT("/:id/questions", api.setQuestions, editorMiddleware)
}

// canSeeSolutions tells whether the correct options are shown to the context user.
func canSeeSolutions(ctx echo.Context) bool {
	usr, err := getContextUser(ctx)
	return err == nil && usr.CanEditContent()
}

func (api *catalogApi) questionsFor(ctx echo.Context, questions []catalog.Question) []catalog.Question {
	if questions == nil || canSeeSolutions(ctx) {
		return questions
	}
	return catalog.RedactAll(questions)
}

// Subjects

func (api *catalogApi) querySubjects(ctx echo.Context) error {
	filter := new(catalog.SubjectFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Subject{})
	}
	populate, err := bindPopulate(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), filter, ordering.Orderings, populate)
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *catalogApi) createSubject(ctx echo.Context) error {
	var data catalog.SubjectInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	s, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *catalogApi) retrieveSubject(ctx echo.Context) error {
	populate, err := bindPopulate(ctx)
	if err != nil {
		return err
	}
	s, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("id"), populate)
	if err != nil {
		return errors.Wrap(err, "finding subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *catalogApi) updateSubject(ctx echo.Context) error {
	var data catalog.SubjectInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	s, err := api.svc.UpdateSubject(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating subject")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *catalogApi) destroySubject(ctx echo.Context) error {
	if err := api.svc.DeleteSubject(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting subject")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Chapters

func (api *catalogApi) createChapter(ctx echo.Context) error {
	var data catalog.ChapterInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	c, err := api.svc.CreateChapter(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating chapter")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *catalogApi) retrieveChapter(ctx echo.Context) error {
	populate, err := bindPopulate(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.GetChapter(ctx.Request().Context(), ctx.Param("id"), populate)
	if err != nil {
		return errors.Wrap(err, "finding chapter")
	}
	c.Questions = api.questionsFor(ctx, c.Questions)
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) updateChapter(ctx echo.Context) error {
	var data catalog.ChapterInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	c, err := api.svc.UpdateChapter(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating chapter")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *catalogApi) destroyChapter(ctx echo.Context) error {
	if err := api.svc.DeleteChapter(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting chapter")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Questions

func (api *catalogApi) queryQuestions(ctx echo.Context) error {
	filter := new(catalog.QuestionFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.Question{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	questions, err := api.svc.QueryQuestions(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	return ctx.JSON(http.StatusOK, api.questionsFor(ctx, questions))
}

func (api *catalogApi) createQuestion(ctx echo.Context) error {
	var data catalog.QuestionInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	q, err := api.svc.CreateQuestion(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *catalogApi) retrieveQuestion(ctx echo.Context) error {
	q, err := api.svc.GetQuestion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding question")
	}
	if !canSeeSolutions(ctx) {
		q = q.Redacted()
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *catalogApi) updateQuestion(ctx echo.Context) error {
	var data catalog.QuestionInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	q, err := api.svc.UpdateQuestion(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating question")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *catalogApi) destroyQuestion(ctx echo.Context) error {
	if err := api.svc.DeleteQuestion(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting question")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) queryComments(ctx echo.Context) error {
	comments, err := api.svc.QueryComments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying comments")
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *catalogApi) createComment(ctx echo.Context) error {
	var data catalog.NewComment
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := api.svc.AddComment(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding comment")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// Notes

func (api *catalogApi) createNote(ctx echo.Context) error {
	var data catalog.NoteInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	n, err := api.svc.CreateNote(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *catalogApi) retrieveNote(ctx echo.Context) error {
	n, err := api.svc.GetNote(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding note")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *catalogApi) updateNote(ctx echo.Context) error {
	var data catalog.NoteInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	n, err := api.svc.UpdateNote(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating note")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *catalogApi) destroyNote(ctx echo.Context) error {
	if err := api.svc.DeleteNote(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Question Sets

func (api *catalogApi) queryQuestionSets(ctx echo.Context) error {
	filter := new(catalog.QuestionSetFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []catalog.QuestionSet{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sets, err := api.svc.QueryQuestionSets(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying question sets")
	}
	return ctx.JSON(http.StatusOK, sets)
}

func (api *catalogApi) createQuestionSet(ctx echo.Context) error {
	var data catalog.QuestionSetInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	qs, err := api.svc.CreateQuestionSet(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating question set")
	}
	return ctx.JSON(http.StatusCreated, qs)
}

func (api *catalogApi) retrieveQuestionSet(ctx echo.Context) error {
	populate, err := bindPopulate(ctx)
	if err != nil {
		return err
	}
	qs, err := api.svc.GetQuestionSet(ctx.Request().Context(), ctx.Param("id"), populate)
	if err != nil {
		return errors.Wrap(err, "finding question set")
	}
	qs.Questions = api.questionsFor(ctx, qs.Questions)
	return ctx.JSON(http.StatusOK, qs)
}

func (api *catalogApi) updateQuestionSet(ctx echo.Context) error {
	var data catalog.QuestionSetInput
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	qs, err := api.svc.UpdateQuestionSet(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating question set")
	}
	return ctx.JSON(http.StatusOK, qs)
}

func (api *catalogApi) destroyQuestionSet(ctx echo.Context) error {
	if err := api.svc.DeleteQuestionSet(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting question set")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogApi) setQuestions(ctx echo.Context) error {
	var data catalog.SetQuestions
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	qs, err := api.svc.SetQuestions(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "setting questions")
	}
	return ctx.JSON(http.StatusOK, qs)
}
