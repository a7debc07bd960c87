package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core/exam"
)

var countdownTick = time.Second

type examApi struct {
	svc      exam.ServiceInterface
	validate *validator.Validate
}

func registerExamAPI(g *echo.Group, svc exam.ServiceInterface, validate *validator.Validate) {
	api := examApi{svc: svc, validate: validate}

	sg := g.Group("/sheets")
	sg.POST("", api.start)
	sg.GET("", api.querySheets)
	sg.GET("/:id", api.retrieveSheet)
	sg.POST("/:id/answers", api.addAnswer)
	sg.GET("/:id/countdown", api.countdown)

	g.GET("/questions/:id/stats", api.questionStats)
}

func (api *examApi) start(ctx echo.Context) error {
	var data exam.NewSheet
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sheet, err := api.svc.Start(ctx.Request().Context(), usr.ID, data.QuestionSetID)
	if err != nil {
		return errors.Wrap(err, "starting answer sheet")
	}
	return ctx.JSON(http.StatusCreated, sheet)
}

func (api *examApi) querySheets(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sheets, err := api.svc.ListSheets(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying answer sheets")
	}
	return ctx.JSON(http.StatusOK, sheets)
}

func (api *examApi) retrieveSheet(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	view, err := api.svc.GetSheet(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding answer sheet")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *examApi) addAnswer(ctx echo.Context) error {
	var data exam.NewAnswer
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ans, err := api.svc.AddAnswer(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding answer")
	}
	return ctx.JSON(http.StatusCreated, ans)
}

// countdown streams the remaining seconds of a timed sheet as server-sent events, until it expires
// or the client goes away.
func (api *examApi) countdown(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sheet, err := api.svc.GetOwnSheet(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding answer sheet")
	}
	if !sheet.ExpireAt.Valid {
		return ctx.JSON(http.StatusOK, echo.Map{"remaining": 0, "timed": false})
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	for remaining := range exam.Countdown(ctx.Request().Context(), sheet, countdownTick) {
		if _, err = fmt.Fprintf(res, "event: remaining\ndata: %d\n\n", int64(remaining/time.Second)); err != nil {
			return nil // client gone
		}
		res.Flush()
	}
	return nil
}

func (api *examApi) questionStats(ctx echo.Context) error {
	stats, err := api.svc.QuestionStats(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting question stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}
