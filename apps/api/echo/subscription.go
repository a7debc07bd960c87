package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core/subscription"
)

type subscriptionApi struct {
	svc      subscription.ServiceInterface
	validate *validator.Validate
}

func registerSubscriptionAPI(g *echo.Group, svc subscription.ServiceInterface, validate *validator.Validate) {
	api := subscriptionApi{svc: svc, validate: validate}

	sg := g.Group("/subscription")
	sg.GET("/status", api.status)
	sg.GET("/payments", api.ownPayments)
	sg.POST("/payments", api.submitPayment)

	pg := g.Group("/payments", adminMiddleware())
	pg.GET("", api.queryPayments)
	pg.PUT("/:id/review", api.reviewPayment)
}

func (api *subscriptionApi) status(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	view, err := api.svc.Status(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting subscription status")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *subscriptionApi) ownPayments(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	payments, err := api.svc.ListForUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *subscriptionApi) submitPayment(ctx echo.Context) error {
	var data subscription.NewPayment
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Submit(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *subscriptionApi) queryPayments(ctx echo.Context) error {
	filter := new(subscription.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []subscription.Payment{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	payments, err := api.svc.QueryPayments(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *subscriptionApi) reviewPayment(ctx echo.Context) error {
	var data subscription.ReviewPayment
	if err := bindAndValidate(ctx, &data, api.validate); err != nil {
		return err
	}
	reviewer, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Review(ctx.Request().Context(), reviewer, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing payment")
	}
	return ctx.JSON(http.StatusOK, p)
}
