package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core/user"
)

type userApi struct {
	svc      user.ServiceInterface
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, svc user.ServiceInterface, validate *validator.Validate) {
	api := userApi{svc: svc, validate: validate}

	ug := g.Group("/users")
	ug.GET("/me", api.me)
	ug.GET("", api.query, adminMiddleware())
	ug.DELETE("", api.destroyMultiple, adminMiddleware())
	ug.GET("/roles", api.queryRoles, adminMiddleware())

	// detail endpoints
	dg := ug.Group("/:id", ctxUserOrAdminMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("/roles", api.updateRoles, adminMiddleware())
	dg.PUT("/active", api.setActive, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, ctx.Get("object"))
}

func (api *userApi) updateRoles(ctx echo.Context) error {
	var data user.UpdateRoles
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRoles")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.svc.UpdateRoles(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data.Roles)
	if err != nil {
		return errors.Wrap(err, "updating user roles")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) setActive(ctx echo.Context) error {
	var data user.SetActive
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActive")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	usr, err := api.svc.SetActive(ctx.Request().Context(), ctxUsr, ctx.Param("id"), *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting user active")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	ctxUsr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if _, err = api.svc.Delete(ctx.Request().Context(), ctxUsr, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ctxUserOrAdminMiddleware loads the User of the `:id` param into the context as "object".
// Only the User themselves and admins can see it.
func ctxUserOrAdminMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if ctx.Param("id") == ctxUsr.ID || ctxUsr.IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set("object", usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}
