package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core/classwork"
)

type classworkApi struct {
	svc      *classwork.Service
	validate *validator.Validate
}

func registerClassworkAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *classwork.Service,
	validate *validator.Validate,
) {
	api := classworkApi{
		svc:      svc,
		validate: validate,
	}

	lg := g.Group("/lectures/:id/classwork", jwt)
	lg.GET("", api.roster)
	lg.POST("", api.save)

	sg := g.Group("/scores", jwt)
	sg.POST("", api.createScore)
	sg.GET("", api.queryScores)
	sg.GET("/:id", api.retrieveScore)
	sg.PUT("/:id", api.updateScore)
	sg.DELETE("/:id", api.destroyScore)
}

// roster returns the lecture's class roster merged with any attendance and
// homework already on file.
func (api *classworkApi) roster(ctx echo.Context) error {
	roster, err := api.svc.Roster(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building lecture roster")
	}
	if roster == nil {
		roster = []classwork.RosterEntry{}
	}
	return ctx.JSON(http.StatusOK, roster)
}

// save reconciles an edited roster sheet against the stored records.
func (api *classworkApi) save(ctx echo.Context) error {
	var data classwork.SaveSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SaveSheet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.Save(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "saving lecture classwork")
	}
	return ctx.JSON(http.StatusOK, res)
}

// Score handlers

func (api *classworkApi) createScore(ctx echo.Context) error {
	var data classwork.NewScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScore")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	score, err := api.svc.CreateScore(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating score")
	}
	return ctx.JSON(http.StatusCreated, score)
}

func (api *classworkApi) queryScores(ctx echo.Context) error {
	scores, err := api.svc.QueryAllScores(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	if scores == nil {
		scores = []classwork.Score{}
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *classworkApi) retrieveScore(ctx echo.Context) error {
	score, err := api.svc.GetScoreByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding score by ID")
	}
	return ctx.JSON(http.StatusOK, score)
}

func (api *classworkApi) updateScore(ctx echo.Context) error {
	var data classwork.UpdateScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateScore")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	score, err := api.svc.UpdateScore(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating score")
	}
	return ctx.JSON(http.StatusOK, score)
}

func (api *classworkApi) destroyScore(ctx echo.Context) error {
	if err := api.svc.DeleteScore(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting score")
	}
	return ctx.NoContent(http.StatusNoContent)
}
