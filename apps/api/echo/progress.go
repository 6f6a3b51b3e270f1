package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Robzoly/StudyPlanner/core/progress"
)

type progressApi struct {
	svc *progress.Service
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service) {
	api := progressApi{svc: svc}

	g.GET("/profile", api.profile, jwt)

	ag := g.Group("/achievements", jwt)
	ag.GET("", api.queryAchievements)
	ag.GET("/unlocked", api.queryUserAchievements)
}

// Handlers

func (api *progressApi) profile(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	prof, err := api.svc.GetProfile(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == progress.ErrProfileNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *progressApi) queryAchievements(ctx echo.Context) error {
	achs, err := api.svc.QueryAchievements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying achievements")
	}
	if achs == nil {
		achs = []progress.Achievement{}
	}
	return ctx.JSON(http.StatusOK, achs)
}

func (api *progressApi) queryUserAchievements(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	uas, err := api.svc.QueryUserAchievements(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying user achievements")
	}
	if uas == nil {
		uas = []progress.UserAchievement{}
	}
	return ctx.JSON(http.StatusOK, uas)
}
