package discovery

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/feed"
	"github.com/PixieStack/indulge/pkg/matching"
	"github.com/PixieStack/indulge/pkg/models"
)

var validate = validator.New()

// Register registers discovery routes
func Register(g *echo.Group) {
	g.GET("/feed", GetFeed)
	g.GET("/likes-received", LikesReceived)
	g.POST("/like", Like)
	g.POST("/pass", Pass)
}

// GetFeed returns discovery candidates for the caller
func GetFeed(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, selector, err := ectoinject.GetContext[*feed.Selector](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	profiles, err := selector.Feed(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"profiles": profiles})
}

// LikesReceived returns the most recent likes sent to the caller, each with
// the sender's profile summary
func LikesReceived(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	likes, err := matcher.LikesReceived(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"likes": likes})
}

// Like records a like and reports whether it completed a mutual match
func Like(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req models.LikeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := matcher.Like(ctx, userID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// Pass records a pass
func Pass(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req models.PassRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Matcher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := matcher.Pass(ctx, userID, &req); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
