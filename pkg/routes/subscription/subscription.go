package subscription

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/internal/repositories/user"
	appcontext "github.com/PixieStack/indulge/pkg/context"
)

var validate = validator.New()

// Register registers subscription routes
func Register(g *echo.Group) {
	g.POST("/subscribe", Subscribe)
	g.POST("/cancel", Cancel)
}

// SubscribeRequest selects a premium plan
type SubscribeRequest struct {
	Plan string `json:"plan" validate:"required,oneof=monthly quarterly yearly"`
}

var planDurations = map[string]time.Duration{
	"monthly":   30 * 24 * time.Hour,
	"quarterly": 90 * 24 * time.Hour,
	"yearly":    365 * 24 * time.Hour,
}

// Subscribe activates the caller's premium subscription
func Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ends := time.Now().UTC().Add(planDurations[req.Plan])
	if err := repo.SetSubscription(ctx, userID, true, &ends); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"is_premium":        true,
		"subscription_ends": ends,
	})
}

// Cancel ends the caller's premium subscription
func Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SetSubscription(ctx, userID, false, nil); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"is_premium": false})
}
