package matches

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/conversation"
)

// Register registers match routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.DELETE("/:id", Unmatch)
}

// List returns the caller's active matches with counterpart summaries and
// latest message previews, most recently active first
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, manager, err := ectoinject.GetContext[*conversation.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	summaries, err := manager.Summaries(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"matches": summaries})
}

// Unmatch deactivates one of the caller's matches. The conversation history
// is retained but the match drops out of listings and stops accepting
// messages.
func Unmatch(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)
	matchID := c.Param("id")

	ctx, manager, err := ectoinject.GetContext[*conversation.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := manager.Unmatch(ctx, userID, matchID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
