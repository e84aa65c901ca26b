package messages

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/conversation"
	"github.com/PixieStack/indulge/pkg/models"
)

var validate = validator.New()

// Register registers message routes
func Register(g *echo.Group) {
	g.POST("", Send)
	g.GET("/:match_id", List)
}

// Send delivers a message into one of the caller's matches
func Send(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, manager, err := ectoinject.GetContext[*conversation.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	message, err := manager.SendMessage(ctx, userID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

// List returns the conversation's messages in order and marks the caller's
// unviewed messages as viewed
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)
	matchID := c.Param("match_id")

	ctx, manager, err := ectoinject.GetContext[*conversation.Manager](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	messages, err := manager.ListMessages(ctx, userID, matchID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}
