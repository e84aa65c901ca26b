package admin

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/internal/repositories/interaction"
	"github.com/PixieStack/indulge/internal/repositories/match"
	"github.com/PixieStack/indulge/internal/repositories/message"
	"github.com/PixieStack/indulge/internal/repositories/user"
)

// Register registers admin routes. The caller is expected to guard the group
// with the admin key middleware.
func Register(g *echo.Group) {
	g.GET("/users", ListUsers)
	g.GET("/stats", Stats)
	g.POST("/users/:id/ban", BanUser)
	g.POST("/users/:id/unban", UnbanUser)
}

// ListUsers lists accounts for review
func ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	users, err := repo.List(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, users)
}

// Stats returns service-wide totals
func Stats(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, users, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, interactions, err := ectoinject.GetContext[*interaction.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, matches, err := ectoinject.GetContext[*match.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, messages, err := ectoinject.GetContext[*message.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	byRole, err := users.CountByRole(ctx)
	if err != nil {
		return err
	}

	totalUsers := 0
	for _, n := range byRole {
		totalUsers += n
	}

	totalLikes, err := interactions.CountLikes(ctx)
	if err != nil {
		return err
	}
	totalMatches, err := matches.Count(ctx)
	if err != nil {
		return err
	}
	totalMessages, err := messages.Count(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total_users":    totalUsers,
		"users_by_role":  byRole,
		"total_likes":    totalLikes,
		"total_matches":  totalMatches,
		"total_messages": totalMessages,
	})
}

// BanUser bans an account
func BanUser(c echo.Context) error {
	return setBanned(c, true)
}

// UnbanUser lifts an account ban
func UnbanUser(c echo.Context) error {
	return setBanned(c, false)
}

func setBanned(c echo.Context, banned bool) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SetBanned(ctx, id, banned); err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"user_id": id, "banned": banned}).Info("Updated account ban state")
	}

	return c.JSON(http.StatusOK, map[string]any{"id": id, "is_banned": banned})
}
