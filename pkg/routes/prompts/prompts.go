package prompts

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/pkg/models"
)

// Register registers prompt catalog routes
func Register(g *echo.Group) {
	g.GET("", List)
}

// List returns the static prompt catalog
func List(c echo.Context) error {
	return c.JSON(http.StatusOK, models.PromptCatalog)
}
