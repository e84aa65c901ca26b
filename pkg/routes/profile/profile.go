package profile

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/internal/repositories/user"
	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/models"
)

var validate = validator.New()

// Register registers profile routes
func Register(g *echo.Group) {
	g.GET("/me", GetOwnProfile)
	g.PUT("/me", UpdateOwnProfile)
	g.POST("/upload-media", UploadMedia)
	g.GET("/:id", GetProfile)
}

// GetOwnProfile returns the caller's full profile
func GetOwnProfile(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, account)
}

// UpdateOwnProfile applies an allow-listed partial update to the caller's
// profile. Fields outside the allow list reject the whole request, so
// privileged columns cannot be smuggled in.
func UpdateOwnProfile(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req models.UpdateProfileRequest
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.UpdateProfile(ctx, userID, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// UploadMedia accepts a multipart media upload and returns the storage URL
// the client should save onto their profile. There is no blob store behind
// this yet; the URL is minted from the upload metadata.
func UploadMedia(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	mediaType := c.FormValue("media_type")
	if mediaType == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "media_type is required")
	}
	if _, err := c.FormFile("file"); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	url := fmt.Sprintf("https://storage.indulge.app/%s/%s_%d", userID, mediaType, time.Now().UTC().UnixNano())
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// GetProfile returns another user's public profile
func GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if account.IsBanned {
		return httperror.NewHTTPError(http.StatusNotFound, "user not found")
	}

	profile := models.PublicProfile{
		ID:                   account.ID,
		FirstName:            account.FirstName,
		Age:                  account.Age,
		Gender:               account.Gender,
		Location:             account.Location,
		Role:                 account.Role,
		Photos:               account.Photos,
		VideoURL:             account.VideoURL,
		VoiceURL:             account.VoiceURL,
		Prompts:              account.Prompts,
		LifestyleTags:        account.LifestyleTags,
		IncomeBracket:        account.IncomeBracket,
		AllowanceExpectation: account.AllowanceExpectation,
		LastActive:           &account.LastActive,
	}

	return c.JSON(http.StatusOK, profile)
}
