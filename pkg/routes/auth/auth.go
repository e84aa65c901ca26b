package auth

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/internal/repositories/user"
	"github.com/PixieStack/indulge/pkg/auth"
	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/metrics"
	"github.com/PixieStack/indulge/pkg/models"
)

var validate = validator.New()

// Register registers signup and login routes
func Register(g *echo.Group) {
	g.POST("/signup", Signup)
	g.POST("/login", Login)
}

// RegisterMe registers the authenticated account route
func RegisterMe(g *echo.Group) {
	g.GET("/me", Me)
}

// Signup creates an account and returns a session token
func Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SignupRequest
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
	ctx, issuer, err := ectoinject.GetContext[*auth.TokenIssuer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, hasher, err := ectoinject.GetContext[*auth.PasswordHasher](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	hash, err := hasher.Hash(req.Password)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}

	phone := req.Phone
	newUser := &models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		Phone:        &phone,
		PasswordHash: hash,
		Role:         models.Role(req.Role),
		FirstName:    req.FirstName,
	}

	created, err := repo.Create(ctx, newUser)
	if err != nil {
		return err
	}

	token, err := issuer.Issue(created)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	metrics.SignupsTotal.WithLabelValues(req.Role).Inc()

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"user_id": created.ID, "role": created.Role}).Info("Account created")
	}

	return c.JSON(http.StatusCreated, authResponse(token, created))
}

// Login authenticates an account and returns a session token
func Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.LoginRequest
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
	ctx, issuer, err := ectoinject.GetContext[*auth.TokenIssuer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// Wrong email and wrong password answer identically
	account, err := repo.GetByEmail(ctx, req.Email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return httperror.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	if !auth.CheckPassword(account.PasswordHash, req.Password) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return httperror.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	if account.IsBanned {
		metrics.LoginsTotal.WithLabelValues("banned").Inc()
		return httperror.NewHTTPError(http.StatusForbidden, "account is banned")
	}

	token, err := issuer.Issue(account)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	if err := repo.TouchLastActive(ctx, account.ID); err != nil {
		// Non-fatal; the session is already issued
		ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
		if logger != nil {
			logger.WithContext(ctx).WithError(err).Warn("Failed to bump last_active on login")
		}
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, authResponse(token, account))
}

// Me returns the authenticated account
func Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

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

func authResponse(token string, u *models.User) *models.AuthResponse {
	phone := ""
	if u.Phone != nil {
		phone = *u.Phone
	}
	return &models.AuthResponse{
		Token: token,
		User: &models.AuthUser{
			ID:               u.ID,
			Email:            u.Email,
			Phone:            phone,
			Role:             u.Role,
			FirstName:        u.FirstName,
			EmailVerified:    u.EmailVerified,
			PhoneVerified:    u.PhoneVerified,
			FaceVerified:     u.FaceVerified,
			VerificationPaid: u.VerificationPaid,
		},
	}
}
