package verification

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/PixieStack/indulge/internal/repositories/user"
	appcontext "github.com/PixieStack/indulge/pkg/context"
	"github.com/PixieStack/indulge/pkg/metrics"
	"github.com/PixieStack/indulge/pkg/notify"
	"github.com/PixieStack/indulge/pkg/otp"
)

var validate = validator.New()

// Register registers verification routes
func Register(g *echo.Group) {
	g.POST("/email/send", SendEmailCode)
	g.POST("/email/verify", VerifyEmail)
	g.POST("/phone/send", SendPhoneCode)
	g.POST("/phone/verify", VerifyPhone)
	g.POST("/face/pay", PayFaceVerification)
	g.POST("/face/confirm", ConfirmFaceVerification)
}

// VerifyCodeRequest carries a verification code submission
type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// SendEmailCode issues and emails a verification code to the caller's address
func SendEmailCode(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, store, err := ectoinject.GetContext[*otp.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, email, err := ectoinject.GetContext[*notify.EmailSender](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	code, err := store.Issue(ctx, account.Email)
	if err != nil {
		return err
	}

	sent := email.SendVerificationCode(ctx, account.Email, code)
	status := "sent"
	if !sent {
		status = "failed"
	}
	metrics.OTPSendsTotal.WithLabelValues("email", status).Inc()

	return c.JSON(http.StatusOK, map[string]any{"sent": sent})
}

// VerifyEmail checks the submitted code and marks the email verified
func VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req VerifyCodeRequest
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
	ctx, store, err := ectoinject.GetContext[*otp.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := store.Verify(ctx, account.Email, req.Code); err != nil {
		return err
	}

	if err := repo.MarkEmailVerified(ctx, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"email_verified": true})
}

// SendPhoneCode starts a phone verification through the SMS provider
func SendPhoneCode(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	ctx, sms, err := ectoinject.GetContext[*notify.SMSSender](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if account.Phone == nil || *account.Phone == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "no phone number on account")
	}

	sent := sms.StartVerification(ctx, *account.Phone)
	status := "sent"
	if !sent {
		status = "failed"
	}
	metrics.OTPSendsTotal.WithLabelValues("sms", status).Inc()

	return c.JSON(http.StatusOK, map[string]any{"sent": sent})
}

// VerifyPhone checks the submitted code with the SMS provider and marks the
// phone verified
func VerifyPhone(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	var req VerifyCodeRequest
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
	ctx, sms, err := ectoinject.GetContext[*notify.SMSSender](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	account, err := repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if account.Phone == nil || *account.Phone == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "no phone number on account")
	}

	if !sms.CheckVerification(ctx, *account.Phone, req.Code) {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid or expired verification code")
	}

	owner, err := repo.GetByPhone(ctx, *account.Phone)
	if err != nil {
		if httperror.GetStatusCode(err) != http.StatusNotFound {
			return err
		}
	} else if owner.ID != userID && owner.PhoneVerified {
		return httperror.NewHTTPError(http.StatusConflict, "phone number already verified by another account")
	}

	if err := repo.MarkPhoneVerified(ctx, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"phone_verified": true})
}

// PayFaceVerification records payment for the face verification feature
func PayFaceVerification(c echo.Context) error {
	ctx := c.Request().Context()
	userID := appcontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*user.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.MarkVerificationPaid(ctx, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"verification_paid": true})
}

// ConfirmFaceVerification marks the account face-verified. Requires the paid
// flag set by PayFaceVerification.
func ConfirmFaceVerification(c echo.Context) error {
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
	if !account.VerificationPaid {
		return httperror.NewHTTPError(http.StatusPaymentRequired, "face verification has not been paid for")
	}

	if err := repo.MarkFaceVerified(ctx, userID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{"face_verified": true})
}
