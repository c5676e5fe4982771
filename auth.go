package main

import (
	"context"
	"fmt"
	"net/http"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
	"bootcamps/pkg/mailer"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sendToken sets the auth cookie and answers with the token and the user.
func sendToken(c *gin.Context, code int, u *models.User, token string) {
	setAuthCookie(c, token)
	c.JSON(code, gin.H{"status": "success", "token": token, "data": u})
}

// notify sends a best-effort email; failures are logged, not returned.
func notify(ctx context.Context, u *models.User, subject, body string) {
	if err := mail.Send(ctx, mailer.Message{To: u.Email, Subject: subject, Body: body}); err != nil {
		logger.Warn("notification email failed", zap.Uint("user_id", u.ID), zap.String("subject", subject), zap.Error(err))
	}
}

func signupHandler(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,safepassword"`
		Role     string `json:"role" binding:"omitempty,oneof=user publisher"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	u := &models.User{Name: req.Name, Email: req.Email, Role: models.Role(req.Role)}
	token, err := sessions.Register(c.Request.Context(), u, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	notify(c.Request.Context(), u, "Thanks for joining in!",
		fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with it.", u.Name))
	sendToken(c, http.StatusCreated, u, token)
}

func loginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Please provide email and password"))
		return
	}
	u, token, err := sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	sendToken(c, http.StatusOK, u, token)
}

func logoutHandler(c *gin.Context) {
	if err := sessions.Revoke(c.Request.Context(), currentIdentity(c)); err != nil {
		respondError(c, err)
		return
	}
	clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func logoutAllHandler(c *gin.Context) {
	if err := sessions.RevokeAll(c.Request.Context(), currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// forgotPasswordHandler emails a single-use reset link. If the email cannot be
// sent the reset token is withdrawn.
func forgotPasswordHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := sessions.UserByEmail(ctx, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	raw, err := sessions.BeginPasswordReset(ctx, u.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	resetURL := fmt.Sprintf("%s://%s/api/users/resetPassword/%s", requestScheme(c), c.Request.Host, raw)
	msg := fmt.Sprintf("Hello %s\n\nYou are receiving this email because you (or someone else) has requested to change the password for your account. Please make a PATCH request to:\n\n%s\n\nThe link is valid for 10 minutes.", u.Name, resetURL)
	if err := mail.Send(ctx, mailer.Message{To: u.Email, Subject: "Password Reset!", Body: msg}); err != nil {
		if cerr := sessions.CancelPasswordReset(ctx, u.ID); cerr != nil {
			logger.Error("failed to withdraw reset token", zap.Uint("user_id", u.ID), zap.Error(cerr))
		}
		respondError(c, apperr.Upstream("There was an error sending the email. Try again later!", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email"})
}

func resetPasswordHandler(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required,safepassword"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	u, token, err := sessions.CompletePasswordReset(c.Request.Context(), c.Param("token"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	sendToken(c, http.StatusOK, u, token)
}

func updatePasswordHandler(c *gin.Context) {
	var req struct {
		PasswordCurrent string `json:"passwordCurrent" binding:"required"`
		Password        string `json:"password" binding:"required,safepassword"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	u := currentUser(c)
	token, err := sessions.ChangePassword(c.Request.Context(), u.ID, req.PasswordCurrent, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	sendToken(c, http.StatusOK, u, token)
}
