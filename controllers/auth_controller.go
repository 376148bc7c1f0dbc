package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/config"
	"github.com/aitracks/studio/middleware"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

// AuthController handles the admin session: login, logout and the own profile.
type AuthController struct {
	users *repositories.Users
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{users: repositories.NewUsers(db)}
}

// Login verifies credentials and sets the session cookie.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.users.ByEmail(ctx.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		utils.Sugar.Errorf("login lookup %s: %v", req.Email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load account")
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40102, "incorrect email or password")
		return
	}
	if user.Role != models.RoleAdmin {
		utils.Error(ctx, http.StatusForbidden, 40301, "not enough permissions")
		return
	}
	if user.Status != models.StatusActive {
		utils.Error(ctx, http.StatusForbidden, 40302, "account is not active")
		return
	}

	token, expiresAt, err := utils.GenerateSessionToken(user.ID, user.Role, utils.SessionTTL())
	if err != nil {
		utils.Sugar.Errorf("sign session for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to create session")
		return
	}
	setSessionCookie(ctx, token, int(time.Until(expiresAt).Seconds()))
	utils.Sugar.Infof("admin %d logged in from %s", user.ID, ctx.ClientIP())

	utils.Success(ctx, gin.H{
		"user":       userResponse(*user),
		"expires_at": expiresAt,
	})
}

// Logout revokes the presented session until it would have expired and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := middleware.SessionToken(ctx)
	if token != "" {
		expiresAt := time.Now().Add(utils.SessionTTL())
		if claims, err := utils.ParseSessionToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.RevokeToken(token, expiresAt)
	}
	setSessionCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated admin.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "not authenticated")
		return
	}
	utils.Success(ctx, userResponse(*user))
}

// GetProfile is Me under the profile route. Email is read-only there.
func (a *AuthController) GetProfile(ctx *gin.Context) {
	a.Me(ctx)
}

// UpdateProfile changes the display name and, given the current password, the password.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "not authenticated")
		return
	}

	var req struct {
		Name            *string `json:"name" binding:"omitempty,max=100"`
		CurrentPassword string  `json:"current_password"`
		NewPassword     string  `json:"new_password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	updated := false
	if req.Name != nil {
		user.Name = utils.SanitizePlain(*req.Name)
		updated = true
	}
	if req.NewPassword != "" {
		if len(req.NewPassword) < utils.MinPasswordLength {
			utils.Error(ctx, http.StatusBadRequest, 40031, "new password must be at least 6 characters")
			return
		}
		if req.CurrentPassword == "" {
			utils.Error(ctx, http.StatusBadRequest, 40032, "current password is required to change password")
			return
		}
		if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			utils.Error(ctx, http.StatusBadRequest, 40033, "current password is incorrect")
			return
		}
		hash, err := utils.HashPassword(req.NewPassword)
		if err != nil {
			utils.Sugar.Errorf("hash password for user %d: %v", user.ID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to update password")
			return
		}
		user.PasswordHash = hash
		updated = true
	}
	if !updated {
		utils.Error(ctx, http.StatusBadRequest, 40034, "no changes provided")
		return
	}

	if err := a.users.Save(ctx.Request.Context(), user); err != nil {
		utils.Sugar.Errorf("save profile for user %d: %v", user.ID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
		return
	}
	utils.Success(ctx, userResponse(*user))
}

// SeedAdmin creates the admin account for email, or promotes and resets an existing one.
func SeedAdmin(ctx context.Context, db *gorm.DB, email, password, name string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if len(password) < utils.MinPasswordLength {
		return nil, errors.New("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	users := repositories.NewUsers(db)
	user, err := users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		if name = strings.TrimSpace(name); name == "" {
			name = "Admin"
		}
		user = &models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleAdmin, Status: models.StatusActive}
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	case err != nil:
		return nil, err
	}

	user.PasswordHash = hash
	user.Role = models.RoleAdmin
	user.Status = models.StatusActive
	if n := strings.TrimSpace(name); n != "" {
		user.Name = n
	}
	if err := users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func setSessionCookie(ctx *gin.Context, value string, maxAge int) {
	cfg := config.Get()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(cfg.SessionCookieName, value, maxAge, "/", "", cfg.CookieSecure, true)
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":     user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"role":   user.Role,
		"status": user.Status,
	}
}
