package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aitracks/studio/config"
	"github.com/aitracks/studio/models"
	"github.com/aitracks/studio/repositories"
	"github.com/aitracks/studio/utils"
)

const (
	// ContextUserKey holds the authenticated *models.User.
	ContextUserKey = "current_user"
	// ContextTokenKey holds the raw session token so logout can revoke it.
	ContextTokenKey = "session_token"
	// ContextClaimsKey holds the parsed *utils.SessionClaims.
	ContextClaimsKey = "session_claims"
)

// SessionToken extracts the session token from the cookie, falling back to a Bearer header.
func SessionToken(ctx *gin.Context) string {
	if c, err := ctx.Cookie(config.Get().SessionCookieName); err == nil && c != "" {
		return c
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AdminRequired admits only requests carrying a valid session of an active admin.
func AdminRequired(db *gorm.DB) gin.HandlerFunc {
	users := repositories.NewUsers(db)
	return func(ctx *gin.Context) {
		token := SessionToken(ctx)
		if token == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "not authenticated")
			ctx.Abort()
			return
		}
		if utils.IsTokenRevoked(token) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "session revoked")
			ctx.Abort()
			return
		}
		claims, err := utils.ParseSessionToken(token)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid session")
			ctx.Abort()
			return
		}

		user, err := users.Get(ctx.Request.Context(), claims.UserID)
		if errors.Is(err, repositories.ErrNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "account not found")
			ctx.Abort()
			return
		}
		if err != nil {
			utils.Sugar.Errorf("load session user %d: %v", claims.UserID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load account")
			ctx.Abort()
			return
		}
		if user.Role != models.RoleAdmin {
			utils.Error(ctx, http.StatusForbidden, 40301, "not enough permissions")
			ctx.Abort()
			return
		}
		if user.Status != models.StatusActive {
			utils.Error(ctx, http.StatusForbidden, 40302, "account is not active")
			ctx.Abort()
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Set(ContextTokenKey, token)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// CurrentUser returns the admin stored by AdminRequired.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok
}
