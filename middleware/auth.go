package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecopet/ecopet/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextTokenExpiryKey stores the token expiry as time.Time.
	ContextTokenExpiryKey = "token_expires_at"
)

// Authenticator checks bearer tokens against the issuer and the blacklist.
type Authenticator struct {
	issuer    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
}

func NewAuthenticator(issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist) *Authenticator {
	return &Authenticator{issuer: issuer, blacklist: blacklist}
}

// AuthRequired ensures the request is authenticated via JWT.
func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}
		if code, msg := a.authenticate(ctx, authHeader); code != 0 {
			utils.Error(ctx, http.StatusUnauthorized, code, msg)
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is sent and lets
// anonymous requests through otherwise.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
			_, _ = a.authenticate(ctx, authHeader)
		}
		ctx.Next()
	}
}

func (a *Authenticator) authenticate(ctx *gin.Context, authHeader string) (int, string) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 40102, "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return 40103, "empty bearer token"
	}

	if a.blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
		return 40104, "token revoked"
	}

	claims, err := a.issuer.ParseToken(tokenString)
	if err != nil {
		return 40105, "invalid token"
	}

	ctx.Set(ContextUserIDKey, claims.UserID)
	ctx.Set(ContextUsernameKey, claims.Username)
	ctx.Set(ContextTokenKey, tokenString)
	if claims.ExpiresAt != nil {
		ctx.Set(ContextTokenExpiryKey, claims.ExpiresAt.Time)
	}
	return 0, ""
}

// AdminRequired allows only the configured admin usernames. Run it after AuthRequired.
func AdminRequired(admins []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsAdmin(ctx, admins) {
			utils.Error(ctx, http.StatusForbidden, 40301, "admin only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// IsAdmin reports whether the authenticated username is in admins (case-insensitive).
func IsAdmin(ctx *gin.Context, admins []string) bool {
	uname := strings.TrimSpace(ctx.GetString(ContextUsernameKey))
	if uname == "" {
		return false
	}
	for _, u := range admins {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
