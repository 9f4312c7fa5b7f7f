package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	csrfCookieName = "_csrf_token"
	csrfFormField  = "_csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfContextKey = "CSRFToken"
)

// CSRFConfig configures CSRF protection for page routes.
type CSRFConfig struct {
	Secret string
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// CSRF protects page routes with a signed double-submit cookie; see CSRFWithConfig.
func CSRF(secret string) gin.HandlerFunc {
	return CSRFWithConfig(CSRFConfig{Secret: secret, Secure: gin.Mode() == gin.ReleaseMode})
}

// CSRFWithConfig returns a gin middleware implementing signed double-submit
// CSRF protection.
//
// Token format: nonce + "." + base64url(HMAC-SHA256(nonce, secret)), where
// the nonce is a random UUID.
//
// Safe methods get a token (reusing a valid cookie) stored in the
// "_csrf_token" cookie and in gin.Context for templates. Unsafe methods must
// echo the cookie in the "_csrf_token" form field or the X-CSRF-Token header
// (htmx sends the header). Failures answer 403; htmx requests also get an
// error toast.
func CSRFWithConfig(cfg CSRFConfig) gin.HandlerFunc {
	g := csrfGuard{secret: []byte(strings.TrimSpace(cfg.Secret)), secure: cfg.Secure}
	if len(g.secret) == 0 {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "csrf secret is required"})
		}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(csrfCookieName)
			if err != nil || !g.valid(token) {
				token = g.issue()
				g.setCookie(c, token)
			}
			c.Set(csrfContextKey, token)
			c.Next()

		default:
			cookieToken, err := c.Cookie(csrfCookieName)
			if err != nil || cookieToken == "" {
				g.reject(c, "CSRF token missing")
				return
			}
			requestToken := c.GetHeader(csrfHeaderName)
			if requestToken == "" {
				requestToken = c.PostForm(csrfFormField)
			}
			if requestToken == "" {
				g.reject(c, "CSRF token missing")
				return
			}
			if !g.valid(cookieToken) || subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) != 1 {
				g.reject(c, "CSRF token invalid")
				return
			}
			c.Set(csrfContextKey, cookieToken)
			c.Next()
		}
	}
}

// GetCSRFToken retrieves the CSRF token stored in gin.Context by the CSRF middleware.
// Returns an empty string if no token is available.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(csrfContextKey); exists {
		if s, ok := token.(string); ok {
			return s
		}
	}
	return ""
}

type csrfGuard struct {
	secret []byte
	secure bool
}

func (g csrfGuard) sign(nonce string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (g csrfGuard) issue() string {
	nonce := uuid.NewString()
	return nonce + "." + g.sign(nonce)
}

func (g csrfGuard) valid(token string) bool {
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(g.sign(nonce))) == 1
}

// setCookie stores the token in a script-readable SameSite=Strict cookie.
func (g csrfGuard) setCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (g csrfGuard) reject(c *gin.Context, msg string) {
	if c.GetHeader("HX-Request") == "true" {
		c.Header("HX-Trigger", `{"showToast":[{"type":"error","message":"Your session expired, reload the page"}]}`)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
}
