package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const flashCookie = "medication_flash"

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
)

type flash struct {
	Kind    flashKind
	Message string
}

// sessions keeps the API access token in an HttpOnly cookie. The web tier
// never sees the refresh token after login.
type sessions struct {
	name   string
	secure bool
}

func (s sessions) token(c *gin.Context) string {
	v, err := c.Cookie(s.name)
	if err != nil {
		return ""
	}
	return v
}

func (s sessions) start(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, token, maxAge, "/", "", s.secure, true)
}

func (s sessions) end(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
}

func (s sessions) setFlash(c *gin.Context, kind flashKind, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, string(kind)+"|"+message, 60, "/", "", s.secure, true)
}

// popFlash reads the pending message once and clears it. gin escapes
// cookie values on write and unescapes them on read.
func (s sessions) popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", s.secure, true)

	kind, message, ok := strings.Cut(raw, "|")
	if !ok {
		return nil
	}
	return &flash{Kind: flashKind(kind), Message: message}
}
