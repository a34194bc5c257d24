// Package guard holds the two route enforcement points: the coarse edge
// guard that runs before any page is served, and the client guard that
// decides what a reconciled session may see.
package guard

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/metrics"
)

const (
	AuthCookie       = "telegram-auth"
	DefaultLoginPath = "/auth/login"
)

var staticPrefixes = []string{"/_next/", "/static/", "/assets/", "/favicon.ico"}

// Files served from the web root. Any other dotted path is a page.
var assetExtensions = map[string]struct{}{
	".js": {}, ".mjs": {}, ".css": {}, ".map": {}, ".json": {}, ".txt": {}, ".xml": {}, ".webmanifest": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".svg": {}, ".ico": {}, ".webp": {}, ".avif": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {},
}

// EdgeConfig is the edge guard policy. It sees only transport signals.
type EdgeConfig struct {
	LoginPath   string
	PublicPaths []string
	// Case-insensitive user-agent substrings marking bot or host requests.
	BotUserAgents []string
}

// Allow reports whether r may pass without a redirect.
func (cfg EdgeConfig) Allow(r *http.Request) bool {
	return cfg.decide(r) != decisionRedirect
}

const (
	decisionBypass   = "bypass"
	decisionCookie   = "cookie"
	decisionBotAgent = "bot_agent"
	decisionRedirect = "redirect"
)

func (cfg EdgeConfig) decide(r *http.Request) string {
	p := r.URL.Path
	if cfg.isExempt(p) {
		return decisionBypass
	}
	if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
		return decisionCookie
	}
	ua := strings.ToLower(r.UserAgent())
	for _, hint := range cfg.BotUserAgents {
		if hint != "" && strings.Contains(ua, strings.ToLower(hint)) {
			return decisionBotAgent
		}
	}
	return decisionRedirect
}

func (cfg EdgeConfig) isExempt(p string) bool {
	if p == "/api" || strings.HasPrefix(p, "/api/") {
		return true
	}
	if p == cfg.loginPath() || strings.HasPrefix(p, cfg.loginPath()+"/") {
		return true
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	if _, ok := assetExtensions[strings.ToLower(path.Ext(p))]; ok {
		return true
	}
	for _, public := range cfg.PublicPaths {
		if public != "" && p == public {
			return true
		}
	}
	return false
}

func (cfg EdgeConfig) loginPath() string {
	if cfg.LoginPath == "" {
		return DefaultLoginPath
	}
	return cfg.LoginPath
}

// EdgeGuard redirects unauthenticated browser navigations to the login page.
func EdgeGuard(cfg EdgeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := cfg.decide(c.Request)
		metrics.GuardDecisionsTotal.WithLabelValues("edge", decision).Inc()

		if decision == decisionRedirect {
			c.Redirect(http.StatusFound, cfg.loginPath())
			c.Abort()
			return
		}
		c.Next()
	}
}
