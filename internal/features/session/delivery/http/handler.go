package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/guard"
	"marketplace-miniapp-backend/internal/features/session"
	"marketplace-miniapp-backend/internal/features/user/models"
)

const cookieMaxAge = 7 * 24 * time.Hour

type Config struct {
	BotToken     string
	InitDataTTL  time.Duration
	LoginPath    string
	CookieSecure bool
}

type SessionHandler struct {
	reconciler session.Reconciler
	cfg        Config
}

func NewSessionHandler(reconciler session.Reconciler, cfg Config) *SessionHandler {
	if cfg.LoginPath == "" {
		cfg.LoginPath = guard.DefaultLoginPath
	}
	return &SessionHandler{reconciler: reconciler, cfg: cfg}
}

// RegisterLoginRoutes mounts the login page and the login action.
func (h *SessionHandler) RegisterLoginRoutes(router gin.IRoutes, limiter gin.HandlerFunc) {
	router.GET(h.cfg.LoginPath, limiter, h.loginPage)
	router.POST(h.cfg.LoginPath, limiter, h.login)
}

// RegisterRoutes mounts the bootstrap endpoint on a group that already runs
// middleware.TelegramInitData and middleware.Bootstrap.
func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/session", h.current)
	router.GET("/session", h.current)
}

// Response is the session state as the Mini App consumes it.
type Response struct {
	Status              session.Status     `json:"status"`
	View                guard.View         `json:"view"`
	OnboardingCompleted bool               `json:"onboardingCompleted"`
	IsBlocked           bool               `json:"isBlocked"`
	IsAdmin             bool               `json:"isAdmin"`
	IsAvailable         bool               `json:"isAvailable"`
	User                *models.UserRecord `json:"user,omitempty"`
	Error               *errors.AppError   `json:"error,omitempty"`
}

func NewResponse(s session.Snapshot) Response {
	resp := Response{
		Status:              s.Status,
		View:                guard.Decide(s),
		OnboardingCompleted: s.IsOnboardingCompleted(),
		IsBlocked:           s.IsUserBlocked(),
		IsAdmin:             s.IsUserAdmin(),
		IsAvailable:         s.IsUserAvailable(),
		User:                s.Record,
	}
	if s.Err != nil {
		resp.Error = s.Err.Public()
	}
	return resp
}

func (h *SessionHandler) render(c *gin.Context, s session.Snapshot) {
	status := http.StatusOK
	if s.Status == session.StatusError && s.Err != nil {
		status = middleware.HTTPStatus(s.Err)
	}
	c.JSON(status, NewResponse(s))
}

// @Summary Bootstrap session
// @Description Reconciles the launch identity and returns the derived session state and view
// @Tags session
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} Response
// @Failure 400 {object} Response "Launch data incomplete"
// @Failure 503 {object} Response "Storage unavailable"
// @Router /session [post]
func (h *SessionHandler) current(c *gin.Context) {
	snap, ok := middleware.SessionFrom(c)
	if !ok {
		middleware.RespondError(c, errors.NewUnauthorizedError("no session"))
		return
	}
	h.render(c, snap)
}

// @Summary Log in
// @Description Validates Telegram init data, bootstraps the session and, once it is initialized, sets the telegram-auth marker cookie
// @Tags session
// @Accept x-www-form-urlencoded
// @Produce json
// @Param init_data formData string false "Telegram init data (or X-Telegram-Init-Data header)"
// @Success 200 {object} Response
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /auth/login [post]
func (h *SessionHandler) login(c *gin.Context) {
	raw := middleware.RawInitData(c)
	if raw == "" {
		raw = c.PostForm("init_data")
	}
	if raw == "" {
		middleware.RespondError(c, errors.NewUnauthorizedError("Telegram init data required"))
		return
	}

	identity, err := middleware.ParseLaunchIdentity(raw, h.cfg.BotToken, h.cfg.InitDataTTL)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	m := session.New(h.reconciler, &identity)
	defer m.Close()

	snap, err := m.Run(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, errors.Wrap(err, errors.ErrCodeInternal, "session bootstrap interrupted"))
		return
	}

	// Only a reconciled user gets past the edge guard.
	if snap.Status == session.StatusInitialized {
		c.SetSameSite(http.SameSiteNoneMode)
		c.SetCookie(guard.AuthCookie, "1", int(cookieMaxAge.Seconds()), "/", "", h.cfg.CookieSecure, true)
	}
	h.render(c, snap)
}

func (h *SessionHandler) loginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginHTML))
}
