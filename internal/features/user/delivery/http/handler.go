package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/guard"
	"marketplace-miniapp-backend/internal/features/user/models"
	"marketplace-miniapp-backend/internal/features/user/service"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// RegisterRoutes mounts the session-scoped user routes. The group must run
// middleware.TelegramInitData and middleware.Bootstrap first.
func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	users.Use(guard.RequireView(guard.ViewAllowed, guard.ViewOnboarding))
	{
		users.GET("/me", h.getMe)
		users.POST("/me/onboarding", middleware.HandleErrorWrapper(h.completeOnboarding))
	}

	// Админские маршруты
	admin := router.Group("/admin/users")
	admin.Use(guard.RequireAdmin())
	{
		admin.PUT("/:id/block", middleware.HandleErrorWrapper(h.setBlocked))
		admin.PUT("/:id/role", middleware.HandleErrorWrapper(h.setRole))
	}
}

// RegisterCallbackRoutes mounts the bot callback. It is authenticated by the
// shared bot secret, not by init data.
func (h *UserHandler) RegisterCallbackRoutes(router *gin.RouterGroup, botSecret string) {
	router.POST("/updateUserChatId", middleware.RequireBotSecret(botSecret), middleware.HandleErrorWrapper(h.updateChatID))
}

// MeResponse is the current user plus the view the client guard allows.
type MeResponse struct {
	User *models.UserRecord `json:"user"`
	View guard.View         `json:"view"`
}

// @Summary Get current user
// @Description Returns the reconciled record of the launch identity
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} MeResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse "User is blocked"
// @Failure 503 {object} middleware.ErrorResponse "Session could not be loaded"
// @Router /users/me [get]
func (h *UserHandler) getMe(c *gin.Context) {
	snap, _ := middleware.SessionFrom(c)
	c.JSON(http.StatusOK, MeResponse{User: snap.Record, View: guard.Decide(snap)})
}

// @Summary Complete onboarding
// @Description Saves city, delivery address and an optional TON wallet, then marks onboarding completed
// @Tags users
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param profile body models.ProfileUpdate true "Onboarding profile"
// @Success 200 {object} MeResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /users/me/onboarding [post]
func (h *UserHandler) completeOnboarding(c *gin.Context) {
	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	snap, _ := middleware.SessionFrom(c)
	user, err := h.service.CompleteOnboarding(c.Request.Context(), snap.Record.TelegramID, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	snap.Record = user
	middleware.SetSession(c, snap)
	c.JSON(http.StatusOK, MeResponse{User: user, View: guard.Decide(snap)})
}

// @Summary Block or unblock user
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Telegram ID"
// @Param body body models.BlockUpdate true "Block state"
// @Success 200 {object} models.UserRecord
// @Failure 403 {object} middleware.ErrorResponse "Not an admin"
// @Failure 404 {object} middleware.ErrorResponse
// @Router /admin/users/{id}/block [put]
func (h *UserHandler) setBlocked(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.BlockUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	user, err := h.service.SetBlocked(c.Request.Context(), id, req.Blocked)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Change user role
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Telegram ID"
// @Param body body models.RoleUpdate true "New role"
// @Success 200 {object} models.UserRecord
// @Router /admin/users/{id}/role [put]
func (h *UserHandler) setRole(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.RoleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("role", "must be user or admin"))
		return
	}

	user, err := h.service.SetRole(c.Request.Context(), id, req.Role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Link bot chat
// @Description Called by the bot on first interaction. Unknown users are dropped, never created.
// @Tags bot
// @Accept json
// @Produce json
// @Param X-Bot-Secret header string false "Shared bot secret"
// @Param body body models.ChatLinkRequest true "Chat link"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 401 {object} middleware.ErrorResponse
// @Router /updateUserChatId [post]
func (h *UserHandler) updateChatID(c *gin.Context) {
	var req models.ChatLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	linked, err := h.service.LinkChat(c.Request.Context(), req.TelegramID, req.TelegramChatID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(errors.NewValidationError("id", "invalid telegram id"))
		return 0, false
	}
	return id, true
}
