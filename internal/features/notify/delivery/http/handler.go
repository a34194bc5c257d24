package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/notify"
)

type NotifyHandler struct {
	notifier *notify.Notifier
}

func NewNotifyHandler(notifier *notify.Notifier) *NotifyHandler {
	return &NotifyHandler{notifier: notifier}
}

// RegisterRoutes mounts under an admin-guarded group.
func (h *NotifyHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.POST("/users/:id/notify", middleware.HandleErrorWrapper(h.notify))
}

type notifyRequest struct {
	Text string `json:"text" binding:"required"`
}

// @Summary Message user through the bot
// @Tags admin
// @Accept json
// @Produce json
// @Security TelegramInitData
// @Param id path int true "Telegram ID"
// @Param body body notifyRequest true "Message"
// @Success 204
// @Failure 400 {object} middleware.ErrorResponse "Chat not linked"
// @Router /admin/users/{id}/notify [post]
func (h *NotifyHandler) notify(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(errors.NewValidationError("id", "invalid telegram id"))
		return
	}

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	if err := h.notifier.Notify(c.Request.Context(), id, req.Text); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
