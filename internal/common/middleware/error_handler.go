package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/logger"
)

const (
	ctxKeyRequestID = "request_id"
	ctxKeyUserID    = "user_id"
)

// ErrorHandler middleware для обработки паник
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID).
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		sendErrorResponse(c, appErr)
	})
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(ctxKeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

// RespondError logs appErr and writes its public form. Raw causes and
// storage details never leave the process.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Handler error occurred").
			WithUserID(getUserID(c))
	}
	sendErrorResponse(c, appErr)
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError) {
	requestID := getRequestID(c)
	appErr.WithRequestID(requestID)

	logError(appErr, c)

	c.AbortWithStatusJSON(HTTPStatus(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr.Public(),
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	})
}

// HTTPStatus возвращает HTTP статус код для ошибки
func HTTPStatus(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeUnknownIdentity:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden, errors.ErrCodeUserBlocked, errors.ErrCodeOnboardingRequired:
		return http.StatusForbidden
	case errors.ErrCodeAlreadyExists:
		return http.StatusConflict
	case errors.ErrCodeSessionLoading:
		return http.StatusAccepted
	case errors.ErrCodeTooManyRequests:
		return http.StatusTooManyRequests
	case errors.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTelegramAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// logError логирует ошибку с контекстом
func logError(appErr *errors.AppError, c *gin.Context) {
	var event *zerolog.Event
	switch {
	case appErr.IsInternal():
		event = logger.Error()
	case appErr.IsUnauthorized(), appErr.IsSessionFatal():
		event = logger.Warn()
	default:
		event = logger.Info()
	}

	event = event.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if userID := getUserID(c); userID != 0 {
		event = event.Int64("user_id", userID)
	} else if appErr.UserID != 0 {
		event = event.Int64("user_id", appErr.UserID)
	}
	if len(appErr.Details) > 0 {
		event = event.Interface("details", appErr.Details)
	}
	if appErr.Cause != nil {
		event = event.AnErr("cause", appErr.Cause)
	}
	event.Msg("Request failed")
}

// getRequestID получает ID запроса из контекста
func getRequestID(c *gin.Context) string {
	if id := c.GetString(ctxKeyRequestID); id != "" {
		return id
	}
	return "unknown"
}

// getUserID получает ID пользователя из контекста
func getUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxKeyUserID)
}

// HandleErrorWrapper оборачивает обработчики для автоматической обработки ошибок
func HandleErrorWrapper(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		handler(c)

		if len(c.Errors) > 0 && !c.Writer.Written() {
			RespondError(c, c.Errors.Last().Err)
		}
	}
}
