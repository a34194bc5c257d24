package guard

import (
	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/common/errors"
	"marketplace-miniapp-backend/internal/common/metrics"
	"marketplace-miniapp-backend/internal/common/middleware"
	"marketplace-miniapp-backend/internal/features/session"
)

// View is what the client guard lets a session render.
type View string

const (
	ViewLoading    View = "loading"
	ViewError      View = "error"
	ViewOnboarding View = "onboarding"
	ViewBlocked    View = "blocked"
	ViewAllowed    View = "allowed"
)

// Decide maps a session snapshot to a view. Only an initialized, available,
// unblocked and onboarded session is allowed.
func Decide(s session.Snapshot) View {
	switch s.Status {
	case session.StatusError:
		return ViewError
	case session.StatusInitialized:
	default:
		return ViewLoading
	}

	switch {
	case !s.IsUserAvailable():
		return ViewLoading
	case s.IsUserBlocked():
		return ViewBlocked
	case !s.IsOnboardingCompleted():
		return ViewOnboarding
	}
	return ViewAllowed
}

// viewError maps a non-allowed view to the error rendered for API callers.
func viewError(v View, s session.Snapshot) *errors.AppError {
	switch v {
	case ViewError:
		if s.Err != nil {
			return s.Err
		}
		return errors.New(errors.ErrCodeStorageUnavailable, errors.SessionRetryMessage)
	case ViewBlocked:
		return errors.New(errors.ErrCodeUserBlocked, "Your account has been blocked")
	case ViewOnboarding:
		return errors.New(errors.ErrCodeOnboardingRequired, "Complete onboarding first")
	default:
		return errors.New(errors.ErrCodeSessionLoading, "Session is loading")
	}
}

// RequireView lets the request through only when the session's view is one
// of allowed. It reads the snapshot stored by middleware.Bootstrap.
func RequireView(allowed ...View) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := middleware.SessionFrom(c)
		if !ok {
			metrics.GuardDecisionsTotal.WithLabelValues("client", "no_session").Inc()
			middleware.RespondError(c, errors.NewUnauthorizedError("no session"))
			return
		}

		v := Decide(snap)
		metrics.GuardDecisionsTotal.WithLabelValues("client", string(v)).Inc()
		for _, a := range allowed {
			if v == a {
				c.Next()
				return
			}
		}
		middleware.RespondError(c, viewError(v, snap))
	}
}

// RequireAdmin allows only allowed sessions whose record carries the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := middleware.SessionFrom(c)
		if !ok {
			middleware.RespondError(c, errors.NewUnauthorizedError("no session"))
			return
		}

		v := Decide(snap)
		if v == ViewError || v == ViewLoading {
			middleware.RespondError(c, viewError(v, snap))
			return
		}
		if !snap.IsUserAdmin() || snap.IsUserBlocked() {
			metrics.GuardDecisionsTotal.WithLabelValues("admin", "forbidden").Inc()
			middleware.RespondError(c, errors.NewForbiddenError("admin access required"))
			return
		}
		metrics.GuardDecisionsTotal.WithLabelValues("admin", "allowed").Inc()
		c.Next()
	}
}
