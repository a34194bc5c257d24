package middleware

import (
	"github.com/gin-gonic/gin"

	"marketplace-miniapp-backend/internal/features/session"
)

const ctxKeySession = "session"

// Bootstrap reconciles the launch identity on every request and stores the
// resulting session snapshot. The read path never writes for known users.
func Bootstrap(reconciler session.Reconciler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var machine *session.Machine
		if identity, ok := LaunchIdentityFrom(c); ok {
			machine = session.New(reconciler, &identity)
		} else {
			machine = session.New(reconciler, nil)
		}
		defer machine.Close()

		snap, err := machine.Run(c.Request.Context())
		if err != nil {
			RespondError(c, err)
			return
		}

		c.Set(ctxKeySession, snap)
		c.Next()
	}
}

// SessionFrom returns the snapshot stored by Bootstrap.
func SessionFrom(c *gin.Context) (session.Snapshot, bool) {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return session.Snapshot{}, false
	}
	snap, ok := v.(session.Snapshot)
	return snap, ok
}

// SetSession replaces the stored snapshot, e.g. after a mutation.
func SetSession(c *gin.Context, snap session.Snapshot) {
	c.Set(ctxKeySession, snap)
}
