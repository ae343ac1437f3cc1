package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/connectmarket/session-gateway/internal/api/metrics"
	"github.com/connectmarket/session-gateway/internal/core/domain"
	"github.com/connectmarket/session-gateway/internal/core/service"
)

// waitingBody is the neutral holding page served while the initial session
// lookup is unsettled. Redirecting during that window would bounce an
// about-to-be-confirmed user to a login page, so the client retries.
const waitingBody = `<!doctype html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head><body>Checking your session…</body></html>`

// Guard gates a route group behind a required role set. The decision is
// recomputed from the store's latest snapshot on every request; the
// middleware keeps no state of its own.
func Guard(roles ...domain.Role) echo.MiddlewareFunc {
	required := service.RequireRoles(roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			store, err := StoreFrom(c)
			if err != nil {
				return err
			}

			decision := service.EvaluateAccess(store.Snapshot(), required)
			switch decision.Outcome {
			case service.GuardWait:
				metrics.GuardDecisionsTotal.WithLabelValues("wait").Inc()
				return c.HTML(http.StatusOK, waitingBody)
			case service.GuardRedirect:
				metrics.GuardDecisionsTotal.WithLabelValues("redirect").Inc()
				return c.Redirect(http.StatusSeeOther, decision.Target)
			default:
				metrics.GuardDecisionsTotal.WithLabelValues("allow").Inc()
				return next(c)
			}
		}
	}
}
