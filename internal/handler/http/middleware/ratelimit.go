package middleware

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/user"
	"github.com/go-chi/httprate"
)

// SensitiveRateLimit throttles pay and unlock per actor.
func SensitiveRateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if actor, err := user.ActorFromContext(r.Context()); err == nil {
				return "actor:" + actor.ID, nil
			}
			return httprate.KeyByIP(r)
		}),
	)
}
