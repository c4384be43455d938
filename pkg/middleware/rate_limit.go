package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"slotter/pkg/logger"
	"slotter/pkg/ratelimit"

	"github.com/julienschmidt/httprouter"
)

// RateLimitReject is the 429 payload. Kind is a stable discriminator so
// clients can recognize throttling without parsing the message.
type RateLimitReject struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
	Kind              string `json:"kind"`
	Policy            string `json:"policy"`
}

const RejectKind = "rate_limit_exceeded"

// RateLimit wraps individual routes at registration time, so the
// route-to-policy binding is fixed at startup rather than matched per
// request against the raw URL.
type RateLimit struct {
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

func NewRateLimit(limiter *ratelimit.Limiter, log *logger.Logger) *RateLimit {
	return &RateLimit{limiter: limiter, log: log}
}

// Wrap gates one route. Routes the registry does not govern pass through
// untouched.
func (m *RateLimit) Wrap(method, pattern string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		identity := RateLimitIdentity(r)

		result, governed, err := m.limiter.Check(r.Context(), identity, method, pattern)
		if err != nil {
			// Fail open: losing the shared window store must not take
			// the booking path down with it.
			m.log.Warn("Rate limit check failed, admitting request",
				"request_id", RequestIDFrom(r.Context()),
				"method", method,
				"pattern", pattern,
				"error", err,
			)
			next(w, r, ps)
			return
		}
		if !governed {
			next(w, r, ps)
			return
		}

		setQuotaHeaders(w, method, result)

		if !result.Allowed {
			retryAfter := retryAfterSeconds(result)
			m.log.Warn("Rate limit exceeded",
				"request_id", RequestIDFrom(r.Context()),
				"identity", identity,
				"policy", result.Policy,
				"path", r.URL.Path,
				"retry_after_seconds", retryAfter,
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(RateLimitReject{
				Error:             "Too many requests",
				Message:           "Rate limit exceeded for policy " + result.Policy + ". Please retry later.",
				RetryAfterSeconds: retryAfter,
				Kind:              RejectKind,
				Policy:            result.Policy,
			})
			return
		}

		next(w, r, ps)
	}
}

// setQuotaHeaders attaches quota metadata to every governed response,
// success included, so callers can self-throttle before hitting the wall.
func setQuotaHeaders(w http.ResponseWriter, method string, result ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	w.Header().Set("X-RateLimit-Policy", result.Policy)
	w.Header().Set("X-RateLimit-Operation", operationType(method))
}

func operationType(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	default:
		return "write"
	}
}

func retryAfterSeconds(result ratelimit.Result) int {
	secs := int(math.Ceil(result.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
