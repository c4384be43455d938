package client

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"slotter/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// QuotaInfo is the server-reported quota state parsed from response
// headers on every governed call.
type QuotaInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Policy    string
}

// LowQuota reports remaining below 20% of the limit, the threshold at
// which callers should start self-throttling.
func (q QuotaInfo) LowQuota() bool {
	return q.Limit > 0 && q.Remaining*5 < q.Limit
}

type LowQuotaFunc func(endpointKey string, quota QuotaInfo)

// Governor is the caller-side half of rate-limit governance:
//
//   - concurrent calls sharing an idempotency key attach to one shared
//     in-flight outcome instead of issuing duplicates;
//   - throttled calls are queued per endpoint and replayed one at a
//     time after the server-specified cooldown, so retries never form
//     a second burst;
//   - responses nearing quota exhaustion raise a low-quota signal
//     before a rejection ever happens.
type Governor struct {
	group      singleflight.Group
	mu         sync.Mutex
	queues     map[string]*retryQueue
	maxRetries int
	onLowQuota LowQuotaFunc
	log        *logger.Logger
}

type GovernorConfig struct {
	// MaxRetries bounds throttle replays per call; 0 surfaces the 429
	// to the caller immediately.
	MaxRetries int
	OnLowQuota LowQuotaFunc
	Log        *logger.Logger
}

func NewGovernor(cfg GovernorConfig) *Governor {
	return &Governor{
		queues:     make(map[string]*retryQueue),
		maxRetries: cfg.MaxRetries,
		onLowQuota: cfg.OnLowQuota,
		log:        cfg.Log,
	}
}

// Do executes attempt under the governor. dedupKey joins identical
// concurrent calls; endpointKey scopes the retry queue, so retries for
// one endpoint never interleave with another's.
func (g *Governor) Do(dedupKey, endpointKey string, attempt func() (*Response, error)) (*Response, error) {
	value, err, shared := g.group.Do(dedupKey, func() (any, error) {
		return g.execute(endpointKey, attempt)
	})
	if shared && g.log != nil {
		g.log.Debug("Request deduplicated against in-flight call", "key", dedupKey)
	}
	if err != nil {
		return nil, err
	}
	return value.(*Response), nil
}

func (g *Governor) execute(endpointKey string, attempt func() (*Response, error)) (*Response, error) {
	resp, err := attempt()
	if err != nil {
		return nil, err
	}

	for retries := 0; isThrottled(resp) && retries < g.maxRetries; retries++ {
		cooldown := cooldownFrom(resp)
		if g.log != nil {
			g.log.Info("Request throttled, queueing retry",
				"endpoint", endpointKey,
				"cooldown", cooldown,
				"retry", retries+1,
			)
		}

		resp, err = g.queueFor(endpointKey).run(attempt, cooldown)
		if err != nil {
			return nil, err
		}
	}

	if !isThrottled(resp) {
		g.reportQuota(endpointKey, resp)
	}
	return resp, nil
}

func (g *Governor) queueFor(endpointKey string) *retryQueue {
	g.mu.Lock()
	defer g.mu.Unlock()

	queue, ok := g.queues[endpointKey]
	if !ok {
		queue = newRetryQueue()
		g.queues[endpointKey] = queue
	}
	return queue
}

func (g *Governor) reportQuota(endpointKey string, resp *Response) {
	if g.onLowQuota == nil {
		return
	}
	quota, ok := parseQuota(resp)
	if ok && quota.LowQuota() {
		g.onLowQuota(endpointKey, quota)
	}
}

func isThrottled(resp *Response) bool {
	return resp != nil && resp.StatusCode == http.StatusTooManyRequests
}

// cooldownFrom prefers the structured payload hint, then the Retry-After
// header, then a conservative default.
func cooldownFrom(resp *Response) time.Duration {
	var payload struct {
		RetryAfterSeconds int    `json:"retryAfterSeconds"`
		Kind              string `json:"kind"`
	}
	if err := resp.DecodeJSON(&payload); err == nil && payload.RetryAfterSeconds > 0 {
		return time.Duration(payload.RetryAfterSeconds) * time.Second
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return time.Second
}

func parseQuota(resp *Response) (QuotaInfo, bool) {
	limitHeader := resp.Header.Get("X-RateLimit-Limit")
	if limitHeader == "" {
		return QuotaInfo{}, false
	}

	limit, err := strconv.Atoi(limitHeader)
	if err != nil {
		return QuotaInfo{}, false
	}
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return QuotaInfo{}, false
	}

	quota := QuotaInfo{
		Limit:     limit,
		Remaining: remaining,
		Policy:    resp.Header.Get("X-RateLimit-Policy"),
	}
	if resetUnix, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		quota.ResetAt = time.Unix(resetUnix, 0)
	}
	return quota, true
}
