package security

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event names a security-relevant action of the library API.
type Event string

const (
	EventSignup    Event = "library.signup"
	EventLogin     Event = "library.login"
	EventAuthorize Event = "library.authorize"
)

// Outcome is the result recorded for an Event.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeFail        Outcome = "fail"
	OutcomeRateLimited Outcome = "rate_limited"
)

const defaultPrefix = "settle:library:alerts"

// rule is a threshold within a fixed window.
type rule struct {
	threshold int64
	window    time.Duration
}

var (
	failRules = map[Event]rule{
		EventSignup:    {threshold: 10, window: 5 * time.Minute},
		EventLogin:     {threshold: 10, window: 5 * time.Minute},
		EventAuthorize: {threshold: 25, window: 5 * time.Minute},
	}
	// Applies to every event.
	rateLimitedRule = rule{threshold: 20, window: time.Minute}
)

func ruleFor(event Event, outcome Outcome) (rule, bool) {
	switch outcome {
	case OutcomeRateLimited:
		return rateLimitedRule, true
	case OutcomeFail:
		r, ok := failRules[event]
		return r, ok
	default:
		return rule{}, false
	}
}

// incrWindow bumps a counter that expires with its window.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Alert describes a counter that just reached its threshold.
type Alert struct {
	Triggered bool
	Count     int64
	Threshold int64
	Window    time.Duration
}

// AuditAlerter counts failed and rate-limited events per client IP in Redis.
// A nil *AuditAlerter ignores every observation.
type AuditAlerter struct {
	client redis.Scripter
	prefix string
	now    func() time.Time
}

// NewAuditAlerter returns nil when client is nil.
func NewAuditAlerter(client redis.Scripter, prefix string) *AuditAlerter {
	if client == nil {
		return nil
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultPrefix
	}
	return &AuditAlerter{client: client, prefix: prefix, now: time.Now}
}

// Observe counts one occurrence of event/outcome from ip. The returned Alert is
// triggered exactly once per window, by the occurrence that reaches the
// threshold.
func (a *AuditAlerter) Observe(ctx context.Context, event Event, outcome Outcome, ip string) (Alert, error) {
	if a == nil {
		return Alert{}, nil
	}
	r, ok := ruleFor(event, outcome)
	if !ok {
		return Alert{}, nil
	}
	windowMs := r.window.Milliseconds()
	slot := a.now().UnixMilli() / windowMs

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := incrWindow.Run(ctx, a.client, []string{a.counterKey(event, outcome, ip, slot)}, windowMs).Int64()
	if err != nil {
		return Alert{}, err
	}
	return Alert{
		Triggered: count == r.threshold,
		Count:     count,
		Threshold: r.threshold,
		Window:    r.window,
	}, nil
}

// ipSegment keeps IPv6 colons out of the ':'-separated key.
var ipSegment = strings.NewReplacer(":", "_", " ", "_")

func (a *AuditAlerter) counterKey(event Event, outcome Outcome, ip string, slot int64) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = "unknown"
	}
	return strings.Join([]string{a.prefix, string(event), string(outcome), ipSegment.Replace(ip), strconv.FormatInt(slot, 10)}, ":")
}
