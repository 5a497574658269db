package scanning

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/zombor/receipt-ocr/internal/ocr"
)

// ErrRateLimited is returned instead of waiting when the parse budget is spent,
// so the caller can fall back right away
var ErrRateLimited = errors.New("assisted parse rate limit exceeded")

// RateLimitedParser throttles calls to an assisted parser
type RateLimitedParser struct {
	next    ocr.AssistedParser
	limiter *rate.Limiter
}

// NewRateLimitedParser allows rps calls per second with the given burst.
// rps <= 0 disables the limit.
func NewRateLimitedParser(next ocr.AssistedParser, rps float64, burst int) *RateLimitedParser {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedParser{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ParseText forwards to the wrapped parser if a token is available
func (p *RateLimitedParser) ParseText(ctx context.Context, text string) (*ocr.ParsedReceipt, error) {
	if !p.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return p.next.ParseText(ctx, text)
}

type timeoutParser struct {
	next    ocr.AssistedParser
	timeout time.Duration
}

// WithTimeout bounds every call to next. A non-positive timeout returns next unchanged.
func WithTimeout(next ocr.AssistedParser, timeout time.Duration) ocr.AssistedParser {
	if timeout <= 0 {
		return next
	}
	return &timeoutParser{next: next, timeout: timeout}
}

func (p *timeoutParser) ParseText(ctx context.Context, text string) (*ocr.ParsedReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.next.ParseText(ctx, text)
}
