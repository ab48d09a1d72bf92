package google

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/teemow/slotproxy/internal/instrumentation"
)

// DefaultExpirySkew is subtracted from a cached token's expiry so a token is
// never handed out moments before the upstream would reject it.
const DefaultExpirySkew = 30 * time.Second

// AssertionSigner signs JWT-bearer assertions.
type AssertionSigner interface {
	Sign(now int64) (string, error)
}

// AssertionExchanger trades an assertion for an access token.
type AssertionExchanger interface {
	Exchange(ctx context.Context, assertion string) (*AccessToken, error)
}

// OAuth2 converts the token for use with oauth2.StaticTokenSource and oauth2.NewClient.
func (t *AccessToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.Value,
		TokenType:   t.TokenType,
		Expiry:      t.ExpiresAt,
	}
}

// TokenProvider hands out access tokens by signing and exchanging a fresh
// assertion. With caching enabled it keeps a single token and reuses it until
// it is about to expire. Concurrent refreshes share one exchange, and callers
// stop waiting for it when their context ends.
type TokenProvider struct {
	signer    AssertionSigner
	exchanger AssertionExchanger
	cache     bool
	skew      time.Duration
	now       func() time.Time
	metrics   *instrumentation.Metrics

	mu      sync.Mutex
	cached  *AccessToken
	refresh singleflight.Group
}

// NewTokenProvider creates a TokenProvider. When cache is false every call
// performs a full sign and exchange.
func NewTokenProvider(signer AssertionSigner, exchanger AssertionExchanger, cache bool) *TokenProvider {
	return &TokenProvider{
		signer:    signer,
		exchanger: exchanger,
		cache:     cache,
		skew:      DefaultExpirySkew,
		now:       time.Now,
	}
}

// NewTokenProviderWithMetrics creates a TokenProvider that records exchange outcomes.
func NewTokenProviderWithMetrics(signer AssertionSigner, exchanger AssertionExchanger, cache bool, metrics *instrumentation.Metrics) *TokenProvider {
	p := NewTokenProvider(signer, exchanger, cache)
	p.metrics = metrics
	return p
}

// SetClock overrides the clock, for tests.
func (p *TokenProvider) SetClock(now func() time.Time) {
	p.now = now
}

// AccessToken returns a usable token. Errors wrap ErrSigning or ErrTokenExchange.
func (p *TokenProvider) AccessToken(ctx context.Context) (*AccessToken, error) {
	if !p.cache {
		return p.issue(ctx)
	}

	if token := p.cachedToken(); token != nil {
		p.record(ctx, instrumentation.TokenResultCached)
		return token, nil
	}

	// The exchange outlives any single caller and is bounded by the
	// exchanger's own timeout.
	flight := p.refresh.DoChan("token", func() (any, error) {
		if token := p.cachedToken(); token != nil {
			return token, nil
		}
		token, err := p.issue(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cached = token
		p.mu.Unlock()
		return token, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: gave up waiting for token refresh: %w", ErrTokenExchange, context.Cause(ctx))
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		token := res.Val.(*AccessToken)
		if !token.Valid(p.now()) {
			return nil, fmt.Errorf("%w: token expired before it could be used", ErrTokenExchange)
		}
		return token, nil
	}
}

// cachedToken returns the cached token if it is still valid, including the
// skew, at the time the lock is taken.
func (p *TokenProvider) cachedToken() *AccessToken {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached.Valid(p.now().Add(p.skew)) {
		return p.cached
	}
	return nil
}

// issue signs a fresh assertion and exchanges it.
func (p *TokenProvider) issue(ctx context.Context) (*AccessToken, error) {
	assertion, err := p.signer.Sign(p.now().Unix())
	if err != nil {
		p.record(ctx, instrumentation.TokenResultFailure)
		return nil, err
	}

	token, err := p.exchanger.Exchange(ctx, assertion)
	if err != nil {
		p.record(ctx, instrumentation.TokenResultFailure)
		return nil, err
	}
	p.record(ctx, instrumentation.TokenResultSuccess)
	return token, nil
}

// Invalidate drops the cached token, if any.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

func (p *TokenProvider) record(ctx context.Context, result string) {
	if p.metrics != nil {
		p.metrics.RecordTokenExchange(ctx, result)
	}
}
