package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSigner) Sign(int64) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return "signed", nil
}

type fakeExchanger struct {
	calls    atomic.Int32
	lifetime time.Duration
	now      func() time.Time
	err      error
}

func (e *fakeExchanger) Exchange(_ context.Context, assertion string) (*AccessToken, error) {
	n := e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	obtained := e.now()
	return &AccessToken{
		Value:      assertion + "-" + string(rune('0'+n)),
		TokenType:  "Bearer",
		ObtainedAt: obtained,
		ExpiresAt:  obtained.Add(e.lifetime),
	}, nil
}

func TestTokenProvider_NoCache(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	signer := &fakeSigner{}
	exchanger := &fakeExchanger{lifetime: time.Hour, now: clock}

	p := NewTokenProvider(signer, exchanger, false)
	p.SetClock(clock)

	for i := 0; i < 3; i++ {
		_, err := p.AccessToken(context.Background())
		require.NoError(t, err)
	}

	assert.EqualValues(t, 3, signer.calls.Load())
	assert.EqualValues(t, 3, exchanger.calls.Load())
}

func TestTokenProvider_CacheReusesUntilExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	exchanger := &fakeExchanger{lifetime: time.Hour, now: clock}

	p := NewTokenProvider(&fakeSigner{}, exchanger, true)
	p.SetClock(clock)

	first, err := p.AccessToken(context.Background())
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	second, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, exchanger.calls.Load())

	// Inside the skew window the cached token is no longer handed out.
	now = first.ExpiresAt.Add(-DefaultExpirySkew)
	third, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.EqualValues(t, 2, exchanger.calls.Load())
	assert.True(t, third.Valid(now))
}

func TestTokenProvider_Invalidate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	exchanger := &fakeExchanger{lifetime: time.Hour, now: clock}

	p := NewTokenProvider(&fakeSigner{}, exchanger, true)
	p.SetClock(clock)

	_, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	p.Invalidate()
	_, err = p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, exchanger.calls.Load())
}

func TestTokenProvider_Errors(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	t.Run("signing error stops before exchange", func(t *testing.T) {
		exchanger := &fakeExchanger{lifetime: time.Hour, now: clock}
		p := NewTokenProvider(&fakeSigner{err: ErrSigning}, exchanger, true)

		_, err := p.AccessToken(context.Background())
		assert.ErrorIs(t, err, ErrSigning)
		assert.EqualValues(t, 0, exchanger.calls.Load())
	})

	t.Run("exchange error is not cached", func(t *testing.T) {
		exchanger := &fakeExchanger{err: errors.Join(ErrTokenExchange, errors.New("boom")), now: clock}
		p := NewTokenProvider(&fakeSigner{}, exchanger, true)

		_, err := p.AccessToken(context.Background())
		assert.ErrorIs(t, err, ErrTokenExchange)
		_, err = p.AccessToken(context.Background())
		assert.ErrorIs(t, err, ErrTokenExchange)
		assert.EqualValues(t, 2, exchanger.calls.Load())
	})
}

func TestTokenProvider_EndToEnd(t *testing.T) {
	_, cred := newTestCredential(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("assertion") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"live-token","expires_in":3599}`))
	}))
	defer srv.Close()
	cred.TokenURI = srv.URL

	signer, err := NewSigner(cred, CalendarReadonlyScope)
	require.NoError(t, err)

	p := NewTokenProvider(signer, NewExchanger(ExchangerConfig{TokenURL: cred.TokenURL()}), false)
	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live-token", token.Value)

	oauthToken := token.OAuth2()
	assert.Equal(t, "live-token", oauthToken.AccessToken)
	assert.Equal(t, token.ExpiresAt, oauthToken.Expiry)
}

// testClock is a clock that concurrent callers can read while a test moves it.
type testClock struct {
	unix atomic.Int64
}

func (c *testClock) set(unix int64) { c.unix.Store(unix) }

func (c *testClock) Now() time.Time { return time.Unix(c.unix.Load(), 0) }

// gatedExchanger blocks every call from gateFrom on until release is closed.
type gatedExchanger struct {
	calls    atomic.Int32
	gateFrom int32
	entered  chan struct{}
	release  chan struct{}
	respond  func(call int32) (*AccessToken, error)
}

func newGatedExchanger(gateFrom int32, respond func(call int32) (*AccessToken, error)) *gatedExchanger {
	return &gatedExchanger{
		gateFrom: gateFrom,
		entered:  make(chan struct{}, 16),
		release:  make(chan struct{}),
		respond:  respond,
	}
}

func (e *gatedExchanger) Exchange(context.Context, string) (*AccessToken, error) {
	n := e.calls.Add(1)
	if n >= e.gateFrom {
		e.entered <- struct{}{}
		<-e.release
	}
	return e.respond(n)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the token exchange to start")
	}
}

type tokenResult struct {
	token *AccessToken
	err   error
}

func TestTokenProvider_CachedTokenNeverOutlivesExpiry(t *testing.T) {
	const base = int64(1_700_000_000)
	clock := &testClock{}
	clock.set(base)

	exchanger := newGatedExchanger(2, func(call int32) (*AccessToken, error) {
		if call == 1 {
			return &AccessToken{
				Value:      "first",
				TokenType:  "Bearer",
				ObtainedAt: time.Unix(base, 0),
				ExpiresAt:  time.Unix(base+100, 0),
			}, nil
		}
		return nil, fmt.Errorf("%w: upstream down", ErrTokenExchange)
	})
	p := NewTokenProvider(&fakeSigner{}, exchanger, true)
	p.SetClock(clock.Now)

	first, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "first", first.Value)

	// Inside the expiry skew: the next call refreshes and blocks upstream.
	clock.set(base + 80)
	results := make(chan tokenResult, 2)
	call := func() {
		token, err := p.AccessToken(context.Background())
		results <- tokenResult{token, err}
	}
	go call()
	waitFor(t, exchanger.entered)
	go call()

	// The cached token expires while both callers wait on the failing refresh.
	clock.set(base + 200)
	close(exchanger.release)

	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			assert.ErrorIs(t, r.err, ErrTokenExchange)
			continue
		}
		assert.True(t, r.token.Valid(clock.Now()), "token %q expired at %s, now %s",
			r.token.Value, r.token.ExpiresAt, clock.Now())
	}
}

func TestTokenProvider_ConcurrentCallersShareOneRefresh(t *testing.T) {
	clock := &testClock{}
	clock.set(1_700_000_000)

	exchanger := newGatedExchanger(1, func(int32) (*AccessToken, error) {
		return &AccessToken{Value: "shared", TokenType: "Bearer", ObtainedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}, nil
	})
	p := NewTokenProvider(&fakeSigner{}, exchanger, true)
	p.SetClock(clock.Now)

	tokens := make([]*AccessToken, 5)
	var wg sync.WaitGroup
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := p.AccessToken(context.Background())
			assert.NoError(t, err)
			tokens[i] = token
		}()
	}

	waitFor(t, exchanger.entered)
	close(exchanger.release)
	wg.Wait()

	assert.EqualValues(t, 1, exchanger.calls.Load())
	for _, token := range tokens {
		assert.Same(t, tokens[0], token)
	}
}

func TestTokenProvider_CancelledCallerStopsWaiting(t *testing.T) {
	clock := &testClock{}
	clock.set(1_700_000_000)

	exchanger := newGatedExchanger(1, func(int32) (*AccessToken, error) {
		return &AccessToken{Value: "fresh", TokenType: "Bearer", ObtainedAt: clock.Now(), ExpiresAt: clock.Now().Add(time.Hour)}, nil
	})
	p := NewTokenProvider(&fakeSigner{}, exchanger, true)
	p.SetClock(clock.Now)

	first := make(chan tokenResult, 1)
	go func() {
		token, err := p.AccessToken(context.Background())
		first <- tokenResult{token, err}
	}()
	waitFor(t, exchanger.entered)

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := p.AccessToken(ctx)
		cancelled <- err
	}()
	cancel()

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, ErrTokenExchange)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting for the refresh")
	}

	close(exchanger.release)
	r := <-first
	require.NoError(t, r.err)
	assert.Equal(t, "fresh", r.token.Value)
	assert.EqualValues(t, 1, exchanger.calls.Load())
}
