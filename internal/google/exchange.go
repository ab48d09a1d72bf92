package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/slotproxy/internal/instrumentation"
)

const (
	// DefaultExchangeTimeout bounds a single token endpoint round trip.
	DefaultExchangeTimeout = 10 * time.Second

	// maxTokenResponseSize caps how much of the token response is read.
	maxTokenResponseSize = 1 << 20
)

// AccessToken is a short-lived bearer token obtained from an assertion exchange.
type AccessToken struct {
	Value      string
	TokenType  string
	ObtainedAt time.Time
	ExpiresAt  time.Time
}

// Valid reports whether the token can still be presented at now.
func (t *AccessToken) Valid(now time.Time) bool {
	return t != nil && t.Value != "" && now.Before(t.ExpiresAt)
}

// tokenResponse is the JSON body returned by the token endpoint.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangerConfig configures an Exchanger. Zero values select defaults.
type ExchangerConfig struct {
	// TokenURL is the token endpoint (default: DefaultTokenURL)
	TokenURL string

	// Timeout bounds the round trip (default: DefaultExchangeTimeout).
	// Ignored when HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the client used for the exchange
	HTTPClient *http.Client

	// Now overrides the clock, for tests
	Now func() time.Time

	// Metrics records token endpoint round trips; nil disables recording
	Metrics *instrumentation.Metrics
}

// Exchanger trades signed assertions for access tokens. It performs exactly one
// round trip per call and never retries.
type Exchanger struct {
	tokenURL   string
	httpClient *http.Client
	now        func() time.Time
	metrics    *instrumentation.Metrics
}

// NewExchanger creates an Exchanger from the given configuration.
func NewExchanger(config ExchangerConfig) *Exchanger {
	if config.TokenURL == "" {
		config.TokenURL = DefaultTokenURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultExchangeTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Exchanger{
		tokenURL:   config.TokenURL,
		httpClient: config.HTTPClient,
		now:        config.Now,
		metrics:    config.Metrics,
	}
}

// Exchange posts the assertion with the JWT-bearer grant and returns the issued token.
func (e *Exchanger) Exchange(ctx context.Context, assertion string) (*AccessToken, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationTokenExchange)
	defer span.End()

	start := time.Now()
	token, err := e.exchange(ctx, assertion)

	instrumentation.SetSpanStatus(span, err)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	if e.metrics != nil {
		e.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationTokenExchange, status, time.Since(start))
	}

	return token, err
}

func (e *Exchanger) exchange(ctx context.Context, assertion string) (*AccessToken, error) {
	form := url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %w", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	obtainedAt := e.now()

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", ErrTokenExchange, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", ErrTokenExchange, err)
	}

	var tr tokenResponse
	decodeErr := json.Unmarshal(body, &tr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && tr.Error != "" {
			return nil, fmt.Errorf("%w: token endpoint returned HTTP %d: %s: %s",
				ErrTokenExchange, resp.StatusCode, tr.Error, tr.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: token endpoint returned HTTP %d", ErrTokenExchange, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: invalid response (HTTP %d): %w", ErrTokenExchange, resp.StatusCode, decodeErr)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access_token received (HTTP %d)", ErrTokenExchange, resp.StatusCode)
	}

	lifetime := time.Duration(AssertionLifetime) * time.Second
	if tr.ExpiresIn > 0 {
		lifetime = time.Duration(tr.ExpiresIn) * time.Second
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &AccessToken{
		Value:      tr.AccessToken,
		TokenType:  tokenType,
		ObtainedAt: obtainedAt,
		ExpiresAt:  obtainedAt.Add(lifetime),
	}, nil
}
