package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/slotproxy/internal/instrumentation"
)

// DefaultTimeout bounds a single events.list round trip.
const DefaultTimeout = 10 * time.Second

// ClientConfig configures a Client. Zero values select defaults.
type ClientConfig struct {
	// Endpoint overrides the Calendar API base URL (e.g. for tests)
	Endpoint string

	// Timeout bounds each call (default: DefaultTimeout)
	Timeout time.Duration

	// Transport is the base transport under the bearer-token transport
	Transport http.RoundTripper

	// Metrics records API call outcomes; nil disables recording
	Metrics *instrumentation.Metrics
}

// Client runs events queries against the Google Calendar API. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	endpoint  string
	timeout   time.Duration
	transport http.RoundTripper
	metrics   *instrumentation.Metrics
}

// NewClient creates a Client from config.
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint:  config.Endpoint,
		timeout:   config.Timeout,
		transport: config.Transport,
		metrics:   config.Metrics,
	}
}

// newService builds a Calendar service authorized with token.
func (c *Client) newService(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	base := &http.Client{Transport: c.transport}
	httpClient := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), oauth2.StaticTokenSource(token))
	httpClient.Timeout = c.timeout

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// ListEvents runs q with the given bearer token and returns the events of
// the first result page in API order.
func (c *Client) ListEvents(ctx context.Context, token *oauth2.Token, q QuerySpec) ([]*calendar.Event, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList,
		instrumentation.CalendarAttr(q.CalendarID))
	defer span.End()

	start := time.Now()
	events, err := c.listEvents(ctx, token, q)

	instrumentation.SetSpanStatus(span, err)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	if c.metrics != nil {
		c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationList, status, time.Since(start))
	}

	return events, err
}

func (c *Client) listEvents(ctx context.Context, token *oauth2.Token, q QuerySpec) ([]*calendar.Event, error) {
	svc, err := c.newService(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	call := svc.Events.List(q.CalendarID).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		TimeMax(q.TimeMax.Format(time.RFC3339)).
		SingleEvents(q.SingleEvents).
		Context(ctx)

	if q.OrderBy != "" {
		call = call.OrderBy(q.OrderBy)
	}
	if q.Query != "" {
		call = call.Q(q.Query)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list events: %w", ErrQuery, err)
	}

	if events.Items == nil {
		return []*calendar.Event{}, nil
	}
	return events.Items, nil
}
