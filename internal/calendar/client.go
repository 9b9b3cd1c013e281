package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/asikmydeen/home-calendar-dashboard-sub000/internal/instrumentation"
)

const (
	// DefaultEventPageSize caps how many events are fetched per calendar.
	// Only the first page is requested; events beyond the cap are omitted.
	// This mirrors the product's bounded-window policy and is configurable
	// per client.
	DefaultEventPageSize = 250

	// DefaultCallTimeout bounds each provider HTTP call.
	DefaultCallTimeout = 30 * time.Second

	// Conservative defaults, well below Google's per-user quota.
	defaultRequestsPerSecond = 5.0
	defaultBurstSize         = 10
)

// Client wraps the Google Calendar service for a single provider account.
// Every call is rate limited and bounded by a per-call timeout.
type Client struct {
	svc       *gcal.Service
	accountID string
	limiter   *rate.Limiter
	timeout   time.Duration
	pageSize  int64
	metrics   *instrumentation.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPageSize overrides the single-page event cap.
func WithPageSize(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit overrides the default requests-per-second budget.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics attaches a metrics recorder for provider API operations.
func WithMetrics(m *instrumentation.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewGoogleClient creates a Calendar client for one account using an access
// token previously obtained from the token manager. The token is used as-is;
// refresh is the token manager's job, not the client's.
func NewGoogleClient(ctx context.Context, accountID, accessToken string, opts ...ClientOption) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service for account %s: %w", accountID, err)
	}

	c := &Client{
		svc:       svc,
		accountID: accountID,
		limiter:   rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurstSize),
		timeout:   DefaultCallTimeout,
		pageSize:  DefaultEventPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AccountID returns the provider account this client is bound to.
func (c *Client) AccountID() string {
	return c.accountID
}

// call wraps one provider operation with rate limiting, a bounded timeout,
// and metrics recording.
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	if c.metrics != nil {
		c.metrics.RecordProviderOperation(ctx, ProviderGoogle, operation, status, time.Since(start))
	}

	return err
}

// ListCalendars lists all calendars accessible to the account.
func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	var calendars []Calendar
	err := c.call(ctx, "list_calendars", func(ctx context.Context) error {
		list, err := c.svc.CalendarList.List().Context(ctx).Do()
		if err != nil {
			return err
		}
		for _, entry := range list.Items {
			calendars = append(calendars, fromGoogleCalendar(entry, c.accountID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars for account %s: %w", c.accountID, err)
	}
	return calendars, nil
}

// ListEvents lists events in a calendar within a time range. Only the first
// page is fetched, capped at the configured page size.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	var events []Event
	err := c.call(ctx, "list_events", func(ctx context.Context) error {
		list, err := c.svc.Events.List(calendarID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(c.pageSize).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		for _, item := range list.Items {
			events = append(events, fromGoogleEvent(item, c.accountID, calendarID))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events in calendar %s: %w", calendarID, err)
	}
	return events, nil
}

// InsertEvent creates a new event in a calendar and returns the created event
// with its provider-assigned id.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*Event, error) {
	payload := toGoogleEvent(input)

	var created Event
	err := c.call(ctx, "insert_event", func(ctx context.Context) error {
		ev, err := c.svc.Events.Insert(calendarID, payload).Context(ctx).Do()
		if err != nil {
			return err
		}
		created = fromGoogleEvent(ev, c.accountID, calendarID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert event in calendar %s: %w", calendarID, err)
	}
	return &created, nil
}

// PatchEvent applies a partial update to an existing event. Only the fields
// set in input are sent to the provider.
func (c *Client) PatchEvent(ctx context.Context, calendarID, eventID string, input EventInput) (*Event, error) {
	payload := toGoogleEvent(input)

	var updated Event
	err := c.call(ctx, "patch_event", func(ctx context.Context) error {
		ev, err := c.svc.Events.Patch(calendarID, eventID, payload).Context(ctx).Do()
		if err != nil {
			return err
		}
		updated = fromGoogleEvent(ev, c.accountID, calendarID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to patch event %s in calendar %s: %w", eventID, calendarID, err)
	}
	return &updated, nil
}

// DeleteEvent deletes an event from a calendar. Callers that want idempotent
// deletes should treat IsNotFound errors as success.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.call(ctx, "delete_event", func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to delete event %s in calendar %s: %w", eventID, calendarID, err)
	}
	return nil
}

// IsNotFound reports whether an error from a provider call means the resource
// no longer exists (deleted remotely or never existed).
func IsNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}

// IsPermissionDenied reports whether an error from a provider call means the
// account lacks access to the resource.
func IsPermissionDenied(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 403
	}
	return false
}
