// Package catalog talks to the remote course catalog and keeps the local
// fallback cache of everything it has fetched.
package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/artpar/courseware/internal/apierr"
	"github.com/artpar/courseware/internal/course"
)

const (
	productsPath = "/public/randomproducts"
	usersPath    = "/public/randomusers"

	// DefaultPageSize is the page size used when a request does not set one.
	DefaultPageSize = 10
	// DefaultInstructorLimit is how many users are fetched as instructors.
	DefaultInstructorLimit = 10
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// Client fetches catalog pages, course details and instructors.
type Client struct {
	endpoint        string
	httpClient      *http.Client
	token           string
	limiter         *rate.Limiter
	lg              *zap.Logger
	tracer          trace.Tracer
	pageSize        int
	instructorLimit int
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a client for the API at baseURL/version.
func NewClient(baseURL, version string, opts ...Option) *Client {
	endpoint := strings.TrimRight(baseURL, "/")
	if v := strings.Trim(version, "/"); v != "" {
		endpoint += "/" + v
	}

	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		lg:              zap.NewNop(),
		tracer:          otel.Tracer("github.com/artpar/courseware/internal/catalog"),
		pageSize:        DefaultPageSize,
		instructorLimit: DefaultInstructorLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRateLimit caps outgoing requests at rps per second. Zero or less
// disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(c *Client) {
		c.lg = lg
	}
}

// WithPageSize sets the limit used when a request leaves it unset.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithInstructorLimit sets how many users are fetched as instructors.
func WithInstructorLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.instructorLimit = n
		}
	}
}

// PageSize returns the default page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchPage returns one page of courses with instructors attached. Products
// and instructors are fetched concurrently; either failing fails the page.
// Every error is an *apierr.Error.
func (c *Client) FetchPage(ctx context.Context, p course.ListParams) (*course.Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = c.pageSize
	}

	ctx, span := c.tracer.Start(ctx, "catalog.fetch_page", trace.WithAttributes(
		attribute.Int("catalog.page", p.Page),
		attribute.Int("catalog.limit", p.Limit),
		attribute.String("catalog.query", strings.TrimSpace(p.Query)),
		attribute.String("catalog.sort", string(p.Sort)),
	))
	defer span.End()

	var (
		body rawPage[rawProduct]
		pool []course.Instructor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, productsPath, p.Values(), &body)
	})
	g.Go(func() error {
		var err error
		pool, err = c.fetchInstructors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.fail(span, err)
	}

	courses := make([]course.Summary, len(body.Data))
	for i, raw := range body.Data {
		courses[i] = raw.summary(instructorAt(pool, i))
	}

	c.lg.Debug("Fetched catalog page",
		zap.Int("page", body.Page),
		zap.Int("count", len(courses)),
		zap.Int("total_items", body.TotalItems),
		zap.Bool("has_next_page", body.NextPage),
	)

	return &course.Page{
		Courses:     courses,
		Page:        body.Page,
		TotalPages:  body.TotalPages,
		TotalItems:  body.TotalItems,
		HasNextPage: body.NextPage,
	}, nil
}

// FetchAll returns the first page of the unfiltered catalog at the default
// page size, which is what the dashboard treats as the full course list.
func (c *Client) FetchAll(ctx context.Context) ([]course.Summary, error) {
	page, err := c.FetchPage(ctx, course.ListParams{Page: 1, Limit: c.pageSize})
	if err != nil {
		return nil, err
	}
	return page.Courses, nil
}

// FetchDetail returns one course. Its instructor is pool[id mod len(pool)].
func (c *Client) FetchDetail(ctx context.Context, id int) (*course.Detail, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch_detail", trace.WithAttributes(
		attribute.Int("catalog.course_id", id),
	))
	defer span.End()

	var (
		raw  rawProduct
		pool []course.Instructor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, productsPath+"/"+strconv.Itoa(id), nil, &raw)
	})
	g.Go(func() error {
		var err error
		pool, err = c.fetchInstructors(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.fail(span, err)
	}

	d := raw.detail(instructorAt(pool, id))
	return &d, nil
}

// FetchInstructors returns the instructor pool.
func (c *Client) FetchInstructors(ctx context.Context) ([]course.Instructor, error) {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch_instructors")
	defer span.End()

	pool, err := c.fetchInstructors(ctx)
	if err != nil {
		return nil, c.fail(span, err)
	}
	return pool, nil
}

func (c *Client) fetchInstructors(ctx context.Context) ([]course.Instructor, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.instructorLimit))

	var body rawPage[rawUser]
	if err := c.get(ctx, usersPath, q, &body); err != nil {
		return nil, err
	}

	pool := make([]course.Instructor, len(body.Data))
	for i, u := range body.Data {
		pool[i] = u.instructor()
	}
	return pool, nil
}

// instructorAt picks pool[n mod len(pool)], or the placeholder for an
// empty pool.
func instructorAt(pool []course.Instructor, n int) course.Instructor {
	if len(pool) == 0 {
		return course.PlaceholderInstructor()
	}
	if n < 0 {
		n = -n
	}
	return pool[n%len(pool)]
}

func (c *Client) fail(span trace.Span, err error) error {
	e := apierr.Classify(err)
	span.RecordError(e)
	span.SetStatus(codes.Error, e.Message)
	span.SetAttributes(
		attribute.String("catalog.error_kind", e.Kind.String()),
		attribute.Int("http.status_code", e.Status),
	)
	c.lg.Warn("Catalog request failed",
		zap.Stringer("kind", e.Kind),
		zap.Int("status", e.Status),
		zap.Error(e),
	)
	return e
}

// get performs a GET and decodes the envelope's data into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apierr.FromTransport(err)
		}
	}

	target := c.endpoint + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &apierr.Error{Kind: apierr.KindUnknown, Message: apierr.DefaultMessage, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierr.FromTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return apierr.FromTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apierr.FromResponse(resp.StatusCode, body)
	}

	env := envelope{Data: out}
	if err := json.Unmarshal(body, &env); err != nil {
		return &apierr.Error{
			Kind:    apierr.KindUnknown,
			Status:  resp.StatusCode,
			Message: apierr.DefaultMessage,
			Err:     err,
		}
	}
	if env.Success != nil && !*env.Success {
		return apierr.FromResponse(resp.StatusCode, body)
	}
	return nil
}
