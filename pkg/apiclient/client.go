package apiclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"storefront/pkg/logger"
)

const (
	pathAirports           = "/api/airports"
	pathSearch             = "/api/search"
	pathPricing            = "/api/air-pricing"
	pathValidatePassengers = "/api/validate-passengers"
	pathBookings           = "/api/bookings"

	instrumentationName = "storefront/pkg/apiclient"
)

// APIError is a non-2xx response. Payload is nil when the body was not a JSON object.
type APIError struct {
	Status  int
	Path    string
	Payload *ErrorPayload
}

func (e *APIError) Error() string {
	msg := ""
	if e.Payload != nil {
		msg = e.Payload.Message
		if msg == "" {
			msg = e.Payload.Error
		}
	}
	if msg == "" {
		return fmt.Sprintf("flight api %s returned status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("flight api %s returned status %d: %s", e.Path, e.Status, msg)
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Client talks to the external flight search, pricing and booking API. Identical requests
// that are in flight at the same time share one round trip.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Client
	requestID  func() string

	group    singleflight.Group
	tracer   trace.Tracer
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l logger.Client) Option {
	return func(c *Client) { c.logger = l }
}

// WithRequestID overrides how X-Request-ID values are generated.
func WithRequestID(fn func() string) Option {
	return func(c *Client) { c.requestID = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Nop{},
		requestID:  uuid.NewString,
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, o := range opts {
		o(c)
	}

	meter := otel.Meter(instrumentationName)
	if counter, err := meter.Int64Counter("flightapi.requests",
		metric.WithDescription("Requests sent to the flight API")); err == nil {
		c.requests = counter
	}
	if hist, err := meter.Float64Histogram("flightapi.request.duration",
		metric.WithDescription("Flight API round trip time"), metric.WithUnit("ms")); err == nil {
		c.latency = hist
	}
	return c
}

type response struct {
	status int
	body   []byte
}

// do sends one request and decodes a 2xx body into out. The shared round trip ignores the
// caller's cancellation so that other waiters still get a result; each caller stops waiting
// as soon as its own context is done.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", path, err)
		}
		payload = b
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	key := requestKey(method, target, payload)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.roundTrip(context.WithoutCancel(ctx), method, path, target, payload)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}

	resp := res.Val.(*response)
	if resp.status < 200 || resp.status >= 300 {
		return &APIError{Status: resp.status, Path: path, Payload: decodeErrorPayload(resp.body)}
	}
	if out == nil {
		return nil
	}
	if err := decodeJSON(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, target string, payload []byte) (*response, error) {
	ctx, span := c.tracer.Start(ctx, "flightapi "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.logger.Error("failed to build flight api request", logger.Field{Key: "path", Value: path}, logger.Field{Key: "error", Value: err})
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := c.requestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("request.id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.record(ctx, path, 0, elapsed)
		c.logger.Error("flight api call failed",
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "request_id", Value: requestID},
			logger.Field{Key: "duration", Value: elapsed},
			logger.Field{Key: "error", Value: err},
		)
		return nil, fmt.Errorf("external api call failed: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("failed to read %s response: %w", path, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.record(ctx, path, resp.StatusCode, elapsed)

	fields := []logger.Field{
		{Key: "path", Value: path},
		{Key: "status", Value: resp.StatusCode},
		{Key: "request_id", Value: requestID},
		{Key: "duration", Value: elapsed},
	}
	if resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, "status "+strconv.Itoa(resp.StatusCode))
		c.logger.Warn("flight api returned error status", fields...)
	} else {
		c.logger.Debug("flight api call", fields...)
	}

	return &response{status: resp.StatusCode, body: b}, nil
}

func (c *Client) record(ctx context.Context, path string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	if c.requests != nil {
		c.requests.Add(ctx, 1, attrs)
	}
	if c.latency != nil {
		c.latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

func requestKey(method, target string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// decodeJSON keeps numbers as json.Number so offers pass through unchanged.
func decodeJSON(b []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(out)
}

func decodeErrorPayload(b []byte) *ErrorPayload {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var p ErrorPayload
	if err := decodeJSON(trimmed, &p); err != nil {
		return nil
	}
	return &p
}
