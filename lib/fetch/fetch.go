package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"precisebet/lib/restyutil"
	"precisebet/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/net/html/charset"
)

var tracer = telemetry.Tracer("precisebet.lib.fetch")
var meter = telemetry.Meter("precisebet.lib.fetch")

var attemptCounter, _ = meter.Int64Counter("fetch.attempts")
var failureCounter, _ = meter.Int64Counter("fetch.failures")

// Fetcher is what scrapers depend on.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
}

type Request struct {
	// Method defaults to GET.
	Method string
	URL    string
	// Form is sent as an urlencoded body, only meaningful for POST.
	Form      map[string]string
	Headers   map[string]string
	UserAgent string
	// Encoding is the charset label of the response body ("gb2312", "utf-8",
	// ...). An empty label returns the body undecoded.
	Encoding string
	// Attempts is the total number of tries, 0 retries until the context is done.
	Attempts int
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

type Options struct {
	Timeout time.Duration
	// RetryWait is slept between two failed attempts.
	RetryWait time.Duration
	// Bypass wraps the transport with the cloudflare bypass round tripper,
	// which fills in the usual browser headers missing from the request.
	Bypass bool
	// Output receives full HTTP message dumps when debug logging is on.
	Output restyutil.InstrumentOutput
}

// Client is a single scraping session, cookies set by the server are kept
// for every following request.
type Client struct {
	Http      *resty.Client
	retryWait time.Duration
}

func NewClient(opts Options) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.Bypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return &Client{
		Http:      client,
		retryWait: opts.RetryWait,
	}, nil
}

// result is the outcome of exactly one attempt.
type result struct {
	status int
	body   []byte
	err    error
}

func (r result) ok() bool {
	return r.err == nil && r.status >= 200 && r.status < 300
}

func (c *Client) once(ctx context.Context, req Request) result {
	r := c.Http.R().SetContext(ctx)
	if req.UserAgent != "" {
		r.SetHeader("User-Agent", req.UserAgent)
	}
	if len(req.Headers) > 0 {
		r.SetHeaders(req.Headers)
	}
	if req.Form != nil {
		r.SetFormData(req.Form)
	}

	res, err := r.Execute(req.method(), req.URL)
	if err != nil {
		return result{err: err}
	}
	return result{status: res.StatusCode(), body: res.Body()}
}

// Fetch sends the request until it succeeds or the attempt budget runs out,
// the last failure is returned as a *RequestError.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", req.URL),
		attribute.Int("attempts", req.Attempts),
	)

	attrs := metric.WithAttributes(attribute.String("method", req.method()))
	remaining := req.Attempts

	var last result
	for n := 1; ; n++ {
		slog.InfoContext(
			ctx, "sending request",
			"method", req.method(),
			"url", req.URL,
			"ua", req.UserAgent,
			"attempt", n,
		)
		attemptCounter.Add(ctx, 1, attrs)

		last = c.once(ctx, req)
		if last.ok() {
			body, err := decode(last.body, req.Encoding)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to decode body")
				return "", fmt.Errorf("decode %s as %s: %w", req.URL, req.Encoding, err)
			}
			return body, nil
		}
		failureCounter.Add(ctx, 1, attrs)

		if ctx.Err() != nil {
			return "", fmt.Errorf("fetch %s: %w", req.URL, ctx.Err())
		}

		failure := newRequestError(req, last, n)
		slog.WarnContext(ctx, "request attempt failed", "url", req.URL, "attempt", n, "err", failure)

		if req.Attempts > 0 {
			remaining--
			if remaining <= 0 {
				span.RecordError(failure)
				span.SetStatus(codes.Error, "attempts exhausted")
				return "", failure
			}
		}

		if err := sleep(ctx, c.retryWait); err != nil {
			return "", fmt.Errorf("fetch %s: %w", req.URL, err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func decode(body []byte, encoding string) (string, error) {
	if encoding == "" {
		return string(body), nil
	}
	reader, err := charset.NewReaderLabel(encoding, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
