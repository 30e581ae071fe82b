// Package rest implements query.Handler against the DotRoll REST API.
package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/janoszen/dotrollcli/internal/query"
)

const (
	DefaultEndpoint   = "https://webservices.dotroll.com/rest"
	DefaultAPIVersion = "1.0"

	apiKeyHeader = "X-API-Key"
)

type Options struct {
	Endpoint   string
	APIVersion string
	APIKey     string
	Username   string
	Password   string

	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

type Client struct {
	opts Options
	http *resty.Client
	log  *slog.Logger
}

var _ query.Handler = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	opts.Endpoint = strings.TrimSpace(opts.Endpoint)
	opts.APIVersion = strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("dotroll: missing api key (use --apikey or DOTROLL_API_KEY)")
	}
	u, err := url.Parse(opts.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("dotroll: invalid endpoint %q", opts.Endpoint)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dotrollcli"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log := opts.Logger.With("component", "rest")
	base := strings.TrimRight(opts.Endpoint, "/") + "/" + opts.APIVersion

	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(opts.Timeout).
		SetLogger(restyLogger{log}).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader(apiKeyHeader, opts.APIKey)
	if opts.Username != "" {
		hc.SetBasicAuth(opts.Username, opts.Password)
	}
	hc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		log.Debug("request",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration", resp.Time(),
		)
		return nil
	})

	return &Client{opts: opts, http: hc, log: log}, nil
}

func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.do(ctx, query.VerbGet, path, nil)
}

func (c *Client) Delete(ctx context.Context, path string) (any, error) {
	return c.do(ctx, query.VerbDelete, path, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, query.VerbPost, path, body)
}

func (c *Client) Put(ctx context.Context, path string, body any) (any, error) {
	return c.do(ctx, query.VerbPut, path, body)
}

func (c *Client) Encode(value string) string {
	return query.Encode(value)
}

func (c *Client) do(ctx context.Context, verb query.Verb, path string, body any) (any, error) {
	path = strings.TrimLeft(path, "/")

	req := c.http.R().SetContext(ctx)
	payload, err := query.MarshalBody(body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(string(verb), path)
	if err != nil {
		return nil, fmt.Errorf("dotroll: %s %s: %w", verb, path, err)
	}
	return query.Complete(verb, path, resp.StatusCode(), resp.Body())
}

// restyLogger routes resty's own diagnostics into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
