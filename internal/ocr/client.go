package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"paper-reader/internal/apperr"
	"paper-reader/internal/metrics"
)

const (
	DefaultHost = "https://api.textin.com"

	pdfToMarkdownPath = "/ai/service/v1/pdf_to_markdown"
	headerAppID       = "x-ti-app-id"
	headerSecret      = "x-ti-secret-code"

	contentTypeBinary = "application/octet-stream"
	contentTypeURL    = "text/plain"
)

// Extractor converts documents to markdown.
type Extractor interface {
	Extract(ctx context.Context, source string, opts Options, isURL bool) (string, error)
	ExtractContent(ctx context.Context, content []byte, opts Options) (string, error)
}

// Client calls the Textin pdf_to_markdown endpoint.
type Client struct {
	appID  string
	secret string
	host   string
	http   *http.Client
	log    *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHost overrides the provider host (scheme + authority).
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = strings.TrimRight(host, "/")
		}
	}
}

// WithHTTPClient replaces the transport. The default has no client-side timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for provider diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// NewClient builds a client. Empty credentials are accepted here and rejected per call.
func NewClient(appID, secret string, opts ...Option) *Client {
	c := &Client{
		appID:  appID,
		secret: secret,
		host:   DefaultHost,
		http:   &http.Client{},
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract converts a local file (isURL=false) or a remote URL (isURL=true) to markdown.
func (c *Client) Extract(ctx context.Context, source string, opts Options, isURL bool) (string, error) {
	body, err := c.Recognize(ctx, source, opts, isURL)
	if err != nil {
		return "", err
	}
	return c.parse(body)
}

// ExtractContent converts in-memory file bytes to markdown.
func (c *Client) ExtractContent(ctx context.Context, content []byte, opts Options) (string, error) {
	if err := c.precheck(opts); err != nil {
		return "", err
	}
	body, err := c.post(ctx, bytes.NewReader(content), contentTypeBinary, opts)
	if err != nil {
		return "", err
	}
	return c.parse(body)
}

// Recognize performs the request and returns the raw JSON body.
func (c *Client) Recognize(ctx context.Context, source string, opts Options, isURL bool) ([]byte, error) {
	if err := c.precheck(opts); err != nil {
		return nil, err
	}
	if isURL {
		return c.post(ctx, strings.NewReader(source), contentTypeURL, opts)
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return nil, apperr.E(apperr.KindExtraction, "ocr.read", err)
	}
	return c.post(ctx, bytes.NewReader(content), contentTypeBinary, opts)
}

func (c *Client) precheck(opts Options) error {
	if c.appID == "" || c.secret == "" {
		return apperr.Configuration("ocr.extract", "textin app id and secret are required")
	}
	if err := opts.Validate(); err != nil {
		return apperr.E(apperr.KindInvalidInput, "ocr.options", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, body io.Reader, contentType string, opts Options) ([]byte, error) {
	endpoint := c.host + pdfToMarkdownPath
	if q := opts.Values().Encode(); q != "" {
		endpoint += "?" + q
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, apperr.E(apperr.KindExtraction, "ocr.request", err)
	}
	req.Header.Set(headerAppID, c.appID)
	req.Header.Set(headerSecret, c.secret)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.OCRDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		return nil, apperr.E(apperr.KindExtraction, "ocr.post", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		return nil, apperr.E(apperr.KindExtraction, "ocr.read_response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		return nil, &apperr.Error{
			Kind: apperr.KindExtraction,
			Op:   "ocr.post",
			Msg:  fmt.Sprintf("provider returned status %d", resp.StatusCode),
			Err:  errors.New(truncate(string(data), 200)),
		}
	}
	c.log.Debug("ocr response received", "status", resp.StatusCode, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

func (c *Client) parse(body []byte) (string, error) {
	md, err := ParseResponse(body)
	if err != nil {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		return "", err
	}
	if md == ParseFailed {
		code, msg := providerStatus(body)
		c.log.Warn("ocr response carried no markdown", "code", code, "message", msg)
		metrics.OCRRequests.WithLabelValues("parse_failed").Inc()
		return md, nil
	}
	metrics.OCRRequests.WithLabelValues("ok").Inc()
	return md, nil
}

// truncate shortens s to at most maxLen bytes without splitting a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
