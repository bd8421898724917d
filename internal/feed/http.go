package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/metricboard/engine/internal/dashboard"
	appErr "github.com/metricboard/engine/pkg/errors"
	"github.com/metricboard/engine/pkg/logger"
)

const maxSheetBytes = 8 << 20

// HTTP downloads a published spreadsheet as CSV and parses it like CSV.
type HTTP struct {
	url     string
	mapping Mapping
	client  *http.Client
	timeout time.Duration
}

// HTTPOption configures an HTTP source.
type HTTPOption func(*HTTP)

// WithClient replaces the default http client.
func WithClient(c *http.Client) HTTPOption { return func(h *HTTP) { h.client = c } }

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) HTTPOption { return func(h *HTTP) { h.timeout = d } }

// NewHTTP returns a source for the sheet published at url.
func NewHTTP(url string, mapping Mapping, opts ...HTTPOption) *HTTP {
	h := &HTTP{url: url, mapping: mapping, client: http.DefaultClient, timeout: 20 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch downloads and parses the sheet. Transport failures and non-2xx answers are
// upstream_unavailable; a malformed sheet is invalid.
func (h *HTTP) Fetch(ctx context.Context) ([]dashboard.Record, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInvalid, "invalid source url")
	}
	req.Header.Set("Accept", "text/csv")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "fetch sheet failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, appErr.Wrap(fmt.Errorf("status %d", resp.StatusCode), appErr.CodeUpstreamUnavailable, "fetch sheet failed").
			WithMeta("status", resp.StatusCode)
	}

	records, err := parseCSV(ctx, io.LimitReader(resp.Body, maxSheetBytes), h.mapping)
	if err != nil {
		if ctx.Err() != nil {
			return nil, appErr.Wrap(err, appErr.CodeUpstreamUnavailable, "fetch sheet failed")
		}
		return nil, err
	}
	logger.L().Debug("sheet fetched",
		zap.String("url", h.url),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return records, nil
}
