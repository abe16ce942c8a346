// Package broker implements the out-of-band stream-registration client
// (spec §4.9 "Stream-registration client"): a JSON request/response over
// HTTP that hands back a subscribable endpoint, and a DispatcherStream
// that releases it on Close. Grounded on the Rust request_stream /
// remove_stream pair in original_source/src/dispatcher.rs.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/internal/options"
)

// DefaultBaseURL is the site-specific default registration endpoint
// (spec §6 "default base URL is a site-specific constant overridden by
// configuration").
const DefaultBaseURL = "https://dispatcher-api.psi.ch/sf"

// ChannelDescription is one channel entry in a stream request.
type ChannelDescription struct {
	Name   string  `json:"name"`
	Modulo *uint32 `json:"modulo,omitempty"`
	Offset *uint32 `json:"offset,omitempty"`
}

// NewChannelDescription describes a channel with explicit modulo/offset
// decimation parameters.
func NewChannelDescription(name string, modulo, offset uint32) ChannelDescription {
	return ChannelDescription{Name: name, Modulo: &modulo, Offset: &offset}
}

// ChannelOf describes a channel with no decimation.
func ChannelOf(name string) ChannelDescription {
	return ChannelDescription{Name: name}
}

// Client requests and releases dispatcher streams against one base URL.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *zap.Logger
}

type clientConfig struct {
	retryMax int
}

// ClientOption configures a Client at construction time.
type ClientOption = options.Option[*clientConfig]

// WithRetryMax overrides the retryable client's maximum retry count.
func WithRetryMax(n int) ClientOption {
	return options.NoError(func(c *clientConfig) { c.retryMax = n })
}

// New constructs a Client. An empty baseURL defaults to DefaultBaseURL.
func New(baseURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &clientConfig{retryMax: 4}
	_ = options.Apply(cfg, opts...)

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = &leveledLogger{logger: logger}
	httpClient.RetryMax = cfg.retryMax

	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

type channelValidation struct {
	Inconsistency string `json:"inconsistency"`
}

type requestBody struct {
	Channels          []ChannelDescription `json:"channels"`
	StreamType        string                `json:"stream_type"`
	Verify            bool                  `json:"verify"`
	ChannelValidation channelValidation     `json:"channel_validation"`
	Compression       string                `json:"compression,omitempty"`
}

type requestConfig struct {
	streamType         string
	inconsistency      string
	disableCompression bool
}

func newRequestConfig(verify bool) *requestConfig {
	inconsistency := "keep-as-is"
	if verify {
		inconsistency = "adjust-individual"
	}

	return &requestConfig{streamType: "pub_sub", inconsistency: inconsistency}
}

// RequestOption configures one RequestStream call.
type RequestOption = options.Option[*requestConfig]

// WithStreamType overrides the default "pub_sub" stream type.
func WithStreamType(t string) RequestOption {
	return options.NoError(func(c *requestConfig) { c.streamType = t })
}

// WithInconsistency overrides the verify-derived default inconsistency
// resolution policy.
func WithInconsistency(policy string) RequestOption {
	return options.NoError(func(c *requestConfig) { c.inconsistency = policy })
}

// WithCompressionDisabled requests "compression": "none" in the stream
// request body; omitted otherwise (spec §4.9 defaults).
func WithCompressionDisabled() RequestOption {
	return options.NoError(func(c *requestConfig) { c.disableCompression = true })
}

// RequestStream asks the dispatcher for a stream covering channels,
// returning a DispatcherStream that owns the resulting endpoint.
func (c *Client) RequestStream(ctx context.Context, channels []ChannelDescription, verify bool, opts ...RequestOption) (*DispatcherStream, error) {
	cfg := newRequestConfig(verify)
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	body := requestBody{
		Channels:          channels,
		StreamType:        cfg.streamType,
		Verify:            verify,
		ChannelValidation: channelValidation{Inconsistency: cfg.inconsistency},
	}

	if cfg.disableCompression {
		body.Compression = "none"
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "broker: marshal stream request")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stream", bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(errs.InvalidInput, err, "broker: build stream request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionRefused, err, "broker: request stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return nil, errs.Newf(errs.Other, "broker: request stream failed (%d): %s", resp.StatusCode, msg)
	}

	var parsed struct {
		Stream string `json:"stream"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.InvalidData, err, "broker: decode stream response")
	}

	c.logger.Info("broker: created stream", zap.String("endpoint", parsed.Stream))

	return &DispatcherStream{client: c, endpoint: parsed.Stream}, nil
}

// removeStream issues the DELETE that releases endpoint. Errors are
// logged by the caller (DispatcherStream.Close), never returned, per
// spec §4.9 "errors on delete are logged only".
func (c *Client) removeStream(endpoint string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, c.baseURL+"/stream", bytes.NewReader([]byte(endpoint)))
	if err != nil {
		return errs.Wrap(errs.InvalidInput, err, "broker: build remove request")
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.ConnectionRefused, err, "broker: remove stream")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return errs.Newf(errs.Other, "broker: remove stream failed (%d): %s", resp.StatusCode, msg)
	}

	return nil
}

// leveledLogger adapts a *zap.Logger to retryablehttp.LeveledLogger so
// retry diagnostics flow through the same structured logger as the rest
// of the module.
type leveledLogger struct {
	logger *zap.Logger
}

func (l *leveledLogger) fields(keysAndValues []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}

		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}

	return fields
}

func (l *leveledLogger) Error(msg string, kv ...any) { l.logger.Error(msg, l.fields(kv)...) }
func (l *leveledLogger) Info(msg string, kv ...any)  { l.logger.Info(msg, l.fields(kv)...) }
func (l *leveledLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, l.fields(kv)...) }
func (l *leveledLogger) Warn(msg string, kv ...any)  { l.logger.Warn(msg, l.fields(kv)...) }
