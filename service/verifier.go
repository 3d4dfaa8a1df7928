package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"payza-gateway/config"
	"payza-gateway/monitoring"
)

// maxVerificationBody caps how much of the gateway's answer is read.
const maxVerificationBody = 64 << 10

// TokenVerifier exchanges an IPN token for the transaction details.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// HTTPTokenVerifier posts the token to the gateway's IPN handler.
type HTTPTokenVerifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTokenVerifier creates a verifier for the configured endpoint, timeout
// and certificate policy.
func NewHTTPTokenVerifier(cfg config.Gateway) *HTTPTokenVerifier {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-out
	}

	timeout := cfg.VerifyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPTokenVerifier{
		endpoint: cfg.IPNEndpoint(),
		client: &http.Client{
			Transport: otelhttp.NewTransport(base),
			Timeout:   timeout,
		},
	}
}

// WithEndpoint points the verifier somewhere else, e.g. a local fake gateway.
func (v *HTTPTokenVerifier) WithEndpoint(endpoint string) *HTTPTokenVerifier {
	v.endpoint = endpoint
	return v
}

// Verify returns the raw response body. Transport failures and non-200
// answers come back as *VerificationTransportError.
func (v *HTTPTokenVerifier) Verify(ctx context.Context, token string) (string, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("external.service", "payza-ipn"))

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &VerificationTransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := v.client.Do(req)
	duration := time.Since(start).Seconds()

	if err != nil {
		v.record(ctx, duration, "error")
		span.SetAttributes(attribute.String("external.status", "error"))
		return "", &VerificationTransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.record(ctx, duration, "failed")
		span.SetAttributes(
			attribute.Int("external.status_code", resp.StatusCode),
			attribute.String("external.status", "failed"),
		)
		return "", &VerificationTransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerificationBody))
	if err != nil {
		v.record(ctx, duration, "error")
		return "", &VerificationTransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	v.record(ctx, duration, "success")
	span.SetAttributes(attribute.String("external.status", "success"))

	return string(body), nil
}

func (v *HTTPTokenVerifier) record(ctx context.Context, duration float64, status string) {
	monitoring.VerificationDuration.Record(ctx, duration,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
