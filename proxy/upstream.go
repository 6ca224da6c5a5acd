package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const unknownRequestID = "unknown"

// UpstreamOptions configura o ForwardingGateway.
type UpstreamOptions struct {
	URL     string
	APIKey  string
	Version string
	// Timeout limita a chamada inteira, incluindo ler o corpo.
	Timeout time.Duration
	// Transport base; nil usa http.DefaultTransport.
	Transport http.RoundTripper
	// RPS > 0 liga um token bucket global na frente do upstream.
	RPS   float64
	Burst int
}

// Result é a resposta do upstream já lida por inteiro.
type Result struct {
	Status    int
	Body      []byte
	RequestID string
	Duration  time.Duration
}

// Upstream faz uma única chamada POST por Forward, sem retry.
type Upstream struct {
	url     string
	apiKey  string
	version string
	timeout time.Duration
	client  *http.Client
	pacer   *rate.Limiter
}

func NewUpstream(opts UpstreamOptions) *Upstream {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	u := &Upstream{
		url:     opts.URL,
		apiKey:  opts.APIKey,
		version: opts.Version,
		timeout: opts.Timeout,
		client:  &http.Client{Transport: otelhttp.NewTransport(base)},
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		u.pacer = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return u
}

// Forward envia p.Body ao upstream. Qualquer falha antes de ter o corpo da
// resposta vira *UpstreamError; status de erro do upstream NÃO é erro aqui.
func (u *Upstream) Forward(ctx context.Context, p Payload) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if u.pacer != nil {
		if err := u.pacer.Wait(ctx); err != nil {
			return Result{}, &UpstreamError{Err: fmt.Errorf("upstream pacing: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(p.Body))
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", u.apiKey)
	req.Header.Set("anthropic-version", u.version)

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &UpstreamError{Err: err}
	}

	id := resp.Header.Get("request-id")
	if id == "" {
		id = unknownRequestID
	}
	return Result{
		Status:    resp.StatusCode,
		Body:      body,
		RequestID: id,
		Duration:  time.Since(start),
	}, nil
}
