package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"edge-proxy/middleware/origin"
	"edge-proxy/middleware/ratelimit"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Forwarder é o ForwardingGateway visto pelo handler.
type Forwarder interface {
	Forward(ctx context.Context, p Payload) (Result, error)
}

type Options struct {
	Origins  *origin.Guard
	Limiter  *ratelimit.Guard
	Upstream Forwarder
	// UpstreamName entra na mensagem de 502 ("Failed to reach <nome> API").
	UpstreamName string
	Metrics      *Metrics
	Logger       logrus.FieldLogger
	Now          func() time.Time
}

// Handler é o RequestHandler: um endpoint só, roteado por método.
type Handler struct {
	origins      *origin.Guard
	limiter      *ratelimit.Guard
	upstream     Forwarder
	upstreamName string
	metrics      *Metrics
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewHandler(opts Options) *Handler {
	if opts.UpstreamName == "" {
		opts.UpstreamName = "Anthropic"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		origins:      opts.Origins,
		limiter:      opts.Limiter,
		upstream:     opts.Upstream,
		upstreamName: opts.UpstreamName,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	reqOrigin := r.Header.Get("Origin")
	log := h.logger.WithFields(logrus.Fields{
		"invocation": uuid.NewString(),
		"origin":     reqOrigin,
	})

	if r.Method == http.MethodOptions {
		h.preflight(w, reqOrigin, log)
		return
	}

	cors, allowed := h.origins.Headers(reqOrigin)

	if r.Method != http.MethodPost {
		h.metrics.outcome(string(KindMethodNotAllowed))
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed. Use POST."}, cors)
		return
	}

	if !allowed {
		h.metrics.outcome(string(KindOriginRejected))
		log.Warn("rejected request from unauthorized origin")
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Origin not allowed"})
		return
	}

	client, dec, err := h.limiter.Check(r)
	log = log.WithField("client", client)
	if err != nil {
		log.WithError(err).Error("rate limit store unavailable, admitting request")
	}
	if !dec.Allowed {
		h.metrics.outcome(string(KindRateLimited))
		log.Warn("rate limit exceeded")

		reset := ratelimit.FormatReset(dec.ResetAt)
		limitHeaders := http.Header{}
		ratelimit.SetRejectedHeaders(limitHeaders, dec)
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:     "Rate limit exceeded",
			Message:   "Too many requests. Please try again after " + reset,
			ResetTime: reset,
		}, limitHeaders, cors)
		return
	}

	payload, err := readPayload(r)
	if err != nil {
		h.rejectBody(w, err, cors, log)
		return
	}

	log.WithField("model", payload.Model).Info("forwarding request")

	res, err := h.upstream.Forward(r.Context(), payload)
	if err != nil {
		h.metrics.outcome(string(KindUpstreamUnreachable))
		log.WithError(err).Error("error forwarding to upstream")
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:   fmt.Sprintf("Failed to reach %s API", h.upstreamName),
			Message: err.Error(),
		}, cors)
		return
	}
	h.metrics.upstream(res.Status, res.Duration)

	outcome := outcomeForwarded
	if res.Status < 200 || res.Status > 299 {
		outcome = string(KindUpstreamError)
	}
	h.metrics.outcome(outcome)

	elapsed := h.now().Sub(start).Milliseconds()
	log.WithFields(logrus.Fields{
		"status":        res.Status,
		"processing_ms": elapsed,
		"request_id":    res.RequestID,
	}).Info("request completed")

	hdr := w.Header()
	hdr.Set("Content-Type", "application/json")
	hdr.Set("X-Request-ID", res.RequestID)
	hdr.Set("X-Processing-Time", strconv.FormatInt(elapsed, 10)+"ms")
	ratelimit.SetRemainingHeader(hdr, dec)
	origin.Apply(hdr, cors)
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

func (h *Handler) preflight(w http.ResponseWriter, reqOrigin string, log logrus.FieldLogger) {
	cors, ok := h.origins.Headers(reqOrigin)
	if !ok {
		h.metrics.outcome(string(KindOriginRejected))
		log.Warn("rejected preflight from unauthorized origin")
		writeText(w, http.StatusForbidden, "Origin not allowed")
		return
	}
	h.metrics.outcome(outcomePreflight)
	origin.Apply(w.Header(), cors)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rejectBody(w http.ResponseWriter, err error, cors http.Header, log logrus.FieldLogger) {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Kind == KindMissingField {
		h.metrics.outcome(string(KindMissingField))
		log.Warn("missing required fields (model or messages)")
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:    "Missing required fields",
			Required: verr.Required,
		}, cors)
		return
	}

	h.metrics.outcome(string(KindMalformedBody))
	log.WithError(err).Warn("invalid JSON in request body")
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON in request body"}, cors)
}

func readPayload(r *http.Request) (Payload, error) {
	if r.Body == nil {
		return ParsePayload(nil)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return Payload{}, &ValidationError{Kind: KindMalformedBody, Err: err}
	}
	return ParsePayload(body)
}
