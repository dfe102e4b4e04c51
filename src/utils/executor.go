package utils

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/trading-brokers/src/brokers"
)

// RequestAttempts is the total number of tries for a single request:
// the initial attempt plus retries on transient failures.
const RequestAttempts = 4

// Request describes one outbound provider call.
type Request struct {
	// Op names the calling operation; it prefixes every error.
	Op     string
	Method string
	URL    string
	Header map[string]string
	Query  url.Values
	// Form is sent urlencoded; Body is marshaled as JSON. Set at most one.
	Form url.Values
	Body interface{}
}

// Executor runs provider HTTP calls with bounded retry. Transport errors,
// 5xx responses and 429 throttling retry up to RequestAttempts with the
// client's default backoff; a 4xx business rejection fails immediately.
// A canceled or timed-out context is never retried.
type Executor struct {
	client *resty.Client
}

// NewExecutor returns an executor whose individual attempts time out after
// the given duration.
func NewExecutor(timeout time.Duration) *Executor {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(RequestAttempts - 1).
		AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return res.StatusCode() >= http.StatusInternalServerError ||
				res.StatusCode() == http.StatusTooManyRequests
		})

	return &Executor{client: client}
}

// Do executes the request and returns the raw response body. Failures are
// classified per the retry policy: *brokers.RequestError for transport and
// availability failures (after retries are exhausted), *brokers.BusinessError
// for 4xx rejections.
func (e *Executor) Do(ctx context.Context, req Request) ([]byte, error) {
	r := e.client.R().SetContext(ctx)

	for k, v := range req.Header {
		r.SetHeader(k, v)
	}
	if req.Query != nil {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Form != nil {
		r.SetFormDataFromValues(req.Form)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(req.Body)
	}

	log.Tracef("%s: %s %s", req.Op, req.Method, req.URL)

	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, &brokers.RequestError{Op: req.Op, Err: err}
	}

	code := res.StatusCode()
	switch {
	case code >= http.StatusOK && code < http.StatusMultipleChoices:
		return res.Body(), nil
	case code >= http.StatusInternalServerError || code == http.StatusTooManyRequests:
		log.Errorf("%s: exhausted retries with status %d: %s", req.Op, code, res.Body())
		return nil, &brokers.RequestError{Op: req.Op, StatusCode: code, Body: string(res.Body())}
	default:
		return nil, &brokers.BusinessError{Op: req.Op, StatusCode: code, Body: string(res.Body())}
	}
}
