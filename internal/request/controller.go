package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Descriptor is everything needed to perform one provider call. It is built
// fresh per call and never reused.
type Descriptor struct {
	Endpoint  string
	Method    string
	Header    http.Header
	Body      []byte
	Channel   string
	RequestID string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	StatusText string
	Header     http.Header
	Body       []byte
}

// IsJSON reports whether the response declares a JSON body.
func (r *Response) IsJSON() bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// Controller is the cancellation handle of one in-flight request.
type Controller struct {
	id      string
	channel string
	client  *http.Client

	ctx    context.Context
	cancel context.CancelCauseFunc

	// timeout starts counting when FetchData begins, not at creation.
	timeout  time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	released bool

	once sync.Once
}

func newController(parent context.Context, id, channel string, client *http.Client, timeout time.Duration) *Controller {
	ctx, cancel := context.WithCancelCause(parent)
	c := &Controller{
		id:      id,
		channel: channel,
		client:  client,
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
	return c
}

// startTimer arms the hard deadline once.
func (c *Controller) startTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil || c.released || c.timeout <= 0 {
		return
	}
	c.timer = time.AfterFunc(c.timeout, func() {
		c.cancel(types.NewAbortError(types.MsgTimedOut))
	})
}

// ID returns the request id.
func (c *Controller) ID() string { return c.id }

// Channel returns the channel the controller is registered in.
func (c *Controller) Channel() string { return c.channel }

// Context returns the context bound to the controller.
func (c *Controller) Context() context.Context { return c.ctx }

// Abort cancels the request with reason. An empty reason means the user
// aborted. Abort does not remove the controller from its registry.
func (c *Controller) Abort(reason string) {
	c.cancel(types.NewAbortError(reason))
}

// Aborted reports whether the controller has been cancelled.
func (c *Controller) Aborted() bool {
	return c.ctx.Err() != nil
}

// release stops the timer and frees the context. It is safe to call more
// than once.
func (c *Controller) release() {
	c.once.Do(func() {
		c.mu.Lock()
		c.released = true
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
		c.cancel(nil)
	})
}

// FetchData performs the HTTP call described by d, bound to the
// controller. When the controller is cancelled it returns an
// *types.APIError with Aborted set and the abort reason as message.
func (c *Controller) FetchData(d *Descriptor) (*Response, error) {
	c.startTimer()

	method := d.Method
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(c.ctx, method, d.Endpoint, bytes.NewReader(d.Body))
	if err != nil {
		return nil, types.NewTransportError(0, fmt.Sprintf("invalid request: %v", err), err)
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(err)
	}

	logging.Debug().
		Str("channel", c.channel).
		Str("requestID", c.id).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("provider call finished")

	return &Response{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// classify turns a transport failure into an abort error when the
// controller was cancelled.
func (c *Controller) classify(err error) error {
	if c.ctx.Err() == nil {
		return types.NewTransportError(0, err.Error(), err)
	}
	var apiErr *types.APIError
	if errors.As(context.Cause(c.ctx), &apiErr) && apiErr.Aborted {
		return apiErr
	}
	return types.NewAbortError("")
}

// statusText returns the reason phrase of a response, e.g. "Precondition
// Failed" for 412.
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
