// Package request manages cancellable provider calls.
//
// A Manager is a registry of Controllers keyed by channel and request id.
// Each Controller wraps one HTTP call in a context that is cancelled by an
// explicit Abort, by the parent context, or by a hard timeout. A cancelled
// call resolves into a *types.APIError with Aborted set.
package request

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dkaus1/vscode-ai-ext/internal/logging"
)

// Channels used by the orchestrator.
const (
	ChannelPrimary = "primary"
	ChannelInline  = "inline"
)

// DefaultTimeout is the hard deadline of every controller, counted from
// the moment its call is sent.
const DefaultTimeout = 120 * time.Second

// ErrDuplicateRequest is returned when a request id is already registered
// in the channel.
var ErrDuplicateRequest = errors.New("request id already registered in channel")

// Manager is the registry of in-flight requests.
type Manager struct {
	mu       sync.Mutex
	channels map[string]map[string]*Controller
	client   *http.Client
	timeout  time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the HTTP client used by controllers.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.client = client }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// NewManager creates an empty registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		channels: make(map[string]map[string]*Controller),
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh request id.
func NewID() string {
	return ulid.Make().String()
}

// CreateController registers a controller for id in channel. The
// controller's context derives from ctx.
func (m *Manager) CreateController(ctx context.Context, id, channel string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[channel]
	if !ok {
		ch = make(map[string]*Controller)
		m.channels[channel] = ch
	}
	if _, exists := ch[id]; exists {
		return nil, ErrDuplicateRequest
	}

	c := newController(ctx, id, channel, m.client, m.timeout)
	ch[id] = c

	logging.Debug().
		Str("channel", channel).
		Str("requestID", id).
		Msg("controller created")
	return c, nil
}

// Controllers returns the controllers of channel ordered by request id.
func (m *Manager) Controllers(channel string) []*Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Controller, 0, len(m.channels[channel]))
	for _, c := range m.channels[channel] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Channels returns the names of channels with registered controllers.
func (m *Manager) Channels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.channels))
	for name := range m.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Count returns the number of controllers registered in channel.
func (m *Manager) Count(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels[channel])
}

// RemoveController evicts one controller and releases its resources. It
// reports whether the controller was registered.
func (m *Manager) RemoveController(id, channel string) bool {
	m.mu.Lock()
	c, ok := m.channels[channel][id]
	if ok {
		delete(m.channels[channel], id)
		if len(m.channels[channel]) == 0 {
			delete(m.channels, channel)
		}
	}
	m.mu.Unlock()

	if ok {
		c.release()
	}
	return ok
}

// RemoveControllers evicts every controller in channel.
func (m *Manager) RemoveControllers(channel string) int {
	m.mu.Lock()
	ch := m.channels[channel]
	delete(m.channels, channel)
	m.mu.Unlock()

	for _, c := range ch {
		c.release()
	}
	return len(ch)
}

// AbortChannel aborts every controller in channel with reason and then
// removes them. It returns the number of aborted controllers.
func (m *Manager) AbortChannel(channel, reason string) int {
	controllers := m.Controllers(channel)
	for _, c := range controllers {
		c.Abort(reason)
	}
	m.RemoveControllers(channel)

	if len(controllers) > 0 {
		logging.Info().
			Str("channel", channel).
			Int("count", len(controllers)).
			Msg("aborted requests")
	}
	return len(controllers)
}

// AbortAll aborts every registered controller in every channel.
func (m *Manager) AbortAll(reason string) int {
	n := 0
	for _, channel := range m.Channels() {
		n += m.AbortChannel(channel, reason)
	}
	return n
}
