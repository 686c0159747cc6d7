package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dkaus1/vscode-ai-ext/internal/event"
	"github.com/dkaus1/vscode-ai-ext/internal/logging"
	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/internal/session"
	"github.com/dkaus1/vscode-ai-ext/internal/storage"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Options holds the collaborators of an Orchestrator. Nil fields get
// fresh defaults, except Storage which is required for history and
// credentials.
type Options struct {
	Config    *types.Config
	Session   *session.State
	Requests  *request.Manager
	Providers *provider.Registry
	Bus       *event.Bus
	Storage   *storage.Storage

	// Workspace scopes the storage keys. Empty means global.
	Workspace string

	// WorkDir is the directory reviewed by reviewChanges.
	WorkDir string
}

// Orchestrator is the single entry point for user actions. It is the only
// writer of its session state.
type Orchestrator struct {
	cfgMu sync.RWMutex
	cfg   *types.Config

	session   *session.State
	requests  *request.Manager
	providers *provider.Registry
	bus       *event.Bus
	store     *storage.Storage
	workspace string
	workDir   string

	// turnMu serializes primary turns so one append/trim cycle completes
	// before the next starts.
	turnMu sync.Mutex

	handlers map[string]Handler
	log      zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:       opts.Config,
		session:   opts.Session,
		requests:  opts.Requests,
		providers: opts.Providers,
		bus:       opts.Bus,
		store:     opts.Storage,
		workspace: opts.Workspace,
		workDir:   opts.WorkDir,
		log:       logging.Component("orchestrator"),
	}
	if o.cfg == nil {
		o.cfg = &types.Config{Provider: types.ProviderOpenAI, APIProvider: types.DefaultAPIProviders()}
	}
	if o.session == nil {
		o.session = session.New()
	}
	if o.requests == nil {
		o.requests = request.NewManager()
	}
	if o.providers == nil {
		o.providers = provider.NewRegistry()
	}
	if o.bus == nil {
		o.bus = event.NewBus()
	}
	o.handlers = o.commandTable()
	return o
}

// Config returns the active configuration.
func (o *Orchestrator) Config() *types.Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	return o.cfg
}

// SetConfig swaps in a new configuration. A turn in flight keeps the
// configuration it started with. When the active provider changes the
// conversation is reset once that turn has finished.
func (o *Orchestrator) SetConfig(cfg *types.Config) {
	if cfg == nil {
		return
	}
	o.cfgMu.Lock()
	prev := o.cfg.Provider
	o.cfg = cfg
	o.cfgMu.Unlock()

	if prev != cfg.Provider {
		o.resetSession()
		o.log.Info().Str("from", prev).Str("provider", cfg.Provider).Msg("provider changed, session reset")
	}
}

func (o *Orchestrator) resetSession() {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	o.session.Reset()
}

// Session returns the session state.
func (o *Orchestrator) Session() *session.State { return o.session }

// Requests returns the request manager.
func (o *Orchestrator) Requests() *request.Manager { return o.requests }

// Providers returns the provider variant registry.
func (o *Orchestrator) Providers() *provider.Registry { return o.providers }

// Bus returns the outbound event bus.
func (o *Orchestrator) Bus() *event.Bus { return o.bus }

// Send runs one chat turn for text and emits the loading, result and
// failure events.
func (o *Orchestrator) Send(ctx context.Context, text string) (*provider.CanonicalResponse, error) {
	return o.turn(ctx, text, false)
}

// Continue asks the provider to resume a truncated answer.
func (o *Orchestrator) Continue(ctx context.Context, text string) (*provider.CanonicalResponse, error) {
	if text == "" {
		text = ContinuePrompt
	}
	return o.turn(ctx, text, true)
}

func (o *Orchestrator) turn(ctx context.Context, text string, continuation bool) (*provider.CanonicalResponse, error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	loading := event.LoadingStateData{IsInProgress: true}
	if !continuation {
		loading.UserInput = text
	}
	o.bus.PublishSync(event.Event{Type: event.ShowLoadingState, Data: loading})

	resp, err := o.exchange(ctx, text, continuation)
	if err != nil {
		o.session.PopLast()
		o.log.Warn().Err(err).Bool("continuation", continuation).Msg("turn failed")
		o.bus.PublishSync(event.Event{
			Type: event.UpdateResultFailed,
			Data: event.ResultFailedData{Data: err.Error(), IsContinuationRequest: continuation},
		})
		return nil, err
	}

	success := event.ResultSuccessData{Data: resp}
	if continuation {
		success.MergedContentForContinuation = resp.MergedContent
	}
	o.bus.PublishSync(event.Event{Type: event.UpdateResultSuccess, Data: success})
	return resp, nil
}

// exchange appends the user turn, performs the primary request and, on
// success, appends the assistant turn and trims the history.
func (o *Orchestrator) exchange(ctx context.Context, text string, continuation bool) (*provider.CanonicalResponse, error) {
	cfg := o.Config()
	o.session.AppendUser(text)

	variant, err := o.providers.ForProvider(cfg, cfg.Provider)
	if err != nil {
		return nil, err
	}
	token, err := o.accessToken(ctx, cfg, variant.Kind())
	if err != nil {
		return nil, err
	}

	in := &provider.BuildInput{
		Endpoint:       cfg.Endpoint(cfg.Provider),
		Messages:       o.session.Messages(),
		SystemMessages: types.SystemMessages(),
		AuthToken:      token,
		ThreadID:       o.session.ThreadID(),
		Params:         provider.ParamsFromConfig(cfg),
		Channel:        request.ChannelPrimary,
		RequestID:      request.NewID(),
	}
	resp, err := o.dispatch(ctx, variant, in)
	if err != nil {
		return nil, err
	}
	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	parsed, err := variant.ParseResponse(&provider.ParseInput{
		Body:   resp.Body,
		IsJSON: resp.IsJSON(),
		Merge:  func() string { return o.session.MergeContinuation(continuation) },
	})
	if err != nil {
		return nil, err
	}

	o.session.AppendAssistant(parsed.Message)
	o.session.RecordUsage(parsed.Raw.TokenUsage)
	if parsed.Raw.ThreadID != "" {
		o.session.SetThreadID(parsed.Raw.ThreadID)
	}
	o.session.Trim(cfg.GetModelMaxTokensLength(), cfg.GetMaxTokens())

	o.log.Debug().
		Str("provider", cfg.Provider).
		Str("finishReason", parsed.FinishReason).
		Int("messages", o.session.Len()).
		Int("continuations", o.session.ContinuationCount()).
		Msg("turn completed")
	return parsed, nil
}

// dispatch builds the request for in and performs it through a controller
// registered for the duration of the call.
func (o *Orchestrator) dispatch(ctx context.Context, variant provider.Variant, in *provider.BuildInput) (*request.Response, error) {
	d, err := variant.BuildRequest(in)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", variant.Kind(), err)
	}
	c, err := o.requests.CreateController(ctx, d.RequestID, d.Channel)
	if err != nil {
		return nil, err
	}
	defer o.requests.RemoveController(d.RequestID, d.Channel)

	return c.FetchData(d)
}

// classifyStatus maps a non-200 response to the user-facing error.
func classifyStatus(resp *request.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		var body struct {
			Error *struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return types.NewTransportError(resp.StatusCode, types.MsgInvalidJSON, err)
		}
		if body.Error != nil && body.Error.Code == "context_length_exceeded" {
			return types.NewProviderError(types.MsgContextLength)
		}
	}
	return types.StatusError(resp.StatusCode, resp.StatusText)
}

// SwitchProvider makes key the active provider and starts a fresh
// conversation.
func (o *Orchestrator) SwitchProvider(key string) error {
	cfg := o.Config()
	if _, ok := cfg.APIProvider[key]; !ok {
		return fmt.Errorf("unknown provider %q", key)
	}
	if cfg.Provider == key {
		o.resetSession()
		return nil
	}
	next := *cfg
	next.Provider = key
	o.SetConfig(&next)
	return nil
}
