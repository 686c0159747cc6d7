package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"github.com/dkaus1/vscode-ai-ext/internal/provider"
	"github.com/dkaus1/vscode-ai-ext/internal/request"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// fanOutResult is the settled outcome of one inline request.
type fanOutResult struct {
	resp *provider.CanonicalResponse
	err  error
}

// FanOut sends every non-blank prompt as an independent single-shot
// request in the inline channel and combines the answers that finished
// with "stop". limit caps concurrent requests; zero means unlimited. One
// failing request never cancels its siblings.
func (o *Orchestrator) FanOut(ctx context.Context, prompts []string, limit int) (*provider.CanonicalResponse, error) {
	cfg := o.Config()
	variant, err := o.providers.ForProvider(cfg, cfg.Provider)
	if err != nil {
		return nil, err
	}
	token, err := o.accessToken(ctx, cfg, variant.Kind())
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if strings.TrimSpace(p) != "" {
			items = append(items, p)
		}
	}

	// Controllers are registered up front so a channel abort also reaches
	// requests still waiting for a slot.
	controllers := make([]*request.Controller, len(items))
	for i := range items {
		c, err := o.requests.CreateController(ctx, fmt.Sprintf("Controller_%d_%s", i+1, request.NewID()), request.ChannelInline)
		if err != nil {
			o.releaseAll(controllers)
			return nil, err
		}
		controllers[i] = c
	}

	results := make([]fanOutResult, len(items))
	g := new(errgroup.Group)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, prompt := range items {
		g.Go(func() error {
			resp, err := o.inlineCall(controllers[i], variant, cfg, token, prompt)
			results[i] = fanOutResult{resp: resp, err: err}
			return nil
		})
	}
	_ = g.Wait()
	o.releaseAll(controllers)

	return combine(results)
}

func (o *Orchestrator) releaseAll(controllers []*request.Controller) {
	for _, c := range controllers {
		if c != nil {
			o.requests.RemoveController(c.ID(), c.Channel())
		}
	}
}

// inlineCall performs one stateless request. Inline prompts carry only
// the system preamble and the prompt, never the conversation.
func (o *Orchestrator) inlineCall(c *request.Controller, variant provider.Variant, cfg *types.Config, token, prompt string) (*provider.CanonicalResponse, error) {
	msgs := append(types.SystemMessages(), &schema.Message{Role: schema.User, Content: prompt})
	d, err := variant.BuildRequest(&provider.BuildInput{
		Endpoint:       cfg.Endpoint(cfg.Provider),
		Messages:       msgs,
		SystemMessages: types.SystemMessages(),
		AuthToken:      token,
		Inline:         true,
		Params:         provider.ParamsFromConfig(cfg),
		Channel:        c.Channel(),
		RequestID:      c.ID(),
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.FetchData(d)
	if err != nil {
		o.log.Warn().Err(err).Str("requestID", c.ID()).Msg("inline request failed")
		return nil, err
	}
	if err := classifyStatus(resp); err != nil {
		o.log.Warn().Err(err).Str("requestID", c.ID()).Msg("inline request rejected")
		return nil, err
	}
	return variant.ParseResponse(&provider.ParseInput{Body: resp.Body, IsJSON: resp.IsJSON(), Inline: true})
}

// combine joins the settled results. A lone aborted request reports the
// abort; otherwise every "stop" answer is joined with a blank line and,
// when none qualifies, the first credential problem seen annotates the
// no-response error.
func combine(results []fanOutResult) (*provider.CanonicalResponse, error) {
	if len(results) == 1 && types.IsAborted(results[0].err) {
		return nil, types.NewAbortError(types.MsgAbortedByUser)
	}

	var parts []string
	var first *provider.CanonicalResponse
	detail := ""
	for _, r := range results {
		if r.err != nil {
			if detail == "" {
				detail = types.AuthDetail(r.err)
			}
			continue
		}
		if r.resp == nil || r.resp.FinishReason != types.FinishStop {
			continue
		}
		if first == nil {
			first = r.resp
		}
		parts = append(parts, r.resp.Content())
	}

	if first == nil {
		return nil, types.NewNoResponseError(detail)
	}

	content := strings.Join(parts, "\n\n")
	msg := types.CloneMessage(first.Message)
	msg.Content = content
	return &provider.CanonicalResponse{
		Message:       msg,
		FinishReason:  types.FinishStop,
		MergedContent: content,
		Raw:           provider.Raw{Extra: first.Raw.Extra},
	}, nil
}
