package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/dkaus1/vscode-ai-ext/internal/request"
)

// Inbound command names.
const (
	CmdSend                  = "send"
	CmdContinue              = "continueResponse_send"
	CmdFetchTestingLibraries = "executeFetchTestingLibraries"
	CmdAbort                 = "abortAPIRequest"
	CmdUpdateChatHistory     = "updateChatHistory"
	CmdFetchChatHistory      = "fetchChatHistory"
	CmdResetChatHistory      = "resetChatHistory"
	CmdInlinePrompt          = "inlinePrompt"
	CmdReviewChanges         = "reviewChanges"
)

// AllChannels in an abort command targets every channel.
const AllChannels = "*"

// ErrUnknownCommand is returned for commands missing from the table.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one inbound protocol message. Each command reads only the
// fields listed for it:
//
//	send                          text, selectedText
//	continueResponse_send         text
//	executeFetchTestingLibraries  userCommand, languageId, text
//	abortAPIRequest               message, channel
//	updateChatHistory             turns
//	inlinePrompt                  text
type Command struct {
	Command      string            `json:"command"`
	Text         string            `json:"text,omitempty"`
	SelectedText string            `json:"selectedText,omitempty"`
	Message      string            `json:"message,omitempty"`
	Channel      string            `json:"channel,omitempty"`
	UserCommand  string            `json:"userCommand,omitempty"`
	LanguageID   string            `json:"languageId,omitempty"`
	Turns        []json.RawMessage `json:"turns,omitempty"`
}

// Handler handles one inbound command.
type Handler func(ctx context.Context, cmd *Command) error

func (o *Orchestrator) commandTable() map[string]Handler {
	return map[string]Handler{
		CmdSend:                  o.handleSend,
		CmdContinue:              o.handleContinue,
		CmdFetchTestingLibraries: o.handleFetchTestingLibraries,
		CmdAbort:                 o.handleAbort,
		CmdUpdateChatHistory:     o.handleUpdateChatHistory,
		CmdFetchChatHistory:      o.handleFetchChatHistory,
		CmdResetChatHistory:      o.handleResetChatHistory,
		CmdInlinePrompt:          o.handleInlinePrompt,
		CmdReviewChanges:         o.handleReviewChanges,
	}
}

// Commands returns the handled command names, sorted.
func (o *Orchestrator) Commands() []string {
	names := make([]string, 0, len(o.handlers))
	for name := range o.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes cmd to its handler. Failures of the request flows are
// also reported as updateResultFailed events; the returned error is for
// the transport.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd *Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	h, ok := o.handlers[cmd.Command]
	if !ok {
		if s := o.suggest(cmd.Command); s != "" {
			return fmt.Errorf("%w: %q, did you mean %q?", ErrUnknownCommand, cmd.Command, s)
		}
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}

	o.log.Debug().Str("command", cmd.Command).Msg("dispatching command")
	return h(ctx, cmd)
}

// suggest returns the closest known command within a small edit distance.
func (o *Orchestrator) suggest(name string) string {
	best, bestDist := "", len(name)/2+1
	for _, known := range o.Commands() {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(known))
		if d < bestDist {
			best, bestDist = known, d
		}
	}
	return best
}

func (o *Orchestrator) handleSend(ctx context.Context, cmd *Command) error {
	text := cmd.Text
	if strings.TrimSpace(cmd.SelectedText) != "" {
		text = text + " \n\n" + cmd.SelectedText
	}
	_, err := o.Send(ctx, text)
	return err
}

func (o *Orchestrator) handleContinue(ctx context.Context, cmd *Command) error {
	_, err := o.Continue(ctx, cmd.Text)
	return err
}

func (o *Orchestrator) handleFetchTestingLibraries(ctx context.Context, cmd *Command) error {
	_, err := o.FetchTestingLibraries(ctx, cmd.UserCommand, cmd.LanguageID, cmd.Text)
	return err
}

func (o *Orchestrator) handleAbort(ctx context.Context, cmd *Command) error {
	var n int
	switch cmd.Channel {
	case AllChannels:
		n = o.requests.AbortAll(cmd.Message)
	case "":
		n = o.requests.AbortChannel(request.ChannelPrimary, cmd.Message)
	default:
		n = o.requests.AbortChannel(cmd.Channel, cmd.Message)
	}
	o.log.Info().Str("channel", cmd.Channel).Int("aborted", n).Msg("aborted requests")
	return nil
}

func (o *Orchestrator) handleUpdateChatHistory(ctx context.Context, cmd *Command) error {
	return o.SaveHistory(ctx, cmd.Turns)
}

func (o *Orchestrator) handleFetchChatHistory(ctx context.Context, cmd *Command) error {
	_, err := o.FetchHistory(ctx)
	return err
}

func (o *Orchestrator) handleResetChatHistory(ctx context.Context, cmd *Command) error {
	return o.ResetHistory(ctx)
}

func (o *Orchestrator) handleInlinePrompt(ctx context.Context, cmd *Command) error {
	_, err := o.InlinePrompt(ctx, cmd.Text)
	return err
}

func (o *Orchestrator) handleReviewChanges(ctx context.Context, cmd *Command) error {
	_, err := o.Review(ctx)
	return err
}
