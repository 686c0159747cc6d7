package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dkaus1/vscode-ai-ext/internal/event"
	"github.com/dkaus1/vscode-ai-ext/internal/secret"
	"github.com/dkaus1/vscode-ai-ext/internal/storage"
	"github.com/dkaus1/vscode-ai-ext/pkg/types"
)

// Storage key suffixes. Keys are "<workspace>.<suffix>".
const (
	HistoryKey          = "ai-code-companion-history"
	AccessTokenKey      = "ai-code-companion-accesstoc"
	TestingLibrariesKey = "testingLibraries"

	globalScope = "global"
)

// errNoStorage is returned by operations that need persistence when the
// orchestrator was built without a store.
var errNoStorage = errors.New("no storage configured")

// Key returns the workspace-scoped storage key for suffix.
func (o *Orchestrator) Key(suffix string) string {
	scope := o.workspace
	if scope == "" {
		scope = globalScope
	}
	return scope + "." + suffix
}

// LoadHistory restores the session from the persisted snapshot, or starts
// fresh when nothing is stored.
func (o *Orchestrator) LoadHistory(ctx context.Context) error {
	h, err := o.history(ctx)
	if err != nil {
		return err
	}
	if h.IsEmpty() {
		o.log.Debug().Str("key", o.Key(HistoryKey)).Msg("no stored chat history")
	}
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	o.session.Load(h)
	return nil
}

// SaveHistory writes the session into the persisted snapshot, appending
// turns to the opaque UI history.
func (o *Orchestrator) SaveHistory(ctx context.Context, turns []json.RawMessage) error {
	if o.store == nil {
		return errNoStorage
	}
	h, err := o.history(ctx)
	if err != nil {
		return err
	}

	snap := o.session.Snapshot()
	h.Messages = snap.Messages
	h.TokenUsageLedger = snap.TokenUsageLedger
	h.ProviderThreadID = snap.ProviderThreadID
	h.UIHistory = append(h.UIHistory, turns...)

	if err := o.store.Put(ctx, []string{o.Key(HistoryKey)}, h); err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}

// FetchHistory returns the persisted snapshot and emits renderChatHistory.
func (o *Orchestrator) FetchHistory(ctx context.Context) (*types.ChatHistory, error) {
	h, err := o.history(ctx)
	if err != nil {
		return nil, err
	}
	o.bus.PublishSync(event.Event{Type: event.RenderChatHistory, Data: event.ChatHistoryData{Data: h}})
	return h, nil
}

// Workspaces lists the workspaces with a stored conversation, sorted.
func (o *Orchestrator) Workspaces(ctx context.Context) ([]string, error) {
	if o.store == nil {
		return nil, errNoStorage
	}
	keys, err := o.store.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list chat histories: %w", err)
	}

	var out []string
	for _, key := range keys {
		if scope, ok := strings.CutSuffix(key, "."+HistoryKey); ok {
			out = append(out, scope)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ResetHistory deletes the persisted snapshot and resets the session.
func (o *Orchestrator) ResetHistory(ctx context.Context) error {
	if o.store != nil {
		if err := o.store.Delete(ctx, []string{o.Key(HistoryKey)}); err != nil {
			return fmt.Errorf("clear chat history: %w", err)
		}
	}
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	o.session.Reset()
	return nil
}

func (o *Orchestrator) history(ctx context.Context) (*types.ChatHistory, error) {
	h := &types.ChatHistory{}
	if o.store == nil {
		return h, nil
	}
	err := o.store.Get(ctx, []string{o.Key(HistoryKey)}, h)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return h, nil
}

// SetAccessToken encrypts and stores the provider credential.
func (o *Orchestrator) SetAccessToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("access token is empty")
	}
	if o.store == nil {
		return errNoStorage
	}

	c, err := cipherFor(o.Config())
	if err != nil {
		return err
	}
	ct, err := c.Encrypt(token)
	if err != nil {
		return err
	}
	if err := o.store.Put(ctx, []string{o.Key(AccessTokenKey)}, ct); err != nil {
		return fmt.Errorf("store access token: %w", err)
	}
	o.log.Info().Msg("access token stored")
	return nil
}

// RemoveAccessToken deletes the stored credential.
func (o *Orchestrator) RemoveAccessToken(ctx context.Context) error {
	if o.store == nil {
		return errNoStorage
	}
	return o.store.Delete(ctx, []string{o.Key(AccessTokenKey)})
}

// HasStoredAccessToken reports whether a credential is stored for the
// workspace.
func (o *Orchestrator) HasStoredAccessToken(ctx context.Context) bool {
	return o.store != nil && o.store.Exists(ctx, []string{o.Key(AccessTokenKey)})
}

// accessToken resolves the credential for a request. The generic variant
// never needs one; a token from the environment wins over the stored one.
func (o *Orchestrator) accessToken(ctx context.Context, cfg *types.Config, kind types.ProviderKind) (string, error) {
	if kind == types.KindGeneric {
		return "", nil
	}
	if cfg.AccessToken != "" {
		return cfg.AccessToken, nil
	}
	if o.store == nil {
		return "", types.NewAuthError(0, types.MsgNoAccessToken)
	}

	var ct secret.Ciphertext
	if err := o.store.Get(ctx, []string{o.Key(AccessTokenKey)}, &ct); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", types.NewAuthError(0, types.MsgNoAccessToken)
		}
		return "", fmt.Errorf("load access token: %w", err)
	}

	c, err := cipherFor(cfg)
	if err != nil {
		return "", err
	}
	token, err := c.Decrypt(&ct)
	if err != nil {
		return "", fmt.Errorf("decrypt access token: %w", err)
	}
	return token, nil
}

func cipherFor(cfg *types.Config) (*secret.Cipher, error) {
	key := types.DefaultEncryptionKey
	if cfg != nil && cfg.EncryptionKey != "" {
		key = cfg.EncryptionKey
	}
	return secret.New(key)
}
