// Package model exposes the fixed set of generative backends that can
// answer questions about a document.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docqa/pkg/config"
	"github.com/docker/docqa/pkg/environment"
	"github.com/docker/docqa/pkg/model/provider"
	"github.com/docker/docqa/pkg/model/provider/options"
)

// Backend names a generative backend.
type Backend string

const (
	GPT      Backend = "gpt"
	Gemini   Backend = "gemini"
	DeepSeek Backend = "deepseek"
	Llama    Backend = "llama"
	Claude   Backend = "claude"
)

var ErrUnknownBackend = errors.New("unknown model backend")

var backends = []Backend{GPT, Gemini, DeepSeek, Llama, Claude}

const basePrompt = "Você é um assistente especializado em análise de documentos PDF."

var systemPrompts = map[Backend]string{
	GPT:      basePrompt + " Seja claro e conciso e não é necessário utilizar texto em negrito ou itálico.",
	Gemini:   basePrompt + " Seja claro e conciso.",
	DeepSeek: basePrompt + " Não tente deixar o texto bonito utilizando negrito, itálico, etc.",
	Llama:    basePrompt + " Responda de forma clara e concisa.",
	Claude:   basePrompt + " Seja claro e conciso e não utilize formatação markdown.",
}

var labels = map[Backend]string{
	GPT:      "GPT-4o Mini",
	Gemini:   "Gemini-2.5-flash",
	DeepSeek: "DeepSeek R1",
	Llama:    "LLaMA 3.1",
	Claude:   "Claude 3.5 Haiku",
}

// Backends lists every supported backend.
func Backends() []Backend {
	return append([]Backend(nil), backends...)
}

// ParseBackend matches name against the supported backends, ignoring case
// and surrounding spaces. Partial names do not match.
func ParseBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, b := range backends {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Label is the human readable name shown next to answers.
func (b Backend) Label() string {
	if l, ok := labels[b]; ok {
		return l
	}
	return string(b)
}

// SystemPrompt returns the instructions sent with every question.
func (b Backend) SystemPrompt() string {
	return systemPrompts[b]
}

// Completer answers a prompt.
type Completer interface {
	Backend() Backend
	Complete(ctx context.Context, prompt string) (string, error)
}

type completer struct {
	backend Backend
	chat    provider.ChatProvider
}

// New creates a Completer for backend using the model configured for it
// in cfg, or the built-in default when cfg has none.
func New(ctx context.Context, backend Backend, cfg *config.Config, env environment.Provider, opts ...options.Opt) (Completer, error) {
	if _, ok := systemPrompts[backend]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	modelCfg, ok := config.DefaultModels()[string(backend)]
	if cfg != nil {
		if configured, found := cfg.Models[string(backend)]; found {
			modelCfg, ok = configured, true
		}
	}
	if !ok {
		return nil, fmt.Errorf("no model configured for %s", backend)
	}

	chat, err := provider.NewChat(ctx, &modelCfg, env, opts...)
	if err != nil {
		return nil, err
	}

	slog.Debug("Model backend ready", "backend", backend, "id", chat.ID())
	return &completer{backend: backend, chat: chat}, nil
}

func (c *completer) Backend() Backend {
	return c.backend
}

func (c *completer) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := c.chat.CreateChatCompletion(ctx, c.backend.SystemPrompt(), prompt)
	if err != nil {
		return "", fmt.Errorf("failed to query %s: %w", c.backend.Label(), err)
	}
	return StripThinking(answer), nil
}

// StripThinking drops the reasoning block some local models emit before
// their answer, keeping only what follows the last closing tag.
func StripThinking(answer string) string {
	if strings.Contains(answer, "<think>") {
		if i := strings.LastIndex(answer, "</think>"); i >= 0 {
			answer = answer[i+len("</think>"):]
		}
	}
	return strings.TrimSpace(answer)
}
