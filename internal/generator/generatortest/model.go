// Package generatortest provides a scripted chat model for tests.
package generatortest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/datasync-solution/bmc-analyst/internal/llm"
)

// Reply is one scripted model turn: Content is returned unless Err is set.
type Reply struct {
	Content string
	Err     error
}

// ErrExhausted is returned once every scripted reply has been consumed.
var ErrExhausted = errors.New("scripted model: no replies left")

// ScriptedModel implements model.BaseChatModel by replaying replies in order.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewScriptedModel returns a model that answers with the given contents.
func NewScriptedModel(contents ...string) *ScriptedModel {
	m := &ScriptedModel{}
	for _, c := range contents {
		m.replies = append(m.replies, Reply{Content: c})
	}
	return m
}

// Push appends replies to the script.
func (m *ScriptedModel) Push(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Prompts returns the user prompts received so far.
func (m *ScriptedModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls reports how many requests the model has served.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *ScriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prompt string
	if len(input) > 0 {
		prompt = input[len(input)-1].Content
	}
	m.prompts = append(m.prompts, prompt)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.replies) == 0 {
		return nil, ErrExhausted
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return &schema.Message{Role: schema.Assistant, Content: r.Content}, nil
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("scripted model: streaming not supported")
}

// Factory returns a chat model factory that always yields m.
func (m *ScriptedModel) Factory() func(ctx context.Context, cfg llm.Config) (model.BaseChatModel, error) {
	return func(ctx context.Context, cfg llm.Config) (model.BaseChatModel, error) {
		return m, nil
	}
}
