package ai

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pablasso/crewflow/internal/logging"
	"github.com/pablasso/crewflow/internal/plan"
)

// Recorder persists every model response. *plan.RunLog implements it.
type Recorder interface {
	Exchange(role, text string) error
}

// Presenter shows model responses to the user. *display.Printer implements it.
type Presenter interface {
	Show(role, text string)
}

// Options are shared by every role agent.
type Options struct {
	Client      ChatClient
	Recorder    Recorder
	Presenter   Presenter
	Logger      logrus.FieldLogger
	Temperature float64
}

// Agent is a named persona holding one chat history per conversation id.
// Each history starts with the persona's system prompt.
type Agent struct {
	name   string
	system string
	opts   Options
	logger logrus.FieldLogger

	mu        sync.Mutex
	histories map[string][]Message
}

// NewAgent creates an agent. Options.Client is required.
func NewAgent(name, systemPrompt string, opts Options) *Agent {
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	return &Agent{
		name:      name,
		system:    strings.TrimSpace(systemPrompt),
		opts:      opts,
		logger:    logging.OrDiscard(opts.Logger).WithField("agent", name),
		histories: make(map[string][]Message),
	}
}

// Name returns the agent's role name.
func (a *Agent) Name() string {
	return a.name
}

// History returns a copy of a conversation, seeded with the system prompt if
// it does not exist yet.
func (a *Agent) History(conversationID string) []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.historyLocked(conversationID)...)
}

func (a *Agent) historyLocked(conversationID string) []Message {
	h, ok := a.histories[conversationID]
	if !ok {
		h = []Message{{Role: "system", Content: a.system}}
		a.histories[conversationID] = h
	}
	return h
}

// Reset drops one conversation, or all of them when conversationID is empty.
func (a *Agent) Reset(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if conversationID == "" {
		a.histories = make(map[string][]Message)
		return
	}
	delete(a.histories, conversationID)
}

// Send appends message to the conversation, asks the model, records the reply
// and returns it.
func (a *Agent) Send(ctx context.Context, conversationID, message string, jsonMode bool) (string, error) {
	if a.opts.Client == nil {
		return "", errors.New("no chat client configured")
	}

	a.mu.Lock()
	history := append(a.historyLocked(conversationID), Message{Role: "user", Content: message})
	a.histories[conversationID] = history
	request := ChatRequest{
		Messages:    append([]Message(nil), history...),
		Temperature: a.opts.Temperature,
		JSON:        jsonMode,
	}
	a.mu.Unlock()

	a.logger.WithField("conversation", conversationID).Debug("sending message")
	reply, err := a.opts.Client.Complete(ctx, request)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.histories[conversationID] = append(a.histories[conversationID], Message{Role: "assistant", Content: reply})
	a.mu.Unlock()

	a.publish(reply)
	return reply, nil
}

func (a *Agent) publish(reply string) {
	if a.opts.Presenter != nil {
		a.opts.Presenter.Show(a.name, reply)
	}
	if a.opts.Recorder != nil {
		if err := a.opts.Recorder.Exchange(a.name, reply); err != nil {
			a.logger.WithError(err).Warn("failed to record exchange")
		}
	}
}

// sendJSON sends message in JSON mode and decodes the reply with parse.
// Anything that cannot be decoded is a *plan.ParseError.
func sendJSON[T any](ctx context.Context, a *Agent, conversationID, message, kind string, parse func([]byte) (T, error)) (T, error) {
	var zero T
	reply, err := a.Send(ctx, conversationID, message, true)
	if err != nil {
		return zero, err
	}
	data, err := ExtractJSON(reply)
	if err != nil {
		return zero, &plan.ParseError{Kind: kind, Reason: "no usable JSON object", Err: err}
	}
	return parse(data)
}
