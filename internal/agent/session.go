// SPDX-License-Identifier: AGPL-3.0-only
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/config"
	"github.com/velonavasiliki/youtube-agent/internal/errors"
	"github.com/velonavasiliki/youtube-agent/internal/logging"
	"github.com/velonavasiliki/youtube-agent/internal/model"
)

// ClarificationMessage is relayed verbatim to the user when a supplied date
// fails validation.
const ClarificationMessage = `I'm sorry, I don't understand which date you prefer. Could you tell me the date in "m/d/Y" format, e.g. 05/23/2025?`

// systemPrompt is the fixed instruction prepended to every completion call.
var systemPrompt = `You are a personal AI assistant. Your purpose is to help the user search for videos on youtube.
- You must use the ` + "`search_videos`" + ` tool whenever the user asks for a video search.
- Respond to the user in a friendly and helpful manner.
- If the user asks for dates, you must verify that the date format is correct, that is, mm/dd/yyyy,
  using the tool ` + "`validate_date`" + `. If the tool returns false, tell the user exactly:
  '` + ClarificationMessage + `'
- Use the ` + "`get_transcripts`" + ` tool when the user asks for a video's transcript or a summary of its content.
- Always provide a helpful response, don't just repeat what the user said.`

// turnState enumerates the states of the turn loop.
type turnState int

const (
	stateAwaitingDecision turnState = iota
	stateAwaitingRoute
	stateDispatching
	stateDone
)

// route is the routing step's verdict on the latest message.
type route string

const (
	routeDispatch  route = "dispatch"
	routeTerminate route = "terminate"
)

// routeAfter inspects the most recent message and decides whether pending
// tool calls need dispatching or the turn is over. Pure function of its
// argument.
func routeAfter(msg *Message) route {
	if msg != nil && msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
		return routeDispatch
	}
	return routeTerminate
}

// newChatProvider builds the appropriate ChatProvider based on cfg.AI.Provider.
func newChatProvider(cfg *config.Config) (ChatProvider, error) {
	provider := strings.ToLower(cfg.AI.Provider)
	switch provider {
	case "anthropic":
		apiKey := cfg.AI.AnthropicAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("Anthropic API key is not set in configuration")
		}
		return NewAnthropicProvider(apiKey), nil
	default: // "openai" or empty
		apiKey := cfg.AI.OpenAIAPIKey
		if apiKey == "" {
			apiKey = cfg.AI.APIKey
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OpenAI API key is not set in configuration")
		}
		return NewOpenAIProvider(apiKey, cfg.AI.BaseURL), nil
	}
}

// Session owns one conversation: its append-only message history and the
// turn loop that advances it. A Session is not safe for concurrent use;
// concurrent conversations each get their own Session.
type Session struct {
	id         string
	cfg        *config.Config
	provider   ChatProvider
	dispatcher ToolDispatcher
	turnStore  model.TurnStore
	logger     *logging.Logger
	messages   []Message
}

// NewSession creates a session with the provider selected by cfg. turnStore
// may be nil to skip history persistence.
func NewSession(cfg *config.Config, dispatcher ToolDispatcher, turnStore model.TurnStore, logger *logging.Logger) (*Session, error) {
	provider, err := newChatProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewSessionWithProvider(cfg, provider, dispatcher, turnStore, logger), nil
}

// NewSessionWithProvider creates a session around an explicit provider.
func NewSessionWithProvider(cfg *config.Config, provider ChatProvider, dispatcher ToolDispatcher, turnStore model.TurnStore, logger *logging.Logger) *Session {
	return &Session{
		id:         fmt.Sprintf("session-%d", time.Now().UnixNano()),
		cfg:        cfg,
		provider:   provider,
		dispatcher: dispatcher,
		turnStore:  turnStore,
		logger:     logger,
	}
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// RunTurn drives one conversation turn: the user input is appended, then the
// loop alternates decision, routing and dispatch until the routing step
// terminates or the dispatch-cycle bound is hit. It returns the final
// assistant text.
//
// On any failure the messages appended so far stay in the conversation, with
// tool results filled in for every emitted tool call, so the session remains
// usable for the next turn.
func (s *Session) RunTurn(ctx context.Context, userInput string) (string, error) {
	record := &model.TurnRecord{
		SessionID: s.id,
		Prompt:    userInput,
		StartTime: time.Now(),
	}

	s.messages = append(s.messages, Message{Role: RoleUser, Content: userInput})

	reply, cycles, err := s.runLoop(ctx)

	record.EndTime = time.Now()
	record.Duration = record.EndTime.Sub(record.StartTime).String()
	record.Reply = reply
	record.ToolCycles = cycles
	if err != nil {
		record.Error = err.Error()
	}
	model.PersistAndLogTurn(s.turnStore, record, s.logger)

	return reply, err
}

func (s *Session) runLoop(ctx context.Context) (reply string, cycles int, err error) {
	tools := s.dispatcher.Definitions()

	var last *Message
	state := stateAwaitingDecision

	for state != stateDone {
		switch state {
		case stateAwaitingDecision:
			resp, cerr := s.complete(ctx, tools)
			if cerr != nil {
				return "", cycles, cerr
			}
			s.messages = append(s.messages, *resp)
			last = &s.messages[len(s.messages)-1]
			state = stateAwaitingRoute

		case stateAwaitingRoute:
			if routeAfter(last) == routeDispatch {
				state = stateDispatching
			} else {
				reply = last.Content
				state = stateDone
			}

		case stateDispatching:
			if cycles >= s.cfg.AI.MaxToolIterations {
				// Fill in a failure result for every pending tool
				// call so the request/result correspondence holds
				// and the conversation stays usable.
				s.appendFailureResults(last, errors.ErrTooManyToolCycles.Error())
				s.logger.Errorf("Turn exceeded maximum dispatch cycles (%d)", s.cfg.AI.MaxToolIterations)
				return "", cycles, fmt.Errorf("%w (%d)", errors.ErrTooManyToolCycles, s.cfg.AI.MaxToolIterations)
			}
			cycles++
			s.dispatch(ctx, last)
			state = stateAwaitingDecision
		}
	}

	s.logger.Debugf("Turn completed after %d dispatch cycles", cycles)
	return reply, cycles, nil
}

// complete runs the decision step: one completion call over the full
// conversation, bounded by the configured request timeout.
func (s *Session) complete(ctx context.Context, tools []ToolDefinition) (*Message, error) {
	callCtx := ctx
	if s.cfg.AI.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.AI.RequestTimeout)
		defer cancel()
	}
	resp, err := s.provider.CreateCompletion(callCtx, s.cfg.AI.Model, systemPrompt, s.messages, tools)
	if err != nil {
		s.logger.Errorf("Chat completion failed: %v", err)
		return nil, errors.ExternalCall("chat completion", err)
	}
	return resp, nil
}

// dispatch executes the assistant's tool calls sequentially, in emission
// order, appending exactly one tool result per call. Tool failures become
// textual results; they never abort the turn.
func (s *Session) dispatch(ctx context.Context, assistant *Message) {
	for _, call := range assistant.ToolCalls {
		s.logger.Debugf("Dispatching tool call %s (%s)", call.Name, call.ID)
		out, err := s.dispatchOne(ctx, call)
		if err != nil {
			s.logger.Warnf("Tool call %s failed: %v", call.Name, err)
			out = "ERROR: " + err.Error()
		}
		s.messages = append(s.messages, Message{
			Role:       RoleTool,
			Content:    out,
			ToolCallID: call.ID,
		})
	}
}

func (s *Session) dispatchOne(ctx context.Context, call ToolCall) (string, error) {
	callCtx := ctx
	if s.cfg.AI.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.AI.RequestTimeout)
		defer cancel()
	}
	return s.dispatcher.Dispatch(callCtx, call)
}

// appendFailureResults answers every tool call on the assistant message with
// the same failure text.
func (s *Session) appendFailureResults(assistant *Message, failure string) {
	if assistant == nil {
		return
	}
	for _, call := range assistant.ToolCalls {
		s.messages = append(s.messages, Message{
			Role:       RoleTool,
			Content:    "ERROR: " + failure,
			ToolCallID: call.ID,
		})
	}
}
