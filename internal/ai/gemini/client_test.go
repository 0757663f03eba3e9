package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/job-ranker/internal/ai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

const testModel = "gemini-test"

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

// newTestGenerator records every backoff delay into waited.
func newTestGenerator(chats *fakeChatCreator, maxRetries int, waited *[]time.Duration) *Generator {
	return &Generator{
		chats:      chats,
		model:      testModel,
		maxRetries: maxRetries,
		logger:     zap.NewNop(),
		wait: func(_ context.Context, d time.Duration) error {
			if waited != nil {
				*waited = append(*waited, d)
			}
			return nil
		},
	}
}

func TestGeneratorSendsSystemInstructionAndMessage(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue(testModel, nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	chats.enqueue(testModel, textResponse(`{"score": 90}`), nil)

	output, err := newTestGenerator(chats, 2, nil).GenerateContent(context.Background(), "system", "  message  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != `{"score": 90}` {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(chats.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(chats.calls))
	}
	for _, call := range chats.calls {
		if call.model != testModel {
			t.Fatalf("unexpected model %q", call.model)
		}
		if call.config == nil || call.config.ResponseMIMEType != "application/json" {
			t.Fatalf("expected json response mime type, got %+v", call.config)
		}
		if call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "system" {
			t.Fatalf("unexpected system instruction: %+v", call.config.SystemInstruction)
		}
		if len(call.chat.messages) != 1 || call.chat.messages[0] != "message" {
			t.Fatalf("unexpected chat message: %+v", call.chat.messages)
		}
	}
}

func TestGeneratorRetryPolicy(t *testing.T) {
	internal := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	unavailable := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}

	tests := []struct {
		name       string
		maxRetries int
		errs       []error
		wantErr    bool
		wantCalls  int
		wantWaits  []time.Duration
	}{
		{
			name:       "backs off exponentially on server errors",
			maxRetries: 3,
			errs:       []error{internal, unavailable},
			wantCalls:  3,
			wantWaits:  []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:       "stops after retries exhausted",
			maxRetries: 2,
			errs:       []error{internal, internal},
			wantErr:    true,
			wantCalls:  2,
			wantWaits:  []time.Duration{time.Second},
		},
		{
			name:       "short quota delay is honoured",
			maxRetries: 3,
			errs: []error{genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "Please retry in 2.5s.",
			}},
			wantCalls: 2,
			wantWaits: []time.Duration{2500 * time.Millisecond},
		},
		{
			name:       "long quota delay is not retried",
			maxRetries: 3,
			errs: []error{genai.APIError{
				Code:    http.StatusTooManyRequests,
				Status:  "RESOURCE_EXHAUSTED",
				Message: "quota exhausted, retry after 60 seconds",
			}},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:       "bad request is permanent",
			maxRetries: 3,
			errs:       []error{genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
			wantErr:    true,
			wantCalls:  1,
		},
		{
			name:       "non api errors are permanent",
			maxRetries: 3,
			errs:       []error{errors.New("dial tcp: connection refused")},
			wantErr:    true,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chats := newFakeChatCreator()
			for _, err := range tt.errs {
				chats.enqueue(testModel, nil, err)
			}
			chats.enqueue(testModel, textResponse("ok"), nil)

			var waited []time.Duration
			_, err := newTestGenerator(chats, tt.maxRetries, &waited).GenerateContent(context.Background(), "sys", "msg")
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if len(chats.calls) != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, len(chats.calls))
			}
			if len(waited) != len(tt.wantWaits) {
				t.Fatalf("expected waits %v, got %v", tt.wantWaits, waited)
			}
			for i := range waited {
				if waited[i] != tt.wantWaits[i] {
					t.Fatalf("expected waits %v, got %v", tt.wantWaits, waited)
				}
			}
		})
	}
}

func TestGeneratorStopsWhenWaitIsCancelled(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue(testModel, nil, genai.APIError{Code: http.StatusBadGateway, Status: "BAD_GATEWAY"})

	g := newTestGenerator(chats, 3, nil)
	g.wait = func(ctx context.Context, _ time.Duration) error { return context.Canceled }

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeneratorRejectsEmptyInputAndResponse(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue(testModel, &genai.GenerateContentResponse{}, nil)
	g := newTestGenerator(chats, 1, nil)

	if _, err := g.GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatalf("expected error for empty message")
	}

	if _, err := g.GenerateContent(context.Background(), "sys", "msg"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected empty response error, got %v", err)
	}

	var nilGen *Generator
	if _, err := nilGen.GenerateContent(context.Background(), "sys", "msg"); err == nil {
		t.Fatalf("expected error for nil generator")
	}
	if nilGen.Model() != "" {
		t.Fatalf("expected empty model for nil generator")
	}
}
