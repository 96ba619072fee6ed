package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dropflyai/voicefly/services/voice-webhook/internal/contextcache"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/routing"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/toolcalls"
)

// WebhookHandler is the Vapi-facing surface: it resolves the tenant from
// the dialed number, dispatches tool calls, and answers the first
// conversation turn with a greeting.
type WebhookHandler struct {
	resolver   *routing.Resolver
	dispatcher *toolcalls.Dispatcher
	contexts   *contextcache.Loader
	logger     *slog.Logger
	version    string
	features   []string
}

func NewWebhookHandler(resolver *routing.Resolver, dispatcher *toolcalls.Dispatcher, contexts *contextcache.Loader, logger *slog.Logger, version string) *WebhookHandler {
	return &WebhookHandler{
		resolver:   resolver,
		dispatcher: dispatcher,
		contexts:   contexts,
		logger:     logger,
		version:    version,
		features: []string{
			"phone-routing",
			"appointment-booking",
			"appointment-management",
			"automation-events",
		},
	}
}

type vapiRequest struct {
	Message vapiMessage `json:"message"`
	Call    vapiCall    `json:"call"`
}

type vapiMessage struct {
	Type         string            `json:"type"`
	Turn         int               `json:"turn"`
	ToolCalls    []vapiToolCall    `json:"toolCalls"`
	FunctionCall *vapiFunctionCall `json:"functionCall"`
}

type vapiToolCall struct {
	ID       string           `json:"id"`
	Function vapiFunctionCall `json:"function"`
}

// Arguments arrives either as a JSON object or as a string containing JSON,
// depending on the assistant runtime version.
type vapiFunctionCall struct {
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	Parameters json.RawMessage `json:"parameters"`
}

type vapiCall struct {
	ID       string `json:"id"`
	Customer struct {
		Number string `json:"number"`
	} `json:"customer"`
	AssistantPhoneNumber string `json:"assistantPhoneNumber"`
}

type toolCallResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

func (h *WebhookHandler) HandleVapi(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req vapiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_request",
			"message": "I'm sorry, I couldn't process that request.",
		})
		return
	}

	ctx := r.Context()
	businessID, err := h.resolver.Resolve(ctx, req.Call.AssistantPhoneNumber)
	if err != nil {
		h.logger.Warn("business resolution failed",
			"call_id", req.Call.ID, "assistant_phone", req.Call.AssistantPhoneNumber, "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid business ID"})
		return
	}

	switch {
	case len(req.Message.ToolCalls) > 0:
		results := make([]toolCallResult, 0, len(req.Message.ToolCalls))
		for _, tc := range req.Message.ToolCalls {
			args, err := decodeArgs(tc.Function.Arguments)
			if err != nil {
				h.logger.Warn("tool call arguments invalid", "call_id", req.Call.ID, "function", tc.Function.Name, "err", err)
				args = toolcalls.Args{}
			}
			results = append(results, toolCallResult{
				ToolCallID: tc.ID,
				Result:     h.dispatcher.Dispatch(ctx, tc.Function.Name, args, businessID),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})

	case req.Message.FunctionCall != nil:
		raw := req.Message.FunctionCall.Parameters
		if len(raw) == 0 {
			raw = req.Message.FunctionCall.Arguments
		}
		args, err := decodeArgs(raw)
		if err != nil {
			h.logger.Warn("function call arguments invalid", "call_id", req.Call.ID, "function", req.Message.FunctionCall.Name, "err", err)
			args = toolcalls.Args{}
		}
		writeJSON(w, http.StatusOK, h.dispatcher.Dispatch(ctx, req.Message.FunctionCall.Name, args, businessID))

	case isFirstTurn(req.Message):
		writeJSON(w, http.StatusOK, map[string]string{"message": h.greeting(r, businessID)})

	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "received",
			"businessId": businessID,
		})
	}
}

// isFirstTurn spots the conversation opener: Vapi either asks explicitly
// (assistant-request) or streams the first transcript turn.
func isFirstTurn(m vapiMessage) bool {
	if m.Type == "assistant-request" {
		return true
	}
	return m.Type == "transcript" && m.Turn <= 1
}

func (h *WebhookHandler) greeting(r *http.Request, businessID string) string {
	if bc, ok := h.contexts.Get(r.Context(), businessID); ok && bc.Business.Name != "" {
		return fmt.Sprintf("Thank you for calling %s! How can I help you today?", bc.Business.Name)
	}
	return "Thank you for calling! How can I help you today?"
}

func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"features":  h.features,
	})
}

func decodeArgs(raw json.RawMessage) (toolcalls.Args, error) {
	if len(raw) == 0 {
		return toolcalls.Args{}, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		raw = json.RawMessage(inner)
		if len(raw) == 0 {
			return toolcalls.Args{}, nil
		}
	}
	var args toolcalls.Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
