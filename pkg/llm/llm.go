// Package llm generates assistant replies with a large language model.
//
// Providers (Gemini, any OpenAI-compatible endpoint) implement the narrow
// Provider interface. The Responder builds the prompt from a system
// instruction, recent conversation history and the current user text, calls
// the provider under a timeout, and always comes back with something to say:
// when generation fails the result carries a contextual fallback reply.
//
// Example usage:
//
//	provider, _ := llm.NewGemini(ctx, llm.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
//	responder := llm.NewResponder(provider)
//
//	result := responder.Generate(ctx, llm.GenerateRequest{Text: "Hello!"})
//	fmt.Println(result.Reply())
package llm

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	// Chat generates a reply for the conversation in req.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Available reports whether the backend has usable credentials.
	Available() bool

	// Name identifies the backend in logs and health output.
	Name() string
}

// Role defines message roles in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation as sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// System is the instruction that frames every reply.
	System string

	// Messages is the conversation, oldest first, ending with the user turn.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	Text         string
	Model        string
	FinishReason string
	LatencyMs    int64
}
