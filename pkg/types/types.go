// Package types defines the shared types used across all parlance packages.
//
// These types form the lingua franca between providers, services and the HTTP
// layer. Each package defines its own domain types, but cross-cutting data
// structures live here to avoid circular imports.
package types

// Role values for a [ConversationTurn] and an LLM [Message].
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is a single exchange entry in a conversation history.
// Turns are immutable once created.
type ConversationTurn struct {
	// Role is either RoleUser or RoleAssistant.
	Role string `json:"role"`

	// Text is the message content.
	Text string `json:"text"`
}

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of "system", "user" or "assistant".
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name.
	Name string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum tokens the model can generate in one completion.
	MaxOutputTokens int

	// SupportsStreaming indicates the model supports streaming completions.
	SupportsStreaming bool
}

// TranslationResult is the outcome of a translation request.
type TranslationResult struct {
	// Translated is the reassembled translated text.
	Translated string

	// SourceIPA is the IPA rendering of the original text. Nil unless the
	// source language is English.
	SourceIPA *string

	// TargetIPA is the IPA rendering of the translated text. Nil unless the
	// target language is English.
	TargetIPA *string

	// OriginalAudio and TranslatedAudio are base64-encoded audio payloads.
	// Either may be empty when synthesis failed.
	OriginalAudio   string
	TranslatedAudio string

	// Degraded is set when at least one chunk could not be translated and was
	// passed through verbatim. DegradedChunks lists their indices.
	Degraded       bool
	DegradedChunks []int

	// AudioDegraded is set when any synthesis chunk failed.
	AudioDegraded bool
}

// PronunciationResult is the outcome of a pronunciation assessment.
type PronunciationResult struct {
	Transcription      string
	DurationSeconds    float64
	JobID              string
	AccuracyPercentage float64
}
