package constant

import "time"

// Prompts sent to the completion provider.
const (
	ChatSystemPrompt = "You are a helpful assistant that provides concise, accurate information."
	FileSystemPrompt = "You are an AI assistant that analyzes files and provides helpful insights."
)

// Fallback texts returned when the upstream completion call fails. The
// conversation always gains a reply; upstream failures are never surfaced
// as hard errors on these paths.
const (
	FallbackReply    = "I apologize, but I'm having trouble processing your request right now."
	FallbackAnalysis = "I apologize, but I'm having trouble analyzing this file right now. Please try again in a moment."

	// WarningAIUnavailable accompanies a fallback body so clients can tell a
	// real reply from an apology.
	WarningAIUnavailable = "AI service temporarily unavailable"
)

const (
	// HistoryWindow caps the number of stored messages sent as context.
	// Bounds token cost and latency at the expense of long-range memory.
	HistoryWindow = 10

	// BlockingTimeout bounds a single blocking completion call. One attempt,
	// no retry.
	BlockingTimeout = 30 * time.Second

	// MaxFileContentChars is the character budget for file analysis input.
	MaxFileContentChars = 4000
	TruncationMarker    = "... (content truncated)"
)
