package usecase

import (
	"strings"

	"scansum/internal/domain"
)

// buildSummaryMessages wraps OCR output in the fixed summarization
// instruction. The OCR text is embedded verbatim, empty or not; the service
// is asked for a summary either way.
func buildSummaryMessages(ocrText string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: buildSummaryPrompt(ocrText)},
	}
}

func buildSummaryPrompt(ocrText string) string {
	return strings.Join([]string{
		"The following text has been extracted from an image using OCR.",
		"Your task is to generate a concise and meaningful summary by identifying the main ideas, key points, and essential information.",
		"",
		"Please focus on summarizing the text clearly and accurately while ignoring irrelevant details or minor points.",
		"",
		"Keep the summary:",
		"- Brief and under 100 words.",
		"- Written in clear and simple language.",
		"- Focused solely on the primary content and context.",
		"",
		"Here is the text to summarize:",
		"",
		ocrText,
	}, "\n")
}
