package embedding

import "strings"

// TokenCounter estimates the token length of a text. A deterministic
// tokenizer can be injected; the default is the chars/4 heuristic used
// when no tokenizer is available in the environment.
type TokenCounter func(text string) int

// EstimateTokens is the rough one-token-per-four-chars heuristic.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Chunk splits text on blank-line paragraph boundaries into chunks of at
// most maxTokens, seeding each new chunk with as many trailing paragraphs
// of the previous one as fit within overlapTokens. A single paragraph
// larger than the budget becomes its own oversized chunk rather than being
// truncated.
func Chunk(text string, maxTokens, overlapTokens int, count TokenCounter) []string {
	if count == nil {
		count = EstimateTokens
	}

	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var current []string
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := count(para)

		if currentTokens+paraTokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))

			// Walk backward from the closed chunk's tail collecting
			// paragraphs that fit the overlap budget, preserving order.
			var overlap []string
			overlapCount := 0
			for i := len(current) - 1; i >= 0; i-- {
				pTokens := count(current[i])
				if overlapCount+pTokens > overlapTokens {
					break
				}
				overlap = append([]string{current[i]}, overlap...)
				overlapCount += pTokens
			}

			current = overlap
			currentTokens = overlapCount
		}

		current = append(current, para)
		currentTokens += paraTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n\n"))
	}

	return chunks
}
