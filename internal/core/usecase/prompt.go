package usecase

import (
	"fmt"
	"strings"
)

const briefSystemPrompt = `You are a legal analyst who writes concise case briefs.
Use only the judgment text you are given. Do not invent parties, dates or citations.`

const chatSystemPrompt = `You answer questions about a case brief.
Answer only from the brief below. If the brief does not support an answer, say so plainly and do not guess.
Cite the brief section you relied on in square brackets, for example [Facts] or [Holding].`

func buildBriefPrompt(text string) string {
	return fmt.Sprintf(`Write a structured brief of the judgment below using exactly these sections:

Facts:
Issues:
Holding:
Reasoning:
Disposition:

Keep each section short. Write "Not stated" when the judgment is silent on a section.

Judgment:
%s
`, text)
}

func buildChatPrompt(brief, question string) string {
	return fmt.Sprintf(`Brief:
%s

Question:
%s
`, strings.TrimSpace(brief), strings.TrimSpace(question))
}

// truncateRunes returns at most limit runes of text. A non-positive limit
// disables truncation.
func truncateRunes(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
