package generator

import (
	"fmt"

	"github.com/antoniostano/roundtable/internal/persona"
)

// BuildPrompt assembles the full completion prompt for a persona: shared
// system prompt, the bot's personality, the formatted history, and the
// bot's own name as the completion cue.
func BuildPrompt(p persona.Persona, systemPrompt, contextText string) string {
	return fmt.Sprintf("%s\n\nYour personality: %s\n\nConversation so far:\n%s\n\n%s:",
		systemPrompt, p.Personality, contextText, p.Name)
}
