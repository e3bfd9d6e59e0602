package llm

import (
	"google.golang.org/genai"

	"github.com/PabloGalante/farum-chat/internal/domain"
)

const SystemPrompt = `
You are "Farum", a friendly AI companion people chat with about their day and how they feel.

Your role:
- You listen with empathy and without judgment.
- You keep the conversation light and warm; you can tell a joke when asked.
- You are NOT a therapist, doctor, or emergency service and you do NOT give medical or psychiatric diagnoses.

Style:
- Answer in the SAME LANGUAGE as the user.
- This is a chat: 1 to 3 short sentences, no lists, no headings.
- Ask at most one follow-up question.

Boundaries and safety:
- If the user mentions self-harm, suicide, or that they might hurt someone, encourage them to seek immediate help from local emergency services or a trusted person.
- Never give instructions on how to self-harm or harm others.
`

// BuildContents maps the context turns and the new utterance to Gemini contents.
// Leading agent turns (the greeting) are dropped: Gemini wants a user turn first.
func BuildContents(utterance string, turns []domain.Turn) []*genai.Content {
	for len(turns) > 0 && turns[0].Role == domain.RoleAgent {
		turns = turns[1:]
	}

	contents := make([]*genai.Content, 0, len(turns)+1)
	for _, t := range turns {
		contents = append(contents, genai.NewContentFromText(t.Text, genaiRole(t.Role)))
	}
	return append(contents, genai.NewContentFromText(utterance, genai.RoleUser))
}

func genaiRole(r domain.Role) genai.Role {
	if r == domain.RoleAgent {
		return genai.RoleModel
	}
	return genai.RoleUser
}
