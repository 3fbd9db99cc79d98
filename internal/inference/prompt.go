package inference

import "strings"

// BuildPrompt renders a conversation into the text the backend will
// tokenize. template is the model's declared chat template, used only to
// recognize the prompt format family; rendering itself is done with the
// family's fixed markers rather than by executing the template.
func BuildPrompt(template string, hasTemplate bool, req Request) (string, error) {
	if strings.TrimSpace(req.System) == "" && len(req.Messages) == 0 {
		return "", ErrEmptyPrompt
	}

	msgs := normalizeConversation(req.System, req.Messages)

	if req.NoTemplate || !hasTemplate {
		return renderPlain(msgs), nil
	}

	switch detectFamily(template) {
	case familyChatML:
		return renderChatML(msgs), nil
	case familyLlama3:
		return renderLlama3(msgs), nil
	case familyGemma:
		return renderGemma(msgs), nil
	case familyLlama2:
		return renderLlama2(msgs), nil
	default:
		return renderPlain(msgs), nil
	}
}

// normalizeConversation lowercases roles, maps unknown roles to user and
// prepends the system prompt as a leading system turn.
func normalizeConversation(system string, in []Message) []Message {
	out := make([]Message, 0, len(in)+1)
	if strings.TrimSpace(system) != "" {
		out = append(out, Message{Role: "system", Content: system})
	}
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "system", "user", "assistant":
		default:
			role = "user"
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	return out
}

type templateFamily int

const (
	familyUnknown templateFamily = iota
	familyChatML
	familyLlama3
	familyGemma
	familyLlama2
)

func detectFamily(template string) templateFamily {
	switch {
	case strings.Contains(template, "<|im_start|>"):
		return familyChatML
	case strings.Contains(template, "<|start_header_id|>"):
		return familyLlama3
	case strings.Contains(template, "<start_of_turn>"):
		return familyGemma
	case strings.Contains(template, "[INST]"):
		return familyLlama2
	default:
		return familyUnknown
	}
}
