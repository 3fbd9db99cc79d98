package inference

import "strings"

// Each renderer writes every message in order and ends with the family's
// generation marker so the model speaks as the assistant next.

func renderChatML(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(m.Role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("<|im_end|>\n")
	}
	b.WriteString("<|im_start|>assistant\n")
	return b.String()
}

func renderLlama3(msgs []Message) string {
	var b strings.Builder
	b.WriteString("<|begin_of_text|>")
	for _, m := range msgs {
		b.WriteString("<|start_header_id|>")
		b.WriteString(m.Role)
		b.WriteString("<|end_header_id|>\n\n")
		b.WriteString(m.Content)
		b.WriteString("<|eot_id|>")
	}
	b.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return b.String()
}

// renderGemma folds system turns into user turns and names the
// assistant "model"; the gemma format has no system role.
func renderGemma(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		role := m.Role
		switch role {
		case "system":
			role = "user"
		case "assistant":
			role = "model"
		}
		b.WriteString("<start_of_turn>")
		b.WriteString(role)
		b.WriteString("\n")
		b.WriteString(m.Content)
		b.WriteString("<end_of_turn>\n")
	}
	b.WriteString("<start_of_turn>model\n")
	return b.String()
}

func renderLlama2(msgs []Message) string {
	var b strings.Builder
	var system string
	first := true
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			b.WriteString("[INST] ")
			if first && system != "" {
				b.WriteString("<<SYS>>\n")
				b.WriteString(system)
				b.WriteString("\n<</SYS>>\n\n")
			}
			first = false
			b.WriteString(m.Content)
			b.WriteString(" [/INST]")
		case "assistant":
			b.WriteString(" ")
			b.WriteString(m.Content)
			b.WriteString(" ")
		}
	}
	// A conversation of only a system prompt still needs an instruction
	// block for the model to answer into.
	if first {
		b.WriteString("[INST] ")
		if system != "" {
			b.WriteString("<<SYS>>\n")
			b.WriteString(system)
			b.WriteString("\n<</SYS>>\n\n")
		}
		b.WriteString(" [/INST]")
	}
	return b.String()
}

func renderPlain(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("assistant: ")
	return b.String()
}
