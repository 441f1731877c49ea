package bot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kitazume/personabot/internal/persona"
)

// User-visible replies for command turns.
const (
	replyCleared         = "会話履歴をクリアしました。"
	replyNothingToClear  = "クリアする会話履歴がありません。"
	replyCommandNotFound = "指定されたコマンドが見つかりませんでした。"
	replyConfigMissing   = "システムプロンプトの設定が見つかりませんでした。"
)

func replySwitched(p persona.Persona) string {
	return fmt.Sprintf("会話履歴をクリアして、**%s**モードに設定しました。\n\nこのモードでできること：%s",
		p.DisplayName, p.Description)
}

// Processor is the command/mode state machine. It mutates the conversation
// and user records for command turns and prepares the completion call for
// chat turns; it never performs I/O itself.
type Processor struct {
	registry *persona.Registry
}

func NewProcessor(registry *persona.Registry) *Processor {
	return &Processor{registry: registry}
}

// Outcome is the result of processing one inbound message.
// Exactly one of Reply and Completion is set: Reply for terminal turns
// (commands and configuration failures), Completion for chat turns that
// require a call to the completion service.
type Outcome struct {
	Reply      string
	Completion *PendingCompletion
}

// PendingCompletion carries the working history for a chat turn. Messages is
// a copy of the stored history with the new user message appended; the
// caller commits it back after the completion call.
type PendingCompletion struct {
	Persona  persona.Persona
	Messages []Message
}

// Process runs the state machine over one inbound message. conv and user are
// working records loaded for this turn; the caller persists them afterwards.
func (p *Processor) Process(conv *ConversationState, user *UserProfile, text, senderName string) Outcome {
	if strings.HasPrefix(text, "/") {
		command := strings.ToLower(strings.TrimSpace(text))[1:]
		return p.processCommand(conv, command)
	}
	return p.processChat(conv, user, text, senderName)
}

// processCommand handles a /command turn. The reserved "clear" command is
// checked before persona commands, so a persona can never shadow it.
func (p *Processor) processCommand(conv *ConversationState, command string) Outcome {
	if command == "clear" {
		active, ok := p.registry.FindByID(conv.PersonaID)
		if !ok {
			// No persona active yet, so there is no system prompt to reseed
			// the history with. Nothing to clear.
			return Outcome{Reply: replyNothingToClear}
		}
		conv.Messages = []Message{{Role: RoleSystem, Content: active.SystemPrompt}}
		return Outcome{Reply: replyCleared}
	}

	if next, ok := p.registry.FindByCommand(command); ok {
		conv.PersonaID = next.ID
		conv.Messages = []Message{{Role: RoleSystem, Content: next.SystemPrompt}}
		return Outcome{Reply: replySwitched(next)}
	}

	return Outcome{Reply: replyCommandNotFound}
}

func (p *Processor) processChat(conv *ConversationState, user *UserProfile, text, senderName string) Outcome {
	if user.DisplayName == "" && senderName != "" {
		user.DisplayName = senderName
	}

	id := conv.PersonaID
	if id == "" {
		id = persona.DefaultID
	}
	active, ok := p.registry.FindByID(id)
	if !ok {
		active, ok = p.registry.FindByID(persona.DefaultID)
		if !ok {
			return Outcome{Reply: replyConfigMissing}
		}
	}

	// First turn of the conversation: bind the persona and seed the history
	// with its system message.
	if conv.PersonaID == "" {
		conv.PersonaID = active.ID
		conv.Messages = []Message{{Role: RoleSystem, Content: active.SystemPrompt}}
	}

	working := slices.Clone(conv.Messages)
	working = append(working, Message{Role: RoleUser, Content: text})

	return Outcome{Completion: &PendingCompletion{Persona: active, Messages: working}}
}
