package ai

import (
	"regexp"
	"sort"
	"strings"

	"github.com/DenisLeme/pitchlab/internal/models"
)

const (
	// EmptyContext is sent to the completion capability when a room has no
	// usable history, so the prompt stays well-formed.
	EmptyContext = "(sem contexto)"

	maxUserMessages      = 12
	maxAssistantMessages = 6
)

// digestHeaderRegex detects assistant messages that are themselves prior
// digest artifacts, so summaries are never summarized.
var digestHeaderRegex = regexp.MustCompile(`(?i)^(resumo:|pitch:|tags sugeridas:)`)

// isDigestArtifact reports whether assistant content carries a digest header.
func isDigestArtifact(content string) bool {
	return digestHeaderRegex.MatchString(strings.TrimSpace(content))
}

// BuildContext renders a bounded slice of room history into the text blob the
// completion call summarizes: the most recent user messages and the most
// recent assistant messages that are not prior digest artifacts, re-sorted
// oldest-first so conversational order is preserved.
func BuildContext(history []models.Message) string {
	var users, assistants []models.Message
	for _, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			users = append(users, msg)
		case models.RoleAssistant:
			if !isDigestArtifact(msg.Content) {
				assistants = append(assistants, msg)
			}
		}
	}

	selected := append(lastN(users, maxUserMessages), lastN(assistants, maxAssistantMessages)...)

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].CreatedAt.Equal(selected[j].CreatedAt) {
			return selected[i].ID < selected[j].ID
		}
		return selected[i].CreatedAt.Before(selected[j].CreatedAt)
	})

	if len(selected) == 0 {
		return EmptyContext
	}

	lines := make([]string, len(selected))
	for i, msg := range selected {
		label := "USUÁRIO"
		if msg.Role == models.RoleAssistant {
			label = "ASSISTENTE"
		}
		lines[i] = label + ": " + msg.Content
	}
	return strings.Join(lines, "\n")
}

// lastN returns the most recent n entries of an already-ordered slice.
func lastN(msgs []models.Message, n int) []models.Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
