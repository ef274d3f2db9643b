package ai

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DenisLeme/pitchlab/internal/models"
)

func userMsg(id int, content string, at time.Time) models.Message {
	return models.Message{
		ID:        fmt.Sprintf("%026d", id),
		Role:      models.RoleUser,
		Content:   content,
		CreatedAt: at,
	}
}

func assistantMsg(id int, content string, at time.Time) models.Message {
	m := userMsg(id, content, at)
	m.Role = models.RoleAssistant
	return m
}

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil); got != EmptyContext {
		t.Fatalf("expected %q, got %q", EmptyContext, got)
	}
}

func TestBuildContextLabels(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []models.Message{
		userMsg(1, "primeira ideia", base),
		assistantMsg(2, "boa ideia", base.Add(time.Minute)),
	}

	got := BuildContext(history)
	want := "USUÁRIO: primeira ideia\nASSISTENTE: boa ideia"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBuildContextExcludesDigestArtifacts(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []models.Message{
		userMsg(1, "oi", base),
		assistantMsg(2, "Resumo:\nconversa resumida", base.Add(time.Minute)),
		assistantMsg(3, "Tags sugeridas: a, b", base.Add(2*time.Minute)),
		assistantMsg(4, "Pitch:\num pitch", base.Add(3*time.Minute)),
		assistantMsg(5, "  resumo: case-insensitive e com espaços", base.Add(4*time.Minute)),
		assistantMsg(6, "resposta normal", base.Add(5*time.Minute)),
	}

	got := BuildContext(history)
	if strings.Contains(got, "Resumo") || strings.Contains(got, "Pitch:") || strings.Contains(got, "Tags sugeridas") {
		t.Fatalf("digest artifacts leaked into context: %q", got)
	}
	if !strings.Contains(got, "ASSISTENTE: resposta normal") {
		t.Fatalf("clean assistant message missing: %q", got)
	}
}

func TestBuildContextCaps(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var history []models.Message
	for i := 0; i < 20; i++ {
		history = append(history, userMsg(i, fmt.Sprintf("user %d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	for i := 0; i < 10; i++ {
		history = append(history, assistantMsg(100+i, fmt.Sprintf("assistant %d", i), base.Add(time.Duration(100+i)*time.Minute)))
	}

	got := BuildContext(history)
	lines := strings.Split(got, "\n")
	if len(lines) != maxUserMessages+maxAssistantMessages {
		t.Fatalf("expected %d lines, got %d", maxUserMessages+maxAssistantMessages, len(lines))
	}

	// Oldest of each role must have been cut.
	if strings.Contains(got, "user 7\n") || strings.Contains(got, "assistant 3") {
		t.Fatalf("older messages should be cut: %q", got)
	}
	if !strings.Contains(got, "user 8") || !strings.Contains(got, "assistant 4") {
		t.Fatalf("newest window missing messages: %q", got)
	}
}

func TestBuildContextChronologicalOrder(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []models.Message{
		assistantMsg(3, "terceiro", base.Add(2*time.Minute)),
		userMsg(1, "primeiro", base),
		userMsg(2, "segundo", base.Add(time.Minute)),
	}

	got := BuildContext(history)
	want := "USUÁRIO: primeiro\nUSUÁRIO: segundo\nASSISTENTE: terceiro"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestBuildContextTieBreakByID(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	history := []models.Message{
		userMsg(2, "depois", at),
		userMsg(1, "antes", at),
	}

	got := BuildContext(history)
	want := "USUÁRIO: antes\nUSUÁRIO: depois"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
