package ai

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DenisLeme/pitchlab/internal/hub"
	"github.com/DenisLeme/pitchlab/internal/metrics"
	"github.com/DenisLeme/pitchlab/internal/models"
	"github.com/DenisLeme/pitchlab/internal/store"
)

// Mode selects which derived messages and side effects a digest invocation
// materializes. The completion call itself is identical for every mode.
type Mode string

const (
	// ModeSummaryAll materializes summary, tags and pitch, and reconciles tags.
	ModeSummaryAll Mode = "summary_all"
	// ModeTagsOnly reconciles tags and materializes only the tags announcement.
	ModeTagsOnly Mode = "tags_only"
	// ModePitchOnly materializes only the pitch, with no tag side effects.
	ModePitchOnly Mode = "pitch_only"
)

// Completer produces a digest for a context blob. *Client implements it;
// tests substitute fixed results.
type Completer interface {
	Summarize(ctx context.Context, contextText string) DigestResult
}

// Publisher fans a room-scoped event out to current subscribers.
// *hub.Hub implements it.
type Publisher interface {
	Publish(roomID uuid.UUID, event hub.Event)
}

// Service is the digest orchestrator. One Run drives history loading, context
// building, the completion call, tag reconciliation and message
// materialization for a single room; it holds no state across invocations.
type Service struct {
	store     store.DataStore
	completer Completer
	pub       Publisher
	logger    zerolog.Logger
}

// NewService creates a digest orchestrator.
func NewService(st store.DataStore, completer Completer, pub Publisher, logger zerolog.Logger) *Service {
	return &Service{store: st, completer: completer, pub: pub, logger: logger}
}

// Run executes one digest invocation for a room.
//
// Completion degradation never surfaces here (the client absorbs it into
// fallback values) and there are no retries; storage errors do propagate,
// since silently dropping a requested digest is worse than failing it.
func (s *Service) Run(ctx context.Context, roomID uuid.UUID, mode Mode) error {
	metrics.DigestsRun.WithLabelValues(string(mode)).Inc()

	history, err := s.store.ListRoomHistory(ctx, roomID)
	if err != nil {
		return err
	}

	lastUser, err := s.store.LatestUserMessage(ctx, roomID)
	if err != nil {
		return err
	}
	if lastUser == nil {
		s.logger.Debug().Str("room_id", roomID.String()).Msg("no user message yet, tagging will be skipped")
	}

	result := s.completer.Summarize(ctx, BuildContext(history))

	s.logger.Info().
		Str("room_id", roomID.String()).
		Str("mode", string(mode)).
		Int("tags", len(result.Tags)).
		Msg("digest computed")

	// Tags are created/linked only when the mode asks for them and there is a
	// user message to attach them to; tags are never orphaned.
	handleTags := mode == ModeSummaryAll || mode == ModeTagsOnly
	var linked []string
	if handleTags && len(result.Tags) > 0 && lastUser != nil {
		linked, err = s.reconcileTags(ctx, result.Tags, lastUser)
		if err != nil {
			return err
		}
	}

	// Assistant messages per mode, in fixed order: summary, tags, pitch.
	// A fallback summary or pitch is omitted rather than posted as noise;
	// the tags announcement goes out whenever any tags were produced.
	var contents []string
	realSummary := result.Summary != "" && result.Summary != FallbackSummary
	realPitch := result.Pitch != "" && result.Pitch != FallbackPitch
	hasTags := len(result.Tags) > 0

	switch mode {
	case ModeSummaryAll:
		if realSummary {
			contents = append(contents, "Resumo:\n"+result.Summary)
		}
		if hasTags {
			contents = append(contents, "Tags sugeridas: "+strings.Join(result.Tags, ", "))
		}
		if realPitch {
			contents = append(contents, "Pitch:\n"+result.Pitch)
		}
	case ModeTagsOnly:
		if hasTags {
			contents = append(contents, "Tags sugeridas: "+strings.Join(result.Tags, ", "))
		}
	case ModePitchOnly:
		if realPitch {
			contents = append(contents, "Pitch:\n"+result.Pitch)
		}
	}

	for _, content := range contents {
		msg := &models.Message{
			RoomID:  roomID,
			Role:    models.RoleAssistant,
			Content: content,
		}
		if err := s.store.CreateMessage(ctx, msg); err != nil {
			return err
		}
		metrics.MessagesPosted.WithLabelValues(models.RoleAssistant).Inc()
		s.pub.Publish(roomID, hub.NewSummaryEvent(msg))
	}

	// The recomputed tag panel goes out after every message of this
	// invocation, and only when reconciliation actually touched tags.
	if handleTags && len(linked) > 0 {
		view, err := s.store.ListRoomTags(ctx, roomID)
		if err != nil {
			return err
		}
		s.pub.Publish(roomID, hub.TagsUpdatedEvent(view))
		s.logger.Info().
			Str("room_id", roomID.String()).
			Strs("tags", linked).
			Msg("tags created/linked")
	}

	return nil
}

// reconcileTags upserts each candidate tag and links it to the target
// message. Both steps are idempotent, so re-running with the same names
// converges to the same state. Returns the names actually linked.
func (s *Service) reconcileTags(ctx context.Context, names []string, target *models.Message) ([]string, error) {
	var linked []string
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}

		tag, err := s.store.UpsertTag(ctx, name)
		if err != nil {
			return linked, err
		}
		if err := s.store.LinkMessageTag(ctx, target.ID, tag.ID); err != nil {
			return linked, err
		}

		metrics.TagsLinked.Inc()
		linked = append(linked, name)
	}
	return linked, nil
}
