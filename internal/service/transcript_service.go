package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// transcriptWindow is how many trailing messages a transcript covers.
const transcriptWindow = 50

// TranscriptService builds plain-text exports of a ticket channel's recent
// history.
type TranscriptService struct {
	client platform.Client
	logger *zap.Logger
}

// NewTranscriptService constructs the service.
func NewTranscriptService(client platform.Client, logger *zap.Logger) *TranscriptService {
	return &TranscriptService{client: client, logger: logger}
}

// Export fetches the channel's trailing window and formats it oldest-first,
// one line per message. A nil file with a nil error means the history could
// not be fetched; callers degrade to a text-only acknowledgement.
func (s *TranscriptService) Export(ctx context.Context, ref ChannelRef) (*platform.File, error) {
	messages, err := s.client.ChannelMessages(ctx, ref.ChannelID, transcriptWindow)
	if err != nil {
		s.logger.Warn("transcript fetch failed", zap.String("channel_id", ref.ChannelID), zap.Error(err))
		return nil, nil
	}

	var b strings.Builder
	// History arrives newest-first; the export reads top to bottom.
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		content := msg.Content
		if content == "" {
			content = "(embed/media)"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", msg.CreatedAt.UTC().Format(time.RFC3339), msg.AuthorName, content)
	}
	text := b.String()
	if text == "" {
		text = "No messages.\n"
	}

	name := "transcript.txt"
	if ref.Name != "" {
		name = "transcript-" + ref.Name + ".txt"
	}
	return &platform.File{
		Name:        name,
		ContentType: "text/plain",
		Data:        []byte(text),
	}, nil
}
