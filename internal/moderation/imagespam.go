package moderation

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ImageSpam flags messages that carry only images, at least threshold of
// them. Flagged messages are logged, not deleted.
type ImageSpam struct {
	threshold int
	logger    *zap.Logger
}

func NewImageSpam(threshold int, logger *zap.Logger) *ImageSpam {
	if threshold <= 0 {
		threshold = 3
	}
	return &ImageSpam{threshold: threshold, logger: logger}
}

func (s *ImageSpam) Check(msg *discordgo.Message) bool {
	images, others := countAttachments(msg.Attachments)
	if images < s.threshold || others > 0 {
		return false
	}
	imageSpamFlagged.Inc()
	s.logger.Info("image spam suspected",
		zap.String("guild_id", msg.GuildID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("message_id", msg.ID),
		zap.Int("images", images),
	)
	return true
}

// countAttachments skips attachments without a content type.
func countAttachments(attachments []*discordgo.MessageAttachment) (images, others int) {
	for _, attachment := range attachments {
		if attachment == nil || attachment.ContentType == "" {
			continue
		}
		if strings.Contains(attachment.ContentType, "image") {
			images++
		} else {
			others++
		}
	}
	return images, others
}
