package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mothy/internal/modules/audit"
	"mothy/internal/pattern"
	"mothy/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Match is the first denylist hit for a message.
type Match struct {
	// Text is the substring the rule matched in the link buffer.
	Text string
	// Link is the extracted link that contains the hit.
	Link  string
	Rule  pattern.Pattern
	Index int
}

// Filter deletes messages whose links match the process-wide denylist.
type Filter struct {
	policy   *Policy
	platform Platform
	audit    *audit.Logger
	logger   *zap.Logger
	color    int
}

func NewFilter(policy *Policy, platform Platform, auditLogger *audit.Logger, logger *zap.Logger, color int) *Filter {
	return &Filter{policy: policy, platform: platform, audit: auditLogger, logger: logger, color: color}
}

// Evaluate tests the links in content against the denylist in order and
// stops at the first hit.
func (f *Filter) Evaluate(content string) (Match, bool) {
	match, _, ok := f.evaluate(utils.ExtractLinks(content))
	return match, ok
}

func (f *Filter) evaluate(links []string) (Match, int, bool) {
	if len(links) == 0 {
		return Match{}, 0, false
	}
	buffer := strings.Join(links, "\n")
	evaluated := 0
	for i, rule := range f.policy.Denylist() {
		evaluated++
		filterEvaluations.Inc()
		text, ok := rule.Find(buffer)
		if !ok {
			continue
		}
		match := Match{Text: text, Link: text, Rule: rule, Index: i}
		for _, link := range links {
			if rule.MatchString(link) {
				match.Link = link
				break
			}
		}
		return match, evaluated, true
	}
	return Match{}, evaluated, false
}

// Handle runs the link filter on a message that already passed the policy
// gate. It reports whether the message matched a rule. Platform failures are
// logged and never returned.
func (f *Filter) Handle(ctx context.Context, msg *discordgo.Message) bool {
	match, ok := f.Evaluate(msg.Content)
	if !ok {
		return false
	}

	authorID := ""
	if msg.Author != nil {
		authorID = msg.Author.ID
	}
	normalized, host, err := utils.NormalizeURL(match.Link)
	if err != nil {
		normalized, host = match.Link, ""
	}
	fields := []zap.Field{
		zap.String("guild_id", msg.GuildID),
		zap.String("channel_id", msg.ChannelID),
		zap.String("user_id", authorID),
		zap.String("content", msg.Content),
		zap.String("link", match.Link),
		zap.String("normalized", normalized),
		zap.String("host", host),
		zap.String("match", match.Text),
		zap.String("rule", match.Rule.String()),
	}
	detail := fmt.Sprintf("type=LINK_FILTER rule=%s match=%s link=%s normalized=%s message=%s", match.Rule, match.Text, match.Link, normalized, msg.ID)

	if f.policy.auditOnly {
		filterMatches.WithLabelValues("audit_only").Inc()
		f.logger.Info("regex matched in audit mode", fields...)
		f.audit.Log(ctx, audit.LevelInfo, msg.GuildID, msg.ChannelID, authorID, "link_filter_audit", detail)
		return true
	}

	if err := f.platform.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		filterMatches.WithLabelValues("delete_failed").Inc()
		f.logger.Error("regex delete failed", append(fields, zap.Error(err))...)
		f.audit.Log(ctx, audit.LevelCrit, msg.GuildID, msg.ChannelID, authorID, "link_filter_failed", detail+" error="+err.Error())
		return true
	}

	filterMatches.WithLabelValues("deleted").Inc()
	f.logger.Warn("regex deleted", fields...)
	f.audit.Log(ctx, audit.LevelWarn, msg.GuildID, msg.ChannelID, authorID, "link_filtered", detail)

	if channelID, ok := f.policy.BlacklistLogChannel(msg.GuildID); ok {
		embed := buildFilteredEmbed(msg, match, f.color)
		if err := f.platform.SendEmbed(ctx, channelID, embed); err != nil {
			f.logger.Warn("blacklist log send failed", zap.String("guild_id", msg.GuildID), zap.String("channel_id", channelID), zap.Error(err))
		}
	}
	return true
}

func buildFilteredEmbed(msg *discordgo.Message, match Match, color int) *discordgo.MessageEmbed {
	authorID := ""
	var thumbnail *discordgo.MessageEmbedThumbnail
	if msg.Author != nil {
		authorID = msg.Author.ID
		if avatar := msg.Author.AvatarURL(""); avatar != "" {
			thumbnail = &discordgo.MessageEmbedThumbnail{URL: avatar}
		}
	}
	return &discordgo.MessageEmbed{
		Title:       "Message Filtered",
		Description: fmt.Sprintf("Message sent by <@%s> deleted in <#%s>\n%s", authorID, msg.ChannelID, codeBlock(msg.ContentWithMentionsReplaced())),
		Color:       color,
		Thumbnail:   thumbnail,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: codeBlock(match.Link), Inline: true},
			{Name: "Rule", Value: codeBlock(match.Rule.String()), Inline: true},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "ID: " + authorID},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func codeBlock(text string) string {
	return "```\n" + strings.ReplaceAll(text, "`", "\\`") + "\n```"
}
