package bot

import (
	"fmt"
	"strings"
	"time"

	"mothy/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type voiceChange int

const (
	voiceNone voiceChange = iota
	voiceJoin
	voiceLeave
	voiceMove
)

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func buildJoinEmbed(user *discordgo.User, now time.Time, color int) *discordgo.MessageEmbed {
	return memberEmbed("Member Joined", user, now, color)
}

func buildLeaveEmbed(user *discordgo.User, now time.Time, color int) *discordgo.MessageEmbed {
	return memberEmbed("Member Left", user, now, color)
}

func memberEmbed(title string, user *discordgo.User, now time.Time, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("<@%s> %s", user.ID, user.Username),
		Color:       color,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Footer:      &discordgo.MessageEmbedFooter{Text: "ID: " + user.ID},
		Timestamp:   now.Format(time.RFC3339),
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Account Age",
			Value:  fmt.Sprintf("%s (<t:%d:R>)", formatAge(now.Sub(created)), created.Unix()),
			Inline: true,
		})
	}
	return embed
}

// formatAge renders a duration as the two largest of days, hours and minutes.
func formatAge(age time.Duration) string {
	if age < time.Minute {
		return "just now"
	}
	days := int(age / (24 * time.Hour))
	hours := int(age/time.Hour) % 24
	minutes := int(age/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func classifyVoice(before, after *discordgo.VoiceState) voiceChange {
	from, to := "", ""
	if before != nil {
		from = before.ChannelID
	}
	if after != nil {
		to = after.ChannelID
	}
	switch {
	case from == to:
		return voiceNone
	case from == "":
		return voiceJoin
	case to == "":
		return voiceLeave
	default:
		return voiceMove
	}
}

func buildVoiceEmbed(change voiceChange, userID, from, to string, colors colorSet) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Footer:    &discordgo.MessageEmbedFooter{Text: "ID: " + userID},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	switch change {
	case voiceJoin:
		embed.Title = "Joined Voice"
		embed.Description = fmt.Sprintf("<@%s> joined <#%s>", userID, to)
		embed.Color = colors.positive
	case voiceLeave:
		embed.Title = "Left Voice"
		embed.Description = fmt.Sprintf("<@%s> left <#%s>", userID, from)
		embed.Color = colors.negative
	case voiceMove:
		embed.Title = "Moved Voice"
		embed.Description = fmt.Sprintf("<@%s> moved from <#%s> to <#%s>", userID, from, to)
		embed.Color = colors.neutral
	default:
		return nil
	}
	return embed
}

type colorSet struct {
	positive int
	negative int
	neutral  int
}

func formatAuditLines(logs []storage.AuditLog) string {
	if len(logs) == 0 {
		return "No entries."
	}
	lines := make([]string, 0, len(logs))
	for _, entry := range logs {
		line := fmt.Sprintf("<t:%d:t> **%s** %s", entry.CreatedAt.Unix(), entry.Level, entry.Event)
		if entry.UserID != "" {
			line += fmt.Sprintf(" <@%s>", entry.UserID)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
