package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mothy/internal/modules/audit"
	"mothy/internal/settings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) colors() colorSet {
	return colorSet{
		positive: b.cfg.EmbedColors.Positive,
		negative: b.cfg.EmbedColors.Negative,
		neutral:  b.cfg.EmbedColors.Neutral,
	}
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.Member == nil || event.User == nil {
		return
	}
	b.logger.Info("member joined",
		zap.String("guild", b.guildName(event.GuildID)),
		zap.String("user", event.User.Username),
		zap.String("user_id", event.User.ID),
	)
	b.sendLog(session, b.cfg.LogChannels.Logs, event.GuildID, buildJoinEmbed(event.User, time.Now(), b.cfg.EmbedColors.Positive))
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if event.Member == nil || event.User == nil {
		return
	}
	b.logger.Info("member left",
		zap.String("guild", b.guildName(event.GuildID)),
		zap.String("user", event.User.Username),
		zap.String("user_id", event.User.ID),
	)
	b.sendLog(session, b.cfg.LogChannels.Logs, event.GuildID, buildLeaveEmbed(event.User, time.Now(), b.cfg.EmbedColors.Negative))
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.VoiceState == nil || event.GuildID == "" {
		return
	}
	change := classifyVoice(event.BeforeUpdate, event.VoiceState)
	if change == voiceNone {
		return
	}
	from := ""
	if event.BeforeUpdate != nil {
		from = event.BeforeUpdate.ChannelID
	}
	b.sendLog(session, b.cfg.LogChannels.VoiceLogs, event.GuildID, buildVoiceEmbed(change, event.UserID, from, event.ChannelID, b.colors()))
}

func (b *Bot) sendLog(session *discordgo.Session, channels map[string]string, guildID string, embed *discordgo.MessageEmbed) {
	channelID := channels[guildID]
	if channelID == "" || embed == nil {
		return
	}
	if _, err := session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("log send failed", zap.String("guild_id", guildID), zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID == "" {
		b.respond(session, interaction, "This command only works in a server.", true)
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	var permissions int64
	var roles []string
	userID := ""
	if interaction.Member != nil {
		permissions = interaction.Member.Permissions
		roles = interaction.Member.Roles
		if interaction.Member.User != nil {
			userID = interaction.Member.User.ID
		}
	}

	switch data.Name {
	case "ping":
		b.respond(session, interaction, pingReply(session), false)
	case "prefix":
		value := ""
		for _, option := range data.Options {
			if option.Name == "value" {
				value = option.StringValue()
			}
		}
		guild, _ := b.guildSettings(ctx, interaction.GuildID)
		reply := b.prefixCommand(ctx, interaction.GuildID, userID, value, guild, isModerator(roles, guild, permissions))
		b.respond(session, interaction, reply, true)
	case "modlogs":
		guild, _ := b.guildSettings(ctx, interaction.GuildID)
		if !isModerator(roles, guild, permissions) {
			b.respond(session, interaction, "You need a moderator role to view filter logs.", true)
			return
		}
		b.respondEmbed(session, interaction, b.modlogsEmbed(ctx, interaction.GuildID), true)
	}
}

func (b *Bot) handlePrefixCommand(ctx context.Context, session *discordgo.Session, msg *discordgo.Message) {
	guild, _ := b.guildSettings(ctx, msg.GuildID)
	botID := ""
	if session.State != nil && session.State.User != nil {
		botID = session.State.User.ID
	}
	name, args, ok := parseCommand(msg.Content, guild.PrefixOr(b.cfg.DefaultPrefix), botID)
	if !ok {
		return
	}

	var reply string
	switch name {
	case "ping":
		reply = pingReply(session)
	case "prefix":
		var permissions int64
		if session.State != nil {
			permissions, _ = session.State.UserChannelPermissions(msg.Author.ID, msg.ChannelID)
		}
		var roles []string
		if msg.Member != nil {
			roles = msg.Member.Roles
		}
		reply = b.prefixCommand(ctx, msg.GuildID, msg.Author.ID, strings.Join(args, " "), guild, isModerator(roles, guild, permissions))
	default:
		return
	}
	if _, err := session.ChannelMessageSendReply(msg.ChannelID, reply, msg.Reference()); err != nil {
		b.logger.Warn("command reply failed", zap.String("command", name), zap.Error(err))
	}
}

// prefixCommand shows the guild prefix, or replaces it when value is set and
// the caller is a moderator.
func (b *Bot) prefixCommand(ctx context.Context, guildID, userID, value string, guild *settings.GuildSettings, moderator bool) string {
	current := guild.PrefixOr(b.cfg.DefaultPrefix)
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Sprintf("Current prefix: `%s`", current)
	}
	if !moderator {
		return "You need a moderator role to change the prefix."
	}
	id, err := settings.ParseID(guildID)
	if err != nil || b.store == nil {
		return "Prefix could not be saved."
	}

	prefix := settings.TruncatePrefix(value)
	if err := b.store.UpsertPrefix(ctx, int64(id), prefix); err != nil {
		b.logger.Error("prefix update failed", zap.String("guild_id", guildID), zap.Error(err))
		return "Prefix could not be saved."
	}
	b.settings.Invalidate(settings.GuildID(id))
	b.audit.Log(ctx, audit.LevelInfo, guildID, "", userID, "prefix_changed", fmt.Sprintf("from=%s to=%s", current, prefix))
	return fmt.Sprintf("Prefix set to `%s`", prefix)
}

func (b *Bot) modlogsEmbed(ctx context.Context, guildID string) *discordgo.MessageEmbed {
	logs, err := b.store.ListAuditLogs(ctx, guildID, time.Now().Add(-24*time.Hour), 15)
	if err != nil {
		b.logger.Warn("audit list failed", zap.String("guild_id", guildID), zap.Error(err))
		return b.commandEmbed("Filter Logs", "Logs are unavailable right now.", b.cfg.EmbedColors.Negative, nil)
	}
	return b.commandEmbed("Filter Logs", formatAuditLines(logs), b.cfg.EmbedColors.Neutral, nil)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func pingReply(session *discordgo.Session) string {
	return fmt.Sprintf("Pong! Gateway latency: %dms", session.HeartbeatLatency().Milliseconds())
}

// parseCommand strips the guild prefix or a bot mention and splits the rest
// into a lowercase command name and its arguments.
func parseCommand(content, prefix, botID string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	var rest string
	switch {
	case prefix != "" && strings.HasPrefix(content, prefix):
		rest = content[len(prefix):]
	case botID != "" && strings.HasPrefix(content, "<@"+botID+">"):
		rest = content[len("<@"+botID+">"):]
	case botID != "" && strings.HasPrefix(content, "<@!"+botID+">"):
		rest = content[len("<@!"+botID+">"):]
	default:
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// isModerator accepts Manage Server or Administrator, or any role the guild
// registered as a moderator role.
func isModerator(roles []string, guild *settings.GuildSettings, permissions int64) bool {
	if permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0 {
		return true
	}
	if guild == nil {
		return false
	}
	for _, role := range roles {
		id, err := settings.ParseID(role)
		if err != nil {
			continue
		}
		for _, mod := range guild.ModRoles {
			if mod.RoleID == settings.RoleID(id) && mod.Permissions&settings.ModRoleExist != 0 {
				return true
			}
		}
	}
	return false
}
