package bot

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"mothy/internal/config"
	"mothy/internal/moderation"
	"mothy/internal/modules/audit"
	"mothy/internal/settings"
	"mothy/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *storage.Store
	settings *settings.Store
	audit    *audit.Logger
	session  *discordgo.Session
	pipeline *moderation.Pipeline
	ready    atomic.Bool
	stop     chan struct{}
}

func New(cfg *config.Config, logger *zap.Logger, store *storage.Store, settingsStore *settings.Store, policy *moderation.Policy, auditLogger *audit.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		settings: settingsStore,
		audit:    auditLogger,
		session:  session,
		stop:     make(chan struct{}),
	}

	filter := moderation.NewFilter(policy, moderation.NewSessionPlatform(session), auditLogger, logger, cfg.EmbedColors.Negative)
	images := moderation.NewImageSpam(cfg.Filters.ImageSpamThreshold, logger)
	b.pipeline = moderation.NewPipeline(policy, settingsStore, filter, images, logger)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startRetention()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	close(b.stop)
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	if b.ready.Swap(true) {
		b.logger.Debug("discord resumed", zap.Int("guilds", len(event.Guilds)))
		return
	}
	b.logger.Info("logged in", zap.String("user", event.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		b.logger.Debug("direct message", zap.String("author", msg.Author.Username), zap.String("content", msg.Content))
		return
	}

	ctx := context.Background()
	channelName, parentID := b.channelInfo(msg.ChannelID)
	b.logger.Debug("message",
		zap.String("guild", b.guildName(msg.GuildID)),
		zap.String("channel", channelName),
		zap.String("author", msg.Author.Username),
		zap.String("content", msg.Content),
		zap.String("attachments", attachmentNames(msg.Message)),
		zap.String("embeds", embedTypes(msg.Message)),
	)

	result := b.pipeline.Process(ctx, msg.Message, parentID)
	if result.Filtered && !b.cfg.AuditOnly() {
		return
	}

	b.handlePrefixCommand(ctx, session, msg.Message)
}

// guildName prefers the configured override, then the cached guild name.
func (b *Bot) guildName(guildID string) string {
	if name, ok := b.cfg.GuildNameOverrides[guildID]; ok && name != "" {
		return name
	}
	if b.session != nil && b.session.State != nil {
		if guild, err := b.session.State.Guild(guildID); err == nil && guild.Name != "" {
			return guild.Name
		}
	}
	return guildID
}

// channelInfo returns a display name and the parent id of a channel, falling
// back to the raw id when the channel is not cached.
func (b *Bot) channelInfo(channelID string) (string, string) {
	if b.session == nil || b.session.State == nil {
		return channelID, ""
	}
	channel, err := b.session.State.Channel(channelID)
	if err != nil || channel == nil {
		return channelID, ""
	}
	return channel.Name, channel.ParentID
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) (*settings.GuildSettings, bool) {
	id, err := settings.ParseID(guildID)
	if err != nil {
		return settings.Default(), false
	}
	loaded, err := b.settings.Get(ctx, settings.GuildID(id))
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return settings.Default(), false
	}
	return loaded, true
}

func (b *Bot) startRetention() {
	if b.store == nil || b.cfg.RetentionDays <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			b.cleanupAuditLogs()
			select {
			case <-ticker.C:
			case <-b.stop:
				return
			}
		}
	}()
}

func (b *Bot) cleanupAuditLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	removed, err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays)
	if err != nil {
		b.logger.Warn("audit cleanup failed", zap.Error(err))
		return
	}
	b.logger.Info("audit cleanup", zap.Int64("removed", removed), zap.Int("retention_days", b.cfg.RetentionDays))
}

func attachmentNames(msg *discordgo.Message) string {
	names := make([]string, 0, len(msg.Attachments))
	for _, attachment := range msg.Attachments {
		if attachment != nil {
			names = append(names, attachment.Filename)
		}
	}
	return strings.Join(names, ", ")
}

func embedTypes(msg *discordgo.Message) string {
	kinds := make([]string, 0, len(msg.Embeds))
	for _, embed := range msg.Embeds {
		if embed != nil {
			kinds = append(kinds, string(embed.Type))
		}
	}
	return strings.Join(kinds, ", ")
}
