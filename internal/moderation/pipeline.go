package moderation

import (
	"context"

	"mothy/internal/settings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SettingsSource is satisfied by *settings.Store.
type SettingsSource interface {
	Get(ctx context.Context, guildID settings.GuildID) (*settings.GuildSettings, error)
}

type Result struct {
	// Applied is false when the policy gate skipped the message.
	Applied   bool
	Exempt    bool
	Filtered  bool
	ImageSpam bool
}

// Pipeline runs the per-message checks for guilds where filtering is active.
type Pipeline struct {
	policy   *Policy
	settings SettingsSource
	filter   *Filter
	images   *ImageSpam
	logger   *zap.Logger
}

func NewPipeline(policy *Policy, source SettingsSource, filter *Filter, images *ImageSpam, logger *zap.Logger) *Pipeline {
	return &Pipeline{policy: policy, settings: source, filter: filter, images: images, logger: logger}
}

// Process gates the message, then runs the image check and the link filter
// concurrently and waits for both. parentID is the parent channel or
// category of the message's channel, or "".
func (p *Pipeline) Process(ctx context.Context, msg *discordgo.Message, parentID string) Result {
	var roles []string
	if msg.Member != nil {
		roles = msg.Member.Roles
	}
	if !p.policy.Applies(msg.GuildID, roles) {
		return Result{}
	}

	var imageSpam, exempt, filtered bool
	var g errgroup.Group
	g.Go(func() error {
		imageSpam = p.images.Check(msg)
		return nil
	})
	g.Go(func() error {
		if p.exempt(ctx, msg, parentID) {
			exempt = true
			return nil
		}
		filtered = p.filter.Handle(ctx, msg)
		return nil
	})
	_ = g.Wait()

	return Result{Applied: true, Exempt: exempt, Filtered: filtered, ImageSpam: imageSpam}
}

// exempt reports whether the guild switched the link filter off for the
// message's channel. A settings failure keeps the filter on.
func (p *Pipeline) exempt(ctx context.Context, msg *discordgo.Message, parentID string) bool {
	if p.settings == nil {
		return false
	}
	guildID, err := settings.ParseID(msg.GuildID)
	if err != nil {
		return false
	}
	guild, err := p.settings.Get(ctx, settings.GuildID(guildID))
	if err != nil {
		p.logger.Warn("guild settings unavailable, filtering without exemptions", zap.String("guild_id", msg.GuildID), zap.Error(err))
		return false
	}
	channelID, err := settings.ParseID(msg.ChannelID)
	if err != nil {
		return false
	}
	var parent uint64
	if parentID != "" {
		parent, _ = settings.ParseID(parentID)
	}
	return guild.DenylistExempts(settings.ChannelID(channelID), settings.ChannelID(parent))
}
