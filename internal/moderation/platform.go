package moderation

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Platform is the subset of chat actions the filters perform.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
}

type sessionPlatform struct {
	session *discordgo.Session
}

func NewSessionPlatform(session *discordgo.Session) Platform {
	return &sessionPlatform{session: session}
}

func (p *sessionPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (p *sessionPlatform) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}
