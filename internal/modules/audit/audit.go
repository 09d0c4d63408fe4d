package audit

import (
	"context"
	"time"

	"mothy/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Recorder persists audit entries. *storage.Store satisfies it.
type Recorder interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

type Logger struct {
	store  Recorder
	logger *zap.Logger
}

// NewLogger builds an audit logger. store may be nil, in which case entries
// are only written to the structured log.
func NewLogger(store Recorder, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

func (l *Logger) Log(ctx context.Context, level, guildID, channelID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("audit persist failed", zap.String("event", event), zap.Error(err))
		}
	}
	l.logger.Info("audit",
		zap.String("level", level),
		zap.String("guild_id", guildID),
		zap.String("channel_id", channelID),
		zap.String("user_id", userID),
		zap.String("event", event),
		zap.String("details", details),
	)
}
