package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"mothy/internal/settings"
)

var _ settings.Fetcher = (*Store)(nil)

func (s *Store) FetchGuild(ctx context.Context, guildID int64) (settings.RawGuildSettings, bool, error) {
	var raw settings.RawGuildSettings
	err := s.pool.QueryRow(ctx, `
		SELECT prefix, features, banned, rejoined
		FROM guild_settings WHERE guild_id = $1
	`, guildID).Scan(&raw.Prefix, &raw.Features, &raw.Banned, &raw.Rejoined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.RawGuildSettings{}, false, nil
		}
		return settings.RawGuildSettings{}, false, err
	}
	return raw, true, nil
}

func (s *Store) FetchDmActivity(ctx context.Context, guildID int64) (*settings.RawDmActivitySettings, error) {
	var raw settings.RawDmActivitySettings
	err := s.pool.QueryRow(ctx, `
		SELECT cooldown_seconds, announce_channel_id, retention_days
		FROM dm_activity_settings WHERE guild_id = $1
	`, guildID).Scan(&raw.CooldownSeconds, &raw.AnnounceChannelID, &raw.RetentionDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &raw, nil
}

func (s *Store) FetchRegexTriggers(ctx context.Context, guildID int64) ([]settings.RawRegexTrigger, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, channel_id, pattern, trigger_context, trigger_metadata, is_recursive, is_enabled, is_fancy
		FROM regex_triggers WHERE guild_id = $1
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.RawRegexTrigger
	for rows.Next() {
		var raw settings.RawRegexTrigger
		if err := rows.Scan(&raw.ID, &raw.ChannelID, &raw.Pattern, &raw.TriggerContext, &raw.TriggerMetadata,
			&raw.IsRecursive, &raw.IsEnabled, &raw.IsFancy); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *Store) FetchStickyRoles(ctx context.Context, guildID int64) (*settings.RawStickyRoleSettings, error) {
	var raw settings.RawStickyRoleSettings
	err := s.pool.QueryRow(ctx, `
		SELECT allowlist_roles, denylist_roles, mode::text, is_enabled
		FROM sticky_role_settings WHERE guild_id = $1
	`, guildID).Scan(&raw.AllowlistRoles, &raw.DenylistRoles, &raw.Mode, &raw.IsEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &raw, nil
}

func (s *Store) FetchCotdRoles(ctx context.Context, guildID int64) ([]settings.RawCotdRoleSettings, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role_id, is_enabled, suffix_enabled, colour_mode::text, icon_pairing_mode::text,
			colours, icons, svg_target_colour, rotation_time
		FROM cotd_role_settings WHERE guild_id = $1
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.RawCotdRoleSettings
	for rows.Next() {
		var raw settings.RawCotdRoleSettings
		var rotation pgtype.Time
		if err := rows.Scan(&raw.RoleID, &raw.IsEnabled, &raw.SuffixEnabled, &raw.ColourMode, &raw.IconPairingMode,
			&raw.Colours, &raw.Icons, &raw.SvgTargetColour, &rotation); err != nil {
			return nil, err
		}
		if rotation.Valid {
			raw.RotationTime = time.Duration(rotation.Microseconds) * time.Microsecond
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *Store) FetchModRoles(ctx context.Context, guildID int64) ([]settings.RawModRole, error) {
	rows, err := s.pool.Query(ctx, `SELECT role_id, permissions FROM mod_roles WHERE guild_id = $1`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.RawModRole
	for rows.Next() {
		var raw settings.RawModRole
		if err := rows.Scan(&raw.RoleID, &raw.Permissions); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *Store) FetchRegexDenylist(ctx context.Context, guildID int64) ([]settings.RawGlobalRegexDenylistChannel, error) {
	rows, err := s.pool.Query(ctx, `SELECT channel_id, is_recursive FROM regex_denylist_channels WHERE guild_id = $1`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.RawGlobalRegexDenylistChannel
	for rows.Next() {
		var raw settings.RawGlobalRegexDenylistChannel
		if err := rows.Scan(&raw.ChannelID, &raw.IsRecursive); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}
