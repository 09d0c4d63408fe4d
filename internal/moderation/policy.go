package moderation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"mothy/internal/config"
	"mothy/internal/pattern"
)

// Policy is the process-wide filter configuration. It is built once at
// startup and never modified.
type Policy struct {
	allowedGuilds map[string]struct{}
	bypassRoles   map[string]struct{}
	denylist      []pattern.Pattern
	blacklistLogs map[string]string
	auditOnly     bool
}

func NewPolicy(cfg config.Config, denylist []pattern.Pattern) *Policy {
	p := &Policy{
		allowedGuilds: toSet(cfg.Filters.AllowedGuilds),
		bypassRoles:   toSet(cfg.Filters.BypassRoles),
		denylist:      denylist,
		blacklistLogs: map[string]string{},
		auditOnly:     cfg.AuditOnly(),
	}
	for guild, channel := range cfg.LogChannels.BlacklistLogs {
		p.blacklistLogs[guild] = channel
	}
	return p
}

// Applies reports whether filters run for a message: the guild must be
// allowed and the author must hold none of the bypass roles.
func (p *Policy) Applies(guildID string, roles []string) bool {
	if _, ok := p.allowedGuilds[guildID]; !ok {
		return false
	}
	for _, role := range roles {
		if _, ok := p.bypassRoles[role]; ok {
			return false
		}
	}
	return true
}

func (p *Policy) Denylist() []pattern.Pattern { return p.denylist }

func (p *Policy) BlacklistLogChannel(guildID string) (string, bool) {
	channel, ok := p.blacklistLogs[guildID]
	return channel, ok && channel != ""
}

// LoadDenylist compiles one case-insensitive pattern per non-blank line.
func LoadDenylist(r io.Reader) ([]pattern.Pattern, error) {
	var out []pattern.Pattern
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		source := strings.TrimSpace(scanner.Text())
		if source == "" {
			continue
		}
		p, err := pattern.CompileInsensitive(source)
		if err != nil {
			return nil, fmt.Errorf("denylist line %d: %w", line, err)
		}
		out = append(out, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read denylist: %w", err)
	}
	return out, nil
}

// LoadDenylistConfig builds the link denylist from the configured file
// followed by any inline entries.
func LoadDenylistConfig(cfg config.FilterConfig) ([]pattern.Pattern, error) {
	var out []pattern.Pattern
	if cfg.LinksBlacklistPath != "" {
		file, err := os.Open(cfg.LinksBlacklistPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		out, err = LoadDenylist(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.LinksBlacklistPath, err)
		}
	}
	inline, err := LoadDenylist(strings.NewReader(strings.Join(cfg.LinksBlacklist, "\n")))
	if err != nil {
		return nil, fmt.Errorf("inline: %w", err)
	}
	return append(out, inline...), nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
