// Package settings holds the per-guild configuration model and the
// read-through cache that loads it from storage.
//
// A *GuildSettings handed out by Store is shared between readers and must be
// treated as read-only. Updates replace the cached value, they never mutate it.
package settings

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"mothy/internal/pattern"
)

type (
	GuildID   uint64
	ChannelID uint64
	RoleID    uint64
)

func (id GuildID) String() string   { return strconv.FormatUint(uint64(id), 10) }
func (id ChannelID) String() string { return strconv.FormatUint(uint64(id), 10) }
func (id RoleID) String() string    { return strconv.FormatUint(uint64(id), 10) }

// ParseID parses a Discord snowflake as sent by the gateway.
func ParseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

const MaxPrefixLen = 6

type GuildFeatures uint8

const (
	FeatureExpressionTracking GuildFeatures = 1 << iota
	FeatureDmActivity
	FeatureAutoresponse
	FeatureAutomoderation
	FeatureStickyRoles
	FeatureColourOfTheDay

	allFeatures = FeatureExpressionTracking | FeatureDmActivity | FeatureAutoresponse |
		FeatureAutomoderation | FeatureStickyRoles | FeatureColourOfTheDay
)

var featureNames = []struct {
	flag GuildFeatures
	name string
}{
	{FeatureExpressionTracking, "expression_tracking"},
	{FeatureDmActivity, "dm_activity"},
	{FeatureAutoresponse, "autoresponse"},
	{FeatureAutomoderation, "automoderation"},
	{FeatureStickyRoles, "sticky_roles"},
	{FeatureColourOfTheDay, "colour_of_the_day"},
}

// FeaturesFromBits drops any bit that does not name a known feature.
func FeaturesFromBits(bits uint8) GuildFeatures {
	return GuildFeatures(bits) & allFeatures
}

func (f GuildFeatures) Bits() uint8 { return uint8(f) }

func (f GuildFeatures) Has(flag GuildFeatures) bool { return f&flag == flag }

func (f GuildFeatures) With(flag GuildFeatures) GuildFeatures { return (f | flag) & allFeatures }

func (f GuildFeatures) Without(flag GuildFeatures) GuildFeatures { return f &^ flag }

func (f GuildFeatures) String() string {
	var names []string
	for _, fn := range featureNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

type GuildFlags uint8

const (
	GuildBanned GuildFlags = 1 << iota
	GuildRejoined
)

type TriggerContext uint8

const (
	TriggerText TriggerContext = 1 << iota
	TriggerOCR

	allTriggerContexts = TriggerText | TriggerOCR
)

func TriggerContextFromBits(bits uint8) TriggerContext {
	return TriggerContext(bits) & allTriggerContexts
}

func (c TriggerContext) Intersects(other TriggerContext) bool { return c&other != 0 }

type TriggerFlags uint8

const (
	TriggerRecursive TriggerFlags = 1 << iota
	TriggerEnabled
)

type ModRolePermissions uint8

const (
	ModRoleExist ModRolePermissions = 1 << iota

	allModRolePermissions = ModRoleExist
)

func ModRolePermissionsFromBits(bits uint8) ModRolePermissions {
	return ModRolePermissions(bits) & allModRolePermissions
}

type CotdFlags uint8

const (
	CotdEnabled CotdFlags = 1 << iota
	CotdSuffixEnabled
)

type GuildSettings struct {
	// Prefix is empty when the guild has no custom prefix.
	Prefix        string
	Features      GuildFeatures
	Flags         GuildFlags
	RegexTriggers []RegexTrigger
	RegexDenylist []GlobalRegexDenylistChannel
	ModRoles      []ModRole
	StickyRoles   StickyRoleSettings
	Cotd          []CotdRoleSettings
	DmActivity    DmActivitySettings
}

// Default is the configuration of a guild with no stored row.
func Default() *GuildSettings {
	return &GuildSettings{DmActivity: DefaultDmActivitySettings()}
}

func (s *GuildSettings) PrefixOr(fallback string) string {
	if s.Prefix == "" {
		return fallback
	}
	return s.Prefix
}

func (s *GuildSettings) Banned() bool   { return s.Flags&GuildBanned != 0 }
func (s *GuildSettings) Rejoined() bool { return s.Flags&GuildRejoined != 0 }

// DenylistExempts reports whether the global link filter is switched off for a
// channel. parent may be zero when the channel has none.
func (s *GuildSettings) DenylistExempts(channel, parent ChannelID) bool {
	for _, entry := range s.RegexDenylist {
		if entry.ChannelID == channel {
			return true
		}
		if entry.Recursive && parent != 0 && entry.ChannelID == parent {
			return true
		}
	}
	return false
}

// ActiveTriggers returns the enabled triggers scoped to channel for the given
// context, in stored order.
func (s *GuildSettings) ActiveTriggers(channel, parent ChannelID, ctx TriggerContext) []RegexTrigger {
	var out []RegexTrigger
	for _, trigger := range s.RegexTriggers {
		if trigger.AppliesTo(channel, parent, ctx) {
			out = append(out, trigger)
		}
	}
	return out
}

// TruncatePrefix cuts a prefix to MaxPrefixLen bytes without splitting a rune.
func TruncatePrefix(prefix string) string {
	if len(prefix) <= MaxPrefixLen {
		return prefix
	}
	cut := MaxPrefixLen
	for cut > 0 && !utf8.RuneStart(prefix[cut]) {
		cut--
	}
	return prefix[:cut]
}

const DefaultDmCooldown = 3600

type DmActivitySettings struct {
	CooldownSeconds uint32
	// AnnounceChannel is zero when unset.
	AnnounceChannel ChannelID
	RetentionDays   *uint8
}

func DefaultDmActivitySettings() DmActivitySettings {
	return DmActivitySettings{CooldownSeconds: DefaultDmCooldown}
}

func (d DmActivitySettings) Cooldown() time.Duration {
	return time.Duration(d.CooldownSeconds) * time.Second
}

type TriggerMetadata struct {
	Text *string `json:"text,omitempty"`
}

type RegexTrigger struct {
	ID uint64
	// Channel is zero for a guild-wide trigger.
	Channel  ChannelID
	Pattern  pattern.Pattern
	Context  TriggerContext
	Metadata TriggerMetadata
	Flags    TriggerFlags
}

func (t RegexTrigger) Enabled() bool   { return t.Flags&TriggerEnabled != 0 }
func (t RegexTrigger) Recursive() bool { return t.Flags&TriggerRecursive != 0 }

func (t RegexTrigger) AppliesTo(channel, parent ChannelID, ctx TriggerContext) bool {
	if !t.Enabled() || !t.Context.Intersects(ctx) {
		return false
	}
	if t.Channel == 0 || t.Channel == channel {
		return true
	}
	return t.Recursive() && parent != 0 && t.Channel == parent
}

type GlobalRegexDenylistChannel struct {
	ChannelID ChannelID
	Recursive bool
}

type ModRole struct {
	RoleID      RoleID
	Permissions ModRolePermissions
}

type StickyRoleMode uint8

const (
	StickyNone StickyRoleMode = iota
	StickyAllowlist
	StickyDenylist
)

func (m StickyRoleMode) String() string {
	switch m {
	case StickyAllowlist:
		return "allowlist"
	case StickyDenylist:
		return "denylist"
	default:
		return "none"
	}
}

type StickyRoleSettings struct {
	Allowlist []RoleID
	Denylist  []RoleID
	Mode      StickyRoleMode
	Enabled   bool
}

// Sticks reports whether role should be restored when a member rejoins.
func (s StickyRoleSettings) Sticks(role RoleID) bool {
	if !s.Enabled {
		return false
	}
	switch s.Mode {
	case StickyAllowlist:
		return containsRole(s.Allowlist, role)
	case StickyDenylist:
		return !containsRole(s.Denylist, role)
	default:
		return true
	}
}

func containsRole(roles []RoleID, role RoleID) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type ColourMode uint8

const (
	ColourRandom ColourMode = iota
	ColourStatic
)

func (m ColourMode) String() string {
	if m == ColourStatic {
		return "static"
	}
	return "random"
}

type IconPairingMode uint8

const (
	IconPaired IconPairingMode = iota
	IconRandom
)

func (m IconPairingMode) String() string {
	if m == IconRandom {
		return "random"
	}
	return "paired"
}

type RoleColours struct {
	Primary   uint32
	Secondary *uint32
	Tertiary  *uint32
}

type CotdRoleSettings struct {
	RoleID          RoleID
	Flags           CotdFlags
	ColourMode      ColourMode
	IconPairing     IconPairingMode
	Colours         []RoleColours
	Icons           []string
	SvgTargetColour *uint32
	// RotationTime is the offset from midnight UTC.
	RotationTime time.Duration
}

func (c CotdRoleSettings) Enabled() bool       { return c.Flags&CotdEnabled != 0 }
func (c CotdRoleSettings) SuffixEnabled() bool { return c.Flags&CotdSuffixEnabled != 0 }

// NextRotation returns the first rotation instant strictly after now.
func (c CotdRoleSettings) NextRotation(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(c.RotationTime)
	if !next.After(now) {
		next = midnight.AddDate(0, 0, 1).Add(c.RotationTime)
	}
	return next
}

// ColoursFor picks the colour entry used on a given day. Static mode walks the
// list in order, random mode is left to the caller.
func (c CotdRoleSettings) ColoursFor(day int) (RoleColours, bool) {
	if len(c.Colours) == 0 {
		return RoleColours{}, false
	}
	i := day % len(c.Colours)
	if i < 0 {
		i += len(c.Colours)
	}
	return c.Colours[i], true
}
