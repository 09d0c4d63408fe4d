package settings

import (
	"errors"
	"fmt"
	"time"

	json "github.com/json-iterator/go"

	"mothy/internal/pattern"
)

var (
	ErrEmptyColours = errors.New("colour list is empty")
	ErrNegativeID   = errors.New("negative id")
	ErrOutOfRange   = errors.New("value out of range")
)

// DecodeError names the fragment and row that could not be turned into a
// domain value.
type DecodeError struct {
	Fragment string
	Row      int
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("decode %s: %v", e.Fragment, e.Err)
	}
	return fmt.Sprintf("decode %s row %d: %v", e.Fragment, e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Raw rows as storage returns them. Ids are signed, bit-sets are wider than
// their domain types.

type RawGuildSettings struct {
	Prefix   *string
	Features int16
	Banned   bool
	Rejoined bool
}

type RawDmActivitySettings struct {
	CooldownSeconds   int32
	AnnounceChannelID *int64
	RetentionDays     *int16
}

type RawRegexTrigger struct {
	ID              int64
	ChannelID       *int64
	Pattern         string
	TriggerContext  int16
	TriggerMetadata []byte
	IsRecursive     bool
	IsEnabled       bool
	IsFancy         bool
}

type RawGlobalRegexDenylistChannel struct {
	ChannelID   int64
	IsRecursive bool
}

type RawModRole struct {
	RoleID      int64
	Permissions int64
}

type RawStickyRoleSettings struct {
	AllowlistRoles []int64
	DenylistRoles  []int64
	Mode           string
	IsEnabled      bool
}

type RawCotdRoleSettings struct {
	RoleID          int64
	IsEnabled       bool
	SuffixEnabled   bool
	ColourMode      string
	IconPairingMode string
	Colours         []byte
	Icons           []string
	SvgTargetColour *int32
	RotationTime    time.Duration
}

// RawFragments carries everything fetched for a guild whose primary row
// exists. Nil pointers mean the fragment row is absent.
type RawFragments struct {
	DmActivity    *RawDmActivitySettings
	RegexTriggers []RawRegexTrigger
	StickyRoles   *RawStickyRoleSettings
	Cotd          []RawCotdRoleSettings
	ModRoles      []RawModRole
	RegexDenylist []RawGlobalRegexDenylistChannel
}

// Decode assembles a GuildSettings from a primary row and its fragments. The
// first fragment that fails aborts the whole decode.
func Decode(raw RawGuildSettings, parts RawFragments) (*GuildSettings, error) {
	out := &GuildSettings{
		Features:   FeaturesFromBits(uint8(raw.Features)),
		DmActivity: DefaultDmActivitySettings(),
	}
	if raw.Prefix != nil {
		out.Prefix = TruncatePrefix(*raw.Prefix)
	}
	if raw.Banned {
		out.Flags |= GuildBanned
	}
	if raw.Rejoined {
		out.Flags |= GuildRejoined
	}

	if parts.DmActivity != nil {
		dm, err := DecodeDmActivity(*parts.DmActivity)
		if err != nil {
			return nil, &DecodeError{Fragment: "dm_activity", Row: -1, Err: err}
		}
		out.DmActivity = dm
	}

	for i, row := range parts.RegexTriggers {
		trigger, err := DecodeRegexTrigger(row)
		if err != nil {
			return nil, &DecodeError{Fragment: "regex_triggers", Row: i, Err: err}
		}
		out.RegexTriggers = append(out.RegexTriggers, trigger)
	}

	if parts.StickyRoles != nil {
		sticky, err := DecodeStickyRoles(*parts.StickyRoles)
		if err != nil {
			return nil, &DecodeError{Fragment: "sticky_roles", Row: -1, Err: err}
		}
		out.StickyRoles = sticky
	}

	for i, row := range parts.Cotd {
		cotd, err := DecodeCotdRole(row)
		if err != nil {
			return nil, &DecodeError{Fragment: "cotd_roles", Row: i, Err: err}
		}
		out.Cotd = append(out.Cotd, cotd)
	}

	for i, row := range parts.ModRoles {
		role, err := toID(row.RoleID)
		if err != nil {
			return nil, &DecodeError{Fragment: "mod_roles", Row: i, Err: err}
		}
		out.ModRoles = append(out.ModRoles, ModRole{
			RoleID:      RoleID(role),
			Permissions: ModRolePermissionsFromBits(uint8(row.Permissions)),
		})
	}

	for i, row := range parts.RegexDenylist {
		channel, err := toID(row.ChannelID)
		if err != nil {
			return nil, &DecodeError{Fragment: "regex_denylist", Row: i, Err: err}
		}
		out.RegexDenylist = append(out.RegexDenylist, GlobalRegexDenylistChannel{
			ChannelID: ChannelID(channel),
			Recursive: row.IsRecursive,
		})
	}

	return out, nil
}

func DecodeDmActivity(raw RawDmActivitySettings) (DmActivitySettings, error) {
	if raw.CooldownSeconds < 0 {
		return DmActivitySettings{}, fmt.Errorf("cooldown %d: %w", raw.CooldownSeconds, ErrOutOfRange)
	}
	out := DmActivitySettings{CooldownSeconds: uint32(raw.CooldownSeconds)}
	if raw.AnnounceChannelID != nil {
		channel, err := toID(*raw.AnnounceChannelID)
		if err != nil {
			return DmActivitySettings{}, err
		}
		out.AnnounceChannel = ChannelID(channel)
	}
	if raw.RetentionDays != nil {
		days := *raw.RetentionDays
		if days < 0 || days > 255 {
			return DmActivitySettings{}, fmt.Errorf("retention days %d: %w", days, ErrOutOfRange)
		}
		d := uint8(days)
		out.RetentionDays = &d
	}
	return out, nil
}

func DecodeRegexTrigger(raw RawRegexTrigger) (RegexTrigger, error) {
	id, err := toID(raw.ID)
	if err != nil {
		return RegexTrigger{}, err
	}
	out := RegexTrigger{
		ID:      id,
		Context: TriggerContextFromBits(uint8(raw.TriggerContext)),
	}
	if raw.ChannelID != nil {
		channel, err := toID(*raw.ChannelID)
		if err != nil {
			return RegexTrigger{}, err
		}
		out.Channel = ChannelID(channel)
	}
	if raw.IsRecursive {
		out.Flags |= TriggerRecursive
	}
	if raw.IsEnabled {
		out.Flags |= TriggerEnabled
	}

	out.Pattern, err = pattern.Compile(raw.Pattern, raw.IsFancy)
	if err != nil {
		return RegexTrigger{}, err
	}

	if len(raw.TriggerMetadata) > 0 {
		if err := json.Unmarshal(raw.TriggerMetadata, &out.Metadata); err != nil {
			return RegexTrigger{}, fmt.Errorf("trigger metadata: %w", err)
		}
	}
	return out, nil
}

func DecodeStickyRoles(raw RawStickyRoleSettings) (StickyRoleSettings, error) {
	mode, err := ParseStickyRoleMode(raw.Mode)
	if err != nil {
		return StickyRoleSettings{}, err
	}
	allow, err := toRoleIDs(raw.AllowlistRoles)
	if err != nil {
		return StickyRoleSettings{}, err
	}
	deny, err := toRoleIDs(raw.DenylistRoles)
	if err != nil {
		return StickyRoleSettings{}, err
	}
	return StickyRoleSettings{
		Allowlist: allow,
		Denylist:  deny,
		Mode:      mode,
		Enabled:   raw.IsEnabled,
	}, nil
}

func DecodeCotdRole(raw RawCotdRoleSettings) (CotdRoleSettings, error) {
	role, err := toID(raw.RoleID)
	if err != nil {
		return CotdRoleSettings{}, err
	}
	colourMode, err := ParseColourMode(raw.ColourMode)
	if err != nil {
		return CotdRoleSettings{}, err
	}
	pairing, err := ParseIconPairingMode(raw.IconPairingMode)
	if err != nil {
		return CotdRoleSettings{}, err
	}
	colours, err := DecodeColours(raw.Colours)
	if err != nil {
		return CotdRoleSettings{}, err
	}

	out := CotdRoleSettings{
		RoleID:       RoleID(role),
		ColourMode:   colourMode,
		IconPairing:  pairing,
		Colours:      colours,
		Icons:        raw.Icons,
		RotationTime: raw.RotationTime,
	}
	if raw.IsEnabled {
		out.Flags |= CotdEnabled
	}
	if raw.SuffixEnabled {
		out.Flags |= CotdSuffixEnabled
	}
	if raw.SvgTargetColour != nil {
		if *raw.SvgTargetColour < 0 {
			return CotdRoleSettings{}, fmt.Errorf("svg target colour %d: %w", *raw.SvgTargetColour, ErrOutOfRange)
		}
		c := uint32(*raw.SvgTargetColour)
		out.SvgTargetColour = &c
	}
	if out.RotationTime < 0 || out.RotationTime >= 24*time.Hour {
		return CotdRoleSettings{}, fmt.Errorf("rotation time %s: %w", out.RotationTime, ErrOutOfRange)
	}
	return out, nil
}

// DecodeColours turns a JSON array of arrays into colour tiers. Each inner
// array contributes its first three entries as primary, secondary and
// tertiary.
func DecodeColours(data []byte) ([]RoleColours, error) {
	var raw [][]uint32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("colours: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyColours
	}
	out := make([]RoleColours, 0, len(raw))
	for i, tier := range raw {
		if len(tier) == 0 {
			return nil, fmt.Errorf("colours entry %d: %w", i, ErrEmptyColours)
		}
		c := RoleColours{Primary: tier[0]}
		if len(tier) > 1 {
			secondary := tier[1]
			c.Secondary = &secondary
		}
		if len(tier) > 2 {
			tertiary := tier[2]
			c.Tertiary = &tertiary
		}
		out = append(out, c)
	}
	return out, nil
}

func ParseStickyRoleMode(s string) (StickyRoleMode, error) {
	switch s {
	case "none", "":
		return StickyNone, nil
	case "allowlist":
		return StickyAllowlist, nil
	case "denylist":
		return StickyDenylist, nil
	default:
		return StickyNone, fmt.Errorf("sticky role mode %q: %w", s, ErrOutOfRange)
	}
}

func ParseColourMode(s string) (ColourMode, error) {
	switch s {
	case "random":
		return ColourRandom, nil
	case "static":
		return ColourStatic, nil
	default:
		return ColourRandom, fmt.Errorf("colour mode %q: %w", s, ErrOutOfRange)
	}
}

func ParseIconPairingMode(s string) (IconPairingMode, error) {
	switch s {
	case "paired":
		return IconPaired, nil
	case "random":
		return IconRandom, nil
	default:
		return IconPaired, fmt.Errorf("icon pairing mode %q: %w", s, ErrOutOfRange)
	}
}

func toID(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%d: %w", v, ErrNegativeID)
	}
	return uint64(v), nil
}

func toRoleIDs(values []int64) ([]RoleID, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]RoleID, 0, len(values))
	for _, v := range values {
		id, err := toID(v)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleID(id))
	}
	return out, nil
}
