package settings

import (
	"errors"
	"math"
	"testing"
	"time"

	"mothy/internal/pattern"
)

func TestFeaturesRoundTripAllSubsets(t *testing.T) {
	for bits := 0; bits < 64; bits++ {
		f := FeaturesFromBits(uint8(bits))
		if int(f.Bits()) != bits {
			t.Fatalf("subset %06b decoded to %06b", bits, f.Bits())
		}
		decoded, err := Decode(RawGuildSettings{Features: int16(bits)}, RawFragments{})
		if err != nil {
			t.Fatalf("decode subset %06b: %v", bits, err)
		}
		if decoded.Features != f {
			t.Fatalf("row subset %06b decoded to %s", bits, decoded.Features)
		}
	}
}

func TestFeaturesDropUnknownBits(t *testing.T) {
	if got := FeaturesFromBits(0xC0); got != 0 {
		t.Fatalf("expected unknown bits dropped, got %08b", got.Bits())
	}
	got := FeaturesFromBits(0xC0 | uint8(FeatureStickyRoles))
	if !got.Has(FeatureStickyRoles) || got.Has(FeatureAutomoderation) {
		t.Fatalf("unexpected features %s", got)
	}
	if got.String() != "sticky_roles" {
		t.Fatalf("unexpected name %q", got.String())
	}
	if got.With(FeatureDmActivity).Without(FeatureStickyRoles) != FeatureDmActivity {
		t.Fatalf("with/without mismatch")
	}
}

func TestTruncatePrefix(t *testing.T) {
	cases := map[string]string{
		"!":        "!",
		"abcdef":   "abcdef",
		"abcdefgh": "abcdef",
		"ééééé":    "ééé",
		"ab€€":     "ab€",
	}
	for in, want := range cases {
		if got := TruncatePrefix(in); got != want {
			t.Fatalf("TruncatePrefix(%q) = %q, want %q", in, got, want)
		}
	}

	prefix := "moth-bot"
	decoded, err := Decode(RawGuildSettings{Prefix: &prefix}, RawFragments{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.PrefixOr("-") != "moth-b" {
		t.Fatalf("unexpected prefix %q", decoded.Prefix)
	}
	if Default().PrefixOr("-") != "-" {
		t.Fatalf("default settings should fall back")
	}
}

func TestDecodeTriggerSelectsPatternKind(t *testing.T) {
	channel := int64(42)
	simple, err := DecodeRegexTrigger(RawRegexTrigger{
		ID: 1, ChannelID: &channel, Pattern: `a+b`, TriggerContext: 1, IsEnabled: true,
		TriggerMetadata: []byte(`{"text":"hello"}`),
	})
	if err != nil {
		t.Fatalf("decode simple: %v", err)
	}
	if simple.Pattern.Kind() != pattern.KindSimple || !simple.Pattern.MatchString("aab") || simple.Pattern.MatchString("b") {
		t.Fatalf("unexpected simple trigger %+v", simple)
	}
	if simple.Metadata.Text == nil || *simple.Metadata.Text != "hello" {
		t.Fatalf("unexpected metadata %+v", simple.Metadata)
	}
	if simple.Channel != 42 || !simple.Enabled() || simple.Recursive() {
		t.Fatalf("unexpected flags %+v", simple)
	}

	fancy, err := DecodeRegexTrigger(RawRegexTrigger{ID: 2, Pattern: `(?<=x)y`, TriggerContext: 3, IsFancy: true})
	if err != nil {
		t.Fatalf("decode fancy: %v", err)
	}
	if fancy.Pattern.Kind() != pattern.KindFancy || !fancy.Pattern.MatchString("xy") || fancy.Pattern.MatchString("zy") {
		t.Fatalf("unexpected fancy trigger %+v", fancy)
	}
	if fancy.Context != TriggerText|TriggerOCR || fancy.Channel != 0 {
		t.Fatalf("unexpected context %d channel %d", fancy.Context, fancy.Channel)
	}

	if _, err := DecodeRegexTrigger(RawRegexTrigger{ID: 3, Pattern: `(?<=x)y`}); err == nil {
		t.Fatalf("lookbehind should not compile as simple")
	}
}

func TestTriggerScope(t *testing.T) {
	trigger := RegexTrigger{Channel: 10, Context: TriggerText, Flags: TriggerEnabled | TriggerRecursive}
	if !trigger.AppliesTo(10, 0, TriggerText) {
		t.Fatalf("expected exact channel match")
	}
	if !trigger.AppliesTo(11, 10, TriggerText) {
		t.Fatalf("expected recursive child match")
	}
	if trigger.AppliesTo(10, 0, TriggerOCR) {
		t.Fatalf("context should not intersect")
	}
	trigger.Flags = TriggerEnabled
	if trigger.AppliesTo(11, 10, TriggerText) {
		t.Fatalf("non-recursive trigger should not reach children")
	}
	guildWide := RegexTrigger{Context: TriggerText, Flags: TriggerEnabled}
	if !guildWide.AppliesTo(99, 0, TriggerText) {
		t.Fatalf("guild-wide trigger should apply everywhere")
	}
	disabled := RegexTrigger{Context: TriggerText}
	settings := &GuildSettings{RegexTriggers: []RegexTrigger{disabled, guildWide}}
	if got := settings.ActiveTriggers(1, 0, TriggerText); len(got) != 1 {
		t.Fatalf("expected one active trigger, got %d", len(got))
	}
}

func TestDenylistExempts(t *testing.T) {
	settings := &GuildSettings{RegexDenylist: []GlobalRegexDenylistChannel{
		{ChannelID: 1},
		{ChannelID: 2, Recursive: true},
	}}
	if !settings.DenylistExempts(1, 0) || !settings.DenylistExempts(5, 2) {
		t.Fatalf("expected exemptions")
	}
	if settings.DenylistExempts(5, 1) || settings.DenylistExempts(3, 0) {
		t.Fatalf("unexpected exemption")
	}
}

func TestDecodeColours(t *testing.T) {
	single, err := DecodeColours([]byte(`[[16711680]]`))
	if err != nil {
		t.Fatalf("decode single: %v", err)
	}
	if len(single) != 1 || single[0].Primary != 0xFF0000 || single[0].Secondary != nil || single[0].Tertiary != nil {
		t.Fatalf("unexpected single tier %+v", single)
	}

	tiers, err := DecodeColours([]byte(`[[1,2,3,4],[5,6]]`))
	if err != nil {
		t.Fatalf("decode tiers: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("expected two tiers, got %d", len(tiers))
	}
	if tiers[0].Primary != 1 || *tiers[0].Secondary != 2 || *tiers[0].Tertiary != 3 {
		t.Fatalf("unexpected first tier %+v", tiers[0])
	}
	if tiers[1].Primary != 5 || *tiers[1].Secondary != 6 || tiers[1].Tertiary != nil {
		t.Fatalf("unexpected second tier %+v", tiers[1])
	}

	for _, bad := range []string{`[[]]`, `[]`} {
		if _, err := DecodeColours([]byte(bad)); !errors.Is(err, ErrEmptyColours) {
			t.Fatalf("expected empty colour error for %s, got %v", bad, err)
		}
	}
	if _, err := DecodeColours([]byte(`{"a":1}`)); err == nil {
		t.Fatalf("expected error for non-array colours")
	}
}

func TestDecodeCotdRole(t *testing.T) {
	svg := int32(0x00FF00)
	cotd, err := DecodeCotdRole(RawCotdRoleSettings{
		RoleID: 7, IsEnabled: true, ColourMode: "static", IconPairingMode: "random",
		Colours: []byte(`[[255],[65280]]`), Icons: []string{"moth.png"}, SvgTargetColour: &svg,
		RotationTime: 6*time.Hour + 30*time.Minute,
	})
	if err != nil {
		t.Fatalf("decode cotd: %v", err)
	}
	if !cotd.Enabled() || cotd.SuffixEnabled() || cotd.ColourMode != ColourStatic || cotd.IconPairing != IconRandom {
		t.Fatalf("unexpected cotd %+v", cotd)
	}
	if c, _ := cotd.ColoursFor(3); c.Primary != 65280 {
		t.Fatalf("unexpected colour for day 3: %+v", c)
	}

	now := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	if next := cotd.NextRotation(now); !next.Equal(time.Date(2024, 5, 2, 6, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next rotation %s", next)
	}
	early := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	if next := cotd.NextRotation(early); !next.Equal(time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected same-day rotation %s", next)
	}

	if _, err := DecodeCotdRole(RawCotdRoleSettings{RoleID: 7, ColourMode: "sepia", IconPairingMode: "paired", Colours: []byte(`[[1]]`)}); err == nil {
		t.Fatalf("expected unknown colour mode error")
	}
}

func TestDecodeFragments(t *testing.T) {
	announce := int64(55)
	days := int16(30)
	decoded, err := Decode(RawGuildSettings{Features: int16(FeatureStickyRoles), Banned: true}, RawFragments{
		DmActivity:    &RawDmActivitySettings{CooldownSeconds: 60, AnnounceChannelID: &announce, RetentionDays: &days},
		StickyRoles:   &RawStickyRoleSettings{AllowlistRoles: []int64{1, 2}, Mode: "allowlist", IsEnabled: true},
		ModRoles:      []RawModRole{{RoleID: 9, Permissions: 0xFF}},
		RegexDenylist: []RawGlobalRegexDenylistChannel{{ChannelID: 3, IsRecursive: true}},
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Banned() || decoded.Rejoined() {
		t.Fatalf("unexpected flags %b", decoded.Flags)
	}
	if decoded.DmActivity.Cooldown() != time.Minute || decoded.DmActivity.AnnounceChannel != 55 || *decoded.DmActivity.RetentionDays != 30 {
		t.Fatalf("unexpected dm activity %+v", decoded.DmActivity)
	}
	if !decoded.StickyRoles.Sticks(2) || decoded.StickyRoles.Sticks(3) {
		t.Fatalf("unexpected sticky roles %+v", decoded.StickyRoles)
	}
	if len(decoded.ModRoles) != 1 || decoded.ModRoles[0].Permissions != ModRoleExist {
		t.Fatalf("unexpected mod roles %+v", decoded.ModRoles)
	}

	noDM, err := Decode(RawGuildSettings{}, RawFragments{})
	if err != nil {
		t.Fatalf("decode empty: %v", err)
	}
	if noDM.DmActivity.CooldownSeconds != DefaultDmCooldown {
		t.Fatalf("expected default cooldown, got %d", noDM.DmActivity.CooldownSeconds)
	}
}

func TestDecodeRejectsNegativeID(t *testing.T) {
	_, err := Decode(RawGuildSettings{}, RawFragments{
		ModRoles: []RawModRole{{RoleID: 1}, {RoleID: -5}},
	})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if decodeErr.Fragment != "mod_roles" || decodeErr.Row != 1 || !errors.Is(err, ErrNegativeID) {
		t.Fatalf("unexpected decode error %v", err)
	}
}

func TestColoursForAnyDay(t *testing.T) {
	cotd := CotdRoleSettings{Colours: []RoleColours{{Primary: 1}, {Primary: 2}, {Primary: 3}}}
	for _, day := range []int{math.MinInt, math.MinInt + 1, -1, 0, 4, math.MaxInt} {
		if _, ok := cotd.ColoursFor(day); !ok {
			t.Fatalf("expected a colour for day %d", day)
		}
	}
	if c, _ := cotd.ColoursFor(-1); c.Primary != 3 {
		t.Fatalf("day -1 should wrap to the last entry, got %+v", c)
	}
	if _, ok := (CotdRoleSettings{}).ColoursFor(1); ok {
		t.Fatalf("no colours should report false")
	}
}
