package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"mothy/internal/settings"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	return store
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(entries))
	}
}

func TestIgnorableMigrationError(t *testing.T) {
	if !isIgnorableMigrationError(errors.New(`relation "guild_settings" already exists`)) {
		t.Fatalf("expected already exists to be ignorable")
	}
	if isIgnorableMigrationError(errors.New("syntax error at or near")) {
		t.Fatalf("syntax errors must not be ignored")
	}
	if isIgnorableMigrationError(nil) {
		t.Fatalf("nil is not an error")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	guildID := time.Now().UnixNano()

	if err := store.UpsertPrefix(ctx, guildID, "??"); err != nil {
		t.Fatalf("upsert prefix: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `UPDATE guild_settings SET features = 24 WHERE guild_id = $1`, guildID); err != nil {
		t.Fatalf("set features: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `
		INSERT INTO regex_triggers (guild_id, pattern, trigger_context, trigger_metadata, is_fancy)
		VALUES ($1, 'foo(?!bar)', 1, '{"text":"hi"}', TRUE)`, guildID); err != nil {
		t.Fatalf("insert trigger: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `
		INSERT INTO cotd_role_settings (role_id, guild_id, colours, colour_mode, rotation_time)
		VALUES ($1, $1, '[[16711680]]', 'static', '06:30')`, guildID); err != nil {
		t.Fatalf("insert cotd: %v", err)
	}
	if _, err := store.pool.Exec(ctx, `
		INSERT INTO sticky_role_settings (guild_id, allowlist_roles, mode, is_enabled)
		VALUES ($1, '{1,2}', 'allowlist', TRUE)`, guildID); err != nil {
		t.Fatalf("insert sticky: %v", err)
	}

	cache := settings.NewStore(store, zap.NewNop())
	got, err := cache.Get(ctx, settings.GuildID(guildID))
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Prefix != "??" || !got.Features.Has(settings.FeatureAutomoderation|settings.FeatureStickyRoles) {
		t.Fatalf("unexpected settings %+v", got)
	}
	if len(got.RegexTriggers) != 1 || !got.RegexTriggers[0].Pattern.MatchString("foobaz") {
		t.Fatalf("unexpected triggers %+v", got.RegexTriggers)
	}
	if len(got.Cotd) != 1 || got.Cotd[0].Colours[0].Primary != 0xFF0000 || got.Cotd[0].RotationTime != 6*time.Hour+30*time.Minute {
		t.Fatalf("unexpected cotd %+v", got.Cotd)
	}
	if got.StickyRoles.Mode != settings.StickyAllowlist || len(got.StickyRoles.Allowlist) != 2 {
		t.Fatalf("unexpected sticky roles %+v", got.StickyRoles)
	}
	if got.DmActivity.CooldownSeconds != settings.DefaultDmCooldown {
		t.Fatalf("expected default dm activity")
	}
}

func TestFetchAbsentGuild(t *testing.T) {
	store := testStore(t)
	if _, found, err := store.FetchGuild(context.Background(), -1); err != nil || found {
		t.Fatalf("expected absent guild, found=%v err=%v", found, err)
	}
}

func TestAuditLogs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	guildID := "g-" + time.Now().Format(time.RFC3339Nano)

	if err := store.AddAuditLog(ctx, AuditLog{GuildID: guildID, UserID: "u1", Level: "WARN", Event: "link_filtered", Details: "rule=bit"}); err != nil {
		t.Fatalf("add audit log: %v", err)
	}
	logs, err := store.ListAuditLogs(ctx, guildID, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "link_filtered" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}
