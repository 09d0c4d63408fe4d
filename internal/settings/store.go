package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher reads the raw rows for one guild. FetchGuild reports found=false
// when the primary row does not exist. The fragment fetchers return nil or an
// empty slice when nothing is stored.
type Fetcher interface {
	FetchGuild(ctx context.Context, guildID int64) (RawGuildSettings, bool, error)
	FetchDmActivity(ctx context.Context, guildID int64) (*RawDmActivitySettings, error)
	FetchRegexTriggers(ctx context.Context, guildID int64) ([]RawRegexTrigger, error)
	FetchStickyRoles(ctx context.Context, guildID int64) (*RawStickyRoleSettings, error)
	FetchCotdRoles(ctx context.Context, guildID int64) ([]RawCotdRoleSettings, error)
	FetchModRoles(ctx context.Context, guildID int64) ([]RawModRole, error)
	FetchRegexDenylist(ctx context.Context, guildID int64) ([]RawGlobalRegexDenylistChannel, error)
}

// Store is a read-through cache of decoded guild settings. Concurrent misses
// for the same guild each load from storage and the last one to finish wins.
type Store struct {
	fetcher Fetcher
	logger  *zap.Logger
	cache   *xsync.MapOf[GuildID, *GuildSettings]
}

func NewStore(fetcher Fetcher, logger *zap.Logger) *Store {
	return &Store{
		fetcher: fetcher,
		logger:  logger,
		cache:   xsync.NewMapOf[GuildID, *GuildSettings](),
	}
}

// Get returns the cached settings for a guild, loading them on a miss. Errors
// are returned without touching the cache.
func (s *Store) Get(ctx context.Context, guildID GuildID) (*GuildSettings, error) {
	if cached, ok := s.cache.Load(guildID); ok {
		cacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}

	start := time.Now()
	loaded, found, err := s.load(ctx, guildID)
	fetchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchErrors.Inc()
		return nil, err
	}

	if found {
		cacheLookups.WithLabelValues("miss").Inc()
	} else {
		cacheLookups.WithLabelValues("default").Inc()
	}
	s.cache.Store(guildID, loaded)
	s.logger.Debug("guild settings cached", zap.Stringer("guild_id", guildID), zap.Bool("stored", found))
	return loaded, nil
}

// Replace publishes a new value for a guild. Readers holding the previous
// pointer keep seeing the old value.
func (s *Store) Replace(guildID GuildID, settings *GuildSettings) {
	s.cache.Store(guildID, settings)
}

// Invalidate drops a guild so the next Get reloads it.
func (s *Store) Invalidate(guildID GuildID) {
	s.cache.Delete(guildID)
}

func (s *Store) Len() int {
	return s.cache.Size()
}

func (s *Store) load(ctx context.Context, guildID GuildID) (*GuildSettings, bool, error) {
	id := int64(guildID)
	raw, found, err := s.fetcher.FetchGuild(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("fetch guild %d: %w", guildID, err)
	}
	if !found {
		return Default(), false, nil
	}

	var parts RawFragments
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parts.DmActivity, err = s.fetcher.FetchDmActivity(gctx, id)
		return wrapFetch("dm activity", err)
	})
	g.Go(func() error {
		var err error
		parts.RegexTriggers, err = s.fetcher.FetchRegexTriggers(gctx, id)
		return wrapFetch("regex triggers", err)
	})
	g.Go(func() error {
		var err error
		parts.StickyRoles, err = s.fetcher.FetchStickyRoles(gctx, id)
		return wrapFetch("sticky roles", err)
	})
	g.Go(func() error {
		var err error
		parts.Cotd, err = s.fetcher.FetchCotdRoles(gctx, id)
		return wrapFetch("cotd roles", err)
	})
	g.Go(func() error {
		var err error
		parts.ModRoles, err = s.fetcher.FetchModRoles(gctx, id)
		return wrapFetch("mod roles", err)
	})
	g.Go(func() error {
		var err error
		parts.RegexDenylist, err = s.fetcher.FetchRegexDenylist(gctx, id)
		return wrapFetch("regex denylist", err)
	})
	if err := g.Wait(); err != nil {
		return nil, false, fmt.Errorf("guild %d: %w", guildID, err)
	}

	decoded, err := Decode(raw, parts)
	if err != nil {
		return nil, false, fmt.Errorf("guild %d: %w", guildID, err)
	}
	return decoded, true, nil
}

func wrapFetch(what string, err error) error {
	if err != nil {
		return fmt.Errorf("fetch %s: %w", what, err)
	}
	return nil
}
