package cached

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hospital-account-service/internal/adapter/cache"
	domain "hospital-account-service/internal/domain/account"
	"hospital-account-service/internal/usecase/account"
)

// CachedUserRepository implements account.UserRepository with caching support.
// It wraps a persistent repository (DB) and a cache implementation.
type CachedUserRepository struct {
	dbRepo account.UserRepository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(dbRepo account.UserRepository, cache cache.UserCache, log *zap.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		dbRepo: dbRepo,
		cache:  cache,
		log:    log,
	}
}

// Save writes to the DB repository and invalidates the cached entry.
func (r *CachedUserRepository) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	saved, err := r.dbRepo.Save(ctx, u)
	if err != nil {
		return nil, err
	}

	r.invalidate(ctx, saved.Username, "save")
	return saved, nil
}

// AddRole links the role in the DB repository and invalidates the cached entry.
func (r *CachedUserRepository) AddRole(ctx context.Context, username, role string) (bool, error) {
	added, err := r.dbRepo.AddRole(ctx, username, role)
	if err != nil {
		return false, err
	}

	r.invalidate(ctx, username, "add role")
	return added, nil
}

// RemoveRole unlinks the role in the DB repository and invalidates the cached entry.
func (r *CachedUserRepository) RemoveRole(ctx context.Context, username, role string) (bool, error) {
	removed, err := r.dbRepo.RemoveRole(ctx, username, role)
	if err != nil {
		return false, err
	}

	r.invalidate(ctx, username, "remove role")
	return removed, nil
}

func (r *CachedUserRepository) invalidate(ctx context.Context, username, op string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, username); err != nil {
		r.log.Warn("failed to invalidate cache after "+op, zap.String("username", username), zap.Error(err))
	}
}

// FindByUsername retrieves a user using the cache-aside pattern. The cache
// version is read before the DB so a load that races a write is not cached.
func (r *CachedUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, username)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.String("username", username), zap.Error(err))
		} else if cachedUser != nil {
			r.log.Debug("user retrieved from cache", zap.String("username", username))
			return cachedUser, nil
		}
	}

	// Cache miss or cache disabled - use single-flight to prevent stampede
	result, err, _ := r.group.Do(cache.CacheKey(username), func() (any, error) {
		canFill := r.cache != nil
		var version int64
		if canFill {
			cachedUser, err := r.cache.Get(ctx, username)
			if err == nil && cachedUser != nil {
				r.log.Debug("user retrieved from cache after single-flight wait", zap.String("username", username))
				return cachedUser, nil
			}
			if version, err = r.cache.Version(ctx, username); err != nil {
				r.log.Warn("failed to read cache version, skipping fill", zap.String("username", username), zap.Error(err))
				canFill = false
			}
		}

		u, err := r.dbRepo.FindByUsername(ctx, username)
		if err != nil {
			return nil, err
		}

		if canFill {
			if _, err := r.cache.Set(ctx, u, version); err != nil {
				r.log.Warn("failed to cache user", zap.String("username", username), zap.Error(err))
			}
		}

		return u, nil
	})
	if err != nil {
		return nil, err
	}

	// callers mutate the returned user, and single-flight shares one value
	return result.(*domain.User).Clone(), nil
}
