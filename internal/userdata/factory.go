package userdata

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/nfrund/roster/internal/config"
	"github.com/spf13/afero"
)

// NewStoreFactory picks the backend named by cfg. rdb is only used for the
// redis backend and may be nil otherwise.
func NewStoreFactory(cfg config.Provider, fsys afero.Fs, rdb redis.Cmdable) (StoreFactory, error) {
	switch cfg.GetCacheBackend() {
	case config.CacheBackendMemory:
		return MemoryStoreFactory(), nil
	case config.CacheBackendFile, "":
		if fsys == nil {
			fsys = afero.NewOsFs()
		}
		return FileStoreFactory(fsys, cfg.GetCacheDir()), nil
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("cache backend %q needs a redis client", config.CacheBackendRedis)
		}
		return RedisStoreFactory(rdb), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.GetCacheBackend())
	}
}

// NewRedisClient connects to the Redis server described by cfg.
func NewRedisClient(cfg config.Provider) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})
}
