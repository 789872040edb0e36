// Package cache provides a Redis-backed cache for Bitrix24 lookup data.
//
// Dropdown sources (users, pipelines, stages, UF_ field metadata) change
// rarely but are requested every time a workflow form opens. The cache keeps
// the decoded lookup result per portal for a fixed TTL.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultConfig())
//
//	key := cache.CacheKey{
//		Portal: "acme.bitrix24.com",
//		Lookup: "dealStages",
//		Args:   map[string]string{"categoryId": "3"},
//	}
//
//	stages, err := cache.GetOrLoad(ctx, manager, key, func(ctx context.Context) ([]Option, error) {
//		return fetchStages(ctx, 3)
//	})
//
// A nil *Manager is valid and disables caching: GetOrLoad then always calls
// the loader.
//
// # Metrics
//
//   - bitrix24_cache_hits_total{layer="redis"} - Cache hits
//   - bitrix24_cache_misses_total - Cache misses
//   - bitrix24_cache_size_bytes{layer="redis"} - Bytes written to the cache
//   - bitrix24_cache_errors_total{operation} - Cache operation errors
package cache
