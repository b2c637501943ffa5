// Package panel keeps the single global panel armed/disarmed flag.
//
// The flag lives in a small key-value Cache: a JSON file on disk (FileCache)
// or Redis (RedisCache). State wraps a cache with a mutex so the default-on-read
// path and explicit sets never interleave.
package panel
