//go:build primemap_opt_cachelinesize_64

package primemap

// CacheLineSize is fixed to 64 bytes, overriding detection via `golang.org/x/sys`.
const CacheLineSize = 64
