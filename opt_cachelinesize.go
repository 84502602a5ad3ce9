//go:build !primemap_opt_cachelinesize_64

package primemap

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is used in map header padding to prevent false sharing
// between maps owned by different goroutines.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
