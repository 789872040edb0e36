package cache

import (
	"fmt"
	"sort"
	"strings"
)

// KeyPrefix prefixes every key written by the manager.
const KeyPrefix = "bitrix24:options"

// CacheKey identifies one lookup result.
type CacheKey struct {
	// Portal is the host of the Bitrix24 installation
	Portal string

	// Lookup names the data source, e.g. "users" or "dealStages"
	Lookup string

	// Args are the lookup arguments, e.g. {"categoryId": "3"}
	Args map[string]string
}

// String generates a deterministic cache key string.
// Format: bitrix24:options:portal:lookup:arg1=val1:arg2=val2
//
// Example:
//
//	bitrix24:options:acme.bitrix24.com:dealStages:categoryId=3
func (k CacheKey) String() string {
	parts := []string{KeyPrefix, strings.ToLower(k.Portal), k.Lookup}

	if len(k.Args) > 0 {
		keys := make([]string, 0, len(k.Args))
		for key := range k.Args {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Args[key]))
		}
	}

	return strings.Join(parts, ":")
}

// PortalPattern matches every key of one portal.
func PortalPattern(portal string) string {
	return fmt.Sprintf("%s:%s:*", KeyPrefix, strings.ToLower(portal))
}
