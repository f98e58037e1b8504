package cache

import (
	"fmt"
	"net/url"

	"github.com/cespare/xxhash/v2"
)

// maxKeyLength is the longest key kept verbatim; longer keys are hashed
const maxKeyLength = 200

// KeyFor builds a stable cache key from a namespace and a parameter map.
// Parameters are query-encoded and sorted by name, so the key does not
// depend on insertion order and a value can never pass for another
// parameter. Empty values are dropped so an unset parameter and a missing
// one agree.
func KeyFor(namespace string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}

	key := namespace
	if encoded := q.Encode(); encoded != "" {
		key = fmt.Sprintf("%s__%s", namespace, encoded)
	}

	if len(key) > maxKeyLength {
		return fmt.Sprintf("%s__hash_%016x", namespace, xxhash.Sum64String(key))
	}
	return key
}
