package domain

import "fmt"

// CounterKey builds the composite key for per-keyset blinding counters and
// restore cursors: normalized mint URL, unit, keyset id. Once an index range
// has been presented to the mint under this key it must never be reused.
func CounterKey(mintURL, unit, keysetID string) string {
	return fmt.Sprintf("%s:%s:%s", NormalizeMintURL(mintURL), unit, keysetID)
}
