package domain

import (
	"strings"
	"time"
)

// MintInfo describes a known mint, keyed by canonicalized URL. Duplicate rows
// for the same canonical URL are merged by score, keeping the richest one.
type MintInfo struct {
	URL           string    `json:"url"`
	Name          string    `json:"name,omitempty"`
	SupportsMPP   bool      `json:"supports_mpp"` // Multi-path payment capability
	InputFeePpk   uint      `json:"input_fee_ppk"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	Deleted       bool      `json:"deleted"`
}

// Score ranks duplicate rows: metadata richness first, recency as tiebreak.
// Higher wins.
func (m *MintInfo) Score() int {
	score := 0
	if m.Name != "" {
		score += 4
	}
	if m.SupportsMPP {
		score += 2
	}
	if m.InputFeePpk > 0 {
		score++
	}
	if !m.LastCheckedAt.IsZero() {
		score++
	}
	if !m.LastSeenAt.IsZero() {
		score++
	}
	return score
}

// CapabilityScore orders mints for spend planning: capability flags beat fees.
func (m *MintInfo) CapabilityScore() int {
	score := 0
	if m.SupportsMPP {
		score += 2
	}
	if m.InputFeePpk == 0 {
		score++
	}
	return score
}

// NormalizeMintURL canonicalizes a mint URL: lowercase scheme and host,
// https default, no trailing slash. Used for every mint-keyed lookup so that
// "HTTPS://Mint.example/" and "https://mint.example" collapse to one key.
func NormalizeMintURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		// Plain http is kept; local mints use it.
		return "http://" + normalizeHostPath(s[len("http://"):])
	}
	return "https://" + normalizeHostPath(s)
}

func normalizeHostPath(s string) string {
	s = strings.TrimRight(s, "/")
	host := s
	path := ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		host, path = s[:i], s[i:]
	}
	return strings.ToLower(host) + path
}
