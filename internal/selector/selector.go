// Package selector turns per-mint balances into an ordered spend plan.
// Pure functions only; the orchestrator drains the plan in order.
package selector

import (
	"sort"

	"nutpay/internal/core/domain"
)

// MintBalance is the spendable balance held at one mint.
type MintBalance struct {
	Records []domain.TokenRecord
	Sum     uint64
	Info    *domain.MintInfo // nil when the mint row is unknown
}

// Candidate is one step of the spend plan: drain up to Sum from Mint.
type Candidate struct {
	Mint    string
	Records []domain.TokenRecord
	Sum     uint64
}

// BuildSpendPlan orders mints for a payment of targetAmount: the preferred
// mint first when it has balance, then descending capability score, then
// descending balance. Mints with zero balance are skipped. The caller drains
// min(remaining, candidate.Sum) from each candidate until remaining is zero
// or candidates run out (insufficient funds).
func BuildSpendPlan(balances map[string]MintBalance, preferredMint string, targetAmount uint64) []Candidate {
	preferred := domain.NormalizeMintURL(preferredMint)

	candidates := make([]Candidate, 0, len(balances))
	scores := make(map[string]int, len(balances))
	for mint, bal := range balances {
		if bal.Sum == 0 {
			continue
		}
		canonical := domain.NormalizeMintURL(mint)
		candidates = append(candidates, Candidate{
			Mint:    canonical,
			Records: bal.Records,
			Sum:     bal.Sum,
		})
		if bal.Info != nil {
			scores[canonical] = bal.Info.CapabilityScore()
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if preferred != "" {
			if (a.Mint == preferred) != (b.Mint == preferred) {
				return a.Mint == preferred
			}
		}
		if scores[a.Mint] != scores[b.Mint] {
			return scores[a.Mint] > scores[b.Mint]
		}
		if a.Sum != b.Sum {
			return a.Sum > b.Sum
		}
		return a.Mint < b.Mint // deterministic order for equal mints
	})

	return candidates
}

// PlanTotal returns the total value reachable by the plan.
func PlanTotal(plan []Candidate) uint64 {
	var total uint64
	for _, c := range plan {
		total += c.Sum
	}
	return total
}

// GroupBalances folds live token records into per-mint balances, attaching
// mint info rows when known.
func GroupBalances(records []domain.TokenRecord, mints []domain.MintInfo) map[string]MintBalance {
	infoByURL := make(map[string]*domain.MintInfo, len(mints))
	for i := range mints {
		if !mints[i].Deleted {
			infoByURL[domain.NormalizeMintURL(mints[i].URL)] = &mints[i]
		}
	}

	out := make(map[string]MintBalance)
	for _, rec := range records {
		if !rec.Live() {
			continue
		}
		mint := domain.NormalizeMintURL(rec.MintURL)
		bal := out[mint]
		bal.Records = append(bal.Records, rec)
		bal.Sum += rec.Amount
		bal.Info = infoByURL[mint]
		out[mint] = bal
	}
	return out
}
