package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProofs_Sum(t *testing.T) {
	ps := Proofs{
		{Amount: 1, Secret: "a"},
		{Amount: 8, Secret: "b"},
		{Amount: 16, Secret: "c"},
	}
	assert.Equal(t, uint64(25), ps.Sum())
	assert.Equal(t, []string{"a", "b", "c"}, ps.Secrets())
	assert.Equal(t, uint64(0), Proofs{}.Sum())
}

func TestNormalizeMintURL(t *testing.T) {
	cases := map[string]string{
		"https://mint.example.com":        "https://mint.example.com",
		"https://Mint.Example.com/":       "https://mint.example.com",
		"HTTPS://MINT.EXAMPLE.COM":        "https://mint.example.com",
		"mint.example.com":                "https://mint.example.com",
		"mint.example.com/path/":          "https://mint.example.com/path",
		"http://localhost:3338":           "http://localhost:3338",
		"http://LocalHost:3338/":          "http://localhost:3338",
		"https://mint.example.com/SubDir": "https://mint.example.com/SubDir",
		"":                                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMintURL(in), "input %q", in)
	}
}

func TestCounterKey(t *testing.T) {
	k1 := CounterKey("https://Mint.Example.com/", "sat", "009a1f29")
	k2 := CounterKey("mint.example.com", "sat", "009a1f29")
	assert.Equal(t, k1, k2)
	assert.Equal(t, "https://mint.example.com:sat:009a1f29", k1)
}

func TestMintInfo_Score(t *testing.T) {
	bare := &MintInfo{URL: "https://m"}
	rich := &MintInfo{
		URL:           "https://m",
		Name:          "Mint",
		SupportsMPP:   true,
		InputFeePpk:   100,
		LastSeenAt:    time.Now(),
		LastCheckedAt: time.Now(),
	}
	assert.Greater(t, rich.Score(), bare.Score())
}

func TestTokenRecord_Live(t *testing.T) {
	rec := NewTokenRecord("cashuA...", "https://Mint.Example.com/", "sat", 21)
	assert.True(t, rec.Live())
	assert.Equal(t, "https://mint.example.com", rec.MintURL)

	rec.Deleted = true
	assert.False(t, rec.Live())

	rec.Deleted = false
	rec.State = TokenStatePending
	assert.False(t, rec.Live())
}

func TestPromiseRecord_ApplySettlement(t *testing.T) {
	rec := &PromiseRecord{
		PromiseID: "abc",
		Token: PromiseToken{
			ID:      "abc",
			Payload: PromisePayload{Type: PayloadTypePromise, Amount: 100, Unit: "sat"},
		},
		Direction: PromiseIssued,
		Valid:     true,
	}
	assert.Equal(t, uint64(100), rec.Outstanding())

	amt := uint64(30)
	assert.True(t, rec.ApplySettlement("s1", &amt))
	assert.Equal(t, uint64(30), rec.SettledAmount)
	assert.Equal(t, uint64(70), rec.Outstanding())

	// Duplicate delivery is a no-op.
	assert.False(t, rec.ApplySettlement("s1", &amt))
	assert.Equal(t, uint64(30), rec.SettledAmount)

	// Over-settlement clamps at the promise amount.
	big := uint64(500)
	assert.True(t, rec.ApplySettlement("s2", &big))
	assert.Equal(t, uint64(100), rec.SettledAmount)
	assert.Equal(t, uint64(0), rec.Outstanding())
}

func TestPromiseRecord_FullSettlement(t *testing.T) {
	rec := &PromiseRecord{
		Token: PromiseToken{Payload: PromisePayload{Amount: 55}},
	}
	// nil amount means fully settled.
	assert.True(t, rec.ApplySettlement("s-full", nil))
	assert.Equal(t, uint64(55), rec.SettledAmount)
	assert.Equal(t, uint64(0), rec.Outstanding())
}

func TestPromiseToken_Expired(t *testing.T) {
	now := time.Now()
	tok := &PromiseToken{Payload: PromisePayload{ExpiresAt: now.Add(time.Hour).Unix()}}
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(2*time.Hour)))
}
