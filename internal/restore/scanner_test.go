package restore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"nutpay/internal/adapter/storage/memory"
	"nutpay/internal/core/domain"
	"nutpay/internal/core/ports"
	"nutpay/internal/counter"
	"nutpay/pkg/metrics"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanMint simulates a mint that remembers which blinding indices it signed.
type scanMint struct {
	keyset     string
	keysetList []string
	signed     map[uint32]domain.Proof
	spent      map[string]bool
	failMint   string

	restoreStarts []uint32
}

func newScanMint() *scanMint {
	return &scanMint{
		keyset: "keyset01",
		signed: make(map[uint32]domain.Proof),
		spent:  make(map[string]bool),
	}
}

func (m *scanMint) sign(index uint32, amount uint64) domain.Proof {
	p := domain.Proof{
		Amount:   amount,
		KeysetID: m.keyset,
		Secret:   fmt.Sprintf("det-%06d", index),
		C:        "02cc",
	}
	m.signed[index] = p
	return p
}

func (m *scanMint) DecodeToken(text string) (*ports.DecodedToken, error) {
	if !strings.HasPrefix(text, "cashuA") {
		return nil, errors.New("unknown token format")
	}
	var t ports.DecodedToken
	if err := json.Unmarshal([]byte(strings.TrimPrefix(text, "cashuA")), &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (m *scanMint) EncodeToken(t *ports.DecodedToken) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return "cashuA" + string(raw), nil
}

func (m *scanMint) ActiveKeyset(ctx context.Context, mint, unit string) (string, error) {
	if m.failMint != "" && mint == m.failMint {
		return "", errors.New("mint unreachable")
	}
	return m.keyset, nil
}

func (m *scanMint) Keysets(ctx context.Context, mint, unit string) ([]string, error) {
	if m.failMint != "" && mint == m.failMint {
		return nil, errors.New("mint unreachable")
	}
	if len(m.keysetList) > 0 {
		return m.keysetList, nil
	}
	return []string{m.keyset}, nil
}

func (m *scanMint) Restore(ctx context.Context, mint, unit, keysetID string, start uint32, batchSize, lookahead int) (*ports.RestoreBatch, error) {
	m.restoreStarts = append(m.restoreStarts, start)
	var indices []uint32
	for idx, p := range m.signed {
		if idx >= start && p.KeysetID == keysetID {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	batch := &ports.RestoreBatch{LastSignedIndex: -1}
	for _, idx := range indices {
		batch.Proofs = append(batch.Proofs, m.signed[idx])
		batch.LastSignedIndex = int64(idx)
	}
	return batch, nil
}

func (m *scanMint) CheckProofStates(ctx context.Context, mint string, proofs domain.Proofs) ([]ports.ProofState, error) {
	states := make([]ports.ProofState, len(proofs))
	for i, p := range proofs {
		if m.spent[p.Secret] {
			states[i] = ports.ProofStateSpent
		} else {
			states[i] = ports.ProofStateUnspent
		}
	}
	return states, nil
}

func (m *scanMint) Swap(ctx context.Context, mint, unit string, amount uint64, proofs domain.Proofs, opts ports.BlindOptions) (domain.Proofs, domain.Proofs, error) {
	return nil, nil, errors.New("not implemented")
}

func (m *scanMint) SwapFee(ctx context.Context, mint, unit string, proofs domain.Proofs) (uint64, error) {
	return 0, nil
}

func (m *scanMint) Receive(ctx context.Context, t *ports.DecodedToken, opts ports.BlindOptions) (domain.Proofs, error) {
	return nil, errors.New("not implemented")
}

func (m *scanMint) CreateMeltQuote(ctx context.Context, mint, unit, invoice string) (*ports.MeltQuote, error) {
	return nil, errors.New("not implemented")
}

func (m *scanMint) MeltProofs(ctx context.Context, mint string, quote *ports.MeltQuote, proofs domain.Proofs, opts ports.BlindOptions) (*ports.MeltOutcome, error) {
	return nil, errors.New("not implemented")
}

const mintURL = "https://mint-a.example.com"

func newScanner(t *testing.T, sm *scanMint, cfg Config) (*Scanner, *memory.TokenRepo, *counter.Store) {
	t.Helper()
	tokens := memory.NewTokenRepo()
	store := counter.NewStore(memory.NewCounterKV(), zerolog.Nop())
	sc := NewScanner(sm, tokens, store, cfg, metrics.Nop(), zerolog.Nop())
	return sc, tokens, store
}

func TestScan_DeepFallbackRecoversLostProofs(t *testing.T) {
	sm := newScanMint()
	ctx := context.Background()

	// Ten old proofs at low indices; local state claims the counter is far
	// past them, as after restoring a seed on a fresh device with a stale
	// counter import.
	var expected uint64
	for i := uint32(0); i < 10; i++ {
		p := sm.sign(i, uint64(i+1))
		expected += p.Amount
	}
	sm.spent[sm.signed[3].Secret] = true
	sm.spent[sm.signed[7].Secret] = true
	expected -= sm.signed[3].Amount + sm.signed[7].Amount

	sc, tokens, store := newScanner(t, sm, Config{Window: 100, ChunkSize: 3})
	key := domain.CounterKey(mintURL, "sat", sm.keyset)
	_, err := store.EnsureAtLeast(ctx, key, 500)
	require.NoError(t, err)

	results, err := sc.Scan(ctx, mintURL, "sat")
	require.NoError(t, err)
	require.Len(t, results, 1)
	res := results[0]

	assert.Equal(t, 8, res.RestoredProofs)
	assert.Equal(t, expected, res.RestoredAmount)
	// 8 proofs in chunks of 3 make 3 records.
	assert.Len(t, res.Records, 3)

	// Windowed scan at 400 came up empty, then the deep scan ran from zero.
	require.Len(t, sm.restoreStarts, 2)
	assert.Equal(t, uint32(400), sm.restoreStarts[0])
	assert.Equal(t, uint32(0), sm.restoreStarts[1])

	live, err := tokens.ListLive(ctx)
	require.NoError(t, err)
	var sum uint64
	for _, rec := range live {
		sum += rec.Amount
	}
	assert.Equal(t, expected, sum)

	// Counter stays at 500; the cursor records the scanned ground.
	next, err := store.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(500), next)
	cursor, err := store.Cursor(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), cursor)
}

func TestScan_SkipsProofsAlreadyHeld(t *testing.T) {
	sm := newScanMint()
	ctx := context.Background()

	held := sm.sign(0, 8)
	fresh := sm.sign(1, 16)

	sc, tokens, store := newScanner(t, sm, Config{})

	enc, err := sm.EncodeToken(&ports.DecodedToken{Mint: mintURL, Unit: "sat", Proofs: domain.Proofs{held}})
	require.NoError(t, err)
	require.NoError(t, tokens.Insert(ctx, domain.NewTokenRecord(enc, mintURL, "sat", held.Amount)))

	results, err := sc.Scan(ctx, mintURL, "sat")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 1, results[0].RestoredProofs)
	assert.Equal(t, fresh.Amount, results[0].RestoredAmount)

	// Issuance resumes above the highest signed index.
	key := domain.CounterKey(mintURL, "sat", sm.keyset)
	next, err := store.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), next)
}

func TestScan_NothingSignedAdvancesNothing(t *testing.T) {
	sm := newScanMint()
	ctx := context.Background()

	sc, tokens, store := newScanner(t, sm, Config{})
	results, err := sc.Scan(ctx, mintURL, "sat")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Zero(t, results[0].RestoredProofs)
	assert.Empty(t, results[0].Records)
	assert.Empty(t, tokens.All())

	key := domain.CounterKey(mintURL, "sat", sm.keyset)
	next, err := store.NextCounter(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, next)

	// Fresh state starts at zero, so no deep fallback fires.
	assert.Equal(t, []uint32{0}, sm.restoreStarts)
}

func TestScan_CoversRotatedKeysets(t *testing.T) {
	sm := newScanMint()
	ctx := context.Background()

	// Proofs issued under a keyset the mint later rotated away from.
	sm.keyset = "old01"
	old := sm.sign(0, 32)
	sm.keyset = "new01"
	fresh := sm.sign(1, 8)
	sm.keysetList = []string{"new01", "old01"}

	sc, _, store := newScanner(t, sm, Config{})
	results, err := sc.Scan(ctx, mintURL, "sat")
	require.NoError(t, err)
	require.Len(t, results, 2)

	var total uint64
	for _, res := range results {
		total += res.RestoredAmount
	}
	assert.Equal(t, old.Amount+fresh.Amount, total)

	// The rotated keyset keeps its own counter, raised past its last index.
	next, err := store.NextCounter(ctx, domain.CounterKey(mintURL, "sat", "old01"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), next)
}

func TestScanAll_ContinuesPastFailingMint(t *testing.T) {
	sm := newScanMint()
	sm.failMint = "https://down.example.com"
	sm.sign(0, 4)
	ctx := context.Background()

	sc, _, _ := newScanner(t, sm, Config{})
	results, err := sc.ScanAll(ctx, []string{sm.failMint, mintURL}, "sat")

	// The healthy mint still gets scanned; the failure is reported.
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint64(4), results[0].RestoredAmount)
}
