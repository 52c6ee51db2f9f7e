package similarity

import (
	"math"
	"math/rand"
	"testing"

	"fingerprint.gateman.io/infrastructure/biometric/config"
	"fingerprint.gateman.io/infrastructure/biometric/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomHash(rng *rand.Rand, n int) types.BitString {
	b := types.NewBitString(n)
	rng.Read(b.Bits)
	return b
}

func randomMinutiae(rng *rand.Rand, n int) []types.Minutia {
	out := make([]types.Minutia, n)
	for i := range out {
		kind := types.Ending
		if rng.Intn(2) == 0 {
			kind = types.Bifurcation
		}
		out[i] = types.Minutia{X: 10 + rng.Intn(480), Y: 10 + rng.Intn(480), Type: kind, Direction: rng.Float64() * 360}
	}
	return out
}

func randomTemplate(seed int64) *types.Template {
	rng := rand.New(rand.NewSource(seed))
	t := &types.Template{
		Hash:     randomHash(rng, 1088),
		Minutiae: randomMinutiae(rng, 40),
		Texture:  &types.TextureGrid{},
		Pattern:  &types.PatternGrid{},
	}
	for i := 0; i < 150; i++ {
		t.Keypoints = append(t.Keypoints, types.Keypoint{X: rng.Float64() * 500, Y: rng.Float64() * 500, Strength: rng.Float64()})
		d := make(types.Descriptor, types.DescriptorSize)
		rng.Read(d)
		t.Descriptors = append(t.Descriptors, d)
	}
	for y := range t.Texture {
		for x := range t.Texture[y] {
			t.Texture[y][x] = types.TextureCell{Mean: rng.Float64() * 255, StdDev: rng.Float64() * 60}
		}
	}
	for y := range t.Pattern {
		for x := range t.Pattern[y] {
			t.Pattern[y][x] = types.PatternCell{RidgeDensity: rng.Float64() * 0.3, DominantAngle: rng.Float64() * math.Pi}
		}
	}
	return t
}

func TestAssign(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	assert.Equal(t, []int{1, 0, 2}, Assign(cost))

	wide := [][]float64{{9, 1, 9, 9}, {1, 9, 9, 9}}
	assert.Equal(t, []int{1, 0}, Assign(wide))

	tall := [][]float64{{9, 1}, {1, 9}, {5, 5}}
	got := Assign(tall)
	assert.Equal(t, 1, got[0])
	assert.Equal(t, 0, got[1])
	assert.Equal(t, -1, got[2])
}

func TestHashSimilaritySymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		a := randomHash(rng, 1088)
		b := randomHash(rng, 64+rng.Intn(1024))
		assert.Equal(t, HashSimilarity(a, b), HashSimilarity(b, a))
	}
	a := randomHash(rng, 1088)
	assert.Equal(t, 1.0, HashSimilarity(a, a))
	assert.Equal(t, 0.0, HashSimilarity(a, types.BitString{}))
}

func TestMinutiaeSimilarityIdentical(t *testing.T) {
	cfg := config.Default().Similarity
	ms := randomMinutiae(rand.New(rand.NewSource(5)), 30)
	assert.InDelta(t, 1.0, MinutiaeSimilarity(ms, ms, cfg), 1e-9)
	assert.Equal(t, 0.0, MinutiaeSimilarity(ms, nil, cfg))
}

func TestMinutiaeSimilaritySubset(t *testing.T) {
	cfg := config.Default().Similarity
	full := randomMinutiae(rand.New(rand.NewSource(9)), 40)
	subset := full[:10]
	ratio := 10.0 / 40.0
	// every subset point pairs with itself at zero cost
	want := 0.6*ratio + 0.2*1 + 0.2*ratio
	assert.InDelta(t, want, MinutiaeSimilarity(subset, full, cfg), 1e-9)
	assert.InDelta(t, want, MinutiaeSimilarity(full, subset, cfg), 1e-9)
}

func TestGridSimilarity(t *testing.T) {
	a := randomTemplate(1)
	b := randomTemplate(2)
	assert.InDelta(t, 1.0, TextureSimilarity(a.Texture, a.Texture), 1e-9)
	assert.InDelta(t, 1.0, PatternSimilarity(a.Pattern, a.Pattern), 1e-9)
	assert.Less(t, TextureSimilarity(a.Texture, b.Texture), 0.8)
	assert.Equal(t, 0.0, TextureSimilarity(nil, a.Texture))

	flat := &types.TextureGrid{}
	assert.InDelta(t, 1.0, TextureSimilarity(flat, flat), 1e-9)
}

func TestEnhance(t *testing.T) {
	cfg := config.Default().Similarity
	below := Enhance(cfg.Knee-1e-9, cfg)
	above := Enhance(cfg.Knee, cfg)
	assert.InDelta(t, below, above, 1e-6)
	assert.Less(t, Enhance(0.3, cfg), 0.3)
	assert.Greater(t, Enhance(0.7, cfg), 0.7)
	assert.Equal(t, 1.0, Enhance(1, cfg))
	prev := 0.0
	for s := 0.0; s <= 1.0; s += 0.01 {
		v := Enhance(s, cfg)
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, 1.0)
		prev = v
	}
}

func TestEngineSelfSimilarity(t *testing.T) {
	cfg := config.Default()
	engine := NewEngine(cfg.Similarity)
	a := randomTemplate(11)
	b := randomTemplate(12)

	self, err := engine.Compare(a, a)
	require.NoError(t, err)
	other, err := engine.Compare(a, b)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, self.Final, 0.9)
	assert.Greater(t, self.Final, cfg.Matcher.Threshold)
	assert.GreaterOrEqual(t, self.Final, other.Final)
	assert.Less(t, other.Final, cfg.Matcher.Threshold)
}

func TestEngineDegenerateCandidate(t *testing.T) {
	cfg := config.Default().Similarity
	engine := NewEngine(cfg)
	probe := randomTemplate(21)
	legacy := &types.Template{Hash: probe.Hash, Degraded: true}

	b, err := engine.Compare(probe, legacy)
	require.NoError(t, err)
	assert.True(t, b.HashOnly)
	assert.InDelta(t, cfg.DegradedHashScale, b.Final, 1e-9)
	assert.Greater(t, b.Final, 0.0)

	full, err := engine.Compare(probe, probe)
	require.NoError(t, err)
	assert.Less(t, b.Final, full.Final)
}
