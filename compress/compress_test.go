package compress

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/geocover/geohash"
)

func TestCompressNullInput(t *testing.T) {
	_, err := Compress(nil, 1, 12)
	assert.ErrorIs(t, err, ErrNullInput)
}

func TestCompressEmptyInput(t *testing.T) {
	out, err := Compress([]string{}, 1, 12)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCompressE4SiblingMerge(t *testing.T) {
	children, err := geohash.Children("tdnu2")
	require.NoError(t, err)
	in := make([]string, len(children))
	copy(in, children[:])

	out, err := Compress(in, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"tdnu2"}, out)
}

func TestCompressE5Pruning(t *testing.T) {
	out, err := Compress([]string{"y0", "y01", "z2"}, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"y0", "z2"}, out)
}

func TestCompressPassesThroughBelowMinLevel(t *testing.T) {
	out, err := Compress([]string{"u", "u09t"}, 3, 12)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u", "u09t"}, out)
}

func TestCompressTruncatesAboveMaxLevel(t *testing.T) {
	out, err := Compress([]string{"tdnu2abc"}, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"tdnu2"}, out)
}

func TestCompressIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	in := randomGeohashes(rng)

	first, err := Compress(in, 1, 12)
	require.NoError(t, err)
	second, err := Compress(first, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompressEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	in := randomGeohashes(rng)

	out, err := Compress(in, 1, 12)
	require.NoError(t, err)

	before := coveredArea(t, in, 12)
	after := coveredArea(t, out, 12)
	assert.InDelta(t, before, after, before*1e-9)
}

// randomGeohashes builds a sample covering 32 disjoint precision-1
// regions (one per alphabet character, so no two regions can ever
// overlap): each region contributes either a complete 32-way sibling
// group (giving the merge pass something to collapse) or exactly one
// fixed-depth singleton, so no two generated entries can be a prefix of
// one another either.
func randomGeohashes(rng *rand.Rand) []string {
	var out []string
	for _, c := range alphabet {
		prefix := string(c)
		if rng.Intn(2) == 0 {
			children, err := geohash.Children(prefix)
			if err == nil {
				out = append(out, children[:]...)
				continue
			}
		}
		out = append(out, prefix+randomPrefix(rng, 3))
	}
	return out
}

const alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

func randomAlphabetChar(rng *rand.Rand) byte {
	return alphabet[rng.Intn(len(alphabet))]
}

func randomPrefix(rng *rand.Rand, length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = randomAlphabetChar(rng)
	}
	return string(b)
}

// coveredArea sums each cell's bounding-box area, truncated to maxLevel,
// as a proxy for "region covered": compression must never change it.
func coveredArea(t *testing.T, hashes []string, maxLevel int) float64 {
	t.Helper()
	var total float64
	for _, h := range hashes {
		if len(h) > maxLevel {
			h = h[:maxLevel]
		}
		box, err := geohash.BoundingBoxOf(h)
		require.NoError(t, err)
		total += (box.MaxLat - box.MinLat) * (box.MaxLng - box.MinLng)
	}
	return total
}

func TestCompressSortedOutput(t *testing.T) {
	out, err := Compress([]string{"z2", "y0", "b1"}, 1, 12)
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(out))
}
