package geohash

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVectors(t *testing.T) {
	cases := []struct {
		lat, lng  float64
		precision int
		want      string
	}{
		{52.5174, 13.409, 6, "u33dc0"},
		{0, 0, 6, "s00000"},
	}
	for _, c := range cases {
		got, err := Encode(c.lat, c.lng, c.precision)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestEncodeInvalidPrecision(t *testing.T) {
	_, err := Encode(0, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
	_, err = Encode(0, 0, 13)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestEncodeInvalidLatitude(t *testing.T) {
	_, err := Encode(90.1, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
	_, err = Encode(-90.1, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidCoordinate)
}

func TestEncodeLongitudeAntimeridianEquivalence(t *testing.T) {
	a, err := Encode(0, 180, 6)
	require.NoError(t, err)
	b, err := Encode(0, -180, 6)
	require.NoError(t, err)
	assert.Equal(t, b, a, "encode(0,180) and encode(0,-180) must agree since +180 normalizes to -180")
}

func TestDecodeErrors(t *testing.T) {
	_, _, err := Decode("")
	assert.ErrorIs(t, err, ErrEmptyGeohash)

	_, _, err = Decode("u33dc0u33dc0x")
	assert.ErrorIs(t, err, ErrTooLong)

	_, _, err = Decode("u33a!0")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
}

func TestBoundingBoxOfContainsCenter(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		precision := 1 + rng.Intn(MaxPrecision)
		lat := rng.Float64()*178 - 89
		lng := rng.Float64()*358 - 179
		hash, err := Encode(lat, lng, precision)
		require.NoError(t, err)

		box, err := BoundingBoxOf(hash)
		require.NoError(t, err)
		clat, clng := box.Center()
		assert.True(t, box.Contains(clat, clng))

		// round trip: encoding the box center at the same precision returns hash.
		back, err := Encode(clat, clng, precision)
		require.NoError(t, err)
		assert.Equal(t, hash, back)
	}
}

func TestChildrenTileParent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		precision := 1 + rng.Intn(MaxPrecision-1) // leave room for one more level
		lat := rng.Float64()*178 - 89
		lng := rng.Float64()*358 - 179
		hash, err := Encode(lat, lng, precision)
		require.NoError(t, err)

		parentBox, err := BoundingBoxOf(hash)
		require.NoError(t, err)

		children, err := Children(hash)
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, c := range children {
			require.Len(t, c, precision+1)
			require.True(t, IsPrefix(hash, c))
			assert.False(t, seen[c], "duplicate child %s", c)
			seen[c] = true
		}
		assert.Len(t, seen, 32)

		// tiling: union of child boxes equals parent box, no gaps/overlaps
		// checked via the lattice of distinct min/max edges.
		var minLat, maxLat, minLng, maxLng = 1000.0, -1000.0, 1000.0, -1000.0
		for _, c := range children {
			b, err := BoundingBoxOf(c)
			require.NoError(t, err)
			assert.True(t, b.MinLat >= parentBox.MinLat-1e-9)
			assert.True(t, b.MaxLat <= parentBox.MaxLat+1e-9)
			assert.True(t, b.MinLng >= parentBox.MinLng-1e-9)
			assert.True(t, b.MaxLng <= parentBox.MaxLng+1e-9)
			if b.MinLat < minLat {
				minLat = b.MinLat
			}
			if b.MaxLat > maxLat {
				maxLat = b.MaxLat
			}
			if b.MinLng < minLng {
				minLng = b.MinLng
			}
			if b.MaxLng > maxLng {
				maxLng = b.MaxLng
			}
		}
		assert.InDelta(t, parentBox.MinLat, minLat, 1e-9)
		assert.InDelta(t, parentBox.MaxLat, maxLat, 1e-9)
		assert.InDelta(t, parentBox.MinLng, minLng, 1e-9)
		assert.InDelta(t, parentBox.MaxLng, maxLng, 1e-9)
	}
}

func TestChildrenTooLong(t *testing.T) {
	hash, err := Encode(0, 0, MaxPrecision)
	require.NoError(t, err)
	_, err = Children(hash)
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestParentIsPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 200; i++ {
		precision := 2 + rng.Intn(MaxPrecision-1)
		hash, err := Encode(rng.Float64()*178-89, rng.Float64()*358-179, precision)
		require.NoError(t, err)

		parent, err := Parent(hash)
		require.NoError(t, err)
		assert.Equal(t, hash[:len(hash)-1], parent)
	}
}

func TestParentNoParent(t *testing.T) {
	_, err := Parent("s")
	assert.ErrorIs(t, err, ErrNoParent)
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, "tdnu2", CommonPrefix("tdnu20", "tdnu2z"))
	assert.Equal(t, "", CommonPrefix("abc", "xyz"))
}

func TestStepFormula(t *testing.T) {
	latStep, lngStep := Step(1)
	assert.InDelta(t, 45.0, latStep, 1e-9)
	assert.InDelta(t, 45.0, lngStep, 1e-9)

	latStep, lngStep = Step(6)
	assert.InDelta(t, 180/pow2Test(15), latStep, 1e-9)
	assert.InDelta(t, 360/pow2Test(15), lngStep, 1e-9)
}

func pow2Test(n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= 2
	}
	return r
}

func TestErrorsAreSentinel(t *testing.T) {
	_, err := Encode(0, 0, 0)
	var target error = ErrInvalidPrecision
	assert.True(t, errors.Is(err, target))
}
