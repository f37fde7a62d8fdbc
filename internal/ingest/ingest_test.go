package ingest

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flybeeper/geocover/compress"
	"github.com/flybeeper/geocover/internal/config"
)

func TestIsValidGeohash(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"u09t", true},
		{"tdnu2z", true},
		{"", false},
		{"u09a", false},          // 'a' excluded from alphabet
		{"u09i", false},          // 'i' excluded
		{"123456789012x", false}, // too long (13 chars)
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isValidGeohash(tc.in), tc.in)
	}
}

func TestMarshalSnapshot(t *testing.T) {
	raw, err := marshalSnapshot([]string{"u09t", "u09w"})
	require.NoError(t, err)
	assert.JSONEq(t, `["u09t","u09w"]`, string(raw))
}

func TestNewRequiresAccumulator(t *testing.T) {
	logger := logrus.New().WithField("test", "ingest")
	_, err := New(config.MQTTConfig{URL: "tcp://localhost:1883"}, logger, nil)
	require.Error(t, err)
}

func TestNewWiresAccumulator(t *testing.T) {
	logger := logrus.New().WithField("test", "ingest")
	acc := compress.NewAccumulator(1, 12)
	c, err := New(config.MQTTConfig{URL: "tcp://localhost:1883", ClientID: "test"}, logger, acc)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
}
