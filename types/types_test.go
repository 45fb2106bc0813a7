package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumString(t *testing.T) {
	// SHA-256 hash of the empty string
	checksum := ChecksumOf(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", checksum.String())

	copied, err := NewChecksum(checksum.Bytes())
	require.NoError(t, err)
	assert.Equal(t, checksum, copied)

	_, err = NewChecksum([]byte{1, 2, 3})
	require.EqualError(t, err, "checksum must be 32 bytes, got 3")

	parsed, err := ParseChecksum(checksum.String())
	require.NoError(t, err)
	assert.Equal(t, checksum, parsed)
	_, err = ParseChecksum("zz")
	require.Error(t, err)

	bz, err := json.Marshal(checksum)
	require.NoError(t, err)
	assert.Equal(t, `"`+checksum.String()+`"`, string(bz))
	var decoded Checksum
	require.NoError(t, json.Unmarshal(bz, &decoded))
	assert.Equal(t, checksum, decoded)

	other := ChecksumOf([]byte("x"))
	assert.Equal(t, 0, checksum.Compare(checksum))
	assert.Equal(t, -other.Compare(checksum), checksum.Compare(other))
}

func TestModuleMetricsMessagePack(t *testing.T) {
	metrics := ModuleMetrics{
		PerModule: []PerModuleEntry{
			{Checksum: ChecksumOf([]byte("a")), Metrics: PerModuleMetrics{Hits: 3, Size: 120, StaticMemoryGas: 50, InstructionGas: 3253}},
			{Checksum: ChecksumOf([]byte("b")), Metrics: PerModuleMetrics{Hits: 0, Size: 8}},
		},
	}
	bz, err := metrics.MarshalMessagePack()
	require.NoError(t, err)

	var decoded ModuleMetrics
	require.NoError(t, decoded.UnmarshalMessagePack(bz))
	assert.Equal(t, metrics, decoded)
}
