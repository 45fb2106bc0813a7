package host

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigIntEncoding(t *testing.T) {
	specs := map[string]struct {
		value int64
		bytes []byte
	}{
		"zero":      {0, []byte{0x00}},
		"one":       {1, []byte{0x01}},
		"127":       {127, []byte{0x7f}},
		"128":       {128, []byte{0x80, 0x00}},
		"minus one": {-1, []byte{0xff}},
		"-128":      {-128, []byte{0x80}},
		"-129":      {-129, []byte{0x7f, 0xff}},
		"1000":      {1000, []byte{0xe8, 0x03}},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, spec.bytes, EncodeBigInt(big.NewInt(spec.value)))
			assert.Equal(t, spec.value, DecodeBigInt(spec.bytes).Int64())
		})
	}
	assert.Equal(t, int64(0), DecodeBigInt(nil).Int64())

	huge, _ := new(big.Int).SetString("-340282366920938463463374607431768211457", 10)
	assert.Equal(t, 0, huge.Cmp(DecodeBigInt(EncodeBigInt(huge))))
}
