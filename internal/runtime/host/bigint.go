package host

import (
	"math/big"
	"slices"

	"github.com/holiman/uint256"
)

// DecodeBigInt reads a signed little-endian two's complement integer.
// An empty slice is zero.
func DecodeBigInt(bz []byte) *big.Int {
	if len(bz) == 0 {
		return new(big.Int)
	}
	be := slices.Clone(bz)
	slices.Reverse(be)
	x := new(big.Int).SetBytes(be)
	if be[0]&0x80 != 0 {
		x.Sub(x, new(big.Int).Lsh(big.NewInt(1), uint(8*len(be))))
	}
	return x
}

// EncodeBigInt writes x as the shortest signed little-endian two's complement
// integer. Zero is a single zero byte.
func EncodeBigInt(x *big.Int) []byte {
	var n int
	t := new(big.Int)
	if x.Sign() >= 0 {
		n = x.BitLen()/8 + 1
		t.Set(x)
	} else {
		// -2^(8n-1) is the most negative value that fits n bytes
		n = new(big.Int).Abs(new(big.Int).Add(x, big.NewInt(1))).BitLen()/8 + 1
		t.Lsh(big.NewInt(1), uint(8*n))
		t.Add(t, x)
	}
	bz := t.FillBytes(make([]byte, n))
	slices.Reverse(bz)
	return bz
}

// toWords returns x and y as 256-bit words when both are non-negative and
// fit.
func toWords(x, y *big.Int) (*uint256.Int, *uint256.Int, bool) {
	if x.Sign() < 0 || y.Sign() < 0 {
		return nil, nil, false
	}
	a, overflow := uint256.FromBig(x)
	if overflow {
		return nil, nil, false
	}
	b, overflow := uint256.FromBig(y)
	if overflow {
		return nil, nil, false
	}
	return a, b, true
}
