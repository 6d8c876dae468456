package pkg

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"
)

// CryptoIntn returns a uniform int in [0, n).
func CryptoIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// CryptoFloat64 returns a uniform float in [0, 1) built from 53 random bits.
func CryptoFloat64() float64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return float64(binary.BigEndian.Uint64(b[:])>>11) / (1 << 53)
}
