package reedsolomon

import "math/rand"

const (
	kib = 1024
	mib = 1024 * 1024
)

func fillRandom(v []byte) {
	for i := 0; i < len(v); i += 7 {
		val := rand.Int63()
		for j := 0; i+j < len(v) && j < 7; j++ {
			v[i+j] = byte(val)
			val >>= 8
		}
	}
}

// makeShards allocates d+p shards of the given size and fills the first
// d with random data.
func makeShards(d, p, size int) [][]byte {
	shards := make([][]byte, d+p)
	for i := range shards {
		shards[i] = make([]byte, size)
	}
	for i := 0; i < d; i++ {
		fillRandom(shards[i])
	}
	return shards
}

func cloneShards(shards [][]byte) [][]byte {
	out := make([][]byte, len(shards))
	for i := range shards {
		out[i] = make([]byte, len(shards[i]))
		copy(out[i], shards[i])
	}
	return out
}
