package core

import (
	"crypto/sha256"
	"encoding/binary"
)

const genesisHashSeed = "circuit-breaker-token:genesis:v1"

// ChainHasher links every committed event into a hash chain:
// hash[N] = SHA-256(prev_hash || sequence || tick || payload).
type ChainHasher struct {
	prevHash [32]byte
}

func NewChainHasher() *ChainHasher {
	return &ChainHasher{
		prevHash: sha256.Sum256([]byte(genesisHashSeed)),
	}
}

// ComputeHash extends the chain with one event and returns the new tip.
func (h *ChainHasher) ComputeHash(sequence, tick int64, payload []byte) [32]byte {
	hasher := sha256.New()

	hasher.Write(h.prevHash[:])

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(sequence))
	hasher.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(tick))
	hasher.Write(buf[:])

	hasher.Write(payload)

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))

	h.prevHash = hash

	return hash
}

// PrevHash returns the current chain tip.
func (h *ChainHasher) PrevHash() [32]byte {
	return h.prevHash
}

// SetPrevHash restores the chain tip after event-log replay.
func (h *ChainHasher) SetPrevHash(hash [32]byte) {
	h.prevHash = hash
}
