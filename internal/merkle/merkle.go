// Package merkle builds the binary Merkle commitment over a 52-card
// encrypted deck: Keccak-256 leaves and nodes, with unpaired nodes
// promoted unchanged rather than duplicated.
package merkle

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ocplabs/holdemcore/internal/cipher"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash [32]byte

// Proof is an inclusion proof: the sibling hashes encountered walking
// from a leaf to the root, in bottom-up order, plus the leaf's index
// in the original (pre-tree) ordering.
type Proof struct {
	Siblings []Hash
	Index    int
}

func leafHash(c cipher.EncryptedCard) Hash {
	return Hash(crypto.Keccak256(c[:]))
}

func nodeHash(left, right Hash) Hash {
	var buf [64]byte
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return Hash(crypto.Keccak256(buf[:]))
}

// levelUp folds one level of a tree, promoting an unpaired trailing
// node unchanged rather than duplicating it.
func levelUp(level []Hash) []Hash {
	next := make([]Hash, 0, (len(level)+1)/2)
	for i := 0; i+1 < len(level); i += 2 {
		next = append(next, nodeHash(level[i], level[i+1]))
	}
	if len(level)%2 == 1 {
		next = append(next, level[len(level)-1])
	}
	return next
}

// Root returns the Merkle root over the 52 encrypted cards.
func Root(cards [cipher.CardCount]cipher.EncryptedCard) Hash {
	level := leaves(cards)
	for len(level) > 1 {
		level = levelUp(level)
	}
	return level[0]
}

func leaves(cards [cipher.CardCount]cipher.EncryptedCard) []Hash {
	level := make([]Hash, len(cards))
	for i, c := range cards {
		level[i] = leafHash(c)
	}
	return level
}

// BuildProof returns the inclusion proof for the card at index i.
func BuildProof(cards [cipher.CardCount]cipher.EncryptedCard, i int) (Proof, error) {
	if i < 0 || i >= cipher.CardCount {
		return Proof{}, errOutOfRange
	}
	level := leaves(cards)
	idx := i
	var siblings []Hash
	for len(level) > 1 {
		if idx%2 == 0 {
			if idx+1 < len(level) {
				siblings = append(siblings, level[idx+1])
			}
			// odd-node promotion: no sibling recorded when idx is the
			// trailing unpaired node.
		} else {
			siblings = append(siblings, level[idx-1])
		}
		level = levelUp(level)
		idx = idx / 2
	}
	return Proof{Siblings: siblings, Index: i}, nil
}

// Verify checks that leaf, walked up through proof, resolves to root.
// It reconstructs the same odd-node promotion decisions BuildProof
// made, using the proof's recorded index and sibling count to tell a
// "promoted, no sibling" step from a "paired, sibling present" step.
func Verify(leaf Hash, proof Proof, root Hash, totalLeaves int) bool {
	cur := leaf
	idx := proof.Index
	levelSize := totalLeaves
	si := 0
	for levelSize > 1 {
		paired := idx%2 == 0 && idx+1 < levelSize || idx%2 == 1
		if paired {
			if si >= len(proof.Siblings) {
				return false
			}
			sib := proof.Siblings[si]
			si++
			if idx%2 == 0 {
				cur = nodeHash(cur, sib)
			} else {
				cur = nodeHash(sib, cur)
			}
		}
		// else: idx is the trailing unpaired node, promoted unchanged.
		idx = idx / 2
		levelSize = (levelSize + 1) / 2
	}
	if si != len(proof.Siblings) {
		return false
	}
	return cur == root
}

// LeafHash exposes the leaf-hash function for callers building proofs
// from a single EncryptedCard without the full deck in hand.
func LeafHash(c cipher.EncryptedCard) Hash {
	return leafHash(c)
}

var errOutOfRange = &outOfRangeError{}

type outOfRangeError struct{}

func (*outOfRangeError) Error() string { return "merkle: index out of range" }
