// Package cipher implements the commutative SRA card cipher: a single
// scalar key serves as both the encryption exponent and, via its
// modular inverse, the decryption exponent, over the fixed prime field
// in internal/bigmod.
package cipher

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/ocplabs/holdemcore/internal/bigmod"
)

// ErrOutOfRange is returned by Decrypt when the stripped plaintext
// does not land in the embedded card range.
var ErrOutOfRange = errors.New("cipher: decrypted value out of range")

const (
	// CardCount is the number of distinct cards a standard deck holds.
	CardCount = 52
	// embedShift moves plaintext 0..51 to 2..53 so that encrypting
	// never raises the fixed points 0 or 1 to a power.
	embedShift = 2
)

// Key is a PlayerKey's scalar: the same value plays both the public
// encryption exponent and, through ModInv, the private decryption
// exponent (Pohlig-Hellman-style SRA).
type Key struct {
	scalar *big.Int
}

// GenerateKey samples a scalar uniformly from [3, P-1) that is coprime
// to bigmod.GroupOrder, so it has a modular inverse.
func GenerateKey() (Key, error) {
	upper := new(big.Int).Sub(bigmod.GroupOrder, big.NewInt(3))
	for i := 0; i < 1<<20; i++ {
		n, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return Key{}, fmt.Errorf("cipher: sampling key: %w", err)
		}
		k := new(big.Int).Add(n, big.NewInt(3))
		if bigmod.CoprimeToGroupOrder(k) {
			return Key{scalar: k}, nil
		}
	}
	return Key{}, fmt.Errorf("cipher: failed to sample a coprime key")
}

// KeyFromScalar wraps an existing scalar as a Key without checking
// coprimality; used by test harnesses with literal toy keys (e.g. S1's
// kA=7, kB=11).
func KeyFromScalar(scalar *big.Int) Key {
	return Key{scalar: new(big.Int).Set(scalar)}
}

// Public returns the key's public component (identical to the private
// component in this SRA scheme).
func (k Key) Public() *big.Int {
	return new(big.Int).Set(k.scalar)
}

// Bytes returns the key's 32-byte big-endian encoding.
func (k Key) Bytes() [32]byte {
	var out [32]byte
	k.scalar.FillBytes(out[:])
	return out
}

// EncryptedCard is a 32-byte big-endian integer in [0, P).
type EncryptedCard [32]byte

// Int returns the card's value as a big.Int.
func (c EncryptedCard) Int() *big.Int {
	return new(big.Int).SetBytes(c[:])
}

func fromInt(v *big.Int) EncryptedCard {
	var out EncryptedCard
	v.FillBytes(out[:])
	return out
}

func embed(card uint8) *big.Int {
	return big.NewInt(int64(card) + embedShift)
}

// Encrypt raises the embedded plaintext (card+2) to pk, producing a
// singly-encrypted card.
func Encrypt(card uint8, pk Key) (EncryptedCard, error) {
	if card >= CardCount {
		return EncryptedCard{}, fmt.Errorf("cipher: card %d out of range", card)
	}
	return fromInt(bigmod.ModPow(embed(card), pk.scalar)), nil
}

// EncryptLayer raises an already-encrypted value to pk, adding a
// layer, taking a singly-encrypted value to a doubly-encrypted one.
// The engine's reveal-coherence check does not use it: it re-encrypts
// the plaintext with Encrypt under the revealer's key alone.
func EncryptLayer(c EncryptedCard, pk Key) EncryptedCard {
	return fromInt(bigmod.ModPow(c.Int(), pk.scalar))
}

// StripLayer removes one layer of encryption applied under sk, by
// raising to sk's modular inverse.
func StripLayer(c EncryptedCard, sk Key) (EncryptedCard, error) {
	inv, err := bigmod.ModInv(sk.scalar)
	if err != nil {
		return EncryptedCard{}, fmt.Errorf("cipher: %w", err)
	}
	return fromInt(bigmod.ModPow(c.Int(), inv)), nil
}

// Decrypt strips a single layer under sk and un-embeds the result,
// failing with ErrOutOfRange if the result is not a valid card.
func Decrypt(c EncryptedCard, sk Key) (uint8, error) {
	stripped, err := StripLayer(c, sk)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).Sub(stripped.Int(), big.NewInt(embedShift))
	if v.Sign() < 0 || v.Cmp(big.NewInt(CardCount-1)) > 0 {
		return 0, ErrOutOfRange
	}
	return uint8(v.Int64()), nil
}

// EncryptDeck singly-encrypts every card 0..51 in order under pk,
// producing the deck a DeckCommitment is built over.
func EncryptDeck(pk Key) ([CardCount]EncryptedCard, error) {
	var out [CardCount]EncryptedCard
	for i := 0; i < CardCount; i++ {
		c, err := Encrypt(uint8(i), pk)
		if err != nil {
			return out, err
		}
		out[i] = c
	}
	return out, nil
}
