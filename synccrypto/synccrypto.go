// Package synccrypto seals and opens the wire blobs SyncEngine exchanges
// with a sync server, using a 32-byte secret shared out of band.
package synccrypto

import (
	"crypto/rand"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/entro/taskrepl/errs"
)

// KeySize is the required length of a sync encryption key.
const KeySize = 32

// Key is a shared secretbox key, distributed to every replica that syncs
// against the same server out of band (never transmitted over the wire
// itself).
type Key [KeySize]byte

// ParseKey validates raw as a KeySize-byte key.
func ParseKey(raw []byte) (Key, error) {
	var k Key
	if len(raw) != KeySize {
		return k, errs.New("synccrypto.ParseKey", errs.BadConfig)
	}
	copy(k[:], raw)
	return k, nil
}

// Seal encrypts plaintext under key, returning a nonce-prefixed ciphertext
// safe to hand to an untrusted sync server.
func Seal(key Key, plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errs.Wrap("synccrypto.Seal", errs.SyncCrypto, err)
	}
	out := make([]byte, 24, 24+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	out = secretbox.Seal(out, plaintext, &nonce, (*[32]byte)(&key))
	return out, nil
}

// Open reverses Seal, failing errs.SyncCrypto if sealed was tampered with,
// truncated, or sealed under a different key.
func Open(key Key, sealed []byte) ([]byte, error) {
	if len(sealed) < 24 {
		return nil, errs.New("synccrypto.Open", errs.SyncCrypto)
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, (*[32]byte)(&key))
	if !ok {
		return nil, errs.New("synccrypto.Open", errs.SyncCrypto)
	}
	return plaintext, nil
}
