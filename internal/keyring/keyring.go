// Package keyring holds the wallet's messaging identity: a secp256k1 keypair
// used for gift-wrap addressing and for Schnorr signatures on Credo tokens.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for the at-rest key encryption.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Keyring wraps the wallet identity private key.
type Keyring struct {
	priv *btcec.PrivateKey
}

// Generate creates a fresh identity keypair.
func Generate() (*Keyring, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generating identity key: %w", err)
	}
	return &Keyring{priv: priv}, nil
}

// FromHex loads a keyring from a 32-byte hex private key.
func FromHex(h string) (*Keyring, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return &Keyring{priv: priv}, nil
}

// PublicKeyHex returns the x-only public key, hex encoded (the messaging
// identity shared with contacts).
func (k *Keyring) PublicKeyHex() string {
	return hex.EncodeToString(schnorr.SerializePubKey(k.priv.PubKey()))
}

// PrivateKeyBytes returns the raw private key for the transport wrap call.
func (k *Keyring) PrivateKeyBytes() []byte {
	return k.priv.Serialize()
}

// Sign produces a 64-byte Schnorr signature over a 32-byte digest, hex encoded.
func (k *Keyring) Sign(digest []byte) (string, error) {
	if len(digest) != 32 {
		return "", fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := schnorr.Sign(k.priv, digest)
	if err != nil {
		return "", fmt.Errorf("schnorr sign: %w", err)
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

// VerifySignature checks a hex Schnorr signature over digest against an
// x-only hex public key.
func VerifySignature(pubkeyHex string, digest []byte, sigHex string) bool {
	pubBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil || len(pubBytes) != 32 {
		return false
	}
	pub, err := schnorr.ParsePubKey(pubBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pub)
}

// Export encrypts the private key under a passphrase for storage.
// Format: $nutpay$v1$m=65536,t=1,p=4$<salt-b64>$<nonce+ciphertext-b64>
func (k *Keyring) Export(passphrase string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aesGCM.Seal(nonce, nonce, k.priv.Serialize(), nil)

	return fmt.Sprintf(
		"$nutpay$v1$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sealed),
	), nil
}

// Import decrypts an exported keyring with the passphrase.
func Import(encoded, passphrase string) (*Keyring, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "nutpay" || parts[2] != "v1" {
		return nil, fmt.Errorf("invalid keyring format")
	}

	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return nil, fmt.Errorf("parsing KDF params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	sealed, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, timeCost, memory, threads, argon2KeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	if len(sealed) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ct := sealed[:aesGCM.NonceSize()], sealed[aesGCM.NonceSize():]
	raw, err := aesGCM.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("wrong passphrase or corrupted keyring: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("decrypted key has unexpected length %d", len(raw))
	}
	priv, _ := btcec.PrivKeyFromBytes(raw)
	return &Keyring{priv: priv}, nil
}
