package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// KeySize is the raw AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the CBC initialization vector length (one AES block).
	IVSize = aes.BlockSize
)

// ErrCipher is returned for every encryption or decryption failure: bad key
// or IV length, invalid Base64, truncated ciphertext or bad padding. Wrong
// keys and corrupted data are deliberately indistinguishable.
var ErrCipher = errors.New("cipher failure")

// errDecrypt is what callers see when ciphertext cannot be opened.
var errDecrypt = fmt.Errorf("%w: decryption failed", ErrCipher)

// b64 rejects non-zero padding bits so that every change to the stored text
// changes the decoded ciphertext.
var b64 = base64.StdEncoding.Strict()

// KeyMaterial is the key and IV used for one operation. The zero value is
// not usable.
type KeyMaterial struct {
	Key []byte
	IV  []byte
}

// Validate checks key and IV lengths.
func (km KeyMaterial) Validate() error {
	if len(km.Key) != KeySize {
		return fmt.Errorf("%w: key must be %d bytes, got %d", ErrCipher, KeySize, len(km.Key))
	}
	if len(km.IV) != IVSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrCipher, IVSize, len(km.IV))
	}
	return nil
}

// Wipe zeroes the key bytes in place.
func (km KeyMaterial) Wipe() {
	clear(km.Key)
}

// ZeroIV returns a fresh all-zero IV.
//
// Deprecated: a fixed IV reused under one key makes encryption deterministic,
// so equal plaintexts (and equal leading blocks) produce equal ciphertexts.
// It remains as the default when no IV is configured and for deterministic
// test fixtures. Deployments should configure a secret random IV.
func ZeroIV() []byte {
	return make([]byte, IVSize)
}

// Encrypt encrypts plaintext with AES-256-CBC and PKCS#7 padding and returns
// standard Base64 text. The same inputs always produce the same output.
func Encrypt(plaintext string, key, iv []byte) (string, error) {
	km := KeyMaterial{Key: key, IV: iv}
	if err := km.Validate(); err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: creating AES cipher: %v", ErrCipher, err)
	}
	padded := pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return b64.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt.
func Decrypt(ciphertext string, key, iv []byte) (string, error) {
	km := KeyMaterial{Key: key, IV: iv}
	if err := km.Validate(); err != nil {
		return "", err
	}
	raw, err := b64.DecodeString(ciphertext)
	if err != nil {
		return "", errDecrypt
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", errDecrypt
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: creating AES cipher: %v", ErrCipher, err)
	}
	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, raw)
	plain, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", errDecrypt
	}
	return string(plain), nil
}

// pad appends PKCS#7 padding; a full block is added when len(b) is already
// a multiple of size.
func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
