// Package envelope opens the encrypted transport form of an inbound
// notification. The wire format is base64(iv || ciphertext) where iv is the
// first 16 bytes and the remainder is AES-256-CBC with PKCS#7 padding.
// Signature verification happens at the boundary before this package runs.
package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	dErrors "docket/pkg/domain-errors"
)

const keySize = 32

// KeyFromBase64 decodes a base64-encoded symmetric key and validates its size.
func KeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "encryption key is not valid base64")
	}
	if len(key) != keySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "encryption key must be 32 bytes")
	}
	return key, nil
}

// Encrypt seals plaintext under key and returns base64(iv || ciphertext).
// Used by tests and by tooling that replays notifications; the production
// sender encrypts on its side.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid encryption key")
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate iv")
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt opens base64(iv || ciphertext) and returns the plaintext. Malformed
// base64, a truncated payload, or a wrong key all surface as a decryption
// error fatal to the single ingestion that carried the envelope.
func Decrypt(ciphertext string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "envelope is not valid base64")
	}
	if len(raw) <= aes.BlockSize {
		return "", dErrors.New(dErrors.CodeDecryption, "envelope shorter than iv")
	}
	body := raw[aes.BlockSize:]
	if len(body)%aes.BlockSize != 0 {
		return "", dErrors.New(dErrors.CodeDecryption, "envelope is not block aligned")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeDecryption, "invalid encryption key")
	}

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, raw[:aes.BlockSize]).CryptBlocks(plain, body)

	unpadded, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", dErrors.New(dErrors.CodeDecryption, "invalid padding")
	}
	return string(unpadded), nil
}

// LooksEncrypted reports whether text plausibly holds an encrypted envelope:
// it decodes as base64 and the decoded form is longer than the iv. It is a
// heuristic, not a guarantee; callers must tolerate false positives and fall
// back to the original text when Decrypt fails.
func LooksEncrypted(text string) bool {
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return false
	}
	return len(raw) > aes.BlockSize
}

// DecryptOrOriginal opportunistically decrypts stored text. If the text does
// not look encrypted, or decryption fails, the original text is returned
// unchanged.
func DecryptOrOriginal(text string, key []byte) string {
	if !LooksEncrypted(text) {
		return text
	}
	plain, err := Decrypt(text, key)
	if err != nil {
		return text
	}
	return plain
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
