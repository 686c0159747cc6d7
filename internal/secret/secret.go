// Package secret encrypts stored credentials with AES-256-CBC. Ciphertexts
// are stored as hex strings alongside their IV, the same shape the editor
// extension persists, so existing stored tokens stay readable.
package secret

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidKey        = errors.New("encryption key must be 32 bytes")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
)

// Ciphertext is the persisted form of an encrypted value.
type Ciphertext struct {
	IV            string `json:"iv"`
	EncryptedText string `json:"encryptedText"`
}

// Cipher encrypts and decrypts text with a fixed key.
type Cipher struct {
	block cipher.Block
}

// New creates a Cipher. The key is used as raw UTF-8 bytes and must be
// exactly 32 bytes long.
func New(key string) (*Cipher, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// Encrypt encrypts text under a fresh random IV.
func (c *Cipher) Encrypt(text string) (*Ciphertext, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	plain := pad([]byte(text))
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, plain)

	return &Ciphertext{
		IV:            hex.EncodeToString(iv),
		EncryptedText: hex.EncodeToString(out),
	}, nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(ct *Ciphertext) (string, error) {
	if ct == nil {
		return "", ErrInvalidCiphertext
	}
	iv, err := hex.DecodeString(ct.IV)
	if err != nil || len(iv) != aes.BlockSize {
		return "", ErrInvalidCiphertext
	}
	data, err := hex.DecodeString(ct.EncryptedText)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", ErrInvalidCiphertext
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, err := unpad(out)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// pad applies PKCS#7 padding.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, ErrInvalidCiphertext
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrInvalidCiphertext
		}
	}
	return b[:len(b)-n], nil
}
