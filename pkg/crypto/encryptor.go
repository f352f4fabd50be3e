package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ErrNoIdentity is returned by Decrypt on an encryptor built from a
// recipient only.
var ErrNoIdentity = errors.New("no age identity configured")

// Encryptor seals chart exports with age before they leave the worker.
// Services only need the public recipient; the identity stays with whoever
// reads the exports back.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewEncryptor parses an "age1..." recipient.
func NewEncryptor(recipient string) (*Encryptor, error) {
	r, err := age.ParseX25519Recipient(recipient)
	if err != nil {
		return nil, fmt.Errorf("parsing recipient: %w", err)
	}
	return &Encryptor{recipient: r}, nil
}

// NewEncryptorFromIdentity parses an "AGE-SECRET-KEY-1..." identity. The
// result can both encrypt and decrypt.
func NewEncryptorFromIdentity(identity string) (*Encryptor, error) {
	id, err := age.ParseX25519Identity(identity)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return &Encryptor{identity: id, recipient: id.Recipient()}, nil
}

// GenerateKey returns a fresh identity and its recipient.
func GenerateKey() (identity, recipient string, err error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("generating identity: %w", err)
	}
	return id.String(), id.Recipient().String(), nil
}

func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing encryptor: %w", err)
	}

	return buf.Bytes(), nil
}

func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if e.identity == nil {
		return nil, ErrNoIdentity
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), e.identity)
	if err != nil {
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return plaintext, nil
}

// Recipient is the public key exports are sealed to.
func (e *Encryptor) Recipient() string {
	return e.recipient.String()
}
