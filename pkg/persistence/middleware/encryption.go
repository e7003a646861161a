package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// envelopeModel names the single node of an encrypted scene record.
const envelopeModel = "__encrypted__"

// ErrMissingEnvelope is returned when an encrypted store reads a plain record.
var ErrMissingEnvelope = errors.New("scene is missing encrypted data envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot decrypt.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SceneStore
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts scene records
// using AES-GCM. The wrapped store only ever sees an envelope record holding
// the ciphertext, so any backend can carry it.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}
	for i, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(k))
		}
	}
	return func(next ports.SceneStore) ports.SceneStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sceneID string, scene *domain.SceneRecord) error {
	plainText, err := json.Marshal(scene)
	if err != nil {
		return fmt.Errorf("failed to marshal scene: %w", err)
	}

	// The scene id is bound as additional data: an envelope copied under
	// another id does not decrypt.
	ciphertext, err := encrypt(plainText, m.config.ActiveKey, []byte(sceneID))
	if err != nil {
		return fmt.Errorf("failed to encrypt scene: %w", err)
	}

	envelope := &domain.SceneRecord{
		Nodes: []domain.NodeRecord{{
			ID: envelopeModel,
			Model: map[string]any{
				"name": envelopeModel,
				"data": base64.StdEncoding.EncodeToString(ciphertext),
			},
		}},
		Connections: []domain.ConnectionRecord{},
	}
	return m.next.Save(ctx, sceneID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, sceneID string) (*domain.SceneRecord, error) {
	envelope, err := m.next.Load(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	if len(envelope.Nodes) != 1 || envelope.Nodes[0].ModelName() != envelopeModel {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnvelope, sceneID)
	}
	encoded, ok := envelope.Nodes[0].Model["data"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnvelope, sceneID)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, []byte(sceneID), m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt scene %s: %w", sceneID, err)
	}

	var scene domain.SceneRecord
	if err := json.Unmarshal(plainText, &scene); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted scene: %w", err)
	}
	return &scene, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sceneID string) error {
	return m.next.Delete(ctx, sceneID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func encrypt(plaintext, key, additional []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, additional), nil
}

func decryptWithRotation(ciphertext, additional, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey, additional); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key, additional); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key, additional []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], additional)
}
