// Package filestore keeps the credential record in a sealed file. The record is
// encrypted with XChaCha20-Poly1305 under a key derived by HKDF-SHA256 from the
// device master key.
package filestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jrsteele09/go-ems-client/credentials"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/jrsteele09/go-ems-client/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	masterKeyFile = "master.key"
	masterKeySize = 32
	recordExt     = ".enc"
	hkdfInfo      = "ems-credentials-v1"
)

var _ credentials.Store = (*Store)(nil)

// Store is a credentials.Store backed by <folder>/userCredentials.enc.
type Store struct {
	path string
	aead cipher.AEAD
	lock sync.Mutex
}

// New opens the store in folder, sealing records with a key derived from masterKey.
func New(folder string, masterKey []byte) (*Store, error) {
	if len(masterKey) != masterKeySize {
		return nil, errors.Wrapf(apperrors.ErrCredentialStore, "master key must be %d bytes", masterKeySize)
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "derive record key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	return &Store{
		path: filepath.Join(folder, credentials.RecordKey+recordExt),
		aead: aead,
	}, nil
}

func (s *Store) Put(ctx context.Context, creds credentials.Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	plain, err := json.Marshal(creds)
	if err != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, "encode record")
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plain)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, "generate nonce")
	}
	sealed := s.aead.Seal(nonce, nonce, plain, []byte(credentials.RecordKey))

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := utils.WriteFileAtomic(s.path, sealed, 0o600); err != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	return nil
}

func (s *Store) Get(ctx context.Context) (*credentials.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.lock.Lock()
	sealed, err := os.ReadFile(s.path)
	s.lock.Unlock()
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}

	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "sealed record too short")
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(credentials.RecordKey))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "unseal record")
	}

	var creds credentials.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "decode record")
	}
	return &creds, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := utils.RemoveIfExists(s.path); err != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	return nil
}

// LoadMasterKey decodes hexKey when set. Otherwise it reads <folder>/master.key,
// generating it on first use.
func LoadMasterKey(folder, hexKey string) ([]byte, error) {
	if hexKey != "" {
		return decodeMasterKey(hexKey)
	}

	path := filepath.Join(folder, masterKeyFile)
	data, err := os.ReadFile(path)
	if err == nil {
		return decodeMasterKey(string(data))
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}

	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "generate master key")
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if os.IsExist(err) {
		// Lost a race with another process; use its key.
		return LoadMasterKey(folder, "")
	}
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	defer f.Close()
	if _, err := f.WriteString(hex.EncodeToString(key)); err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, err.Error())
	}
	return key, nil
}

func decodeMasterKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, "master key hex decode")
	}
	if len(key) != masterKeySize {
		return nil, errors.Wrapf(apperrors.ErrCredentialStore, "master key length must be %d bytes (hex %d chars)", masterKeySize, masterKeySize*2)
	}
	return key, nil
}
