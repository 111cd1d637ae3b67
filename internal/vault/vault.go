package vault

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/brendondev/central-empresa/internal/apperrors"
	"github.com/brendondev/central-empresa/pkg/logger"
)

// Vault stores per-session credential material in a single Pebble database.
// Each session owns an isolated namespace under the key prefix
// cred:<sessionID>:, so purging a session is a range delete and cannot touch
// another session's material.
type Vault struct {
	db   *pebble.DB
	path string
}

// Open opens (or creates) the credential database at the given path.
func Open(path string) (*Vault, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open credential vault at %s: %w", apperrors.ErrCredentialFailure, path, err)
	}
	logger.Log.Info("Credential vault opened", zap.String("path", path))
	return &Vault{db: db, path: path}, nil
}

// Close closes the underlying database.
func (v *Vault) Close() error {
	if v.db == nil {
		return nil
	}
	err := v.db.Close()
	v.db = nil
	return err
}

// Namespace returns the credential namespace for one session. The namespace
// is cheap; it carries no state beyond the key prefix.
func (v *Vault) Namespace(sessionID string) *Namespace {
	return &Namespace{vault: v, sessionID: sessionID}
}

// Purge removes every credential key belonging to the session.
// Called during session deletion, after the disconnect transition.
func (v *Vault) Purge(sessionID string) error {
	start := nsPrefix(sessionID)
	end := append(nsPrefix(sessionID), 0xff)
	if err := v.db.DeleteRange(start, end, pebble.Sync); err != nil {
		return fmt.Errorf("%w: failed to purge credentials for session %s: %w", apperrors.ErrCredentialFailure, sessionID, err)
	}
	logger.Log.Info("Credential namespace purged", zap.String("session_id", sessionID))
	return nil
}

func nsPrefix(sessionID string) []byte {
	return []byte("cred:" + sessionID + ":")
}

// Namespace is the isolated credential store handed to the messaging gateway
// for one session.
type Namespace struct {
	vault     *Vault
	sessionID string
}

// SessionID returns the owning session identifier.
func (n *Namespace) SessionID() string {
	return n.sessionID
}

func (n *Namespace) key(name string) []byte {
	return append(nsPrefix(n.sessionID), []byte(name)...)
}

// Put stores one credential blob under the namespace.
func (n *Namespace) Put(name string, value []byte) error {
	if err := n.vault.db.Set(n.key(name), value, pebble.Sync); err != nil {
		return fmt.Errorf("%w: failed to store credential %s: %w", apperrors.ErrCredentialFailure, name, err)
	}
	return nil
}

// Get retrieves one credential blob. Returns apperrors.ErrNotFound when the
// key does not exist.
func (n *Namespace) Get(name string) ([]byte, error) {
	value, closer, err := n.vault.db.Get(n.key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: credential %s", apperrors.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: failed to read credential %s: %w", apperrors.ErrCredentialFailure, name, err)
	}
	defer closer.Close()

	// Pebble reuses the returned buffer after Close.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Delete removes one credential blob. Missing keys are not an error.
func (n *Namespace) Delete(name string) error {
	if err := n.vault.db.Delete(n.key(name), pebble.Sync); err != nil {
		return fmt.Errorf("%w: failed to delete credential %s: %w", apperrors.ErrCredentialFailure, name, err)
	}
	return nil
}

// HasCredentials reports whether any credential material exists for the
// session, i.e. whether a connect can resume without re-pairing.
func (n *Namespace) HasCredentials() (bool, error) {
	prefix := nsPrefix(n.sessionID)
	iter, err := n.vault.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: failed to open vault iterator: %w", apperrors.ErrCredentialFailure, err)
	}
	defer iter.Close()

	iter.SeekGE(prefix)
	return iter.Valid() && bytes.HasPrefix(iter.Key(), prefix), nil
}

// Keys lists the credential names stored in the namespace.
func (n *Namespace) Keys() ([]string, error) {
	prefix := nsPrefix(n.sessionID)
	iter, err := n.vault.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open vault iterator: %w", apperrors.ErrCredentialFailure, err)
	}
	defer iter.Close()

	var names []string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		names = append(names, string(iter.Key()[len(prefix):]))
	}
	return names, nil
}
