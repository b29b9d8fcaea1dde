package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/roach88/thisme/internal/kernel"
	"github.com/roach88/thisme/internal/operator"
)

// FileExt is the extension of identity files.
const FileExt = ".me"

// IdentityKeys are the key fields of a record.
type IdentityKeys struct {
	Username   string `json:"username"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Record is the decrypted content of an identity file.
type Record struct {
	Identity      IdentityKeys   `json:"identity"`
	Attributes    map[string]any `json:"attributes"`
	Relationships []any          `json:"relationships"`
	Reactions     []any          `json:"reactions"`
	Endorsements  []Endorsement  `json:"endorsements"`
}

// Vault is an unlocked identity file. It is safe for concurrent use.
type Vault struct {
	mu     sync.Mutex
	path   string
	key    *memguard.LockedBuffer
	record *Record
}

// DefaultDir is ~/.this/me.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("vault: home dir: %w", err)
	}
	return filepath.Join(home, ".this", "me"), nil
}

// FilePath returns the file an identity is stored in.
func FilePath(dir, username string) string {
	return filepath.Join(dir, username+FileExt)
}

// Exists reports whether dir holds a file for username.
func Exists(dir, username string) bool {
	name, err := operator.NormalizeUsername(username)
	if err != nil {
		return false
	}
	_, err = os.Stat(FilePath(dir, name))
	return err == nil
}

// Create writes a new identity file and returns it unlocked.
func Create(dir, username, hash string) (*Vault, error) {
	name, err := checkCredentials(dir, username, hash)
	if err != nil {
		return nil, err
	}

	path := FilePath(dir, name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("vault: stat %s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("vault: mkdir %s: %w", dir, err)
	}

	id := kernel.DeriveIdentity(name, hash)
	v := &Vault{
		path: path,
		key:  memguard.NewBufferFromBytes(deriveKey(name, hash)),
		record: &Record{
			Identity: IdentityKeys{
				Username:   name,
				PublicKey:  id.PublicKey,
				PrivateKey: id.IdentityRoot,
			},
			Attributes:    map[string]any{},
			Relationships: []any{},
			Reactions:     []any{},
			Endorsements:  []Endorsement{},
		},
	}
	if err := v.Save(); err != nil {
		v.Lock()
		return nil, err
	}
	return v, nil
}

// Open decrypts an existing identity file.
func Open(dir, username, hash string) (*Vault, error) {
	name, err := checkCredentials(dir, username, hash)
	if err != nil {
		return nil, err
	}

	path := FilePath(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}

	key := memguard.NewBufferFromBytes(deriveKey(name, hash))
	plain, err := open(key.Bytes(), data)
	if err != nil {
		key.Destroy()
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(plain, &rec); err != nil {
		key.Destroy()
		return nil, ErrWrongHash
	}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	return &Vault{path: path, key: key, record: &rec}, nil
}

func checkCredentials(dir, username, hash string) (string, error) {
	if err := validate.Struct(credentials{Dir: dir, Username: username, Hash: hash}); err != nil {
		return "", fmt.Errorf("vault: invalid credentials: %w", err)
	}
	name, err := operator.NormalizeUsername(username)
	if err != nil {
		return "", fmt.Errorf("vault: %w", err)
	}
	return name, nil
}

// Path returns the backing file.
func (v *Vault) Path() string { return v.path }

// Locked reports whether Lock has been called.
func (v *Vault) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.record == nil
}

// Identity returns the identity keys.
func (v *Vault) Identity() (IdentityKeys, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return IdentityKeys{}, ErrLocked
	}
	return v.record.Identity, nil
}

// Attribute returns one attribute.
func (v *Vault) Attribute(key string) (any, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return nil, false, ErrLocked
	}
	val, ok := v.record.Attributes[key]
	return val, ok, nil
}

// SetAttribute sets an attribute in memory; Save persists it.
func (v *Vault) SetAttribute(key string, value any) error {
	if key == "" {
		return errors.New("vault: empty attribute key")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return ErrLocked
	}
	v.record.Attributes[key] = value
	return nil
}

// Attributes returns a copy of all attributes.
func (v *Vault) Attributes() (map[string]any, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return nil, ErrLocked
	}
	return maps.Clone(v.record.Attributes), nil
}

// AddEndorsement validates and appends e.
func (v *Vault) AddEndorsement(e Endorsement) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("vault: invalid endorsement: %w", err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return ErrLocked
	}
	v.record.Endorsements = append(v.record.Endorsements, e)
	return nil
}

// Endorsements returns a copy of the endorsements.
func (v *Vault) Endorsements() ([]Endorsement, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return nil, ErrLocked
	}
	return append([]Endorsement(nil), v.record.Endorsements...), nil
}

// Save encrypts the record and replaces the file.
func (v *Vault) Save() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.record == nil {
		return ErrLocked
	}

	plain, err := json.Marshal(v.record)
	if err != nil {
		return fmt.Errorf("vault: encode: %w", err)
	}
	data, err := seal(v.key.Bytes(), plain)
	if err != nil {
		return err
	}

	tmp := v.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("vault: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, v.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("vault: rename %s: %w", v.path, err)
	}
	return nil
}

// Lock drops the record and destroys the key. It is idempotent.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.record = nil
	if v.key != nil {
		v.key.Destroy()
		v.key = nil
	}
}
