package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/illarion/vaultmerge/internal/crypto"
	"github.com/illarion/vaultmerge/internal/storage"
	"github.com/illarion/vaultmerge/internal/vault"
)

const (
	passwordCheckString = "vaultmerge-password-check"
	DefaultRootName     = "Root"
)

// Credentials unlock a store. An empty KeyfilePath means password only.
type Credentials struct {
	Password    []byte
	KeyfilePath string
}

// CreateOptions tune a newly created store
type CreateOptions struct {
	Iterations int
	RootName   string
}

// Store is an opened, decrypted credential store. It must be released with
// exactly one of Persist or Discard; both are safe to call afterwards.
type Store struct {
	path    string
	header  storage.Header
	imports []storage.ImportRecord
	root    *vault.Group
	enc     *crypto.Encryptor

	now  func() time.Time
	save func(string, *storage.Record) error
}

func newStore(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
		save: storage.Save,
	}
}

// Open decrypts and parses the store at path. Wrong credentials yield
// ErrAuth; a damaged file or a missing required keyfile yields ErrIntegrity.
// Missing or unreadable files return the underlying I/O error.
func Open(path string, creds Credentials) (*Store, error) {
	rec, err := storage.Load(path)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) {
			return nil, storeError(path, fmt.Errorf("%w: %v", ErrIntegrity, err))
		}
		return nil, storeError(path, err)
	}

	kdf := &crypto.KDF{
		Salt:       rec.Salt,
		Iterations: int(rec.Iterations),
	}
	if err := kdf.Validate(); err != nil {
		return nil, storeError(path, fmt.Errorf("%w: %v", ErrIntegrity, err))
	}

	keyfile, err := readKeyfile(creds.KeyfilePath)
	if err != nil {
		return nil, storeError(path, err)
	}
	defer crypto.ClearBytes(keyfile)
	if rec.Keyfile && keyfile == nil {
		return nil, storeError(path, fmt.Errorf("%w: store requires a keyfile", ErrIntegrity))
	}

	enc := crypto.NewEncryptor(kdf.DeriveKey(creds.Password, keyfile))

	// Verify credentials with the check blob before touching the payload
	check, err := enc.Decrypt(rec.Checksum)
	if err != nil || !crypto.ConstantTimeCompare(check, checkValue()) {
		enc.Destroy()
		return nil, storeError(path, ErrAuth)
	}

	treeJSON, err := enc.Decrypt(rec.Tree)
	if err != nil {
		enc.Destroy()
		return nil, storeError(path, fmt.Errorf("%w: payload: %v", ErrIntegrity, err))
	}
	defer crypto.ClearBytes(treeJSON)

	var root vault.Group
	if err := json.Unmarshal(treeJSON, &root); err != nil {
		enc.Destroy()
		return nil, storeError(path, fmt.Errorf("%w: payload: %v", ErrIntegrity, err))
	}

	s := newStore(path)
	s.header = rec.Header
	s.imports = rec.Imports
	s.root = &root
	s.enc = enc
	return s, nil
}

// OpenAs is Open with failures attributed to role
func OpenAs(role Role, path string, creds Credentials) (*Store, error) {
	s, err := Open(path, creds)
	if err != nil {
		return nil, withRole(err, role, path)
	}
	return s, nil
}

// Create initializes a new store with one empty root group at path and
// returns it opened. It fails if path already exists.
func Create(path string, creds Credentials, opts CreateOptions) (*Store, error) {
	if opts.Iterations == 0 {
		opts.Iterations = crypto.DefaultIters
	}
	if opts.RootName == "" {
		opts.RootName = DefaultRootName
	}

	s := newStore(path)
	if err := s.rekey(creds, opts.Iterations); err != nil {
		return nil, storeError(path, err)
	}

	now := s.now()
	s.header.Version = storage.FormatVersion
	s.header.Created = now
	s.header.StoreID = uuid.NewString()
	s.root = vault.NewGroup(opts.RootName)

	rec, err := s.record()
	if err != nil {
		s.release()
		return nil, storeError(path, err)
	}
	if err := storage.Create(path, rec); err != nil {
		s.release()
		return nil, storeError(path, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	return s, nil
}

// Path returns the file the store was opened from
func (s *Store) Path() string { return s.path }

// ID returns the store's unique identifier
func (s *Store) ID() string { return s.header.StoreID }

// Root returns the decrypted root group. Changes are written by Persist.
func (s *Store) Root() *vault.Group { return s.root }

// Imports returns the import log of the store
func (s *Store) Imports() []storage.ImportRecord { return s.imports }

// Closed reports whether the store was persisted or discarded
func (s *Store) Closed() bool { return s.enc == nil }

func (s *Store) addImport(ir storage.ImportRecord) {
	s.imports = append(s.imports, ir)
}

// Rekey replaces the store's password and keyfile. The new key is used from
// the next Persist on.
func (s *Store) Rekey(creds Credentials, iterations int) error {
	if s.Closed() {
		return ErrStoreClosed
	}
	if iterations == 0 {
		iterations = int(s.header.Iterations)
	}
	return s.rekey(creds, iterations)
}

func (s *Store) rekey(creds Credentials, iterations int) error {
	kdf, err := crypto.NewKDF(iterations)
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}

	keyfile, err := readKeyfile(creds.KeyfilePath)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(keyfile)

	if s.enc != nil {
		s.enc.Destroy()
	}
	s.enc = crypto.NewEncryptor(kdf.DeriveKey(creds.Password, keyfile))
	s.header.Salt = kdf.Salt
	s.header.Iterations = uint32(kdf.Iterations)
	s.header.Keyfile = keyfile != nil
	return nil
}

// Persist re-encrypts the whole tree and atomically replaces the store file,
// then releases the store. On failure the file keeps its previous contents.
func (s *Store) Persist() error {
	if s.Closed() {
		return storeError(s.path, ErrStoreClosed)
	}
	defer s.release()

	s.header.Modified = s.now()
	rec, err := s.record()
	if err != nil {
		return storeError(s.path, err)
	}
	if err := s.save(s.path, rec); err != nil {
		return storeError(s.path, fmt.Errorf("%w: %v", ErrWrite, err))
	}
	return nil
}

// Discard releases the store without writing anything
func (s *Store) Discard() {
	s.release()
}

func (s *Store) release() {
	if s.enc != nil {
		s.enc.Destroy()
		s.enc = nil
	}
	s.root = nil
}

func (s *Store) record() (*storage.Record, error) {
	if s.header.Modified.IsZero() {
		s.header.Modified = s.header.Created
	}

	checksum, err := s.enc.Encrypt(checkValue())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt checksum: %w", err)
	}

	treeJSON, err := json.Marshal(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tree: %w", err)
	}
	defer crypto.ClearBytes(treeJSON)

	tree, err := s.enc.Encrypt(treeJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt tree: %w", err)
	}

	return &storage.Record{
		Header:   s.header,
		Checksum: checksum,
		Tree:     tree,
		Imports:  s.imports,
	}, nil
}

func checkValue() []byte {
	sum := sha256.Sum256([]byte(passwordCheckString))
	return []byte(hex.EncodeToString(sum[:]))
}

// readKeyfile returns nil when no keyfile is configured
func readKeyfile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyfile: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
