package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

const (
	FormatVersion = "1"
	FilePerm      = 0600
	lockTimeout   = time.Second
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // KDF params, keyfile flag, timestamps - unencrypted
	PrivateBucket = []byte("private") // Encrypted password check + encrypted tree
	ImportsBucket = []byte("imports") // Import log for history - unencrypted
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigKeyfile  = []byte("keyfile")
	ConfigStoreID  = []byte("store_id")
)

// Private keys
var (
	PrivateChecksum = []byte("checksum")
	PrivateTree     = []byte("tree")
)

var (
	ErrCorrupt = errors.New("store file is corrupt")
	ErrExists  = errors.New("store file already exists")
)

// replaceFile moves the finished temp file over the store path.
var replaceFile = os.Rename

// syncDir flushes the directory entry left by replaceFile.
var syncDir = defaultSyncDir

func defaultSyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Header is the unencrypted part of a store
type Header struct {
	Version    string
	Created    time.Time
	Modified   time.Time
	Salt       []byte
	Iterations uint32
	Keyfile    bool
	StoreID    string
}

// Record is the complete on-disk content of a store. Checksum and Tree are
// ciphertexts; this package never sees key material.
type Record struct {
	Header
	Checksum []byte
	Tree     []byte
	Imports  []ImportRecord
}

// Load reads a store file without modifying it. Missing or unreadable files
// return the underlying I/O error; empty, truncated or otherwise damaged
// files and files that lack required values return ErrCorrupt.
func Load(path string) (*Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access store: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrCorrupt)
	}

	db, err := bolt.Open(path, FilePerm, &bolt.Options{ReadOnly: true, Timeout: lockTimeout})
	if err != nil {
		if isCorruption(err) {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	rec := &Record{}
	err = view(db, info.Size(), func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("%w: config bucket not found", ErrCorrupt)
		}
		if err := readHeader(config, &rec.Header); err != nil {
			return err
		}

		private := tx.Bucket(PrivateBucket)
		if private == nil {
			return fmt.Errorf("%w: private bucket not found", ErrCorrupt)
		}
		// Make copies since the slices are only valid during the transaction
		if rec.Checksum = clone(private.Get(PrivateChecksum)); rec.Checksum == nil {
			return fmt.Errorf("%w: checksum not found", ErrCorrupt)
		}
		if rec.Tree = clone(private.Get(PrivateTree)); rec.Tree == nil {
			return fmt.Errorf("%w: tree not found", ErrCorrupt)
		}

		imports, err := readImports(tx)
		if err != nil {
			return err
		}
		rec.Imports = imports
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// view runs fn in a read transaction over a file of fileSize bytes. bbolt
// only validates the meta pages on open, so a transaction whose pages end
// past EOF is rejected up front, and page faults or page assertion panics
// from a damaged mmap come back as ErrCorrupt.
func view(db *bolt.DB, fileSize int64, fn func(tx *bolt.Tx) error) (err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCorrupt, r)
		}
	}()

	return db.View(func(tx *bolt.Tx) error {
		if size := tx.Size(); size > fileSize {
			return fmt.Errorf("%w: file has %d bytes, pages need %d", ErrCorrupt, fileSize, size)
		}
		return fn(tx)
	})
}

func readHeader(config *bolt.Bucket, h *Header) error {
	version := config.Get(ConfigVersion)
	if version == nil {
		return fmt.Errorf("%w: version not found", ErrCorrupt)
	}
	h.Version = string(version)
	if h.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported format version %s", ErrCorrupt, h.Version)
	}

	if err := readTime(config, ConfigCreated, &h.Created); err != nil {
		return err
	}
	if err := readTime(config, ConfigModified, &h.Modified); err != nil {
		return err
	}

	if h.Salt = clone(config.Get(ConfigSalt)); h.Salt == nil {
		return fmt.Errorf("%w: salt not found", ErrCorrupt)
	}

	iters := config.Get(ConfigIters)
	if len(iters) != 4 {
		return fmt.Errorf("%w: iterations not found", ErrCorrupt)
	}
	h.Iterations = binary.BigEndian.Uint32(iters)

	h.Keyfile = string(config.Get(ConfigKeyfile)) == "1"
	h.StoreID = string(config.Get(ConfigStoreID))
	return nil
}

func readTime(b *bolt.Bucket, key []byte, t *time.Time) error {
	data := b.Get(key)
	if data == nil {
		return fmt.Errorf("%w: %s not found", ErrCorrupt, key)
	}
	if err := t.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return nil
}

// Create writes a new store file and fails if path already exists
func Create(path string, rec *Record) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to access store: %w", err)
	}
	return Save(path, rec)
}

// Save atomically replaces the store at path with rec. The complete store is
// written to a temp file next to path, which is then renamed over it. On any
// failure the temp file is removed and path is left untouched.
func Save(path string, rec *Record) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	db, err := bolt.Open(tmpPath, FilePerm, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error { return writeRecord(tx, rec) }); err != nil {
		db.Close()
		return fmt.Errorf("failed to write store: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}

	if err := replaceFile(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to sync store directory: %w", err)
	}
	return nil
}

func writeRecord(tx *bolt.Tx, rec *Record) error {
	for _, bucket := range [][]byte{ConfigBucket, PrivateBucket, ImportsBucket} {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	config := tx.Bucket(ConfigBucket)
	created, err := rec.Created.MarshalBinary()
	if err != nil {
		return err
	}
	modified, err := rec.Modified.MarshalBinary()
	if err != nil {
		return err
	}
	iters := make([]byte, 4)
	binary.BigEndian.PutUint32(iters, rec.Iterations)
	keyfile := []byte("0")
	if rec.Keyfile {
		keyfile = []byte("1")
	}

	values := []struct {
		key, value []byte
	}{
		{ConfigVersion, []byte(FormatVersion)},
		{ConfigCreated, created},
		{ConfigModified, modified},
		{ConfigSalt, rec.Salt},
		{ConfigIters, iters},
		{ConfigKeyfile, keyfile},
		{ConfigStoreID, []byte(rec.StoreID)},
	}
	for _, v := range values {
		if err := config.Put(v.key, v.value); err != nil {
			return fmt.Errorf("failed to store %s: %w", v.key, err)
		}
	}

	private := tx.Bucket(PrivateBucket)
	if err := private.Put(PrivateChecksum, rec.Checksum); err != nil {
		return fmt.Errorf("failed to store checksum: %w", err)
	}
	if err := private.Put(PrivateTree, rec.Tree); err != nil {
		return fmt.Errorf("failed to store tree: %w", err)
	}

	imports := tx.Bucket(ImportsBucket)
	for _, ir := range rec.Imports {
		seq, err := imports.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(ir)
		if err != nil {
			return err
		}
		if err := imports.Put(sequenceKey(seq), data); err != nil {
			return fmt.Errorf("failed to store import record: %w", err)
		}
	}
	return nil
}

// isCorruption reports whether a bolt.Open failure on an existing regular
// file means the file itself is bad. Lock timeouts and permission errors
// are about the environment, not the content.
func isCorruption(err error) bool {
	return !errors.Is(err, berrors.ErrTimeout) && !errors.Is(err, os.ErrPermission)
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
