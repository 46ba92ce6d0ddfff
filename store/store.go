// Package store persists serialized kd-trees in a badger key-value store so
// that meshes which were already prepped can skip the tree build.
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/BRL-CAD/brlcad-sub112/log"
	"github.com/BRL-CAD/brlcad-sub112/types"
	"github.com/dgraph-io/badger"
	"golang.org/x/xerrors"
)

// Key prefixes that denote the tables in the key-value store.
const (
	KeyTypeTree     uint32 = 0
	KeyTypeTreeMeta uint32 = 1
)

const treeMetaSize = 16

var (
	ErrNotFound      = xerrors.New("store: no cached tree for digest")
	ErrInvalidDigest = xerrors.New("store: invalid digest")
)

// A Digest identifies a triangle set and the build settings of its tree.
// Cached trees reference triangles by their position in the set so a tree
// may only be reused for a triangle set with the same digest.
type Digest [sha256.Size]byte

// Calculate the digest of a triangle set from its vertex coordinates and the
// maximum number of triangles per tree leaf.
func DigestTriangles(tris [][3]types.Vec3, leafTris int) Digest {
	h := sha256.New()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(tris)))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(leafTris))
	h.Write(buf[:])
	for _, tri := range tris {
		for _, v := range tri {
			for _, c := range v {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(c))
				h.Write(buf[:])
			}
		}
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Parse a hex encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(d) {
		return d, ErrInvalidDigest
	}
	copy(d[:], raw)
	return d, nil
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func TreeKey(d Digest) []byte {
	return tableKey(KeyTypeTree, d)
}

func TreeMetaKey(d Digest) []byte {
	return tableKey(KeyTypeTreeMeta, d)
}

func TreeMetaKeyPrefix() []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key[0:4], KeyTypeTreeMeta)
	return key
}

func tableKey(table uint32, d Digest) []byte {
	key := make([]byte, 4+len(d))
	binary.BigEndian.PutUint32(key[0:4], table)
	copy(key[4:], d[:])
	return key
}

// Metadata about a cached tree.
type Entry struct {
	Digest    Digest
	Triangles int
	Size      int
	Created   time.Time
}

func (e *Entry) marshal() []byte {
	buf := make([]byte, treeMetaSize)
	binary.BigEndian.PutUint64(buf[0:8], uint64(e.Created.UnixNano()))
	binary.BigEndian.PutUint32(buf[8:12], uint32(e.Triangles))
	binary.BigEndian.PutUint32(buf[12:16], uint32(e.Size))
	return buf
}

func (e *Entry) unmarshal(buf []byte) error {
	if len(buf) != treeMetaSize {
		return xerrors.Errorf("tree metadata has wrong length; got %d, want %d", len(buf), treeMetaSize)
	}
	e.Created = time.Unix(0, int64(binary.BigEndian.Uint64(buf[0:8])))
	e.Triangles = int(binary.BigEndian.Uint32(buf[8:12]))
	e.Size = int(binary.BigEndian.Uint32(buf[12:16]))
	return nil
}

// A Store caches serialized trees keyed by triangle set digest.
type Store struct {
	DB *badger.DB

	logger log.Logger
}

// Open the store located in dir. It will be created if it doesn't exist.
func Open(dir string) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(log.New("badger")))
	if err != nil {
		return nil, xerrors.Errorf("while opening badger kv dir %q: %w", dir, err)
	}

	return &Store{
		DB:     db,
		logger: log.New("store"),
	}, nil
}

func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		return xerrors.Errorf("while closing badger kv store: %w", err)
	}
	return nil
}

// Fetch the cached tree for a digest. Returns ErrNotFound if no tree is cached.
func (s *Store) Get(d Digest) ([]byte, error) {
	var blob []byte
	err := s.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(TreeKey(d))
		if xerrors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return xerrors.Errorf("while retrieving tree %s: %w", d, err)
		}

		blob, err = item.ValueCopy(nil)
		if err != nil {
			return xerrors.Errorf("while copying tree %s: %w", d, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// Cache a tree built for a triangle set with the given digest, replacing any
// tree already stored for it.
func (s *Store) Put(d Digest, triangles int, blob []byte) error {
	entry := Entry{
		Digest:    d,
		Triangles: triangles,
		Size:      len(blob),
		Created:   time.Now(),
	}

	err := s.update(func(txn *badger.Txn) error {
		if err := txn.Set(TreeKey(d), blob); err != nil {
			return xerrors.Errorf("while writing tree %s: %w", d, err)
		}
		if err := txn.Set(TreeMetaKey(d), entry.marshal()); err != nil {
			return xerrors.Errorf("while writing tree %s metadata: %w", d, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Infof("cached %d byte tree for digest %s", len(blob), d)
	return nil
}

// Remove the cached tree for a digest. Returns ErrNotFound if no tree is cached.
func (s *Store) Delete(d Digest) error {
	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get(TreeMetaKey(d)); xerrors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return xerrors.Errorf("while retrieving tree %s metadata: %w", d, err)
		}

		if err := txn.Delete(TreeKey(d)); err != nil {
			return xerrors.Errorf("while deleting tree %s: %w", d, err)
		}
		if err := txn.Delete(TreeMetaKey(d)); err != nil {
			return xerrors.Errorf("while deleting tree %s metadata: %w", d, err)
		}
		return nil
	})
}

// List all cached trees ordered by digest.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := TreeMetaKeyPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			var entry Entry
			copy(entry.Digest[:], key[4:])

			val, err := item.ValueCopy(nil)
			if err != nil {
				return xerrors.Errorf("while copying tree %s metadata: %w", entry.Digest, err)
			}
			if err = entry.unmarshal(val); err != nil {
				return xerrors.Errorf("while decoding tree %s metadata: %w", entry.Digest, err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove all cached trees and return the number of removed entries.
func (s *Store) Purge() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	if err = s.DB.DropAll(); err != nil {
		return 0, xerrors.Errorf("while dropping all cached trees: %w", err)
	}
	return len(entries), nil
}

// Run an update transaction, retrying it on commit conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.DB.Update(fn)
		if xerrors.Is(err, badger.ErrConflict) {
			s.logger.Debug("transaction conflict; retrying")
			continue
		}
		return err
	}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s: %d triangles, %d bytes", e.Digest, e.Triangles, e.Size)
}
