package store

import (
	"bytes"
	"testing"

	"github.com/BRL-CAD/brlcad-sub112/types"
	"golang.org/x/xerrors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("unexpected error closing store: %v", err)
		}
	})
	return s
}

func TestDigest(t *testing.T) {
	tris := [][3]types.Vec3{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
	}

	d := DigestTriangles(tris, 4)
	if d != DigestTriangles(tris, 4) {
		t.Fatal("expected digest to be deterministic")
	}

	moved := [][3]types.Vec3{tris[0], tris[1]}
	moved[1][2][2] = 1.5
	if d == DigestTriangles(moved, 4) {
		t.Fatal("expected moving a vertex to change the digest")
	}
	if d == DigestTriangles([][3]types.Vec3{tris[1], tris[0]}, 4) {
		t.Fatal("expected reordering triangles to change the digest")
	}
	if d == DigestTriangles(tris, 8) {
		t.Fatal("expected the leaf size to change the digest")
	}

	parsed, err := ParseDigest(d.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != d {
		t.Fatalf("expected parsed digest %s; got %s", d, parsed)
	}

	for _, bad := range []string{"", "zz", d.String()[2:]} {
		if _, err = ParseDigest(bad); err != ErrInvalidDigest {
			t.Fatalf("expected ErrInvalidDigest for %q; got %v", bad, err)
		}
	}
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	d := DigestTriangles([][3]types.Vec3{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}}, 4)
	if _, err := s.Get(d); !xerrors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound; got %v", err)
	}

	blob := []byte{1, 0, 0, 0, 1, 0, 0, 0}
	if err := s.Put(d, 1, blob); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(d)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("expected to get back %v; got %v", blob, got)
	}

	if err = s.Delete(d); err != nil {
		t.Fatal(err)
	}
	if _, err = s.Get(d); !xerrors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete; got %v", err)
	}
	if err = s.Delete(d); !xerrors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when deleting a missing entry; got %v", err)
	}
}

func TestListAndPurge(t *testing.T) {
	s := openTestStore(t)

	var digests []Digest
	for index := 0; index < 3; index++ {
		d := DigestTriangles([][3]types.Vec3{{{float64(index), 0, 0}, {1, 0, 0}, {0, 1, 0}}}, 4)
		digests = append(digests, d)
		if err := s.Put(d, index+1, make([]byte, 10*(index+1))); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(digests) {
		t.Fatalf("expected %d entries; got %d", len(digests), len(entries))
	}

	byDigest := make(map[Digest]Entry)
	for _, entry := range entries {
		byDigest[entry.Digest] = entry
	}
	for index, d := range digests {
		entry, found := byDigest[d]
		if !found {
			t.Fatalf("expected entry for digest %s", d)
		}
		if entry.Triangles != index+1 || entry.Size != 10*(index+1) {
			t.Fatalf("expected entry with %d triangles and %d bytes; got %v", index+1, 10*(index+1), entry)
		}
		if entry.Created.IsZero() {
			t.Fatalf("expected entry %s to have a creation time", d)
		}
	}

	removed, err := s.Purge()
	if err != nil {
		t.Fatal(err)
	}
	if removed != len(digests) {
		t.Fatalf("expected Purge to remove %d entries; got %d", len(digests), removed)
	}
	if entries, err = s.List(); err != nil || len(entries) != 0 {
		t.Fatalf("expected empty store after purge; got %d entries (err: %v)", len(entries), err)
	}
}
