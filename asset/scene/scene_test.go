package scene

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BRL-CAD/brlcad-sub112/asset"
	"github.com/BRL-CAD/brlcad-sub112/asset/mesh"
	"github.com/BRL-CAD/brlcad-sub112/store"
	"github.com/BRL-CAD/brlcad-sub112/tie"
	"github.com/BRL-CAD/brlcad-sub112/types"
	"github.com/google/go-cmp/cmp"
)

// Two unit quads facing +z at z=0 and z=1.
func testModel() *mesh.Model {
	return &mesh.Model{
		Meshes: []mesh.Mesh{
			{Name: "front", FirstTriangle: 0, TriangleCount: 2},
			{Name: "back", FirstTriangle: 2, TriangleCount: 2},
		},
		Triangles: [][3]types.Vec3{
			{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
			{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			{{0, 0, 1}, {1, 0, 1}, {1, 1, 1}},
			{{0, 0, 1}, {1, 1, 1}, {0, 1, 1}},
		},
		Payloads: []mesh.Payload{{Mesh: 0, Face: 0}, {Mesh: 0, Face: 0}, {Mesh: 1, Face: 0}, {Mesh: 1, Face: 0}},
	}
}

func traceFirstPayload(t *testing.T, e *tie.Engine) mesh.Payload {
	t.Helper()
	ray := &tie.Ray{Origin: types.XYZ(0.7, 0.2, -1), Dir: types.XYZ(0, 0, 1)}
	res := e.Work(ray, func(_ *tie.Ray, _ *tie.Hit, tri *tie.Triangle) any {
		return tri.Payload
	})
	if res == nil {
		t.Fatal("expected ray to hit the scene")
	}
	return res.(mesh.Payload)
}

func TestCompileAndTrace(t *testing.T) {
	sc := New(testModel())
	if sc.Compiled() {
		t.Fatal("expected new scene not to be compiled")
	}
	if sc.Camera != mesh.DefaultCamera() {
		t.Fatalf("expected default camera; got %+v", sc.Camera)
	}

	e, err := sc.Engine(tie.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !sc.Compiled() {
		t.Fatal("expected Engine to compile the scene")
	}

	if got := traceFirstPayload(t, e); got != (mesh.Payload{Mesh: 0, Face: 0}) {
		t.Fatalf("expected first hit on the front mesh; got %+v", got)
	}

	stats := sc.Stats()
	for _, exp := range []string{"front", "back", "KD-tree"} {
		if !strings.Contains(stats, exp) {
			t.Fatalf("expected stats table to mention %q; got:\n%s", exp, stats)
		}
	}
}

func TestZipRoundTrip(t *testing.T) {
	sc := New(testModel())
	if err := sc.Compile(tie.DefaultOptions(), nil); err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(t.TempDir(), "scene.zip")
	if err := Write(sc, file); err != nil {
		t.Fatal(err)
	}

	loaded, err := Read(file)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sc, loaded); diff != "" {
		t.Fatalf("scene mismatch (-want +got):\n%s", diff)
	}

	e, err := loaded.Engine(tie.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := traceFirstPayload(t, e); got.Mesh != 0 {
		t.Fatalf("expected first hit on the front mesh; got %+v", got)
	}
}

func TestReadWithoutTree(t *testing.T) {
	var buf bytes.Buffer
	sc := New(testModel())
	if err := writeZip(&buf, sc); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadResource(asset.FromStream("scene.zip", &buf))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Compiled() {
		t.Fatal("expected scene without a kd-tree entry to be uncompiled")
	}
	if _, err = loaded.Engine(tie.DefaultOptions(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestReadMissingGeometry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("nothing to see here"))
	if err = zw.Close(); err != nil {
		t.Fatal(err)
	}

	expError := "scene: scene.zip does not contain triangles.bin"
	if _, err = ReadResource(asset.FromStream("scene.zip", &buf)); err == nil || err.Error() != expError {
		t.Fatalf("expected error %q; got %v", expError, err)
	}
}

func TestCorruptTree(t *testing.T) {
	sc := New(testModel())
	sc.KDCache = []byte{1, 2, 3}

	if _, err := sc.Engine(tie.DefaultOptions(), nil); err == nil {
		t.Fatal("expected an error loading a corrupt kd-tree")
	}
}

func TestCompileUsesStore(t *testing.T) {
	cache, err := store.Open(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	first := New(testModel())
	if err = first.Compile(tie.DefaultOptions(), cache); err != nil {
		t.Fatal(err)
	}

	entries, err := cache.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Digest != first.Digest(tie.DefaultOptions()) || entries[0].Triangles != 4 {
		t.Fatalf("expected a single cache entry for the compiled scene; got %v", entries)
	}

	// Poison the cached tree; a second compile must pick it up instead of
	// building a new one.
	if err = cache.Put(first.Digest(tie.DefaultOptions()), 4, []byte{0xff}); err != nil {
		t.Fatal(err)
	}
	second := New(testModel())
	if err = second.Compile(tie.DefaultOptions(), cache); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(second.KDCache, []byte{0xff}) {
		t.Fatalf("expected compile to reuse the cached tree; got %d bytes", len(second.KDCache))
	}

	// Different leaf sizes must not share cached trees.
	opts := tie.DefaultOptions()
	opts.LeafTriangles = 8
	third := New(testModel())
	if err = third.Compile(opts, cache); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(third.KDCache, []byte{0xff}) {
		t.Fatal("expected compile with a different leaf size to build a new tree")
	}
	if entries, err = cache.List(); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 cache entries; got %d", len(entries))
	}
}

func TestWriteToMissingDir(t *testing.T) {
	sc := New(testModel())
	if err := Write(sc, filepath.Join(t.TempDir(), "missing", "scene.zip")); !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error; got %v", err)
	}
}
