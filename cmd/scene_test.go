package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BRL-CAD/brlcad-sub112/types"
)

func TestParseVec3(t *testing.T) {
	specs := []struct {
		in     string
		exp    types.Vec3
		expErr bool
	}{
		{"0.25,0.25,-1", types.Vec3{0.25, 0.25, -1}, false},
		{" 1, 2 ,3 ", types.Vec3{1, 2, 3}, false},
		{"1,2", types.Vec3{}, true},
		{"1,foo,3", types.Vec3{}, true},
	}

	for index, spec := range specs {
		v, err := parseVec3(spec.in)
		if spec.expErr {
			if err == nil {
				t.Fatalf("[spec %d] expected an error", index)
			}
			continue
		}
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		if v != spec.exp {
			t.Fatalf("[spec %d] expected %v; got %v", index, spec.exp, v)
		}
	}
}

func TestLoadScene(t *testing.T) {
	dir := t.TempDir()
	objFile := filepath.Join(dir, "tri.obj")
	payload := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(objFile, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := loadScene(objFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Triangles) != 1 {
		t.Fatalf("expected 1 triangle; got %d", len(sc.Triangles))
	}

	if _, err = loadScene(filepath.Join(dir, "tri.ply")); err == nil {
		t.Fatal("expected an error for an unsupported scene file")
	}
}
