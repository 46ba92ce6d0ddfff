package asset

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func TestLocalResource(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mesh.obj")
	if err := os.WriteFile(file, []byte("v 0 0 0"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Open(file, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected local resource")
	}
	if res.Name() != "mesh.obj" {
		t.Fatalf("expected resource name to be mesh.obj; got %s", res.Name())
	}
	data, err := io.ReadAll(res)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v 0 0 0" {
		t.Fatalf("expected to read back file contents; got %q", data)
	}
}

func TestRelativeLocalResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "parts"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"main.obj", filepath.Join("parts", "wheel.obj")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	parent, err := Open(filepath.Join(dir, "main.obj"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()

	child, err := Open("parts/wheel.obj", parent)
	if err != nil {
		t.Fatal(err)
	}
	defer child.Close()

	if exp := filepath.Join(dir, "parts", "wheel.obj"); child.Path() != exp {
		t.Fatalf("expected resolved path %s; got %s", exp, child.Path())
	}
}

func TestHttpResource(t *testing.T) {
	serverHits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		switch r.URL.Path {
		case "/models/main.obj", "/models/parts/wheel.obj":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	parent, err := Open(server.URL+"/models/main.obj", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer parent.Close()

	if !parent.IsRemote() || parent.Name() != "main.obj" {
		t.Fatalf("expected remote resource named main.obj; got %s", parent.Path())
	}

	child, err := Open("parts/wheel.obj", parent)
	if err != nil {
		t.Fatal(err)
	}
	defer child.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}

	missingURL := server.URL + "/file-not-found.obj"
	expError := `asset: could not fetch "` + missingURL + `": status 404`
	if _, err = Open(missingURL, nil); err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	expError := `asset: unsupported scheme "gopher"`
	_, err := Open("gopher://digging.obj", nil)
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get: %s; got %v", expError, err)
	}
}

func TestResourceConnectionRefused(t *testing.T) {
	_, err := Open("http://127.0.0.1:1/foo.obj", nil)
	if err == nil || !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("expected to get a connection refused error; got %v", err)
	}
}

func TestStreamResource(t *testing.T) {
	res := FromStream("inline.obj", strings.NewReader("f 1 2 3"))
	defer res.Close()

	if res.IsRemote() || res.Path() != "inline.obj" {
		t.Fatalf("expected local resource with path inline.obj; got %s", res.Path())
	}
}
