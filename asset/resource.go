// Package asset provides access to the files that scenes are assembled from.
package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// The client used for fetching remote resources.
var httpClient = &http.Client{Timeout: 60 * time.Second}

// A Resource is a readable local file or http(s) stream.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path or URL of this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns the resource file name without any directory or URL prefix.
func (r *Resource) Name() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return filepath.Base(r.url.Path)
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. Relative paths without a scheme are resolved against the
// location of relTo when it is specified; this is how mesh files include
// other mesh files.
//
// The caller is responsible for closing the returned resource.
func Open(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch resURL.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(resURL.Path))
		if err != nil {
			return nil, err
		}
	case "http", "https":
		resp, err := httpClient.Get(resURL.String())
		if err != nil {
			return nil, fmt.Errorf("asset: could not fetch %q: %w", resURL.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("asset: could not fetch %q: status %d", resURL.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("asset: unsupported scheme %q", resURL.Scheme)
	}

	return &Resource{ReadCloser: reader, url: resURL}, nil
}

// Wrap a reader into a resource with the given name.
func FromStream(name string, source io.Reader) *Resource {
	resURL, err := url.Parse(name)
	if err != nil {
		resURL = &url.URL{Path: name}
	}
	return &Resource{ReadCloser: io.NopCloser(source), url: resURL}
}

func resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	// Windows style paths are treated as URL paths
	resURL, err := url.Parse(strings.ReplaceAll(pathToResource, `\`, `/`))
	if err != nil {
		return nil, err
	}
	if resURL.Scheme != "" || relTo == nil || path.IsAbs(resURL.Path) {
		return resURL, nil
	}

	if relTo.IsRemote() {
		return relTo.url.ResolveReference(resURL), nil
	}

	baseDir, err := filepath.Abs(filepath.Dir(relTo.url.Path))
	if err != nil {
		return nil, fmt.Errorf("asset: could not detect abs path for %s: %w", relTo.Path(), err)
	}
	return &url.URL{Path: filepath.Join(baseDir, filepath.FromSlash(resURL.Path))}, nil
}
