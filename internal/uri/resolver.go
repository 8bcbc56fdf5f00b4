package uri

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme classifies a resolved location for output routing.
type Scheme int

const (
	SchemeFile Scheme = iota
	SchemeOther
)

func (s Scheme) String() string {
	if s == SchemeFile {
		return "file"
	}
	return "other"
}

// Location is a resolved output destination.
type Location struct {
	u *url.URL
}

// File builds a file location from a filesystem path. Relative paths are
// absolutized against the working directory.
func File(path string) (Location, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Location{}, fmt.Errorf("uri: absolutize %q: %w", path, err)
	}
	return Location{u: &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}}, nil
}

// Dir builds a file location for a directory, keeping the trailing separator
// so relative identifiers resolve inside the directory rather than beside it.
func Dir(path string) (Location, error) {
	loc, err := File(path)
	if err != nil {
		return Location{}, err
	}
	if !strings.HasSuffix(loc.u.Path, "/") {
		loc.u.Path += "/"
	}
	return loc, nil
}

// Parse builds a location from a raw identifier. Identifiers without a scheme
// are treated as filesystem paths.
func Parse(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("uri: parse %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return File(raw)
	}
	return Location{u: u}, nil
}

// Resolve resolves an identifier against a base location. Relative identifiers
// resolve against the base the way relative references resolve against a URL;
// absolute identifiers stand alone.
func Resolve(base Location, identifier string) (Location, error) {
	if base.u == nil {
		return Location{}, fmt.Errorf("uri: resolve %q: empty base location", identifier)
	}
	ref, err := url.Parse(identifier)
	if err != nil {
		return Location{}, fmt.Errorf("uri: resolve %q: %w", identifier, err)
	}
	if ref.IsAbs() {
		return Location{u: ref}, nil
	}
	if filepath.IsAbs(identifier) {
		return File(identifier)
	}
	return Location{u: base.u.ResolveReference(ref)}, nil
}

// Scheme reports whether the location is writable as a local file.
func (l Location) Scheme() Scheme {
	if l.u == nil {
		return SchemeOther
	}
	if l.u.Scheme == "file" {
		return SchemeFile
	}
	return SchemeOther
}

// Path returns the filesystem path for file locations, empty otherwise.
func (l Location) Path() string {
	if l.Scheme() != SchemeFile {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(l.u.Path))
}

func (l Location) String() string {
	if l.u == nil {
		return ""
	}
	return l.u.String()
}

// SameFile reports whether two file locations name the same destination.
func (l Location) SameFile(other Location) bool {
	if l.Scheme() != SchemeFile || other.Scheme() != SchemeFile {
		return false
	}
	return l.Path() == other.Path()
}
