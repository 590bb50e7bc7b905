// Package resolver turns the path fragments reported by the host into real
// files on disk using an ordered set of fallback strategies.
package resolver

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/gamewatch/internal/apperr"
)

// Method tags how a ResolvedFile was found.
type Method string

// Resolution methods, in the order they are attempted.
const (
	MethodDirect    Method = "direct"
	MethodContainer Method = "container"
	MethodExtension Method = "extension"
	MethodVersion   Method = "version"
	MethodRomset    Method = "romset-alias"
	MethodAlias     Method = "name-alias"
)

// ResolvedFile is an absolute path that existed when it was resolved.
// Container hits point inside an archive and are not verified.
type ResolvedFile struct {
	Path   string `json:"path"`
	Method Method `json:"method"`
}

// AliasLookup maps a short or alternate name to a canonical one.
type AliasLookup interface {
	Lookup(name string) (string, bool)
}

// Resolver finds files below a fixed base directory.
type Resolver struct {
	base    string
	romsets AliasLookup
	names   AliasLookup
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRomsets sets the altname catalog consulted before the names table.
func WithRomsets(l AliasLookup) Option {
	return func(r *Resolver) { r.romsets = l }
}

// WithNames sets the core alias table.
func WithNames(l AliasLookup) Option {
	return func(r *Resolver) { r.names = l }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver rooted at base.
func New(base string, opts ...Option) *Resolver {
	r := &Resolver{base: base, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Base returns the base directory fragments are resolved under.
func (r *Resolver) Base() string {
	return r.base
}

// Resolve matches fragment, reported under the search root root, to a file.
// The first strategy that matches wins:
//  1. exact path (absolute fragment, or base/root/fragment)
//  2. any path below a .zip container, returned unverified
//  3. base/root/fragment.* (extension inference)
//  4. base/root/fragment_*.rbf (version suffix inference)
//  5. romset altname or names.txt alias, then 4 again with the canonical name
//
// Glob hits are taken in listing order. A miss returns apperr.ErrNotFound.
func (r *Resolver) Resolve(fragment, root string) (ResolvedFile, error) {
	if fragment == "" {
		return ResolvedFile{}, fmt.Errorf("resolve: empty fragment: %w", apperr.ErrNotFound)
	}

	if filepath.IsAbs(fragment) && isFile(fragment) {
		return r.hit(filepath.Clean(fragment), MethodDirect, fragment)
	}

	composed := filepath.Join(r.base, root, fragment)
	if isFile(composed) {
		return r.hit(composed, MethodDirect, fragment)
	}

	if inContainer(root, composed) {
		return r.hit(composed, MethodContainer, fragment)
	}

	if m, ok := firstGlob(escapeGlob(composed) + ".*"); ok {
		return r.hit(m, MethodExtension, fragment)
	}

	if m, ok := firstGlob(escapeGlob(composed) + "_*.rbf"); ok {
		return r.hit(m, MethodVersion, fragment)
	}

	if r.romsets != nil {
		if name, ok := r.romsets.Lookup(fragment); ok {
			p := filepath.Join(r.base, root, name)
			if exists(p) {
				return r.hit(p, MethodRomset, fragment)
			}
			if isFile(p + ".zip") {
				return r.hit(p+".zip", MethodRomset, fragment)
			}
		}
	}

	if r.names != nil {
		if core, ok := r.names.Lookup(fragment); ok {
			p := filepath.Join(r.base, root, core)
			if m, ok := firstGlob(escapeGlob(p) + "_*.rbf"); ok {
				return r.hit(m, MethodAlias, fragment)
			}
		}
	}

	return ResolvedFile{}, fmt.Errorf("resolve %q under %q: %w", fragment, root, apperr.ErrNotFound)
}

func (r *Resolver) hit(path string, m Method, fragment string) (ResolvedFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ResolvedFile{}, fmt.Errorf("resolve: abs %s: %w", path, err)
	}
	r.logger.Debug("resolver: matched",
		slog.String("fragment", fragment),
		slog.String("path", abs),
		slog.String("method", string(m)))
	return ResolvedFile{Path: abs, Method: m}, nil
}

// inContainer reports whether root or any directory of composed is a .zip.
func inContainer(root, composed string) bool {
	if hasZipSuffix(root) {
		return true
	}
	for dir := filepath.Dir(composed); ; dir = filepath.Dir(dir) {
		if hasZipSuffix(dir) {
			return true
		}
		if parent := filepath.Dir(dir); parent == dir {
			return false
		}
	}
}

func hasZipSuffix(p string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimRight(p, `/\`)), ".zip")
}

func firstGlob(pattern string) (string, bool) {
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

// escapeGlob quotes glob metacharacters so host names like "Game [USA]"
// match literally.
func escapeGlob(p string) string {
	var b strings.Builder
	for _, c := range p {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
