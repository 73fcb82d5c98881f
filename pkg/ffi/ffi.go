// Package ffi is the run-time half of the generated bindings: it opens the
// FFmpeg shared libraries and binds the artifact's function variables to
// their symbols with purego, so callers need no cgo.
package ffi

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Lib names one shared library. Major is the ABI major version the bindings
// were generated against, 0 when unknown.
type Lib struct {
	Name  string
	Major int
}

// FileName is the shared-library file name of name on goos. A major above 0
// selects the versioned name the runtime packages install.
//
//	linux:   libavcodec.so.60
//	darwin:  libavcodec.60.dylib
//	windows: avcodec-60.dll
func FileName(goos, name string, major int) string {
	switch goos {
	case "windows":
		if major > 0 {
			return fmt.Sprintf("%s-%d.dll", name, major)
		}
		return name + ".dll"
	case "darwin":
		if major > 0 {
			return fmt.Sprintf("lib%s.%d.dylib", name, major)
		}
		return "lib" + name + ".dylib"
	default:
		if major > 0 {
			return fmt.Sprintf("lib%s.so.%d", name, major)
		}
		return "lib" + name + ".so"
	}
}

// FileNames lists the names tried for lib, versioned first.
func FileNames(goos string, lib Lib) []string {
	if lib.Major > 0 {
		return []string{FileName(goos, lib.Name, lib.Major), FileName(goos, lib.Name, 0)}
	}
	return []string{FileName(goos, lib.Name, 0)}
}

// Library is a set of opened shared libraries searched in open order.
type Library struct {
	handles []uintptr
	paths   []string
	// missing holds symbols no library exports, rejected the ones purego
	// could not register, keyed by symbol with the reason as value.
	missing  map[string]bool
	rejected map[string]string
}

func newLibrary() *Library {
	return &Library{missing: map[string]bool{}, rejected: map[string]string{}}
}

// Open loads every library. Each file name is tried in dirs first, then
// bare through the system loader; the versioned name goes before the
// unversioned one. It fails if any library cannot be opened, releasing the
// ones already loaded.
func Open(libs []Lib, dirs ...string) (*Library, error) {
	l := newLibrary()
	for _, lib := range libs {
		var candidates []string
		for _, file := range FileNames(runtime.GOOS, lib) {
			for _, dir := range dirs {
				candidates = append(candidates, filepath.Join(dir, file))
			}
			candidates = append(candidates, file)
		}

		var errs []error
		opened := false
		for _, path := range candidates {
			h, err := openLibrary(path)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			l.handles = append(l.handles, h)
			l.paths = append(l.paths, path)
			opened = true
			break
		}
		if !opened {
			l.Close()
			return nil, fmt.Errorf("open %s: %w", lib.Name, errors.Join(errs...))
		}
	}
	return l, nil
}

// Paths lists the files that were opened, in order.
func (l *Library) Paths() []string {
	return append([]string(nil), l.paths...)
}

// Lookup returns the address of symbol in the first library exporting it.
func (l *Library) Lookup(symbol string) (uintptr, bool) {
	for _, h := range l.handles {
		if addr, err := lookupSymbol(h, symbol); err == nil && addr != 0 {
			return addr, true
		}
	}
	return 0, false
}

// Bind points the function variable fptr at symbol. A symbol the libraries
// do not export, or whose signature purego rejects, leaves fptr nil and is
// reported by Missing.
func (l *Library) Bind(fptr any, symbol string) (ok bool) {
	addr, found := l.Lookup(symbol)
	if !found {
		l.missing[symbol] = true
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			l.rejected[symbol] = fmt.Sprint(r)
			ok = false
		}
	}()
	purego.RegisterFunc(fptr, addr)
	return true
}

// Var points *ptr at the extern variable symbol.
func Var[T any](l *Library, ptr **T, symbol string) bool {
	addr, found := l.Lookup(symbol)
	if !found {
		l.missing[symbol] = true
		return false
	}
	// addr comes from the dynamic loader and points outside the Go heap.
	*ptr = (*T)(unsafe.Pointer(addr))
	return true
}

// Missing lists the symbols left unbound, sorted. Rejected signatures carry
// purego's reason.
func (l *Library) Missing() []string {
	out := make([]string, 0, len(l.missing)+len(l.rejected))
	for s := range l.missing {
		out = append(out, s)
	}
	for s, why := range l.rejected {
		out = append(out, s+": "+why)
	}
	sort.Strings(out)
	return out
}

// Close releases every handle. The bound function variables must not be
// called afterwards.
func (l *Library) Close() error {
	var errs []error
	for i := len(l.handles) - 1; i >= 0; i-- {
		if err := closeLibrary(l.handles[i]); err != nil {
			errs = append(errs, err)
		}
	}
	l.handles = nil
	l.paths = nil
	return errors.Join(errs...)
}
