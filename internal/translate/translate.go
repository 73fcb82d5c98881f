// Package translate turns the FFmpeg headers into one Go source file: record
// layouts, enums, constants and function variables bound at run time by
// pkg/ffi. Clang does the C parsing; this package maps its output onto Go.
package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"github.com/phuslu/log"

	"ffbind/internal/headers"
	"ffbind/internal/policy"
)

// DefaultRuntimeImport is the package the generated Load binds through.
const DefaultRuntimeImport = "ffbind/pkg/ffi"

// Options configure one translation.
type Options struct {
	Headers     []headers.Resolved
	IncludeDirs []string

	BlockFunctions       policy.Set
	BlockFunctionPattern *regexp.Regexp
	OpaqueTypes          policy.Set
	Callbacks            policy.Callbacks

	Target        Target
	Package       string
	Libraries     []string
	RuntimeImport string

	// Frontend defaults to running clang from PATH.
	Frontend Frontend
}

func (o *Options) blocked(name string) bool {
	if o.BlockFunctions.Contains(name) {
		return true
	}
	return o.BlockFunctionPattern != nil && o.BlockFunctionPattern.MatchString(name)
}

func (o *Options) withDefaults() {
	if o.Frontend == nil {
		o.Frontend = &Clang{}
	}
	if o.Callbacks == nil {
		o.Callbacks = policy.FFmpeg{}
	}
	if o.Package == "" {
		o.Package = "ffmpeg"
	}
	if o.RuntimeImport == "" {
		o.RuntimeImport = DefaultRuntimeImport
	}
}

// Bindings is the result of a translation.
type Bindings struct {
	Source []byte
	Stats  Stats
}

// Translate parses the headers with the frontend and emits the Go bindings.
func Translate(ctx context.Context, opts Options) (*Bindings, error) {
	opts.withDefaults()

	src := Source(opts.Headers)
	args := opts.args()

	u := newUnit()
	col := &collector{u: u, skip: opts.blocked}
	err := opts.Frontend.Run(ctx, ModeDeclarations, src, args, func(r io.Reader) error {
		return decodeTopLevel(r, col.add)
	})
	if err != nil {
		return nil, wrapStage(StageParse, err)
	}

	var defs []*macroDef
	err = opts.Frontend.Run(ctx, ModeMacros, src, args, func(r io.Reader) error {
		var err error
		defs, err = readMacroDefs(r)
		return err
	})
	if err != nil {
		return nil, wrapStage(StageMacros, err)
	}
	macros := evaluateMacros(defs, opts.Callbacks)

	log.Debug().
		Int("declarations", len(u.decls)).
		Int("functions", len(u.funcs)).
		Int("macros", len(defs)).
		Int("constants", len(macros)).
		Msg("translation unit collected")

	assignNames(u, macros, []string{"Load", "Libraries"})

	e := &emitter{m: newTypeMapper(u, opts.Target), opts: &opts}
	out, err := e.emit(u, macros)
	if err != nil {
		return nil, err
	}
	return &Bindings{Source: out, Stats: e.stats}, nil
}

func wrapStage(stage string, err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{Stage: stage, Err: err}
}

// Source is the translation unit fed to the compiler: an include per header
// file, in order, with inline headers pasted in place.
func Source(hs []headers.Resolved) []byte {
	var b bytes.Buffer
	for _, h := range hs {
		if h.IsInline() {
			fmt.Fprintf(&b, "/* %s */\n%s\n", h.Name, h.Text)
			continue
		}
		fmt.Fprintf(&b, "#include \"%s\"\n", filepath.ToSlash(h.Path))
	}
	return b.Bytes()
}

func (o *Options) args() []string {
	args := []string{"-x", "c", "-std=gnu11", "-w"}
	if triple := o.Target.ClangTriple(); triple != "" {
		args = append(args, "--target="+triple)
	}
	for _, dir := range o.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	return args
}
