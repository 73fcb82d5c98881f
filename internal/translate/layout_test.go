package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	linuxAMD64  = Target{GOOS: "linux", GOARCH: "amd64"}
	darwinARM64 = Target{GOOS: "darwin", GOARCH: "arm64"}
	windowsX64  = Target{GOOS: "windows", GOARCH: "amd64"}
)

func member(t *testing.T, name, typ string) field {
	t.Helper()
	ct, err := ParseCType(typ)
	require.NoError(t, err)
	return field{name: name, ctype: ct}
}

func bits(t *testing.T, name, typ string, width int64) field {
	f := member(t, name, typ)
	f.bitfield = true
	f.width = width
	return f
}

func layoutOf(t *testing.T, target Target, union bool, fields ...field) *recordLayout {
	t.Helper()
	r := &record{tag: "T", union: union, complete: true, fields: fields}
	l, err := newTypeMapper(newUnit(), target).recordLayout(r)
	require.NoError(t, err)
	return l
}

func TestStructLayout(t *testing.T) {
	l := layoutOf(t, linuxAMD64, false,
		member(t, "a", "int"),
		member(t, "b", "char"),
		member(t, "c", "double"),
		member(t, "d", "uint8_t *[2]"),
	)
	assert.Equal(t, int64(32), l.size)
	assert.Equal(t, int64(8), l.align)
	assert.Equal(t, []int64{0, 32, 64, 128}, offsets(l))
}

func TestBitFieldLayoutSysV(t *testing.T) {
	l := layoutOf(t, linuxAMD64, false,
		bits(t, "a", "unsigned int", 3),
		bits(t, "b", "unsigned int", 5),
		member(t, "c", "int"),
		bits(t, "d", "char", 2),
	)
	assert.Equal(t, int64(12), l.size)
	assert.Equal(t, int64(4), l.align)
	assert.Equal(t, []int64{0, 3, 32, 64}, offsets(l))
}

func TestBitFieldStraddle(t *testing.T) {
	l := layoutOf(t, linuxAMD64, false,
		bits(t, "a", "unsigned int", 30),
		bits(t, "b", "unsigned int", 4),
	)
	assert.Equal(t, []int64{0, 32}, offsets(l))
	assert.Equal(t, int64(8), l.size)
}

func TestBitFieldMixedTypes(t *testing.T) {
	fields := func() []field {
		return []field{bits(t, "a", "char", 4), bits(t, "b", "int", 4)}
	}

	sysv := layoutOf(t, linuxAMD64, false, fields()...)
	assert.Equal(t, int64(4), sysv.size)
	assert.Equal(t, []int64{0, 4}, offsets(sysv))

	msvc := layoutOf(t, windowsX64, false, fields()...)
	assert.Equal(t, int64(8), msvc.size)
	assert.Equal(t, []int64{0, 32}, offsets(msvc))
}

func TestUnionLayout(t *testing.T) {
	l := layoutOf(t, linuxAMD64, true,
		member(t, "c", "char [5]"),
		member(t, "i", "int"),
	)
	assert.Equal(t, int64(8), l.size)
	assert.Equal(t, int64(4), l.align)
}

func TestLongDoubleLayoutPerTarget(t *testing.T) {
	fields := func() []field {
		return []field{member(t, "c", "char"), member(t, "x", "long double")}
	}
	linux := layoutOf(t, linuxAMD64, false, fields()...)
	assert.Equal(t, int64(32), linux.size)
	assert.Equal(t, int64(16), linux.align)

	darwin := layoutOf(t, darwinARM64, false, fields()...)
	assert.Equal(t, int64(16), darwin.size)
	assert.Equal(t, int64(8), darwin.align)
}

func TestLongIsTargetSized(t *testing.T) {
	fields := func() []field {
		return []field{member(t, "a", "long"), member(t, "b", "int")}
	}
	assert.Equal(t, int64(16), layoutOf(t, linuxAMD64, false, fields()...).size)
	assert.Equal(t, int64(8), layoutOf(t, windowsX64, false, fields()...).size)
}

func TestIncompleteRecordHasNoLayout(t *testing.T) {
	m := newTypeMapper(newUnit(), linuxAMD64)
	_, err := m.recordLayout(&record{tag: "AVDictionary"})
	assert.ErrorIs(t, err, errIncomplete)
}

func offsets(l *recordLayout) []int64 {
	out := make([]int64, 0, len(l.fields))
	for _, f := range l.fields {
		out = append(out, f.offsetBits)
	}
	return out
}
