package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"unsigned int", "unsigned int"},
		{"unsigned", "unsigned int"},
		{"long unsigned int", "unsigned long"},
		{"unsigned long long", "unsigned long long"},
		{"signed char", "signed char"},
		{"long double", "long double"},
		{"const char *", "char *"},
		{"char *const *", "char * *"},
		{"const uint8_t *const *", "uint8_t * *"},
		{"uint8_t *[8]", "uint8_t * [8]"},
		{"int [4][2]", "int [2] [4]"},
		{"int []", "int []"},
		{"struct AVFrame *", "struct AVFrame *"},
		{"const struct AVCodecHWConfig *", "struct AVCodecHWConfig *"},
		{"enum AVPixelFormat", "enum AVPixelFormat"},
		{"union AVUnion", "union AVUnion"},
		{"struct AVFrame *restrict", "struct AVFrame *"},
		{"char *__restrict", "char *"},
		{"_Bool", "_Bool"},
		{"unsigned __int128", "unsigned __int128"},
		{"int (void)", "int ()"},
		{"int (AVCodecContext *, const AVCodec *)", "int (AVCodecContext *, AVCodec *)"},
		{"int (const char *, ...)", "int (char *, ...)"},
		{"void (*)(void *, int, const char *, struct __va_list_tag *)", "void (void *, int, char *, struct __va_list_tag *) *"},
		{"int (*)(struct AVCodecContext *, ...)", "int (struct AVCodecContext *, ...) *"},
		{"void (*[3])(void)", "void () * [3]"},
		{"int (*(*)(void))[3]", "int [3] * () *"},
		{"__attribute__((__vector_size__(4 * sizeof(float)))) float", "float"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseCTypeFunctionPointer(t *testing.T) {
	got, err := ParseCType("int (*)(void *, uint8_t *, int)")
	require.NoError(t, err)

	require.Equal(t, KindPointer, got.Kind)
	fn := got.Elem
	require.Equal(t, KindFunc, fn.Kind)
	assert.Equal(t, "int", fn.Elem.Name)
	require.Len(t, fn.Params, 3)
	assert.Equal(t, KindPointer, fn.Params[1].Kind)
	assert.Equal(t, "uint8_t", fn.Params[1].Elem.Name)
	assert.False(t, fn.Variadic)
}

func TestParseCTypeAnonymousRecords(t *testing.T) {
	tests := []struct {
		in    string
		kind  CKind
		union bool
		loc   string
	}{
		{"struct (unnamed struct at /inc/libavutil/opt.h:10:5)", KindRecord, false, "/inc/libavutil/opt.h:10:5"},
		{"union (anonymous union at /inc/x.h:3:9)", KindRecord, true, "/inc/x.h:3:9"},
		{"(unnamed union at C:\\inc\\x.h:3:9)", KindRecord, true, "C:\\inc\\x.h:3:9"},
		{"enum (unnamed enum at /inc/x.h:7:1)", KindEnum, false, "/inc/x.h:7:1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.union, got.Union)
			assert.Equal(t, tt.loc, got.Anon)
			assert.Empty(t, got.Name)
		})
	}
}

func TestParseCTypeArrayOfAnonymous(t *testing.T) {
	got, err := ParseCType("struct (unnamed struct at /inc/x.h:4:5) [2]")
	require.NoError(t, err)
	require.Equal(t, KindArray, got.Kind)
	assert.Equal(t, int64(2), got.Len)
	assert.Equal(t, "/inc/x.h:4:5", got.Elem.Anon)
}

func TestParseCTypeErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"int (",
		"struct",
		"int [x]",
		"unsigned AVFrame",
		"int $",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCType(in)
			assert.Error(t, err)
		})
	}
}
