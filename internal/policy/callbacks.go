// Package policy holds the FFmpeg-specific translation rules: how integer
// macros are typed, which enum members are constified, which macros and
// symbols are left out.
package policy

import (
	"math"
	"strings"

	"ffbind/pkg/models"
)

// Callbacks is consulted by the translation pass. Implementations must be
// pure: the same input always yields the same decision.
type Callbacks interface {
	IntMacro(name string, value int64) models.MacroType
	EnumVariant(enumName, variant string, value int64) models.EnumVariantBehavior
	WillParseMacro(name string) models.MacroBehavior
}

const (
	channelLayoutPrefix = "AV_CH_"
	codecCapPrefix      = "AV_CODEC_CAP_"
	codecFlagPrefix     = "AV_CODEC_FLAG_"
	errorMaxStringSize  = "AV_ERROR_MAX_STRING_SIZE"
	dummyCodecIDPrefix  = "AV_CODEC_ID_FIRST_"
)

// FFmpeg implements Callbacks for the libav* headers.
type FFmpeg struct{}

// IntMacro types an integer macro. Name rules come before the range rule:
// channel masks are wider than 32 bits and capability/flag sets must not
// sign-extend.
func (FFmpeg) IntMacro(name string, value int64) models.MacroType {
	fits := fitsInt32(value)
	switch {
	case strings.HasPrefix(name, channelLayoutPrefix):
		return models.MacroTypeUint64
	case fits && (strings.HasPrefix(name, codecCapPrefix) || strings.HasPrefix(name, codecFlagPrefix)):
		return models.MacroTypeUint32
	case name == errorMaxStringSize:
		return models.MacroTypeSize
	case fits:
		return models.MacroTypeInt32
	default:
		return models.MacroTypeDefault
	}
}

// EnumVariant constifies the AV_CODEC_ID_FIRST_* range markers, which alias
// real codec IDs.
func (FFmpeg) EnumVariant(_ string, variant string, _ int64) models.EnumVariantBehavior {
	if strings.HasPrefix(variant, dummyCodecIDPrefix) {
		return models.VariantConstify
	}
	return models.VariantKeep
}

// WillParseMacro skips the floating-point classification macros, which
// duplicate the libc enum of the same names.
func (FFmpeg) WillParseMacro(name string) models.MacroBehavior {
	if IgnoredMacros.Contains(name) {
		return models.MacroIgnore
	}
	return models.MacroDefault
}

func fitsInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}
