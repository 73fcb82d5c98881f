package headers

// core is the fixed translation input, in include order.
var core = []string{
	"libavcodec/avcodec.h",
	"libavcodec/dv_profile.h",
	"libavcodec/avfft.h",
	"libavcodec/vorbis_parser.h",
	"libavdevice/avdevice.h",
	"libavfilter/buffersink.h",
	"libavfilter/buffersrc.h",
	"libavfilter/avfilter.h",
	"libavformat/avformat.h",
	"libavformat/avio.h",
	"libavutil/adler32.h",
	"libavutil/aes.h",
	"libavutil/audio_fifo.h",
	"libavutil/base64.h",
	"libavutil/blowfish.h",
	"libavutil/bprint.h",
	"libavutil/buffer.h",
	"libavutil/camellia.h",
	"libavutil/cast5.h",
	"libavutil/channel_layout.h",
	SupplementName,
	"libavutil/cpu.h",
	"libavutil/crc.h",
	"libavutil/dict.h",
	"libavutil/display.h",
	"libavutil/downmix_info.h",
	"libavutil/error.h",
	"libavutil/eval.h",
	"libavutil/fifo.h",
	"libavutil/file.h",
	"libavutil/frame.h",
	"libavutil/hash.h",
	"libavutil/hmac.h",
	"libavutil/hwcontext.h",
	"libavutil/imgutils.h",
	"libavutil/lfg.h",
	"libavutil/log.h",
	"libavutil/lzo.h",
	"libavutil/macros.h",
	"libavutil/mathematics.h",
	"libavutil/md5.h",
	"libavutil/mem.h",
	"libavutil/motion_vector.h",
	"libavutil/murmur3.h",
	"libavutil/opt.h",
	"libavutil/parseutils.h",
	"libavutil/pixdesc.h",
	"libavutil/pixfmt.h",
	"libavutil/random_seed.h",
	"libavutil/rational.h",
	"libavutil/replaygain.h",
	"libavutil/ripemd.h",
	"libavutil/samplefmt.h",
	"libavutil/sha.h",
	"libavutil/sha512.h",
	"libavutil/stereo3d.h",
	"libavutil/avstring.h",
	"libavutil/threadmessage.h",
	"libavutil/time.h",
	"libavutil/timecode.h",
	"libavutil/twofish.h",
	"libavutil/avutil.h",
	"libavutil/xtea.h",
	"libpostproc/postprocess.h",
	"libswresample/swresample.h",
	"libswscale/swscale.h",
}

// Core returns a copy of the fixed header list.
func Core() []string {
	return append([]string(nil), core...)
}

// HWAccel returns the hardware-context headers available on goos.
func HWAccel(goos string) []string {
	switch goos {
	case "windows":
		return []string{"libavutil/hwcontext_qsv.h", "libavutil/hwcontext_d3d11va.h"}
	case "linux":
		return []string{"libavutil/hwcontext_drm.h"}
	default:
		return nil
	}
}

// ForTarget is the full ordered list for goos.
func ForTarget(goos string) []string {
	return append(Core(), HWAccel(goos)...)
}
