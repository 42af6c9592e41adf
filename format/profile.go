package format

type Profile uint32

const (
	ProfileH264Baseline Profile = 0x100 + iota
	ProfileH264Main
	ProfileH264Extended
	ProfileH264High
	ProfileH264High10
	ProfileH264High422
	ProfileH264High444Predictive
	ProfileH264ScalableBaseline
	ProfileH264ScalableHigh
	ProfileH264StereoHigh
	ProfileH264MultiviewHigh
)

const (
	ProfileHEVCMain Profile = 0x200 + iota
	ProfileHEVCMain10
	ProfileHEVCMainStillPicture
)

const (
	ProfileVP8Profile0 Profile = 0x300 + iota
	ProfileVP8Profile1
	ProfileVP8Profile2
	ProfileVP8Profile3
)

const (
	ProfileVP9Profile0 Profile = 0x400 + iota
	ProfileVP9Profile1
	ProfileVP9Profile2
	ProfileVP9Profile3
)

type Level uint32

const (
	LevelH264_1_0 Level = 0x100 + iota
	LevelH264_1_1
	LevelH264_1_2
	LevelH264_1_3
	LevelH264_2_0
	LevelH264_2_1
	LevelH264_2_2
	LevelH264_3_0
	LevelH264_3_1
	LevelH264_3_2
	LevelH264_4_0
	LevelH264_4_1
	LevelH264_4_2
	LevelH264_5_0
	LevelH264_5_1
)

const (
	LevelHEVC_1_0 Level = 0x200 + iota
	LevelHEVC_2_0
	LevelHEVC_2_1
	LevelHEVC_3_0
	LevelHEVC_3_1
	LevelHEVC_4_0
	LevelHEVC_4_1
	LevelHEVC_5_0
	LevelHEVC_5_1
	LevelHEVC_5_2
	LevelHEVC_6_0
	LevelHEVC_6_1
	LevelHEVC_6_2
)

// ProfileRange returns the inclusive range of profiles valid for f. ok is
// false for formats without profiles.
func (f Format) ProfileRange() (lo, hi Profile, ok bool) {
	switch f {
	case H264:
		return ProfileH264Baseline, ProfileH264MultiviewHigh, true
	case HEVC:
		return ProfileHEVCMain, ProfileHEVCMainStillPicture, true
	case VP8:
		return ProfileVP8Profile0, ProfileVP8Profile3, true
	case VP9:
		return ProfileVP9Profile0, ProfileVP9Profile3, true
	default:
		return 0, 0, false
	}
}

// LevelRange returns the inclusive range of levels valid for f. ok is false
// for formats without levels.
func (f Format) LevelRange() (lo, hi Level, ok bool) {
	switch f {
	case H264:
		return LevelH264_1_0, LevelH264_5_1, true
	case HEVC:
		return LevelHEVC_1_0, LevelHEVC_6_2, true
	default:
		return 0, 0, false
	}
}
