package campaign

import "slices"

const (
	DefaultAccreditation = "Unggul (A)"
	DefaultLevel         = "MA"
	DefaultVisualStyle   = "Modern minimalis"
	DefaultAspectRatio   = "3:4"
	DefaultPlatform      = "Instagram"

	// CustomTrack is the sentinel track whose selection pulls in the
	// free-text custom track.
	CustomTrack = "Isi Sendiri"
)

var accreditations = []string{
	"Unggul (A)",
	"Baik Sekali (B)",
	"Baik (C)",
	"Belum Terakreditasi",
}

var levels = []string{"MA", "MTs", "MI", "RA", "SMK", "SMA", "SMP", "SD"}

var trackOptions = []string{"Prestasi", "Reguler", "Tahfidz", "Kelas Olahraga", CustomTrack}

var socialPlatforms = []string{
	"Instagram",
	"TikTok",
	"Website",
	"YouTube",
	"X (Twitter)",
	"Facebook",
	"WhatsApp",
}

var visualStyles = []string{
	"Modern minimalis",
	"Islami elegan",
	"Ceria (PAUD/MI)",
	"Profesional (MA)",
	"Paper cut",
}

var aspectRatios = []string{"1:1", "3:4", "4:3", "9:16", "16:9", "4:5", "5:4", "2:1"}

func Accreditations() []string  { return slices.Clone(accreditations) }
func Levels() []string          { return slices.Clone(levels) }
func TrackOptions() []string    { return slices.Clone(trackOptions) }
func SocialPlatforms() []string { return slices.Clone(socialPlatforms) }
func VisualStyles() []string    { return slices.Clone(visualStyles) }
func AspectRatios() []string    { return slices.Clone(aspectRatios) }

// Options groups every option list, in display order, for front ends.
type Options struct {
	Accreditations  []string `json:"accreditations"`
	Levels          []string `json:"levels"`
	Tracks          []string `json:"tracks"`
	SocialPlatforms []string `json:"social_platforms"`
	VisualStyles    []string `json:"visual_styles"`
	AspectRatios    []string `json:"aspect_ratios"`
}

func AllOptions() Options {
	return Options{
		Accreditations:  Accreditations(),
		Levels:          Levels(),
		Tracks:          TrackOptions(),
		SocialPlatforms: SocialPlatforms(),
		VisualStyles:    VisualStyles(),
		AspectRatios:    AspectRatios(),
	}
}
