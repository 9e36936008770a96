// Package prompt renders a campaign record into the poster prompt and the
// JSON envelope handed to image providers.
package prompt

import (
	"encoding/json"
	"strings"

	"nanno-banana-ppdb/internal/campaign"
)

const (
	EnvelopeModel  = "nanno-banana (gemini-2.5-flash-image)"
	NegativePrompt = "blurry, low quality, distorted text, ugly, watermark, grainy"
	SafetySettings = "BLOCK_MEDIUM_AND_ABOVE"

	defaultMood = "Professional, inviting, and trustworthy"
)

type Envelope struct {
	Model      string     `json:"model"`
	Prompt     string     `json:"prompt"`
	Parameters Parameters `json:"parameters"`
	Meta       Meta       `json:"meta"`
}

type Parameters struct {
	AspectRatio    string `json:"aspect_ratio"`
	NegativePrompt string `json:"negative_prompt"`
	SafetySettings string `json:"safety_settings"`
}

type Meta struct {
	School string `json:"school"`
	Year   string `json:"year"`
	Style  string `json:"style"`
}

// BuildPrompt renders rec into the fixed poster template. It has no side
// effects and the same record always yields the same bytes.
func BuildPrompt(rec campaign.Record) string {
	mood := rec.Mood
	if mood == "" {
		mood = defaultMood
	}

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("Create a high-quality PPDB (New Student Admission) poster design.\n\n")

	writeSection(&b, "School Information", [][2]string{
		{"Name", rec.SchoolName},
		{"Level", rec.Level},
		{"Year", rec.AcademicYear},
		{"Accreditation", rec.Accreditation},
		{"Slogan", `"` + rec.Tagline + `"`},
	})
	writeSection(&b, "Admission Details", [][2]string{
		{"Tracks", TrackList(rec)},
		{"Operational Days", rec.Days},
		{"Dates", rec.Date},
		{"Time", rec.Time},
		{"Location", rec.Location},
		{"Requirements Summary", rec.Requirements},
		{"Contacts", ContactList(rec)},
		{"Social Media", SocialList(rec)},
	})
	writeSection(&b, "Visual Style", [][2]string{
		{"Style", rec.VisualStyle},
		{"Mood/Atmosphere", mood},
		{"Aspect Ratio", rec.AspectRatio},
	})

	b.WriteString("**Design Instructions:**\n")
	b.WriteString("Ensure the text is legible. The layout should be balanced according to the requested aspect ratio. ")
	b.WriteString(`Use colors appropriate for the "` + rec.VisualStyle + `" style. `)
	b.WriteString("High resolution, 8k, detailed textures.\n")

	return strings.TrimSpace(b.String())
}

// BuildEnvelope wraps BuildPrompt with the provider parameters and the
// campaign metadata.
func BuildEnvelope(rec campaign.Record) Envelope {
	return Envelope{
		Model:  EnvelopeModel,
		Prompt: BuildPrompt(rec),
		Parameters: Parameters{
			AspectRatio:    rec.AspectRatio,
			NegativePrompt: NegativePrompt,
			SafetySettings: SafetySettings,
		},
		Meta: Meta{
			School: rec.SchoolName,
			Year:   rec.AcademicYear,
			Style:  rec.VisualStyle,
		},
	}
}

// MarshalIndent renders the envelope the way it is shown for copying.
func (e Envelope) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// TrackList joins the selected tracks in selection order. The custom-track
// sentinel is replaced by the free-text track, or dropped when that is empty.
func TrackList(rec campaign.Record) string {
	if !rec.HasTrack(campaign.CustomTrack) {
		return strings.Join(rec.Tracks, ", ")
	}

	tracks := make([]string, 0, len(rec.Tracks))
	for _, t := range rec.Tracks {
		if t == campaign.CustomTrack || t == "" {
			continue
		}
		tracks = append(tracks, t)
	}
	if rec.CustomTrack != "" {
		tracks = append(tracks, rec.CustomTrack)
	}
	return strings.Join(tracks, ", ")
}

// SocialList renders every social entry with a handle as "platform: handle".
func SocialList(rec campaign.Record) string {
	out := make([]string, 0, len(rec.Socials))
	for _, s := range rec.Socials {
		if s.Handle == "" {
			continue
		}
		out = append(out, s.Platform+": "+s.Handle)
	}
	return strings.Join(out, " | ")
}

func ContactList(rec campaign.Record) string {
	out := make([]string, 0, len(rec.Contacts))
	for _, c := range rec.Contacts {
		if c == "" {
			continue
		}
		out = append(out, c)
	}
	return strings.Join(out, " | ")
}

func writeSection(b *strings.Builder, title string, lines [][2]string) {
	b.WriteString("**" + title + ":**\n")
	for _, line := range lines {
		b.WriteString("- " + line[0] + ": " + line[1] + "\n")
	}
	b.WriteString("\n")
}
