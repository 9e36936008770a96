// Package campaign holds the PPDB campaign record and the copy-on-write
// operations used by every front end to edit it.
package campaign

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrInvalidValue = errors.New("invalid value")
)

type Social struct {
	Platform string `json:"platform" yaml:"platform"`
	Handle   string `json:"handle" yaml:"handle"`
}

type Record struct {
	SchoolName    string `json:"school_name" yaml:"school_name"`
	AcademicYear  string `json:"academic_year" yaml:"academic_year"`
	Accreditation string `json:"accreditation" yaml:"accreditation"`
	Tagline       string `json:"tagline" yaml:"tagline"`

	Level        string   `json:"level" yaml:"level"`
	Tracks       []string `json:"tracks" yaml:"tracks"`
	CustomTrack  string   `json:"custom_track" yaml:"custom_track"`
	Requirements string   `json:"requirements" yaml:"requirements"`
	Days         string   `json:"days" yaml:"days"`
	Date         string   `json:"date" yaml:"date"`
	Time         string   `json:"time" yaml:"time"`
	Location     string   `json:"location" yaml:"location"`
	Contacts     []string `json:"contacts" yaml:"contacts"`
	Socials      []Social `json:"socials" yaml:"socials"`

	VisualStyle string `json:"visual_style" yaml:"visual_style"`
	Mood        string `json:"mood" yaml:"mood"`
	AspectRatio string `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// New returns a record with every enum at its default and the academic year
// set to now's year and the next one.
func New(now time.Time) Record {
	year := now.Year()
	return Record{
		AcademicYear:  strconv.Itoa(year) + "/" + strconv.Itoa(year+1),
		Accreditation: DefaultAccreditation,
		Level:         DefaultLevel,
		Tracks:        []string{},
		Contacts:      []string{""},
		Socials:       []Social{defaultSocial()},
		VisualStyle:   DefaultVisualStyle,
		AspectRatio:   DefaultAspectRatio,
	}
}

func Default() Record {
	return New(time.Now())
}

func defaultSocial() Social {
	return Social{Platform: DefaultPlatform, Handle: ""}
}

// Clone returns a deep copy; records never share list backing arrays.
func (r Record) Clone() Record {
	out := r
	out.Tracks = slices.Clone(r.Tracks)
	out.Contacts = slices.Clone(r.Contacts)
	out.Socials = slices.Clone(r.Socials)
	if out.Tracks == nil {
		out.Tracks = []string{}
	}
	return out
}

// HasTrack reports whether track is in the selected set.
func (r Record) HasTrack(track string) bool {
	return slices.Contains(r.Tracks, track)
}

// Normalize restores the list invariants on records decoded from outside
// (YAML files, request bodies). Enum fields left empty get their defaults.
func (r Record) Normalize() Record {
	out := r.Clone()
	if len(out.Contacts) == 0 {
		out.Contacts = []string{""}
	}
	if len(out.Socials) == 0 {
		out.Socials = []Social{defaultSocial()}
	}
	for i := range out.Socials {
		if out.Socials[i].Platform == "" {
			out.Socials[i].Platform = DefaultPlatform
		}
	}
	if out.Accreditation == "" {
		out.Accreditation = DefaultAccreditation
	}
	if out.Level == "" {
		out.Level = DefaultLevel
	}
	if out.VisualStyle == "" {
		out.VisualStyle = DefaultVisualStyle
	}
	if out.AspectRatio == "" {
		out.AspectRatio = DefaultAspectRatio
	}
	return out
}

// Validate checks the structural invariants. Free-text fields are never
// validated; empty strings are legal everywhere.
func (r Record) Validate() error {
	checks := []struct {
		field string
		value string
		legal []string
	}{
		{"accreditation", r.Accreditation, accreditations},
		{"level", r.Level, levels},
		{"visual_style", r.VisualStyle, visualStyles},
		{"aspect_ratio", r.AspectRatio, aspectRatios},
	}
	for _, c := range checks {
		if !slices.Contains(c.legal, c.value) {
			return fmt.Errorf("%s %q: %w", c.field, c.value, ErrInvalidValue)
		}
	}

	seen := make(map[string]struct{}, len(r.Tracks))
	for _, t := range r.Tracks {
		if !slices.Contains(trackOptions, t) {
			return fmt.Errorf("track %q: %w", t, ErrInvalidValue)
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("track %q selected twice: %w", t, ErrInvalidValue)
		}
		seen[t] = struct{}{}
	}

	if len(r.Contacts) == 0 {
		return fmt.Errorf("contacts must have at least one slot: %w", ErrInvalidValue)
	}
	if len(r.Socials) == 0 {
		return fmt.Errorf("socials must have at least one slot: %w", ErrInvalidValue)
	}
	for _, s := range r.Socials {
		if !slices.Contains(socialPlatforms, s.Platform) {
			return fmt.Errorf("platform %q: %w", s.Platform, ErrInvalidValue)
		}
	}
	return nil
}
