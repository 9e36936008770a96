package campaign

import (
	"fmt"
	"slices"
	"strings"
)

type Field string

const (
	FieldSchoolName    Field = "school_name"
	FieldAcademicYear  Field = "academic_year"
	FieldAccreditation Field = "accreditation"
	FieldTagline       Field = "tagline"
	FieldLevel         Field = "level"
	FieldCustomTrack   Field = "custom_track"
	FieldRequirements  Field = "requirements"
	FieldDays          Field = "days"
	FieldDate          Field = "date"
	FieldTime          Field = "time"
	FieldLocation      Field = "location"
	FieldVisualStyle   Field = "visual_style"
	FieldMood          Field = "mood"
	FieldAspectRatio   Field = "aspect_ratio"
)

var scalarFields = []Field{
	FieldSchoolName,
	FieldAcademicYear,
	FieldAccreditation,
	FieldTagline,
	FieldLevel,
	FieldCustomTrack,
	FieldRequirements,
	FieldDays,
	FieldDate,
	FieldTime,
	FieldLocation,
	FieldVisualStyle,
	FieldMood,
	FieldAspectRatio,
}

// Fields lists the scalar fields accepted by SetField.
func Fields() []Field { return slices.Clone(scalarFields) }

// ParseField accepts a field name case-insensitively, with dashes or
// underscores.
func ParseField(name string) (Field, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, f := range scalarFields {
		if string(f) == norm {
			return f, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownField)
}

// EnumValues returns the legal values of an enum field, or nil for free text.
func EnumValues(f Field) []string {
	switch f {
	case FieldAccreditation:
		return Accreditations()
	case FieldLevel:
		return Levels()
	case FieldVisualStyle:
		return VisualStyles()
	case FieldAspectRatio:
		return AspectRatios()
	}
	return nil
}

// Value returns the current value of a scalar field.
func (r Record) Value(f Field) (string, error) {
	switch f {
	case FieldSchoolName:
		return r.SchoolName, nil
	case FieldAcademicYear:
		return r.AcademicYear, nil
	case FieldAccreditation:
		return r.Accreditation, nil
	case FieldTagline:
		return r.Tagline, nil
	case FieldLevel:
		return r.Level, nil
	case FieldCustomTrack:
		return r.CustomTrack, nil
	case FieldRequirements:
		return r.Requirements, nil
	case FieldDays:
		return r.Days, nil
	case FieldDate:
		return r.Date, nil
	case FieldTime:
		return r.Time, nil
	case FieldLocation:
		return r.Location, nil
	case FieldVisualStyle:
		return r.VisualStyle, nil
	case FieldMood:
		return r.Mood, nil
	case FieldAspectRatio:
		return r.AspectRatio, nil
	}
	return "", fmt.Errorf("%q: %w", f, ErrUnknownField)
}

// SetField replaces one scalar field. Enum fields only accept their legal
// values; on error the receiver is returned unchanged.
func (r Record) SetField(f Field, value string) (Record, error) {
	if legal := EnumValues(f); legal != nil && !slices.Contains(legal, value) {
		return r, fmt.Errorf("%s %q: %w", f, value, ErrInvalidValue)
	}

	out := r.Clone()
	switch f {
	case FieldSchoolName:
		out.SchoolName = value
	case FieldAcademicYear:
		out.AcademicYear = value
	case FieldAccreditation:
		out.Accreditation = value
	case FieldTagline:
		out.Tagline = value
	case FieldLevel:
		out.Level = value
	case FieldCustomTrack:
		out.CustomTrack = value
	case FieldRequirements:
		out.Requirements = value
	case FieldDays:
		out.Days = value
	case FieldDate:
		out.Date = value
	case FieldTime:
		out.Time = value
	case FieldLocation:
		out.Location = value
	case FieldVisualStyle:
		out.VisualStyle = value
	case FieldMood:
		out.Mood = value
	case FieldAspectRatio:
		out.AspectRatio = value
	default:
		return r, fmt.Errorf("%q: %w", f, ErrUnknownField)
	}
	return out, nil
}

// ToggleTrack adds track to the selection if absent and removes it if
// present. Selection order is kept.
func (r Record) ToggleTrack(track string) (Record, error) {
	if !slices.Contains(trackOptions, track) {
		return r, fmt.Errorf("track %q: %w", track, ErrInvalidValue)
	}

	out := r.Clone()
	if idx := slices.Index(out.Tracks, track); idx >= 0 {
		out.Tracks = slices.Delete(out.Tracks, idx, idx+1)
		return out, nil
	}
	out.Tracks = append(out.Tracks, track)
	return out, nil
}

func (r Record) AddContact() Record {
	out := r.Clone()
	out.Contacts = append(out.Contacts, "")
	return out
}

// RemoveContact is a no-op when only one contact slot is left or i is out of
// range.
func (r Record) RemoveContact(i int) Record {
	if len(r.Contacts) <= 1 || i < 0 || i >= len(r.Contacts) {
		return r.Clone()
	}
	out := r.Clone()
	out.Contacts = slices.Delete(out.Contacts, i, i+1)
	return out
}

func (r Record) UpdateContact(i int, value string) Record {
	out := r.Clone()
	if i < 0 || i >= len(out.Contacts) {
		return out
	}
	out.Contacts[i] = value
	return out
}

func (r Record) AddSocial() Record {
	out := r.Clone()
	out.Socials = append(out.Socials, defaultSocial())
	return out
}

// RemoveSocial follows the same rule as RemoveContact.
func (r Record) RemoveSocial(i int) Record {
	if len(r.Socials) <= 1 || i < 0 || i >= len(r.Socials) {
		return r.Clone()
	}
	out := r.Clone()
	out.Socials = slices.Delete(out.Socials, i, i+1)
	return out
}

// UpdateSocial sets "platform" or "handle" of entry i. Out of range indexes
// are ignored; unknown fields and platforms are rejected.
func (r Record) UpdateSocial(i int, field, value string) (Record, error) {
	switch field {
	case "platform":
		if !slices.Contains(socialPlatforms, value) {
			return r, fmt.Errorf("platform %q: %w", value, ErrInvalidValue)
		}
	case "handle":
	default:
		return r, fmt.Errorf("social %q: %w", field, ErrUnknownField)
	}

	out := r.Clone()
	if i < 0 || i >= len(out.Socials) {
		return out, nil
	}
	if field == "platform" {
		out.Socials[i].Platform = value
	} else {
		out.Socials[i].Handle = value
	}
	return out, nil
}

// MatchPlatform finds the platform that prefixes text, ignoring case, and
// returns it with the remainder. Used by text front ends where platform names
// may contain spaces.
func MatchPlatform(text string) (platform, rest string, ok bool) {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	for _, p := range socialPlatforms {
		lp := strings.ToLower(p)
		if lower == lp {
			return p, "", true
		}
		if strings.HasPrefix(lower, lp+" ") {
			return p, strings.TrimSpace(text[len(p):]), true
		}
	}
	return "", text, false
}
