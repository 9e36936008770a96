package gemini

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrMissingCredential is returned before any network activity when neither
// the caller nor the process supplies an API key.
var ErrMissingCredential = errors.New("API Key tidak ditemukan. Mohon masukkan API Key Google Gemini Anda di menu pengaturan (tombol kunci).")

// APIError is a non-2xx answer from the provider. The message keeps the HTTP
// status so callers can recognise authentication failures.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API %s: %s", e.Status, e.Body)
}

// Image is decoded inline image data from a response.
type Image struct {
	MIMEType string
	Data     []byte
}

func (img Image) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Part is one content part of a provider response: TextPart or
// InlineDataPart.
type Part interface {
	isPart()
}

type TextPart struct {
	Text string
}

type InlineDataPart struct {
	MIMEType string
	Data     []byte
}

func (TextPart) isPart()       {}
func (InlineDataPart) isPart() {}

// FirstImage returns the first inline-data part.
func FirstImage(parts []Part) (InlineDataPart, bool) {
	for _, p := range parts {
		if img, ok := p.(InlineDataPart); ok {
			return img, true
		}
	}
	return InlineDataPart{}, false
}
