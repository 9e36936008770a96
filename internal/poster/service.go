// Package poster runs the three user actions on a campaign record: render
// the text prompt, render the JSON envelope, and request the poster image.
package poster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"nanno-banana-ppdb/internal/campaign"
	"nanno-banana-ppdb/internal/gemini"
	"nanno-banana-ppdb/internal/prompt"
)

const (
	MsgNoContent     = "Gagal membuat gambar. Silakan coba lagi."
	MsgProviderError = "Terjadi kesalahan saat menghubungi API Gemini."
)

type Requestor interface {
	RequestImage(ctx context.Context, prompt, aspectRatio, apiKey string) (*gemini.Image, error)
	HasDefaultKey() bool
}

// KeyStore is the persisted user key, looked up by scope.
type KeyStore interface {
	APIKey(ctx context.Context, scope string) (string, error)
}

type Kind string

const (
	KindImage             Kind = "image"
	KindMissingCredential Kind = "missing_credential"
	KindProviderError     Kind = "provider_error"
	KindNoContent         Kind = "no_content"
)

// Result is the outcome of GenerateImage as a front end presents it.
type Result struct {
	Kind    Kind
	Image   *gemini.Image
	Message string
	// ReopenCredential asks the front end to show its API key control.
	ReopenCredential bool
	Err              error
}

type Options struct {
	Requestor Requestor
	Keys      KeyStore
	Logger    *slog.Logger
}

type Service struct {
	requestor Requestor
	keys      KeyStore
	logger    *slog.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		requestor: opts.Requestor,
		keys:      opts.Keys,
		logger:    logger,
	}
}

func (s *Service) RenderText(rec campaign.Record) string {
	return prompt.BuildPrompt(rec)
}

func (s *Service) RenderJSON(rec campaign.Record) prompt.Envelope {
	return prompt.BuildEnvelope(rec)
}

// UserKey returns explicit when set, else the key stored for scope.
func (s *Service) UserKey(ctx context.Context, scope, explicit string) (string, error) {
	if key := strings.TrimSpace(explicit); key != "" {
		return key, nil
	}
	if s.keys == nil {
		return "", nil
	}
	return s.keys.APIKey(ctx, scope)
}

// HasCredential reports whether a generation for scope would have any key:
// explicit, stored, or the process default.
func (s *Service) HasCredential(ctx context.Context, scope, explicit string) (bool, error) {
	key, err := s.UserKey(ctx, scope, explicit)
	if err != nil {
		return false, err
	}
	return key != "" || s.requestor.HasDefaultKey(), nil
}

// GenerateImage builds the prompt from rec and asks the provider for one
// image. It never retries and never changes rec.
func (s *Service) GenerateImage(ctx context.Context, scope string, rec campaign.Record, explicitKey string) Result {
	userKey, err := s.UserKey(ctx, scope, explicitKey)
	if err != nil {
		s.logger.Error("read stored api key failed", "scope", scope, "err", err)
		return Result{Kind: KindProviderError, Message: err.Error(), Err: err}
	}

	if userKey == "" && !s.requestor.HasDefaultKey() {
		return Result{
			Kind:             KindMissingCredential,
			Message:          gemini.ErrMissingCredential.Error(),
			ReopenCredential: true,
			Err:              gemini.ErrMissingCredential,
		}
	}

	text := prompt.BuildPrompt(rec)
	img, err := s.requestor.RequestImage(ctx, text, rec.AspectRatio, userKey)
	if err != nil {
		return s.classify(scope, err)
	}
	if img == nil {
		s.logger.Warn("image generation returned no image", "scope", scope, "aspect_ratio", rec.AspectRatio)
		return Result{Kind: KindNoContent, Message: MsgNoContent}
	}

	s.logger.Info("image generated", "scope", scope, "mime", img.MIMEType, "bytes", len(img.Data))
	return Result{Kind: KindImage, Image: img}
}

func (s *Service) classify(scope string, err error) Result {
	if errors.Is(err, gemini.ErrMissingCredential) {
		return Result{
			Kind:             KindMissingCredential,
			Message:          err.Error(),
			ReopenCredential: true,
			Err:              err,
		}
	}

	msg := err.Error()
	if strings.TrimSpace(msg) == "" {
		msg = MsgProviderError
	}
	s.logger.Error("image generation failed", "scope", scope, "err", err)
	return Result{
		Kind:             KindProviderError,
		Message:          msg,
		ReopenCredential: IsCredentialError(msg),
		Err:              err,
	}
}

// IsCredentialError reports whether a provider message looks like an
// authentication failure.
func IsCredentialError(msg string) bool {
	return strings.Contains(msg, "API Key") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "403")
}
