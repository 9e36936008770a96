package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nanno-banana-ppdb/internal/campaign"
	"nanno-banana-ppdb/internal/credentials"
	"nanno-banana-ppdb/internal/poster"
	"nanno-banana-ppdb/internal/session"
)

const maxBodyBytes = 64 << 10

type apiError struct {
	Error            string `json:"error"`
	Kind             string `json:"kind,omitempty"`
	ReopenCredential bool   `json:"reopen_credential,omitempty"`
}

type sessionResponse struct {
	ID         string          `json:"id"`
	Record     campaign.Record `json:"record"`
	Generating bool            `json:"generating"`
}

type valueRequest struct {
	Value string `json:"value"`
}

type trackRequest struct {
	Track string `json:"track"`
}

type socialRequest struct {
	Platform *string `json:"platform"`
	Handle   *string `json:"handle"`
}

type imageRequest struct {
	APIKey string `json:"api_key"`
}

type imageResponse struct {
	Image    string `json:"image"`
	MIMEType string `json:"mime_type"`
}

type credentialResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
	DefaultKey bool   `json:"default_key"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

func toResponse(sess session.Session) sessionResponse {
	return sessionResponse{ID: sess.ID, Record: sess.Record, Generating: sess.Generating}
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, campaign.AllOptions())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, toResponse(s.sessions.Create()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Reset(chi.URLParam(r, "id"))
	s.respondSession(w, sess, err)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	field, err := campaign.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req valueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.SetField(field, req.Value)
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleToggleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.ToggleTrack(req.Track)
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleAddContact(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.AddContact(), nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req valueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.UpdateContact(index, req.Value), nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleRemoveContact(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.RemoveContact(index), nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleAddSocial(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.AddSocial(), nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleUpdateSocial(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req socialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		var err error
		if req.Platform != nil {
			if rec, err = rec.UpdateSocial(index, "platform", *req.Platform); err != nil {
				return rec, err
			}
		}
		if req.Handle != nil {
			if rec, err = rec.UpdateSocial(index, "handle", *req.Handle); err != nil {
				return rec, err
			}
		}
		return rec, nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handleRemoveSocial(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Apply(chi.URLParam(r, "id"), func(rec campaign.Record) (campaign.Record, error) {
		return rec.RemoveSocial(index), nil
	})
	s.respondSession(w, sess, err)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.poster.RenderText(sess.Record))
}

func (s *Server) handleEnvelope(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.poster.RenderJSON(sess.Record))
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req imageRequest
	// The body is optional; an empty one means "use the stored key".
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.sessions.BeginGeneration(id) {
		writeJSON(w, http.StatusConflict, apiError{Error: "image generation already in progress"})
		return
	}
	defer s.sessions.EndGeneration(id)

	res := s.poster.GenerateImage(r.Context(), credentialScope, sess.Record, req.APIKey)
	switch res.Kind {
	case poster.KindImage:
		writeJSON(w, http.StatusOK, imageResponse{Image: res.Image.DataURL(), MIMEType: res.Image.MIMEType})
		return
	case poster.KindMissingCredential:
		writeJSON(w, http.StatusUnauthorized, apiError{Error: res.Message, Kind: string(res.Kind), ReopenCredential: true})
		return
	}

	status := http.StatusBadGateway
	if res.ReopenCredential {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, apiError{Error: res.Message, Kind: string(res.Kind), ReopenCredential: res.ReopenCredential})
}

func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	key, err := s.keys.APIKey(r.Context(), credentialScope)
	if err != nil {
		s.writeError(w, err)
		return
	}
	hasAny, err := s.poster.HasCredential(r.Context(), credentialScope, "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{
		Configured: key != "",
		Masked:     credentials.Mask(key),
		DefaultKey: hasAny && key == "",
	})
}

func (s *Server) handlePutCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	if err := s.keys.SetAPIKey(r.Context(), credentialScope, req.APIKey); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleGetCredential(w, r)
}

func (s *Server) handleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	if err := s.keys.DeleteAPIKey(r.Context(), credentialScope); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondSession(w http.ResponseWriter, sess session.Session, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sess))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, campaign.ErrUnknownField), errors.Is(err, campaign.ErrInvalidValue):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	}
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid index"})
		return 0, false
	}
	return index, true
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
