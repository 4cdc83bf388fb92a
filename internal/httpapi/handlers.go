package httpapi

import (
	"net/http"

	"github.com/goliatone/go-tagcache/internal/schemas"
)

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.reader.GetProfile(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) updatePersonalDetails(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.PersonalDetails](w, r)
	if err == nil {
		err = s.actions.UpdatePersonalDetails(r.Context(), in)
	}
	s.noContent(w, r, err)
}

func (s *Server) updatePreferences(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.Preferences](w, r)
	if err == nil {
		err = s.actions.UpdatePreferences(r.Context(), in)
	}
	s.noContent(w, r, err)
}

func (s *Server) getOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.reader.GetOrganizations(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (s *Server) getSocialMedia(w http.ResponseWriter, r *http.Request) {
	links, err := s.reader.GetSocialMedia(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (s *Server) updateSocialMedia(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.SocialMedia](w, r)
	if err == nil {
		err = s.actions.UpdateSocialMedia(r.Context(), in)
	}
	s.noContent(w, r, err)
}

func (s *Server) getMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.reader.GetMembers(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) transferOwnership(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.TransferOwnership](w, r)
	if err == nil {
		err = s.actions.TransferOwnership(r.Context(), in)
	}
	s.noContent(w, r, err)
}

func (s *Server) getWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := s.reader.GetWebhooks(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hooks)
}

func (s *Server) addWebhook(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.AddWebhook](w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.created(w, r)(s.actions.AddWebhook(r.Context(), in))
}

func (s *Server) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	err := s.actions.DeleteWebhook(r.Context(), schemas.DeleteWebhook{ID: urlParam(r, "webhookID")})
	s.noContent(w, r, err)
}

// noContent answers 204, or the error when err is not nil.
func (s *Server) noContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// created returns a writer for the (id, err) result of a create action.
func (s *Server) created(w http.ResponseWriter, r *http.Request) func(string, error) {
	return func(id string, err error) {
		if err != nil {
			writeError(w, r, s.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, idBody{ID: id})
	}
}
