package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-tagcache/internal/apperrors"
	"github.com/goliatone/go-tagcache/internal/domain"
	"github.com/goliatone/go-tagcache/internal/schemas"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func (s *Server) getContacts(w http.ResponseWriter, r *http.Request) {
	filter, err := contactsFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	page, err := s.reader.GetContacts(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// contactsFilter reads pageIndex, pageSize, sortBy, sortDesc, records, q
// and tags. Tags may repeat or be comma separated.
func contactsFilter(q url.Values) (schemas.ContactsFilter, error) {
	f := schemas.ContactsFilter{
		SortBy:      q.Get("sortBy"),
		Records:     schemas.Records(q.Get("records")),
		SearchQuery: q.Get("q"),
	}

	var err error
	if f.PageIndex, err = intParam(q, "pageIndex"); err != nil {
		return f, err
	}
	if f.PageSize, err = intParam(q, "pageSize"); err != nil {
		return f, err
	}
	if raw := q.Get("sortDesc"); raw != "" {
		if f.SortDesc, err = strconv.ParseBool(raw); err != nil {
			return f, apperrors.Validation("sortDesc must be a boolean")
		}
	}
	for _, v := range q["tags"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.Tags = append(f.Tags, tag)
			}
		}
	}
	return f, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation(name + " must be an integer")
	}
	return n, nil
}

func (s *Server) addContact(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.AddContact](w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.created(w, r)(s.actions.AddContact(r.Context(), in))
}

func (s *Server) deleteContacts(w http.ResponseWriter, r *http.Request) {
	in, err := readJSON[schemas.DeleteContacts](w, r)
	if err == nil {
		err = s.actions.DeleteContacts(r.Context(), in)
	}
	s.noContent(w, r, err)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	contact, err := s.reader.GetContact(r.Context(), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	props, err := readJSON[schemas.ContactProperties](w, r)
	if err == nil {
		err = s.actions.UpdateContactProperties(r.Context(), schemas.UpdateContactProperties{
			ID:                urlParam(r, "contactID"),
			ContactProperties: props,
		})
	}
	s.noContent(w, r, err)
}

func (s *Server) getContactNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.reader.GetContactNotes(r.Context(), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) addContactNote(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON[struct {
		Text string `json:"text"`
	}](w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.created(w, r)(s.actions.AddContactNote(r.Context(), schemas.AddContactNote{
		ContactID: urlParam(r, "contactID"),
		Text:      body.Text,
	}))
}

func (s *Server) getContactTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.reader.GetContactTasks(r.Context(), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) addContactTask(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON[struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"dueDate"`
	}](w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.created(w, r)(s.actions.AddContactTask(r.Context(), schemas.AddContactTask{
		ContactID:   urlParam(r, "contactID"),
		Title:       body.Title,
		Description: body.Description,
		DueDate:     body.DueDate,
	}))
}

func (s *Server) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON[struct {
		Status domain.TaskStatus `json:"status"`
	}](w, r)
	if err == nil {
		err = s.actions.UpdateContactTaskStatus(r.Context(), schemas.UpdateContactTaskStatus{
			TaskID: urlParam(r, "taskID"),
			Status: body.Status,
		})
	}
	s.noContent(w, r, err)
}

func (s *Server) isFavorite(w http.ResponseWriter, r *http.Request) {
	ok, err := s.reader.IsContactInFavorites(r.Context(), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": ok})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.actions.AddFavorite(r.Context(), schemas.ContactID{ID: urlParam(r, "contactID")})
	s.noContent(w, r, err)
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	err := s.actions.RemoveFavorite(r.Context(), schemas.ContactID{ID: urlParam(r, "contactID")})
	s.noContent(w, r, err)
}

func (s *Server) getContactTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.reader.GetContactTimelineEvents(r.Context(), urlParam(r, "contactID"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) addContactComment(w http.ResponseWriter, r *http.Request) {
	body, err := readJSON[struct {
		Text string `json:"text"`
	}](w, r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.created(w, r)(s.actions.AddContactComment(r.Context(), schemas.AddContactComment{
		ContactID: urlParam(r, "contactID"),
		Text:      body.Text,
	}))
}

func (s *Server) recordContactVisit(w http.ResponseWriter, r *http.Request) {
	err := s.actions.RecordContactPageVisit(r.Context(), schemas.ContactID{ID: urlParam(r, "contactID")})
	s.noContent(w, r, err)
}

func (s *Server) getFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.reader.GetFavorites(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

func (s *Server) getLeadGeneration(w http.ResponseWriter, r *http.Request) {
	var (
		filter schemas.LeadGenerationFilter
		err    error
	)
	q := r.URL.Query()
	if filter.From, err = timeParam(q, "from"); err == nil {
		filter.To, err = timeParam(q, "to")
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	points, err := s.reader.GetLeadGenerationData(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) getMostVisited(w http.ResponseWriter, r *http.Request) {
	s.visited(w, r, s.reader.GetMostVisitedContacts)
}

func (s *Server) getLeastVisited(w http.ResponseWriter, r *http.Request) {
	s.visited(w, r, s.reader.GetLeastVisitedContacts)
}

func (s *Server) visited(w http.ResponseWriter, r *http.Request, read func(context.Context, schemas.VisitedContactsFilter) ([]domain.VisitedContactDto, error)) {
	var (
		filter schemas.VisitedContactsFilter
		err    error
	)
	q := r.URL.Query()
	if filter.From, err = timeParam(q, "from"); err == nil {
		filter.To, err = timeParam(q, "to")
	}
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	contacts, err := read(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// timeParam accepts RFC 3339 timestamps and plain dates. A missing value
// is the zero time and left to the filter's validation.
func timeParam(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.Validation(name + " must be a date or an RFC 3339 timestamp")
}
