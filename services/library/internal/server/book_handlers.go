package server

import (
	"net/http"

	"settle/pkg/domain"
	"settle/services/library/internal/app"
)

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, p app.Principal) {
	var req createBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, validationMessages(err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeValidationError(w, []string{err.Error()})
		return
	}
	book, err := s.app.CreateBook(r.Context(), in, p.UserID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, _ app.Principal) {
	id, ok := pathID(r)
	if !ok {
		writeValidationError(w, []string{"id must be a positive integer"})
		return
	}
	book, err := s.app.GetBook(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request, _ app.Principal) {
	q := r.URL.Query()
	filter, err := domain.ParseBookFilter(domain.BookFilterQuery{
		PriceRange:       q.Get("priceRange"),
		ReleaseDateRange: q.Get("releaseDateRange"),
		Title:            q.Get("title"),
		Category:         q.Get("category"),
		Authors:          q.Get("authors"),
		Page:             q.Get("page"),
		Limit:            q.Get("limit"),
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	page, err := s.app.ListBooks(r.Context(), filter)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, _ app.Principal) {
	id, ok := pathID(r)
	if !ok {
		writeValidationError(w, []string{"id must be a positive integer"})
		return
	}
	var req updateBookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, validationMessages(err))
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeValidationError(w, []string{err.Error()})
		return
	}
	book, err := s.app.UpdateBook(r.Context(), id, in)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, _ app.Principal) {
	id, ok := pathID(r)
	if !ok {
		writeValidationError(w, []string{"id must be a positive integer"})
		return
	}
	if err := s.app.DeleteBook(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
