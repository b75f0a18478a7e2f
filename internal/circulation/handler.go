// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"libracirc/internal/httpx"
)

// MaxRequestBytes caps the size of a decoded request body.
const MaxRequestBytes = 1 << 16

// Handler exposes a Service over HTTP.
type Handler struct {
	service Service
}

// NewHandler returns a Handler serving service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the circulation endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/books", h.HandleAddBook)
	r.Get("/books/available", h.HandleAvailableBooks)
	r.Post("/borrow", h.HandleBorrow)
	r.Post("/return", h.HandleReturn)
	return r
}

type memberTitleRequest struct {
	MemberID int64  `json:"member_id"`
	Title    string `json:"title"`
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Copies int    `json:"copies"`
	}

	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.service.AddBook(r.Context(), req.Title, req.Copies); err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"title": req.Title, "copies_added": req.Copies})
}

func (h *Handler) HandleAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.GetAvailableBooks(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	var req memberTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ok, err := h.service.BorrowBook(r.Context(), req.MemberID, req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"borrowed": ok})
}

func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	var req memberTitleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ok, err := h.service.ReturnBook(r.Context(), req.MemberID, req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]bool{"returned": ok})
}

// decodeBody reads a size-capped JSON body into v, writing the error response on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.JSONError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error())
	return false
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
	case errors.Is(err, ErrInvalidOperation):
		httpx.JSONError(w, r, http.StatusForbidden, "INVALID_OPERATION", err.Error())
	default:
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
