package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"lawdesk/internal/core"
	"lawdesk/internal/services"
)

// multipartOverhead covers form fields and part headers on top of the file.
const multipartOverhead = 1 << 20

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	p := NewRequestParser(r)
	f := documentFilter(p)
	lq := ParseListQuery(r.URL.Query(), s.cfg.ItemsPerPage)
	if err := p.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.Documents.List(r.Context(), f, lq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	Paginated("documents", page, lq).Write(w)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.Documents.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("document", doc).Write(w)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, core.NewValidationError("file", "file exceeds the "+core.HumanSize(s.cfg.MaxUploadBytes)+" limit"))
			return
		}
		writeError(w, r, core.NewValidationError("file", "invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, core.NewValidationError("file", "no file selected"))
		return
	}
	defer file.Close()

	in := services.Upload{
		Filename:     header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Body:         file,
		DocumentType: core.DocumentType(sanitizeInput(r.FormValue("document_type"))),
		RelatedTo:    sanitizeInput(r.FormValue("related_to")),
		Description:  sanitizeInput(r.FormValue("description")),
	}
	if v := strings.TrimSpace(r.FormValue("related_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, core.NewValidationError("related_id", "must be an integer"))
			return
		}
		in.RelatedID = &id
	}

	doc, err := s.Documents.Upload(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Message("document uploaded").Field("document", doc).Write(w)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, f, err := s.Documents.Open(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if doc.MimeType != "" {
		w.Header().Set("Content-Type", doc.MimeType)
	}
	w.Header().Set("Content-Disposition", contentDisposition(doc.OriginalFilename))
	http.ServeContent(w, r, doc.OriginalFilename, info.ModTime(), f)
}

func (s *Server) handleUpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p services.DocumentPatch
	if err := DecodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.Documents.Update(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("document updated").Field("document", doc).Write(w)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Documents.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Message("document deleted").Write(w)
}
