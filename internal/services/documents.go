package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"lawdesk/internal/auth"
	"lawdesk/internal/core"
	"lawdesk/internal/storage"
)

type (
	DocumentConfig struct {
		Dir               string
		MaxBytes          int64
		AllowedExtensions []string
		// MaxImageDimension bounds the longer side of stored images; 0 disables resizing.
		MaxImageDimension int
	}

	// Upload is one incoming file with its metadata.
	Upload struct {
		Filename     string
		MimeType     string
		Body         io.Reader
		DocumentType core.DocumentType
		RelatedTo    string
		RelatedID    *int64
		Description  string
	}

	DocumentPatch struct {
		DocumentType *core.DocumentType `json:"document_type"`
		RelatedTo    *string            `json:"related_to"`
		RelatedID    *int64             `json:"related_id"`
		Description  *string            `json:"description"`
	}
)

var resizableExtensions = []string{"jpg", "jpeg", "png"}

type DocumentService struct {
	repo   *storage.SQLiteRepository
	policy *auth.Policy
	cfg    DocumentConfig
}

func NewDocumentService(repo *storage.SQLiteRepository, policy *auth.Policy, cfg DocumentConfig) *DocumentService {
	return &DocumentService{repo: repo, policy: policy, cfg: cfg}
}

func (s *DocumentService) List(ctx context.Context, f core.DocumentFilter, lq core.ListQuery) (Page[core.Document], error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindDocument); err != nil {
		return Page[core.Document]{}, err
	}
	items, total, err := s.repo.ListDocuments(ctx, f, normalizeQuery(lq))
	if err != nil {
		return Page[core.Document]{}, err
	}
	return Page[core.Document]{Items: items, Total: total}, nil
}

func (s *DocumentService) Get(ctx context.Context, id int64) (core.Document, error) {
	if err := s.policy.Check(ctx, auth.ActionRead, auth.KindDocument); err != nil {
		return core.Document{}, err
	}
	return s.repo.GetDocument(ctx, id)
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Upload stores the file under a random name in the upload directory and
// records it. Oversized images are scaled down to fit MaxImageDimension.
func (s *DocumentService) Upload(ctx context.Context, in Upload) (core.Document, error) {
	if err := s.policy.Check(ctx, auth.ActionCreate, auth.KindDocument); err != nil {
		return core.Document{}, err
	}
	original := filepath.Base(strings.TrimSpace(in.Filename))
	if original == "" || original == "." || original == string(filepath.Separator) {
		return core.Document{}, core.NewValidationError("file", "no file selected")
	}
	ext := extensionOf(original)
	if ext == "" || !slices.Contains(s.cfg.AllowedExtensions, ext) {
		return core.Document{}, core.NewValidationError("file", fmt.Sprintf("file type %q is not allowed", ext))
	}
	if in.DocumentType == "" {
		in.DocumentType = "other"
	}
	if !in.DocumentType.Valid() {
		return core.Document{}, core.NewValidationError("document_type", "invalid document type")
	}
	if in.RelatedTo != "" && in.RelatedTo != core.RelatedClient && in.RelatedTo != core.RelatedCase {
		return core.Document{}, core.NewValidationError("related_to", "related_to must be client or case")
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return core.Document{}, fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + "." + ext
	path := filepath.Join(s.cfg.Dir, name)
	size, err := s.writeFile(path, in.Body)
	if err != nil {
		return core.Document{}, err
	}

	if slices.Contains(resizableExtensions, ext) && s.cfg.MaxImageDimension > 0 {
		if resized, err := downscale(path, s.cfg.MaxImageDimension); err != nil {
			slog.WarnContext(ctx, "Image resize failed, keeping original", "file", name, "error", err)
		} else if resized {
			if fi, err := os.Stat(path); err == nil {
				size = fi.Size()
			}
		}
	}

	mimeType := in.MimeType
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mime.TypeByExtension("." + ext); byExt != "" {
			mimeType = byExt
		}
	}

	doc, err := s.repo.CreateDocument(ctx, core.Document{
		Filename:         name,
		OriginalFilename: original,
		FilePath:         path,
		FileSize:         size,
		MimeType:         mimeType,
		DocumentType:     in.DocumentType,
		RelatedTo:        in.RelatedTo,
		RelatedID:        in.RelatedID,
		Description:      in.Description,
		UploadedBy:       actorID(ctx),
	})
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.WarnContext(ctx, "Failed to remove orphaned upload", "file", name, "error", rmErr)
		}
		return core.Document{}, err
	}
	slog.InfoContext(ctx, "Document uploaded", "document_id", doc.ID, "size", size)
	return doc, nil
}

// writeFile copies body to path, failing once more than MaxBytes arrive.
func (s *DocumentService) writeFile(path string, body io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(body, s.cfg.MaxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write upload file: %w", err)
	}
	if n > s.cfg.MaxBytes {
		os.Remove(path)
		return 0, core.NewValidationError("file", fmt.Sprintf("file exceeds the %s limit", core.HumanSize(s.cfg.MaxBytes)))
	}
	if n == 0 {
		os.Remove(path)
		return 0, core.NewValidationError("file", "file is empty")
	}
	return n, nil
}

// downscale fits the image at path into a limit x limit box, overwriting it.
// It reports whether the file was rewritten.
func downscale(path string, limit int) (bool, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return false, err
	}
	b := img.Bounds()
	if b.Dx() <= limit && b.Dy() <= limit {
		return false, nil
	}
	img = imaging.Fit(img, limit, limit, imaging.Lanczos)
	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		return false, err
	}
	return true, nil
}

// Open returns the document and its file, ready to stream. Files that resolve
// outside the upload directory are refused.
func (s *DocumentService) Open(ctx context.Context, id int64) (core.Document, *os.File, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return core.Document{}, nil, err
	}
	path, err := s.resolve(doc)
	if err != nil {
		return core.Document{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Document{}, nil, core.NotFound("document file", id)
		}
		return core.Document{}, nil, fmt.Errorf("open document: %w", err)
	}
	return doc, f, nil
}

func (s *DocumentService) resolve(doc core.Document) (string, error) {
	dir, err := filepath.Abs(s.cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("resolve upload dir: %w", err)
	}
	path := doc.FilePath
	if path == "" {
		path = filepath.Join(dir, doc.Filename)
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve document path: %w", err)
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		slog.Warn("Document path outside upload dir", "document_id", doc.ID, "path", doc.FilePath)
		return "", core.Forbidden("document path is outside the upload directory")
	}
	return path, nil
}

// Update changes document metadata; the file itself is immutable.
func (s *DocumentService) Update(ctx context.Context, id int64, p DocumentPatch) (core.Document, error) {
	if err := s.policy.Check(ctx, auth.ActionUpdate, auth.KindDocument); err != nil {
		return core.Document{}, err
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	if p.DocumentType != nil {
		if !p.DocumentType.Valid() {
			return core.Document{}, core.NewValidationError("document_type", "invalid document type")
		}
		doc.DocumentType = *p.DocumentType
	}
	if p.RelatedTo != nil {
		if *p.RelatedTo != "" && *p.RelatedTo != core.RelatedClient && *p.RelatedTo != core.RelatedCase {
			return core.Document{}, core.NewValidationError("related_to", "related_to must be client or case")
		}
		doc.RelatedTo = *p.RelatedTo
	}
	if p.RelatedID != nil {
		doc.RelatedID = p.RelatedID
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}
	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return core.Document{}, err
	}
	return s.repo.GetDocument(ctx, id)
}

// Delete removes the stored file and then the row. A file that is already
// gone does not block the delete.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if err := s.policy.Check(ctx, auth.ActionDelete, auth.KindDocument); err != nil {
		return err
	}
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	path, err := s.resolve(doc)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove document file: %w", err)
	}
	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Document deleted", "document_id", id)
	return nil
}
