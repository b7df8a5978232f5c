package storage

import (
	"context"
	"database/sql"
	"fmt"

	"lawdesk/internal/core"
)

const documentColumns = `id, filename, original_filename, file_path, file_size, mime_type, document_type,
	related_to, related_id, description, uploaded_by, created_at, updated_at`

var documentSorts = map[string]string{
	"created_at":        "created_at",
	"original_filename": "original_filename",
	"file_size":         "file_size",
	"document_type":     "document_type",
}

func scanDocument(row scanner) (core.Document, error) {
	var (
		d                   core.Document
		docType             string
		relatedID, uploader sql.NullInt64
		created, updated    string
	)
	if err := row.Scan(&d.ID, &d.Filename, &d.OriginalFilename, &d.FilePath, &d.FileSize, &d.MimeType, &docType,
		&d.RelatedTo, &relatedID, &d.Description, &uploader, &created, &updated); err != nil {
		return core.Document{}, err
	}
	d.DocumentType = core.DocumentType(docType)
	d.RelatedID = ptrInt64(relatedID)
	d.UploadedBy = ptrInt64(uploader)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	d.Extension = d.Ext()
	d.FileSizeDisplay = core.HumanSize(d.FileSize)
	return d, nil
}

func (q *Queries) GetDocument(ctx context.Context, id int64) (core.Document, error) {
	d, err := scanDocument(q.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if err != nil {
		return core.Document{}, notFound(err, "document", id)
	}
	return d, nil
}

func (q *Queries) ListDocuments(ctx context.Context, f core.DocumentFilter, lq core.ListQuery) ([]core.Document, int, error) {
	var w where
	w.search(f.Search, "original_filename", "description")
	if f.DocumentType != "" {
		w.add("document_type = ?", string(f.DocumentType))
	}
	if f.RelatedTo != "" {
		w.add("related_to = ?", f.RelatedTo)
	}
	if f.RelatedID != nil {
		w.add("related_id = ?", *f.RelatedID)
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents`+w.String()+
		orderBy(lq.Sort, documentSorts, "created_at DESC, id DESC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []core.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, total, rows.Err()
}

func (q *Queries) CreateDocument(ctx context.Context, d core.Document) (core.Document, error) {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO documents
		(filename, original_filename, file_path, file_size, mime_type, document_type,
		 related_to, related_id, description, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Filename, d.OriginalFilename, d.FilePath, d.FileSize, d.MimeType, string(d.DocumentType),
		d.RelatedTo, nullInt64(d.RelatedID), d.Description, nullInt64(d.UploadedBy), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Document{}, core.Conflict("document %s already exists", d.Filename)
		}
		return core.Document{}, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Document{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetDocument(ctx, id)
}

// UpdateDocument changes metadata only; the stored file is immutable.
func (q *Queries) UpdateDocument(ctx context.Context, d core.Document) error {
	res, err := q.db.ExecContext(ctx, `UPDATE documents SET
		document_type = ?, related_to = ?, related_id = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		string(d.DocumentType), d.RelatedTo, nullInt64(d.RelatedID), d.Description, q.now(), d.ID)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res, "document", d.ID)
}

func (q *Queries) DeleteDocument(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res, "document", id)
}
