package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lawdesk/internal/core"
)

const templateColumns = `id, name, template_type, content, variables, category, is_public, created_by, created_at, updated_at`

var templateSorts = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"category":   "category",
}

func scanTemplate(row scanner) (core.Template, error) {
	var (
		t                      core.Template
		templateType, category string
		variables              string
		creator                sql.NullInt64
		created, updated       string
	)
	if err := row.Scan(&t.ID, &t.Name, &templateType, &t.Content, &variables, &category, &t.IsPublic,
		&creator, &created, &updated); err != nil {
		return core.Template{}, err
	}
	t.TemplateType = core.TemplateType(templateType)
	t.Category = core.TemplateCategory(category)
	t.CreatedBy = ptrInt64(creator)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	t.Variables = []string{}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &t.Variables); err != nil {
			return core.Template{}, fmt.Errorf("decode template variables: %w", err)
		}
	}
	return t, nil
}

func encodeVariables(vars []string) (string, error) {
	if vars == nil {
		vars = []string{}
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("encode template variables: %w", err)
	}
	return string(b), nil
}

func (q *Queries) GetTemplate(ctx context.Context, id int64) (core.Template, error) {
	t, err := scanTemplate(q.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if err != nil {
		return core.Template{}, notFound(err, "template", id)
	}
	return t, nil
}

// ListTemplates returns public templates and those created by f.ViewerID.
func (q *Queries) ListTemplates(ctx context.Context, f core.TemplateFilter, lq core.ListQuery) ([]core.Template, int, error) {
	var w where
	w.add("(is_public = 1 OR created_by = ?)", f.ViewerID)
	w.search(f.Search, "name", "content")
	if f.TemplateType != "" {
		w.add("template_type = ?", string(f.TemplateType))
	}
	if f.Category != "" {
		w.add("category = ?", string(f.Category))
	}

	var total int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	limit, largs := limitOffset(lq.Page)
	rows, err := q.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates`+w.String()+
		orderBy(lq.Sort, templateSorts, "name ASC, id ASC")+limit, append(w.args, largs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []core.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, total, rows.Err()
}

func (q *Queries) CreateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	vars, err := encodeVariables(t.Variables)
	if err != nil {
		return core.Template{}, err
	}
	now := q.now()
	res, err := q.db.ExecContext(ctx, `INSERT INTO templates
		(name, template_type, content, variables, category, is_public, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, string(t.TemplateType), t.Content, vars, string(t.Category), boolInt(t.IsPublic),
		nullInt64(t.CreatedBy), now, now)
	if err != nil {
		return core.Template{}, fmt.Errorf("insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Template{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetTemplate(ctx, id)
}

func (q *Queries) UpdateTemplate(ctx context.Context, t core.Template) error {
	vars, err := encodeVariables(t.Variables)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `UPDATE templates SET
		name = ?, template_type = ?, content = ?, variables = ?, category = ?, is_public = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, string(t.TemplateType), t.Content, vars, string(t.Category), boolInt(t.IsPublic), q.now(), t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res, "template", t.ID)
}

func (q *Queries) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res, "template", id)
}
