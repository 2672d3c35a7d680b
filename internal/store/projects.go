package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shape-portfolio/site/internal/imagepath"
)

// ErrTooManyImages is returned when a project would hold more than
// imagepath.MaxImages images.
var ErrTooManyImages = fmt.Errorf("a project may hold at most %d images", imagepath.MaxImages)

// ErrInvalidStatus is returned for a status other than live or draft.
var ErrInvalidStatus = errors.New("invalid status")

const projectColumns = `id, name, mission, mission_brief, architecture, stack, images,
	linkedin_link, report_file, stability, range_value, reliability, status, created_at, updated_at`

// CreateProject inserts a project built from in. Images are moved into the
// new project's folder, so the row is written in two steps inside one
// transaction once the id is known.
func (s *Store) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	p := &Project{Status: StatusDraft, Stack: []string{}, Images: []string{}}
	in.apply(p)
	if !p.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if len(imagepath.ForProjectAll(p.Images, 0)) > imagepath.MaxImages {
		return nil, ErrTooManyImages
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO projects (name, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		p.Name, string(p.Status), formatTime(now), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading project id: %w", err)
	}

	p.Images = imagepath.ForProjectAll(p.Images, p.ID)
	if err := writeProject(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project: %w", err)
	}
	return p, nil
}

// ListProjects returns projects ordered by id. An empty status returns all.
func (s *Store) ListProjects(ctx context.Context, status Status) ([]Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// GetProject returns the project with the given id.
func (s *Store) GetProject(ctx context.Context, id int64) (*Project, error) {
	return getProject(ctx, s.db, id)
}

// UpdateProject applies the supplied fields of in to an existing project.
func (s *Store) UpdateProject(ctx context.Context, id int64, in ProjectInput) (*Project, error) {
	return s.mutateProject(ctx, id, func(p *Project) error {
		in.apply(p)
		if !p.Status.Valid() {
			return ErrInvalidStatus
		}
		if in.Images != nil {
			p.Images = imagepath.ForProjectAll(p.Images, p.ID)
			if len(p.Images) > imagepath.MaxImages {
				return ErrTooManyImages
			}
		}
		return nil
	})
}

// SetProjectStatus publishes or unpublishes a project.
func (s *Store) SetProjectStatus(ctx context.Context, id int64, status Status) (*Project, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.mutateProject(ctx, id, func(p *Project) error {
		p.Status = status
		return nil
	})
}

// AppendProjectImages adds already-stored image paths to a project.
func (s *Store) AppendProjectImages(ctx context.Context, id int64, paths []string) (*Project, error) {
	return s.mutateProject(ctx, id, func(p *Project) error {
		images := append(append([]string(nil), p.Images...), imagepath.ForProjectAll(paths, p.ID)...)
		if len(images) > imagepath.MaxImages {
			return ErrTooManyImages
		}
		p.Images = images
		return nil
	})
}

// SetProjectReport points a project at its PDF report.
func (s *Store) SetProjectReport(ctx context.Context, id int64, path string) (*Project, error) {
	return s.mutateProject(ctx, id, func(p *Project) error {
		p.ReportFile = path
		return nil
	})
}

// DeleteProject removes a project.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project %d: %w", id, err)
	}
	return affectedOne(res)
}

// ProjectCounts returns how many projects are live and how many are drafts.
func (s *Store) ProjectCounts(ctx context.Context) (live, draft int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'live' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0)
		FROM projects`).Scan(&live, &draft)
	if err != nil {
		return 0, 0, fmt.Errorf("counting projects: %w", err)
	}
	return live, draft, nil
}

// ImportProject writes p with its own id and timestamps, replacing any row
// with the same id.
func (s *Store) ImportProject(ctx context.Context, p Project) error {
	if p.ID <= 0 {
		return fmt.Errorf("importing project %q: missing id", p.Name)
	}
	if !p.Status.Valid() {
		p.Status = StatusDraft
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Images = imagepath.ForProjectAll(p.Images, p.ID)
	if len(p.Images) > imagepath.MaxImages {
		p.Images = p.Images[:imagepath.MaxImages]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO projects (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Status), formatTime(p.CreatedAt), formatTime(p.UpdatedAt)); err != nil {
		return fmt.Errorf("importing project %d: %w", p.ID, err)
	}
	if err := writeProject(ctx, tx, &p); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) mutateProject(ctx context.Context, id int64, fn func(*Project) error) (*Project, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := getProject(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := writeProject(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project %d: %w", id, err)
	}
	return p, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getProject(ctx context.Context, q querier, id int64) (*Project, error) {
	row := q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func writeProject(ctx context.Context, q querier, p *Project) error {
	if p.Stack == nil {
		p.Stack = []string{}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	stack, err := json.Marshal(p.Stack)
	if err != nil {
		return fmt.Errorf("encoding stack: %w", err)
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("encoding images: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE projects SET
			name = ?, mission = ?, mission_brief = ?, architecture = ?, stack = ?, images = ?,
			linkedin_link = ?, report_file = ?, stability = ?, range_value = ?, reliability = ?,
			status = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Mission, p.MissionBrief, p.Architecture, string(stack), string(images),
		p.LinkedInLink, p.ReportFile,
		int(p.StatusValues.Stability), int(p.StatusValues.Range), int(p.StatusValues.Reliability),
		string(p.Status), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("writing project %d: %w", p.ID, err)
	}
	return nil
}

func scanProject(sc scanner) (*Project, error) {
	var (
		p                                Project
		stack, images, status            string
		stability, rangeVal, reliability int
		createdAt, updatedAt             string
	)
	err := sc.Scan(&p.ID, &p.Name, &p.Mission, &p.MissionBrief, &p.Architecture, &stack, &images,
		&p.LinkedInLink, &p.ReportFile, &stability, &rangeVal, &reliability, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	if err := json.Unmarshal([]byte(stack), &p.Stack); err != nil {
		return nil, fmt.Errorf("decoding stack of project %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("decoding images of project %d: %w", p.ID, err)
	}
	p.StatusValues = StatusValues{
		Stability:   ClampPercent(stability),
		Range:       ClampPercent(rangeVal),
		Reliability: ClampPercent(reliability),
	}
	p.Status = Status(status)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}
