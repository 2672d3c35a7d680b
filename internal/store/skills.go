package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyName is returned when a skill has no name.
var ErrEmptyName = errors.New("name is required")

// CreateSkill inserts a skill.
func (s *Store) CreateSkill(ctx context.Context, in SkillInput) (*Skill, error) {
	sk := &Skill{}
	if in.Name != nil {
		sk.Name = strings.TrimSpace(*in.Name)
	}
	if sk.Name == "" {
		return nil, ErrEmptyName
	}
	if in.Percentage != nil {
		sk.Percentage = ClampPercent(int(*in.Percentage))
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO skills (name, percentage) VALUES (?, ?)`,
		sk.Name, int(sk.Percentage))
	if err != nil {
		return nil, fmt.Errorf("inserting skill: %w", err)
	}
	if sk.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("reading skill id: %w", err)
	}
	return sk, nil
}

// ListSkills returns all skills ordered by id.
func (s *Store) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, percentage FROM skills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying skills: %w", err)
	}
	defer rows.Close()

	skills := []Skill{}
	for rows.Next() {
		var (
			sk  Skill
			pct int
		)
		if err := rows.Scan(&sk.ID, &sk.Name, &pct); err != nil {
			return nil, fmt.Errorf("scanning skill: %w", err)
		}
		sk.Percentage = ClampPercent(pct)
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// GetSkill returns the skill with the given id.
func (s *Store) GetSkill(ctx context.Context, id int64) (*Skill, error) {
	var (
		sk  Skill
		pct int
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, percentage FROM skills WHERE id = ?`, id).
		Scan(&sk.ID, &sk.Name, &pct)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying skill %d: %w", id, err)
	}
	sk.Percentage = ClampPercent(pct)
	return &sk, nil
}

// UpdateSkill applies the supplied fields of in to an existing skill.
func (s *Store) UpdateSkill(ctx context.Context, id int64, in SkillInput) (*Skill, error) {
	sk, err := s.GetSkill(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		sk.Name = name
	}
	if in.Percentage != nil {
		sk.Percentage = ClampPercent(int(*in.Percentage))
	}

	res, err := s.db.ExecContext(ctx, `UPDATE skills SET name = ?, percentage = ? WHERE id = ?`,
		sk.Name, int(sk.Percentage), id)
	if err != nil {
		return nil, fmt.Errorf("updating skill %d: %w", id, err)
	}
	if err := affectedOne(res); err != nil {
		return nil, err
	}
	return sk, nil
}

// DeleteSkill removes a skill.
func (s *Store) DeleteSkill(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting skill %d: %w", id, err)
	}
	return affectedOne(res)
}

// CountSkills returns the number of skills.
func (s *Store) CountSkills(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM skills`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting skills: %w", err)
	}
	return n, nil
}

// SeedSkills inserts defaults when the skills table is empty and reports how
// many rows were added.
func (s *Store) SeedSkills(ctx context.Context, defaults []Skill) (int, error) {
	n, err := s.CountSkills(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	added := 0
	for _, d := range defaults {
		name, pct := d.Name, d.Percentage
		if _, err := s.CreateSkill(ctx, SkillInput{Name: &name, Percentage: &pct}); err != nil {
			return added, fmt.Errorf("seeding skill %q: %w", d.Name, err)
		}
		added++
	}
	return added, nil
}

// ImportSkill writes sk with its own id, replacing any row with the same id.
func (s *Store) ImportSkill(ctx context.Context, sk Skill) error {
	if sk.ID <= 0 {
		return fmt.Errorf("importing skill %q: missing id", sk.Name)
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO skills (id, name, percentage) VALUES (?, ?, ?)`,
		sk.ID, sk.Name, int(ClampPercent(int(sk.Percentage))))
	if err != nil {
		return fmt.Errorf("importing skill %d: %w", sk.ID, err)
	}
	return nil
}
