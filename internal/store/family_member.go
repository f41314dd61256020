package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/medtrack/internal/model"
)

// peopleTable backs both family members and caregivers, which share a shape.
// Rows are never deleted; deactivated rows drop out of List but keep their
// history reachable.
type peopleTable struct {
	db    *sql.DB
	table string
}

func (t peopleTable) create(name string) (int64, error) {
	result, err := t.db.Exec(fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", t.table), name)
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", t.table, err)
	}
	return result.LastInsertId()
}

func (t peopleTable) list() ([]model.FamilyMember, error) {
	rows, err := t.db.Query(fmt.Sprintf(
		"SELECT id, name, active, created_at FROM %s WHERE active = 1 ORDER BY name, id", t.table,
	))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	defer rows.Close()

	var out []model.FamilyMember
	for rows.Next() {
		var p model.FamilyMember
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.table, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t peopleTable) get(id int64) (*model.FamilyMember, error) {
	var p model.FamilyMember
	err := t.db.QueryRow(
		fmt.Sprintf("SELECT id, name, active, created_at FROM %s WHERE id = ?", t.table), id,
	).Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.table, err)
	}
	return &p, nil
}

func (t peopleTable) rename(id int64, name string) error {
	if _, err := t.db.Exec(fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ?", t.table), name, id); err != nil {
		return fmt.Errorf("rename %s: %w", t.table, err)
	}
	return nil
}

func (t peopleTable) deactivate(id int64) error {
	if _, err := t.db.Exec(fmt.Sprintf("UPDATE %s SET active = 0 WHERE id = ?", t.table), id); err != nil {
		return fmt.Errorf("deactivate %s: %w", t.table, err)
	}
	return nil
}

type FamilyMemberStore struct {
	t peopleTable
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{t: peopleTable{db: db, table: "family_members"}}
}

func (s *FamilyMemberStore) Create(name string) (*model.FamilyMember, error) {
	id, err := s.t.create(name)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// List returns active family members.
func (s *FamilyMemberStore) List() ([]model.FamilyMember, error) {
	return s.t.list()
}

// GetByID returns the member whether or not it is active.
func (s *FamilyMemberStore) GetByID(id int64) (*model.FamilyMember, error) {
	return s.t.get(id)
}

func (s *FamilyMemberStore) Rename(id int64, name string) (*model.FamilyMember, error) {
	if err := s.t.rename(id, name); err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *FamilyMemberStore) Deactivate(id int64) error {
	return s.t.deactivate(id)
}

// Dependencies reports the active assignments that block deactivation.
func (s *FamilyMemberStore) Dependencies(id int64) (*model.DeleteCheck, error) {
	rows, err := s.t.db.Query(`
		SELECT a.id, fm.name, m.name, a.active
		FROM medication_assignments a
		JOIN family_members fm ON fm.id = a.family_member_id
		JOIN medications m ON m.id = a.medication_id
		WHERE a.family_member_id = ? AND a.active = 1
		ORDER BY m.name`, id)
	if err != nil {
		return nil, fmt.Errorf("query member assignments: %w", err)
	}
	refs, err := scanRefs(rows)
	if err != nil {
		return nil, err
	}
	return &model.DeleteCheck{CanDelete: len(refs) == 0, ActiveAssignments: refs}, nil
}

func scanRefs(rows *sql.Rows) ([]model.AssignmentRef, error) {
	defer rows.Close()
	var out []model.AssignmentRef
	for rows.Next() {
		var r model.AssignmentRef
		if err := rows.Scan(&r.ID, &r.FamilyMemberName, &r.MedicationName, &r.Active); err != nil {
			return nil, fmt.Errorf("scan assignment ref: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
