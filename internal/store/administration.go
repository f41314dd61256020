package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

const administrationSelect = `SELECT ad.id, ad.medication_assignment_id, ad.caregiver_id, ad.dose_given,
	ad.administered_at, ad.notes, ad.created_at,
	c.id, c.name, c.active, c.created_at
FROM administrations ad
JOIN medication_assignments a ON a.id = ad.medication_assignment_id
LEFT JOIN caregivers c ON c.id = ad.caregiver_id`

func scanAdministration(row scanner) (model.Administration, error) {
	var (
		ad       model.Administration
		cID      sql.NullInt64
		cName    sql.NullString
		cActive  sql.NullBool
		cCreated sql.NullTime
	)
	err := row.Scan(&ad.ID, &ad.AssignmentID, &ad.CaregiverID, &ad.DoseGiven,
		&ad.AdministeredAt, &ad.Notes, &ad.CreatedAt,
		&cID, &cName, &cActive, &cCreated)
	if err != nil {
		return ad, err
	}
	ad.AdministeredAt = ad.AdministeredAt.UTC()
	if cID.Valid {
		ad.Caregiver = &model.Caregiver{ID: cID.Int64, Name: cName.String, Active: cActive.Bool, CreatedAt: cCreated.Time}
	}
	return ad, nil
}

type AdministrationStore struct {
	db *sql.DB
}

func NewAdministrationStore(db *sql.DB) *AdministrationStore {
	return &AdministrationStore{db: db}
}

// Create stores a dose. at must already be validated and is stored in UTC.
func (s *AdministrationStore) Create(in model.AdministrationInput, at time.Time) (*model.Administration, error) {
	result, err := s.db.Exec(`INSERT INTO administrations (medication_assignment_id, caregiver_id,
		administered_at, dose_given, notes) VALUES (?, ?, ?, ?, ?)`,
		in.AssignmentID, in.CaregiverID, at.UTC(), in.DoseGiven, in.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert administration: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// List returns administrations newest first. An assignment filter takes
// precedence over the member and medication filters.
func (s *AdministrationStore) List(f model.AdministrationFilter) ([]model.Administration, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.AssignmentID != 0:
		where = append(where, "ad.medication_assignment_id = ?")
		args = append(args, f.AssignmentID)
	default:
		if f.FamilyMemberID != 0 {
			where = append(where, "a.family_member_id = ?")
			args = append(args, f.FamilyMemberID)
		}
		if f.MedicationID != 0 {
			where = append(where, "a.medication_id = ?")
			args = append(args, f.MedicationID)
		}
	}
	if f.Start != nil {
		where = append(where, "ad.administered_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		where = append(where, "ad.administered_at <= ?")
		args = append(args, f.End.UTC())
	}

	query := administrationSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ad.administered_at DESC, ad.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query administrations: %w", err)
	}
	defer rows.Close()

	var out []model.Administration
	for rows.Next() {
		ad, err := scanAdministration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan administration: %w", err)
		}
		out = append(out, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// rows is exhausted, so the connection is free for the lookups.
	if err := s.attachAssignments(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AdministrationStore) attachAssignments(list []model.Administration) error {
	seen := make(map[int64]*model.Assignment)
	for i := range list {
		id := list[i].AssignmentID
		a, ok := seen[id]
		if !ok {
			got, err := scanAssignment(s.db.QueryRow(assignmentSelect+" WHERE a.id = ?", id))
			if err != nil {
				return fmt.Errorf("query assignment %d: %w", id, err)
			}
			a = &got
			seen[id] = a
		}
		list[i].Assignment = a
	}
	return nil
}

// Last returns the newest administration for an assignment, or nil.
func (s *AdministrationStore) Last(assignmentID int64) (*model.Administration, error) {
	list, err := s.List(model.AdministrationFilter{AssignmentID: assignmentID, Limit: 1})
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

func (s *AdministrationStore) GetByID(id int64) (*model.Administration, error) {
	ad, err := scanAdministration(s.db.QueryRow(administrationSelect+" WHERE ad.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query administration: %w", err)
	}
	one := []model.Administration{ad}
	if err := s.attachAssignments(one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Update applies the non-nil fields of u.
func (s *AdministrationStore) Update(id int64, u model.AdministrationUpdate) (*model.Administration, error) {
	var (
		sets []string
		args []any
	)
	if u.AdministeredAt != nil {
		sets = append(sets, "administered_at = ?")
		args = append(args, u.AdministeredAt.UTC())
	}
	if u.DoseGiven != nil {
		sets = append(sets, "dose_given = ?")
		args = append(args, *u.DoseGiven)
	}
	if u.CaregiverID != nil {
		sets = append(sets, "caregiver_id = ?")
		args = append(args, *u.CaregiverID)
	}
	if u.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *u.Notes)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := s.db.Exec("UPDATE administrations SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return nil, fmt.Errorf("update administration: %w", err)
		}
	}
	return s.GetByID(id)
}

func (s *AdministrationStore) Delete(id int64) error {
	if _, err := s.db.Exec("DELETE FROM administrations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete administration: %w", err)
	}
	return nil
}
