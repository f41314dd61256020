package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/medtrack/internal/model"
)

const medicationColumns = `id, name, default_dose, default_frequency_hours,
	default_frequency_min_hours, default_frequency_max_hours, notes, created_at`

type MedicationStore struct {
	db *sql.DB
}

func NewMedicationStore(db *sql.DB) *MedicationStore {
	return &MedicationStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedication(row scanner, m *model.Medication) error {
	return row.Scan(&m.ID, &m.Name, &m.DefaultDose, &m.DefaultFrequencyHours,
		&m.DefaultFrequencyMinHours, &m.DefaultFrequencyMaxHours, &m.Notes, &m.CreatedAt)
}

func (s *MedicationStore) Create(in model.MedicationInput) (*model.Medication, error) {
	result, err := s.db.Exec(`INSERT INTO medications (name, default_dose, default_frequency_hours,
		default_frequency_min_hours, default_frequency_max_hours, notes) VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.DefaultDose, in.DefaultFrequencyHours, in.DefaultFrequencyMinHours,
		in.DefaultFrequencyMaxHours, in.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert medication: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *MedicationStore) List() ([]model.Medication, error) {
	rows, err := s.db.Query("SELECT " + medicationColumns + " FROM medications ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("query medications: %w", err)
	}
	defer rows.Close()

	var out []model.Medication
	for rows.Next() {
		var m model.Medication
		if err := scanMedication(rows, &m); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MedicationStore) GetByID(id int64) (*model.Medication, error) {
	var m model.Medication
	err := scanMedication(s.db.QueryRow("SELECT "+medicationColumns+" FROM medications WHERE id = ?", id), &m)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query medication: %w", err)
	}
	return &m, nil
}

// Update replaces every editable field.
func (s *MedicationStore) Update(id int64, in model.MedicationInput) (*model.Medication, error) {
	_, err := s.db.Exec(`UPDATE medications SET name = ?, default_dose = ?, default_frequency_hours = ?,
		default_frequency_min_hours = ?, default_frequency_max_hours = ?, notes = ? WHERE id = ?`,
		in.Name, in.DefaultDose, in.DefaultFrequencyHours, in.DefaultFrequencyMinHours,
		in.DefaultFrequencyMaxHours, in.Notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return s.GetByID(id)
}

func (s *MedicationStore) Delete(id int64) error {
	if _, err := s.db.Exec("DELETE FROM medications WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// Dependencies lists what references the medication. Any assignment, active
// or not, or an inventory record blocks deletion.
func (s *MedicationStore) Dependencies(id int64) (*model.DeleteCheck, error) {
	rows, err := s.db.Query(`
		SELECT a.id, fm.name, m.name, a.active
		FROM medication_assignments a
		JOIN family_members fm ON fm.id = a.family_member_id
		JOIN medications m ON m.id = a.medication_id
		WHERE a.medication_id = ?
		ORDER BY a.active DESC, fm.name`, id)
	if err != nil {
		return nil, fmt.Errorf("query medication assignments: %w", err)
	}
	refs, err := scanRefs(rows)
	if err != nil {
		return nil, err
	}

	var inv int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM medication_inventory WHERE medication_id = ?", id).Scan(&inv); err != nil {
		return nil, fmt.Errorf("count inventory: %w", err)
	}

	return &model.DeleteCheck{
		CanDelete:    len(refs) == 0 && inv == 0,
		Assignments:  refs,
		HasInventory: inv > 0,
	}, nil
}
