package store

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

// CSVHeader is the first row of the administration CSV export.
var CSVHeader = []string{"ID", "Family Member", "Medication", "Caregiver", "Administered At", "Dose Given", "Notes"}

// ExportStore dumps and restores the whole database.
type ExportStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewExportStore(db *sql.DB) *ExportStore {
	return &ExportStore{db: db, now: time.Now}
}

// Export returns every row, inactive people and assignments included.
func (s *ExportStore) Export() (*model.Export, error) {
	out := &model.Export{ExportDate: s.now().UTC()}
	var err error

	if out.FamilyMembers, err = s.allPeople("family_members"); err != nil {
		return nil, err
	}
	caregivers, err := s.allPeople("caregivers")
	if err != nil {
		return nil, err
	}
	for _, p := range caregivers {
		out.Caregivers = append(out.Caregivers, model.Caregiver(p))
	}

	if out.Medications, err = NewMedicationStore(s.db).List(); err != nil {
		return nil, err
	}
	if out.Assignments, err = NewAssignmentStore(s.db).List(AssignmentFilter{}); err != nil {
		return nil, err
	}
	if out.Administrations, err = NewAdministrationStore(s.db).List(model.AdministrationFilter{}); err != nil {
		return nil, err
	}
	if out.Inventory, err = NewInventoryStore(s.db).List(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ExportStore) allPeople(table string) ([]model.FamilyMember, error) {
	rows, err := s.db.Query(fmt.Sprintf("SELECT id, name, active, created_at FROM %s ORDER BY id", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []model.FamilyMember
	for rows.Next() {
		var p model.FamilyMember
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CSV writes every administration, newest first.
func (s *ExportStore) CSV(w io.Writer) error {
	list, err := NewAdministrationStore(s.db).List(model.AdministrationFilter{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, ad := range list {
		var member, medication, caregiver, notes string
		if ad.Assignment != nil {
			if ad.Assignment.FamilyMember != nil {
				member = ad.Assignment.FamilyMember.Name
			}
			if ad.Assignment.Medication != nil {
				medication = ad.Assignment.Medication.Name
			}
		}
		if ad.Caregiver != nil {
			caregiver = ad.Caregiver.Name
		}
		if ad.Notes != nil {
			notes = *ad.Notes
		}
		record := []string{
			strconv.FormatInt(ad.ID, 10), member, medication, caregiver,
			ad.AdministeredAt.UTC().Format(time.RFC3339), ad.DoseGiven, notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", ad.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import inserts the rows of doc whose ids are not already present, keeping
// their ids. It runs in one transaction and reports how many rows of each kind
// were inserted.
func (s *ExportStore) Import(doc *model.Export) (map[string]int, error) {
	counts := map[string]int{
		"family_members":  0,
		"caregivers":      0,
		"medications":     0,
		"assignments":     0,
		"administrations": 0,
		"inventory":       0,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insert := func(key, table string, id int64, query string, args ...any) error {
		var exists int
		if err := tx.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ?", table), id).Scan(&exists); err != nil {
			return fmt.Errorf("check %s %d: %w", table, id, err)
		}
		if exists > 0 {
			return nil
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("import %s %d: %w", table, id, err)
		}
		counts[key]++
		return nil
	}

	for _, p := range doc.FamilyMembers {
		if err := insert("family_members", "family_members", p.ID,
			"INSERT INTO family_members (id, name, active, created_at) VALUES (?, ?, ?, ?)",
			p.ID, p.Name, p.Active, p.CreatedAt.UTC()); err != nil {
			return nil, err
		}
	}
	for _, c := range doc.Caregivers {
		if err := insert("caregivers", "caregivers", c.ID,
			"INSERT INTO caregivers (id, name, active, created_at) VALUES (?, ?, ?, ?)",
			c.ID, c.Name, c.Active, c.CreatedAt.UTC()); err != nil {
			return nil, err
		}
	}
	for _, m := range doc.Medications {
		if err := insert("medications", "medications", m.ID,
			`INSERT INTO medications (id, name, default_dose, default_frequency_hours,
			default_frequency_min_hours, default_frequency_max_hours, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.DefaultDose, m.DefaultFrequencyHours, m.DefaultFrequencyMinHours,
			m.DefaultFrequencyMaxHours, m.Notes, m.CreatedAt.UTC()); err != nil {
			return nil, err
		}
	}
	for _, a := range doc.Assignments {
		if err := insert("assignments", "medication_assignments", a.ID,
			`INSERT INTO medication_assignments (id, family_member_id, medication_id, current_dose,
			frequency_hours, frequency_min_hours, frequency_max_hours, active,
			schedule_type, schedule_time, schedule_days, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.FamilyMemberID, a.MedicationID, a.CurrentDose, a.FrequencyHours,
			a.FrequencyMinHours, a.FrequencyMaxHours, a.Active, a.ScheduleType, a.ScheduleTime,
			a.ScheduleDays, a.CreatedAt.UTC(), utcPtr(a.UpdatedAt)); err != nil {
			return nil, err
		}
	}
	for _, ad := range doc.Administrations {
		if err := insert("administrations", "administrations", ad.ID,
			`INSERT INTO administrations (id, medication_assignment_id, caregiver_id,
			administered_at, dose_given, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ad.ID, ad.AssignmentID, ad.CaregiverID, ad.AdministeredAt.UTC(), ad.DoseGiven,
			ad.Notes, ad.CreatedAt.UTC()); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Inventory {
		if err := insert("inventory", "medication_inventory", r.ID,
			`INSERT INTO medication_inventory (id, medication_id, quantity, unit,
			low_stock_threshold, last_updated) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.MedicationID, r.Quantity, r.Unit, r.LowStockThreshold, r.LastUpdated.UTC()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return counts, nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
