package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

const inventorySelect = `SELECT i.id, i.medication_id, i.quantity, i.unit, i.low_stock_threshold, i.last_updated,
	m.id, m.name, m.default_dose, m.default_frequency_hours, m.default_frequency_min_hours,
	m.default_frequency_max_hours, m.notes, m.created_at
FROM medication_inventory i
JOIN medications m ON m.id = i.medication_id`

func scanInventory(row scanner) (model.InventoryRecord, error) {
	var (
		r model.InventoryRecord
		m model.Medication
	)
	err := row.Scan(&r.ID, &r.MedicationID, &r.Quantity, &r.Unit, &r.LowStockThreshold, &r.LastUpdated,
		&m.ID, &m.Name, &m.DefaultDose, &m.DefaultFrequencyHours, &m.DefaultFrequencyMinHours,
		&m.DefaultFrequencyMaxHours, &m.Notes, &m.CreatedAt)
	if err != nil {
		return r, err
	}
	r.Medication = &m
	return r, nil
}

type InventoryStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db, now: time.Now}
}

func (s *InventoryStore) List() ([]model.InventoryRecord, error) {
	rows, err := s.db.Query(inventorySelect + " ORDER BY m.name, i.id")
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var out []model.InventoryRecord
	for rows.Next() {
		r, err := scanInventory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LowStock returns records with a threshold whose quantity is at or below it.
func (s *InventoryStore) LowStock() ([]model.InventoryRecord, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []model.InventoryRecord
	for _, r := range all {
		if r.LowStock() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InventoryStore) GetByID(id int64) (*model.InventoryRecord, error) {
	return s.getWhere("i.id = ?", id)
}

func (s *InventoryStore) GetByMedication(medicationID int64) (*model.InventoryRecord, error) {
	return s.getWhere("i.medication_id = ?", medicationID)
}

func (s *InventoryStore) getWhere(cond string, arg any) (*model.InventoryRecord, error) {
	r, err := scanInventory(s.db.QueryRow(inventorySelect+" WHERE "+cond, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return &r, nil
}

// Upsert keeps one record per medication: an existing record is replaced.
// created reports whether a new row was inserted.
func (s *InventoryStore) Upsert(in model.InventoryInput) (rec *model.InventoryRecord, created bool, err error) {
	existing, err := s.GetByMedication(in.MedicationID)
	if err != nil {
		return nil, false, err
	}
	now := s.now().UTC()
	if existing != nil {
		_, err = s.db.Exec(`UPDATE medication_inventory SET quantity = ?, unit = ?, low_stock_threshold = ?,
			last_updated = ? WHERE id = ?`, in.Quantity, in.Unit, in.LowStockThreshold, now, existing.ID)
		if err != nil {
			return nil, false, fmt.Errorf("update inventory: %w", err)
		}
		rec, err = s.GetByID(existing.ID)
		return rec, false, err
	}

	result, err := s.db.Exec(`INSERT INTO medication_inventory (medication_id, quantity, unit,
		low_stock_threshold, last_updated) VALUES (?, ?, ?, ?, ?)`,
		in.MedicationID, in.Quantity, in.Unit, in.LowStockThreshold, now)
	if err != nil {
		return nil, false, fmt.Errorf("insert inventory: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("last insert id: %w", err)
	}
	rec, err = s.GetByID(id)
	return rec, true, err
}

// Update applies the non-nil fields of u.
func (s *InventoryStore) Update(id int64, u model.InventoryUpdate) (*model.InventoryRecord, error) {
	sets := []string{"last_updated = ?"}
	args := []any{s.now().UTC()}
	if u.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *u.Quantity)
	}
	if u.Unit != nil {
		sets = append(sets, "unit = ?")
		args = append(args, *u.Unit)
	}
	if u.LowStockThreshold != nil {
		sets = append(sets, "low_stock_threshold = ?")
		args = append(args, *u.LowStockThreshold)
	}
	args = append(args, id)
	if _, err := s.db.Exec("UPDATE medication_inventory SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	return s.GetByID(id)
}

func (s *InventoryStore) Delete(id int64) error {
	if _, err := s.db.Exec("DELETE FROM medication_inventory WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	return nil
}
