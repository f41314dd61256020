package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/medtrack/internal/model"
)

const assignmentSelect = `SELECT a.id, a.family_member_id, a.medication_id, a.current_dose,
	a.frequency_hours, a.frequency_min_hours, a.frequency_max_hours, a.active,
	a.schedule_type, a.schedule_time, a.schedule_days, a.created_at, a.updated_at,
	fm.id, fm.name, fm.active, fm.created_at,
	m.id, m.name, m.default_dose, m.default_frequency_hours, m.default_frequency_min_hours,
	m.default_frequency_max_hours, m.notes, m.created_at
FROM medication_assignments a
JOIN family_members fm ON fm.id = a.family_member_id
JOIN medications m ON m.id = a.medication_id`

func scanAssignment(row scanner) (model.Assignment, error) {
	var (
		a  model.Assignment
		fm model.FamilyMember
		m  model.Medication
	)
	err := row.Scan(&a.ID, &a.FamilyMemberID, &a.MedicationID, &a.CurrentDose,
		&a.FrequencyHours, &a.FrequencyMinHours, &a.FrequencyMaxHours, &a.Active,
		&a.ScheduleType, &a.ScheduleTime, &a.ScheduleDays, &a.CreatedAt, &a.UpdatedAt,
		&fm.ID, &fm.Name, &fm.Active, &fm.CreatedAt,
		&m.ID, &m.Name, &m.DefaultDose, &m.DefaultFrequencyHours, &m.DefaultFrequencyMinHours,
		&m.DefaultFrequencyMaxHours, &m.Notes, &m.CreatedAt)
	if err != nil {
		return a, err
	}
	a.FamilyMember = &fm
	a.Medication = &m
	return a, nil
}

// Optional is a field of a partial update. Set reports whether the request
// named the field; a set field with a nil Value clears the column.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// AssignmentChanges holds the fields named in an update request.
type AssignmentChanges struct {
	CurrentDose       Optional[string]
	FrequencyHours    Optional[float64]
	FrequencyMinHours Optional[float64]
	FrequencyMaxHours Optional[float64]
	Active            Optional[bool]
	ScheduleType      Optional[string]
	ScheduleTime      Optional[string]
	ScheduleDays      Optional[string]
}

// Apply returns a copy of a with the changes applied, for validation before
// the write.
func (c AssignmentChanges) Apply(a model.Assignment) model.Assignment {
	if c.CurrentDose.Set {
		a.CurrentDose = c.CurrentDose.Value
	}
	if c.FrequencyHours.Set {
		a.FrequencyHours = c.FrequencyHours.Value
	}
	if c.FrequencyMinHours.Set {
		a.FrequencyMinHours = c.FrequencyMinHours.Value
	}
	if c.FrequencyMaxHours.Set {
		a.FrequencyMaxHours = c.FrequencyMaxHours.Value
	}
	if c.Active.Set && c.Active.Value != nil {
		a.Active = *c.Active.Value
	}
	if c.ScheduleType.Set {
		a.ScheduleType = c.ScheduleType.Value
	}
	if c.ScheduleTime.Set {
		a.ScheduleTime = c.ScheduleTime.Value
	}
	if c.ScheduleDays.Set {
		a.ScheduleDays = c.ScheduleDays.Value
	}
	return a
}

type fieldChange struct {
	column   string
	old, new *string
	value    any
}

func (c AssignmentChanges) diff(a model.Assignment) []fieldChange {
	var out []fieldChange
	add := func(set bool, column string, old, new *string, value any) {
		if set && !sameValue(old, new) {
			out = append(out, fieldChange{column: column, old: old, new: new, value: value})
		}
	}
	add(c.CurrentDose.Set, "current_dose", a.CurrentDose, c.CurrentDose.Value, c.CurrentDose.Value)
	add(c.FrequencyHours.Set, "frequency_hours", floatText(a.FrequencyHours), floatText(c.FrequencyHours.Value), c.FrequencyHours.Value)
	add(c.FrequencyMinHours.Set, "frequency_min_hours", floatText(a.FrequencyMinHours), floatText(c.FrequencyMinHours.Value), c.FrequencyMinHours.Value)
	add(c.FrequencyMaxHours.Set, "frequency_max_hours", floatText(a.FrequencyMaxHours), floatText(c.FrequencyMaxHours.Value), c.FrequencyMaxHours.Value)
	if c.Active.Set && c.Active.Value != nil {
		add(true, "active", boolText(&a.Active), boolText(c.Active.Value), *c.Active.Value)
	}
	add(c.ScheduleType.Set, "schedule_type", a.ScheduleType, c.ScheduleType.Value, c.ScheduleType.Value)
	add(c.ScheduleTime.Set, "schedule_time", a.ScheduleTime, c.ScheduleTime.Value, c.ScheduleTime.Value)
	add(c.ScheduleDays.Set, "schedule_days", a.ScheduleDays, c.ScheduleDays.Value, c.ScheduleDays.Value)
	return out
}

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatText(v *float64) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatFloat(*v, 'f', -1, 64)
	return &s
}

func boolText(v *bool) *string {
	if v == nil {
		return nil
	}
	s := strconv.FormatBool(*v)
	return &s
}

type AssignmentFilter struct {
	FamilyMemberID int64
	Active         *bool
	Scheduled      bool
}

type AssignmentStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewAssignmentStore(db *sql.DB) *AssignmentStore {
	return &AssignmentStore{db: db, now: time.Now}
}

func (s *AssignmentStore) Create(in model.AssignmentInput) (*model.Assignment, error) {
	result, err := s.db.Exec(`INSERT INTO medication_assignments (family_member_id, medication_id,
		current_dose, frequency_hours, frequency_min_hours, frequency_max_hours,
		schedule_type, schedule_time, schedule_days) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.FamilyMemberID, in.MedicationID, in.CurrentDose, in.FrequencyHours,
		in.FrequencyMinHours, in.FrequencyMaxHours, in.ScheduleType, in.ScheduleTime, in.ScheduleDays,
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AssignmentStore) List(f AssignmentFilter) ([]model.Assignment, error) {
	var (
		where []string
		args  []any
	)
	if f.FamilyMemberID != 0 {
		where = append(where, "a.family_member_id = ?")
		args = append(args, f.FamilyMemberID)
	}
	if f.Active != nil {
		where = append(where, "a.active = ?")
		args = append(args, *f.Active)
	}
	if f.Scheduled {
		where = append(where, "a.schedule_type IS NOT NULL AND a.schedule_type NOT IN ('', 'none')")
	}

	query := assignmentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fm.name, m.name, a.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	var out []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AssignmentStore) GetByID(id int64) (*model.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRow(assignmentSelect+" WHERE a.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assignment: %w", err)
	}
	return &a, nil
}

// FindByPair returns the assignment, active or not, for a member and
// medication.
func (s *AssignmentStore) FindByPair(familyMemberID, medicationID int64) (*model.Assignment, error) {
	a, err := scanAssignment(s.db.QueryRow(
		assignmentSelect+" WHERE a.family_member_id = ? AND a.medication_id = ?",
		familyMemberID, medicationID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assignment by pair: %w", err)
	}
	return &a, nil
}

// Update writes the changed fields and one audit row per changed field in a
// single transaction. Fields whose value is unchanged are neither written nor
// logged.
func (s *AssignmentStore) Update(id int64, c AssignmentChanges) (*model.Assignment, error) {
	existing, err := s.GetByID(id)
	if err != nil || existing == nil {
		return nil, err
	}

	changes := c.diff(*existing)
	if len(changes) == 0 {
		return existing, nil
	}

	now := s.now().UTC()
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, ch := range changes {
		sets = append(sets, ch.column+" = ?")
		args = append(args, ch.value)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE medication_assignments SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO assignment_audit_logs (assignment_id, field_name, old_value, new_value, changed_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare audit insert: %w", err)
	}
	defer stmt.Close()
	for _, ch := range changes {
		if _, err := stmt.Exec(id, ch.column, ch.old, ch.new, now); err != nil {
			return nil, fmt.Errorf("insert audit log for %s: %w", ch.column, err)
		}
	}
	if err := stmt.Close(); err != nil {
		return nil, fmt.Errorf("close audit insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit assignment update: %w", err)
	}
	return s.GetByID(id)
}

// SetActive toggles the active flag through Update so the change is audited.
func (s *AssignmentStore) SetActive(id int64, active bool) (*model.Assignment, error) {
	return s.Update(id, AssignmentChanges{Active: Some(active)})
}

// EditHistory returns the audit trail, newest first.
func (s *AssignmentStore) EditHistory(id int64) ([]model.AssignmentEditLog, error) {
	rows, err := s.db.Query(`SELECT id, assignment_id, field_name, old_value, new_value, changed_at
		FROM assignment_audit_logs WHERE assignment_id = ? ORDER BY changed_at DESC, id DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("query edit history: %w", err)
	}
	defer rows.Close()

	var out []model.AssignmentEditLog
	for rows.Next() {
		var l model.AssignmentEditLog
		if err := rows.Scan(&l.ID, &l.AssignmentID, &l.FieldName, &l.OldValue, &l.NewValue, &l.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan edit log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
