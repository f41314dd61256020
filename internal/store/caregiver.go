package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/medtrack/internal/model"
)

type CaregiverStore struct {
	t peopleTable
}

func NewCaregiverStore(db *sql.DB) *CaregiverStore {
	return &CaregiverStore{t: peopleTable{db: db, table: "caregivers"}}
}

func (s *CaregiverStore) Create(name string) (*model.Caregiver, error) {
	id, err := s.t.create(name)
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *CaregiverStore) List() ([]model.Caregiver, error) {
	people, err := s.t.list()
	if err != nil {
		return nil, err
	}
	out := make([]model.Caregiver, len(people))
	for i, p := range people {
		out[i] = model.Caregiver(p)
	}
	return out, nil
}

func (s *CaregiverStore) GetByID(id int64) (*model.Caregiver, error) {
	p, err := s.t.get(id)
	if p == nil || err != nil {
		return nil, err
	}
	c := model.Caregiver(*p)
	return &c, nil
}

// GetActive returns the caregiver only if it is active.
func (s *CaregiverStore) GetActive(id int64) (*model.Caregiver, error) {
	c, err := s.GetByID(id)
	if c == nil || err != nil || !c.Active {
		return nil, err
	}
	return c, nil
}

func (s *CaregiverStore) Rename(id int64, name string) (*model.Caregiver, error) {
	if err := s.t.rename(id, name); err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *CaregiverStore) Deactivate(id int64) error {
	return s.t.deactivate(id)
}

// Dependencies blocks the delete while any administration names the
// caregiver.
func (s *CaregiverStore) Dependencies(id int64) (*model.DeleteCheck, error) {
	var n int
	if err := s.t.db.QueryRow("SELECT COUNT(*) FROM administrations WHERE caregiver_id = ?", id).Scan(&n); err != nil {
		return nil, fmt.Errorf("count caregiver administrations: %w", err)
	}
	return &model.DeleteCheck{CanDelete: n == 0, AdministrationCount: n}, nil
}
