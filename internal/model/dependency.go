package model

import (
	"fmt"
	"time"
)

type AssignmentRef struct {
	ID               int64  `json:"id"`
	FamilyMemberName string `json:"family_member_name,omitempty"`
	MedicationName   string `json:"medication_name,omitempty"`
	Active           bool   `json:"active"`
}

// DeleteCheck is the answer to a can-delete query. Which dependency fields
// are filled depends on the entity asked about.
type DeleteCheck struct {
	CanDelete           bool            `json:"can_delete"`
	ActiveAssignments   []AssignmentRef `json:"active_assignments,omitempty"`
	Assignments         []AssignmentRef `json:"assignments,omitempty"`
	HasInventory        bool            `json:"has_inventory,omitempty"`
	AdministrationCount int             `json:"administration_count,omitempty"`
}

// Reasons describes what blocks the delete, one line per dependency.
func (c DeleteCheck) Reasons() []string {
	var out []string
	for _, a := range c.ActiveAssignments {
		out = append(out, fmt.Sprintf("active assignment for %s", a.MedicationName))
	}
	for _, a := range c.Assignments {
		state := "inactive"
		if a.Active {
			state = "active"
		}
		out = append(out, fmt.Sprintf("%s assignment for %s", state, a.FamilyMemberName))
	}
	if c.HasInventory {
		out = append(out, "inventory record")
	}
	if c.AdministrationCount > 0 {
		out = append(out, fmt.Sprintf("%d recorded administrations", c.AdministrationCount))
	}
	return out
}

// Export is the full JSON dump served by /export/json and accepted by import.
type Export struct {
	ExportDate      time.Time         `json:"export_date"`
	FamilyMembers   []FamilyMember    `json:"family_members"`
	Caregivers      []Caregiver       `json:"caregivers"`
	Medications     []Medication      `json:"medications"`
	Assignments     []Assignment      `json:"assignments"`
	Administrations []Administration  `json:"administrations"`
	Inventory       []InventoryRecord `json:"inventory"`
}

type ImportResult struct {
	Message  string         `json:"message"`
	Imported map[string]int `json:"imported"`
}
