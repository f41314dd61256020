package model

import "time"

type InventoryRecord struct {
	ID                int64       `json:"id"`
	MedicationID      int64       `json:"medication_id"`
	Quantity          float64     `json:"quantity"`
	Unit              string      `json:"unit"`
	LowStockThreshold *float64    `json:"low_stock_threshold"`
	LastUpdated       time.Time   `json:"last_updated"`
	Medication        *Medication `json:"medication,omitempty"`
}

// LowStock reports whether a threshold is set and the quantity is at or below it.
func (r InventoryRecord) LowStock() bool {
	return r.LowStockThreshold != nil && r.Quantity <= *r.LowStockThreshold
}

type InventoryInput struct {
	MedicationID      int64    `json:"medication_id"`
	Quantity          float64  `json:"quantity"`
	Unit              string   `json:"unit"`
	LowStockThreshold *float64 `json:"low_stock_threshold"`
}

func (in InventoryInput) Validate() error {
	if in.MedicationID <= 0 {
		return invalid("medication_id", "Medication is required")
	}
	if in.Quantity < 0 {
		return invalid("quantity", "Quantity cannot be negative")
	}
	if in.Unit == "" {
		return invalid("unit", "Unit is required")
	}
	if in.LowStockThreshold != nil && *in.LowStockThreshold < 0 {
		return invalid("low_stock_threshold", "Low stock threshold cannot be negative")
	}
	return nil
}

type InventoryUpdate struct {
	Quantity          *float64 `json:"quantity,omitempty"`
	Unit              *string  `json:"unit,omitempty"`
	LowStockThreshold *float64 `json:"low_stock_threshold,omitempty"`
}
