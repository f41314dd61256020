package store

import (
	"testing"

	"github.com/dukerupert/medtrack/internal/model"
)

func TestInventoryUpsert(t *testing.T) {
	f := setupTestDB(t)
	med, _ := f.medications.Create(model.MedicationInput{Name: "Ibuprofen", DefaultDose: "5ml", DefaultFrequencyHours: ptr(6.0)})

	rec, created, err := f.inventory.Upsert(model.InventoryInput{MedicationID: med.ID, Quantity: 100, Unit: "ml"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Error("first upsert should create")
	}
	if rec.Medication == nil || rec.Medication.Name != "Ibuprofen" {
		t.Errorf("medication = %+v", rec.Medication)
	}

	again, created, err := f.inventory.Upsert(model.InventoryInput{
		MedicationID: med.ID, Quantity: 40, Unit: "ml", LowStockThreshold: ptr(50.0),
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created {
		t.Error("second upsert should update")
	}
	if again.ID != rec.ID || again.Quantity != 40 {
		t.Errorf("record = %+v, want id %d quantity 40", again, rec.ID)
	}

	list, _ := f.inventory.List()
	if len(list) != 1 {
		t.Errorf("got %d records, want 1 per medication", len(list))
	}
}

func TestInventoryLowStockAndUpdate(t *testing.T) {
	f := setupTestDB(t)
	low, _ := f.medications.Create(model.MedicationInput{Name: "A", DefaultDose: "1", DefaultFrequencyHours: ptr(4.0)})
	ok, _ := f.medications.Create(model.MedicationInput{Name: "B", DefaultDose: "1", DefaultFrequencyHours: ptr(4.0)})
	none, _ := f.medications.Create(model.MedicationInput{Name: "C", DefaultDose: "1", DefaultFrequencyHours: ptr(4.0)})

	lowRec, _, _ := f.inventory.Upsert(model.InventoryInput{MedicationID: low.ID, Quantity: 5, Unit: "tablets", LowStockThreshold: ptr(5.0)})
	f.inventory.Upsert(model.InventoryInput{MedicationID: ok.ID, Quantity: 50, Unit: "tablets", LowStockThreshold: ptr(5.0)})
	f.inventory.Upsert(model.InventoryInput{MedicationID: none.ID, Quantity: 0, Unit: "tablets"})

	list, err := f.inventory.LowStock()
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(list) != 1 || list[0].MedicationID != low.ID {
		t.Errorf("low stock = %+v, want only medication A", list)
	}

	updated, err := f.inventory.Update(lowRec.ID, model.InventoryUpdate{Quantity: ptr(30.0)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Quantity != 30 || updated.Unit != "tablets" {
		t.Errorf("updated = %+v", updated)
	}
	list, _ = f.inventory.LowStock()
	if len(list) != 0 {
		t.Errorf("low stock after restock = %+v", list)
	}

	if err := f.inventory.Delete(lowRec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := f.inventory.GetByMedication(low.ID)
	if err != nil || got != nil {
		t.Errorf("GetByMedication after delete = %v, %v", got, err)
	}
}
