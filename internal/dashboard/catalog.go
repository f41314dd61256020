package dashboard

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/medtrack/internal/model"
)

type CatalogAPI interface {
	ListFamilyMembers(ctx context.Context) ([]model.FamilyMember, error)
	ListCaregivers(ctx context.Context) ([]model.Caregiver, error)
	ListMedications(ctx context.Context) ([]model.Medication, error)
}

// Catalog caches the lists forms choose from.
type Catalog struct {
	mu          sync.RWMutex
	api         CatalogAPI
	members     []model.FamilyMember
	caregivers  []model.Caregiver
	medications []model.Medication
}

func NewCatalog(api CatalogAPI) *Catalog {
	return &Catalog{api: api}
}

// Reload fetches all three lists concurrently and replaces them together.
func (c *Catalog) Reload(ctx context.Context) error {
	var (
		members     []model.FamilyMember
		caregivers  []model.Caregiver
		medications []model.Medication
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = c.api.ListFamilyMembers(gctx)
		return err
	})
	g.Go(func() (err error) {
		caregivers, err = c.api.ListCaregivers(gctx)
		return err
	})
	g.Go(func() (err error) {
		medications, err = c.api.ListMedications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reload catalog: %w", err)
	}

	c.mu.Lock()
	c.members, c.caregivers, c.medications = members, caregivers, medications
	c.mu.Unlock()
	return nil
}

func (c *Catalog) FamilyMembers() []model.FamilyMember {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.members
}

func (c *Catalog) Caregivers() []model.Caregiver {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caregivers
}

func (c *Catalog) Medications() []model.Medication {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.medications
}

type InventoryAPI interface {
	ListInventory(ctx context.Context) ([]model.InventoryRecord, error)
}

// Inventory caches stock levels.
type Inventory struct {
	mu      sync.RWMutex
	api     InventoryAPI
	records []model.InventoryRecord
}

func NewInventory(api InventoryAPI) *Inventory {
	return &Inventory{api: api}
}

func (v *Inventory) Reload(ctx context.Context) error {
	records, err := v.api.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("reload inventory: %w", err)
	}
	v.mu.Lock()
	v.records = records
	v.mu.Unlock()
	return nil
}

func (v *Inventory) Records() []model.InventoryRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.records
}

// LowStock filters the cached records to those at or below threshold.
func (v *Inventory) LowStock() []model.InventoryRecord {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []model.InventoryRecord
	for _, r := range v.records {
		if r.LowStock() {
			out = append(out, r)
		}
	}
	return out
}

type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadAll reloads every view concurrently. Each reload stands alone: a
// failure is collected and returned, never undoing the others.
func ReloadAll(ctx context.Context, views ...Reloader) error {
	errs := make([]error, len(views))
	var wg sync.WaitGroup
	for i, v := range views {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = v.Reload(ctx)
		}()
	}
	wg.Wait()
	return multierr.Combine(errs...)
}
