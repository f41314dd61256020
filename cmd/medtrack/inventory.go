package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dukerupert/medtrack/internal/model"
)

func runInventory(ctx context.Context, a *app, args []string) error {
	action := "list"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "list", "low":
		list := a.api.ListInventory
		if action == "low" {
			list = a.api.LowStock
		}
		records, err := list(ctx)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(a.out, "No inventory records.")
			return nil
		}
		now := time.Now()
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMEDICATION\tQUANTITY\tTHRESHOLD\tUPDATED\t")
		for _, r := range records {
			name := fmt.Sprintf("%d", r.MedicationID)
			if r.Medication != nil {
				name = r.Medication.Name
			}
			threshold, mark := "-", ""
			if r.LowStockThreshold != nil {
				threshold = fmt.Sprintf("%g", *r.LowStockThreshold)
			}
			if r.LowStock() {
				mark = "LOW"
			}
			fmt.Fprintf(tw, "%d\t%s\t%g %s\t%s\t%s\t%s\n",
				r.ID, name, r.Quantity, r.Unit, threshold, humanize.RelTime(r.LastUpdated, now, "ago", "from now"), mark)
		}
		return tw.Flush()

	case "set":
		fs := flag.NewFlagSet("inventory set", flag.ExitOnError)
		med := fs.Int64("med", 0, "medication id")
		qty := fs.Float64("qty", 0, "quantity on hand")
		unit := fs.String("unit", "", "unit, e.g. ml or tablets")
		var threshold optFloat
		fs.Var(&threshold, "low", "low-stock threshold")
		fs.Parse(args)

		in := model.InventoryInput{MedicationID: *med, Quantity: *qty, Unit: *unit, LowStockThreshold: threshold.v}
		if err := in.Validate(); err != nil {
			return err
		}
		r, err := a.api.UpsertInventory(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Stock for medication %d is %g %s.\n", r.MedicationID, r.Quantity, r.Unit)

	case "adjust":
		fs := flag.NewFlagSet("inventory adjust", flag.ExitOnError)
		var qty, threshold optFloat
		var unit optString
		fs.Var(&qty, "qty", "new quantity")
		fs.Var(&unit, "unit", "new unit")
		fs.Var(&threshold, "low", "new low-stock threshold")
		fs.Parse(args)
		id, err := idArg(fs, "inventory")
		if err != nil {
			return err
		}
		r, err := a.api.UpdateInventory(ctx, id, model.InventoryUpdate{Quantity: qty.v, Unit: unit.v, LowStockThreshold: threshold.v})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Stock for medication %d is %g %s.\n", r.MedicationID, r.Quantity, r.Unit)

	case "rm":
		fs := flag.NewFlagSet("inventory rm", flag.ExitOnError)
		fs.Parse(args)
		id, err := idArg(fs, "inventory")
		if err != nil {
			return err
		}
		if err := a.api.DeleteInventory(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed inventory record %d.\n", id)

	default:
		return fmt.Errorf("unknown action %q (want list, low, set, adjust or rm)", action)
	}
	return nil
}
