package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dukerupert/medtrack/internal/model"
)

// person is the part of a family member or caregiver the commands need.
type person struct {
	ID   int64
	Name string
}

type peopleOps struct {
	noun   string
	list   func(ctx context.Context) ([]person, error)
	add    func(ctx context.Context, name string) (int64, error)
	rename func(ctx context.Context, id int64, name string) error
	remove func(ctx context.Context, id int64) error
}

func runMembers(ctx context.Context, a *app, args []string) error {
	return runPeople(ctx, a, args, peopleOps{
		noun: "family member",
		list: func(ctx context.Context) ([]person, error) {
			ms, err := a.api.ListFamilyMembers(ctx)
			out := make([]person, len(ms))
			for i, m := range ms {
				out[i] = person{m.ID, m.Name}
			}
			return out, err
		},
		add: func(ctx context.Context, name string) (int64, error) {
			m, err := a.api.CreateFamilyMember(ctx, name)
			if err != nil {
				return 0, err
			}
			return m.ID, nil
		},
		rename: func(ctx context.Context, id int64, name string) error {
			_, err := a.api.RenameFamilyMember(ctx, id, name)
			return err
		},
		remove: a.life.DeleteFamilyMember,
	})
}

func runCaregivers(ctx context.Context, a *app, args []string) error {
	return runPeople(ctx, a, args, peopleOps{
		noun: "caregiver",
		list: func(ctx context.Context) ([]person, error) {
			cs, err := a.api.ListCaregivers(ctx)
			out := make([]person, len(cs))
			for i, c := range cs {
				out[i] = person{c.ID, c.Name}
			}
			return out, err
		},
		add: func(ctx context.Context, name string) (int64, error) {
			c, err := a.api.CreateCaregiver(ctx, name)
			if err != nil {
				return 0, err
			}
			return c.ID, nil
		},
		rename: func(ctx context.Context, id int64, name string) error {
			_, err := a.api.RenameCaregiver(ctx, id, name)
			return err
		},
		remove: a.life.DeleteCaregiver,
	})
}

// runPeople handles: (no args) list, add <name>, rename <id> <name>, rm <id>.
func runPeople(ctx context.Context, a *app, args []string, ops peopleOps) error {
	if len(args) == 0 || args[0] == "list" {
		people, err := ops.list(ctx)
		if err != nil {
			return err
		}
		if len(people) == 0 {
			fmt.Fprintf(a.out, "No %ss.\n", ops.noun)
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, p := range people {
			fmt.Fprintf(tw, "%d\t%s\n", p.ID, p.Name)
		}
		return tw.Flush()
	}

	fs := flag.NewFlagSet(args[0], flag.ExitOnError)
	fs.Parse(args[1:])
	switch args[0] {
	case "add":
		name := strings.TrimSpace(strings.Join(fs.Args(), " "))
		if name == "" {
			return fmt.Errorf("usage: add <name>")
		}
		id, err := ops.add(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Added %s %d.\n", ops.noun, id)
	case "rename":
		if fs.NArg() < 2 {
			return fmt.Errorf("usage: rename <id> <name>")
		}
		id, err := parseID(fs.Arg(0), ops.noun)
		if err != nil {
			return err
		}
		if err := ops.rename(ctx, id, strings.Join(fs.Args()[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Renamed %s %d.\n", ops.noun, id)
	case "rm":
		id, err := idArg(fs, ops.noun)
		if err != nil {
			return err
		}
		if err := ops.remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed %s %d.\n", ops.noun, id)
	default:
		return fmt.Errorf("unknown action %q (want list, add, rename or rm)", args[0])
	}
	return nil
}

func runMedications(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 || args[0] == "list" {
		meds, err := a.api.ListMedications(ctx)
		if err != nil {
			return err
		}
		if len(meds) == 0 {
			fmt.Fprintln(a.out, "No medications.")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tDOSE\tFREQUENCY")
		for _, m := range meds {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.Name, m.DefaultDose, m.DefaultFrequency())
		}
		return tw.Flush()
	}

	fs := flag.NewFlagSet("medications "+args[0], flag.ExitOnError)
	name := fs.String("name", "", "name")
	dose := fs.String("dose", "", "default dose, e.g. 5ml")
	var every, min, max optFloat
	fs.Var(&every, "every", "fixed interval in hours")
	fs.Var(&min, "min", "minimum hours between doses")
	fs.Var(&max, "max", "maximum hours between doses")
	var notes optString
	fs.Var(&notes, "notes", "notes")
	fs.Parse(args[1:])

	in := model.MedicationInput{
		Name:                     strings.TrimSpace(*name),
		DefaultDose:              strings.TrimSpace(*dose),
		DefaultFrequencyHours:    every.v,
		DefaultFrequencyMinHours: min.v,
		DefaultFrequencyMaxHours: max.v,
		Notes:                    notes.v,
	}

	switch args[0] {
	case "add":
		if err := in.Validate(); err != nil {
			return err
		}
		m, err := a.api.CreateMedication(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Added medication %d (%s, %s).\n", m.ID, m.Name, m.DefaultFrequency())
	case "set":
		id, err := idArg(fs, "medication")
		if err != nil {
			return err
		}
		cur, err := a.api.GetMedication(ctx, id)
		if err != nil {
			return err
		}
		merged := mergeMedication(*cur, in)
		if err := merged.Validate(); err != nil {
			return err
		}
		m, err := a.api.UpdateMedication(ctx, id, merged)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Updated medication %d (%s, %s).\n", m.ID, m.Name, m.DefaultFrequency())
	case "rm":
		id, err := idArg(fs, "medication")
		if err != nil {
			return err
		}
		if err := a.life.DeleteMedication(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Removed medication %d.\n", id)
	default:
		return fmt.Errorf("unknown action %q (want list, add, set or rm)", args[0])
	}
	return nil
}

// mergeMedication overlays the given fields on the current medication. A new
// frequency of either form replaces the old one entirely.
func mergeMedication(cur model.Medication, in model.MedicationInput) model.MedicationInput {
	out := model.MedicationInput{
		Name:                     cur.Name,
		DefaultDose:              cur.DefaultDose,
		DefaultFrequencyHours:    cur.DefaultFrequencyHours,
		DefaultFrequencyMinHours: cur.DefaultFrequencyMinHours,
		DefaultFrequencyMaxHours: cur.DefaultFrequencyMaxHours,
		Notes:                    cur.Notes,
	}
	if in.Name != "" {
		out.Name = in.Name
	}
	if in.DefaultDose != "" {
		out.DefaultDose = in.DefaultDose
	}
	if !in.Frequency().IsZero() {
		out.DefaultFrequencyHours = in.DefaultFrequencyHours
		out.DefaultFrequencyMinHours = in.DefaultFrequencyMinHours
		out.DefaultFrequencyMaxHours = in.DefaultFrequencyMaxHours
	}
	if in.Notes != nil {
		out.Notes = in.Notes
	}
	return out
}
