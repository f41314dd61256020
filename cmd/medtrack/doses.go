package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dukerupert/medtrack/internal/dosing"
	"github.com/dukerupert/medtrack/internal/model"
)

func runGive(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("give", flag.ExitOnError)
	var caregiver optInt64
	fs.Var(&caregiver, "caregiver", "caregiver id")
	dose := fs.String("dose", "", "dose given (default: the assignment's dose)")
	at := fs.String("at", "", `when it was given, local time ("15:04", "2006-01-02 15:04"); default now`)
	notes := fs.String("notes", "", "notes")
	force := fs.Bool("force", false, "record even if the next dose is not due yet")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: medtrack give [flags] <assignment-id>")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	id, err := idArg(fs, "assignment")
	if err != nil {
		return err
	}
	assignment, err := a.api.GetAssignment(ctx, id)
	if err != nil {
		return err
	}

	in := model.AdministrationInput{
		AssignmentID: id,
		CaregiverID:  caregiver.v,
		DoseGiven:    strings.TrimSpace(*dose),
	}
	if in.DoseGiven == "" {
		in.DoseGiven = assignment.Dose()
	}
	if *notes != "" {
		in.Notes = notes
	}
	if *at != "" {
		t, err := parseLocalTime(*at, time.Now(), time.Local)
		if err != nil {
			return fmt.Errorf("-at: %w", err)
		}
		in.AdministeredAt = &t
	}

	if !*force && in.AdministeredAt == nil {
		v, err := a.api.AssignmentStatus(ctx, id)
		if err != nil {
			return err
		}
		if !v.CanAdminister {
			wait := 0.0
			if v.TimeUntilNext != nil {
				wait = *v.TimeUntilNext
			}
			return fmt.Errorf("%s is not due yet (%s); use -force to record anyway",
				describe(assignment), dosing.FormatTimeUntilNext(wait))
		}
	}

	rec, err := a.life.RecordDose(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Recorded %s of %s at %s.\n", rec.DoseGiven, describe(assignment),
		rec.AdministeredAt.Local().Format("Mon 15:04"))
	return nil
}

func runDoses(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("doses", flag.ExitOnError)
	var f model.AdministrationFilter
	fs.Int64Var(&f.AssignmentID, "a", 0, "assignment id")
	fs.Int64Var(&f.FamilyMemberID, "member", 0, "family member id")
	fs.Int64Var(&f.MedicationID, "med", 0, "medication id")
	since := fs.Duration("since", 0, "only doses given within this long")
	fs.IntVar(&f.Limit, "n", 20, "maximum number of doses (0 for all)")
	del := fs.Int64("delete", 0, "delete the dose with this id instead of listing")
	fs.Parse(args)

	if *del > 0 {
		if err := a.life.DeleteDose(ctx, *del); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted dose %d.\n", *del)
		return nil
	}
	if *since < 0 {
		return errors.New("-since cannot be negative")
	}

	now := time.Now()
	if *since > 0 {
		start := now.Add(-*since).UTC()
		f.Start = &start
	}
	list, err := a.api.ListAdministrations(ctx, f)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No doses recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tGIVEN\tWHEN\tWHAT\tDOSE\tBY\tNOTES")
	for _, d := range list {
		what := fmt.Sprintf("assignment %d", d.AssignmentID)
		if d.Assignment != nil {
			what = describe(d.Assignment)
		}
		by := "-"
		if d.Caregiver != nil {
			by = d.Caregiver.Name
		}
		note := ""
		if d.Notes != nil {
			note = *d.Notes
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID, d.AdministeredAt.Local().Format("Jan 2 15:04"), humanize.RelTime(d.AdministeredAt, now, "ago", "from now"),
			what, d.DoseGiven, by, note)
	}
	return tw.Flush()
}

func describe(a *model.Assignment) string {
	if l := a.Label(); l != "" {
		return l
	}
	return fmt.Sprintf("assignment %d", a.ID)
}
