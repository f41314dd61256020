package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/medtrack/internal/lifecycle"
	"github.com/dukerupert/medtrack/internal/logging"
	"github.com/dukerupert/medtrack/internal/model"
)

// scheduleFlags are shared by assign and edit.
type scheduleFlags struct {
	dose, typ, clock, days optString
	every, min, max        optFloat
}

func (s *scheduleFlags) register(fs *flag.FlagSet) {
	fs.Var(&s.dose, "dose", "dose override")
	fs.Var(&s.every, "every", "fixed interval override in hours")
	fs.Var(&s.min, "min", "minimum hours between doses (range override)")
	fs.Var(&s.max, "max", "maximum hours between doses (range override)")
	fs.Var(&s.typ, "schedule", "calendar schedule: daily or weekly")
	fs.Var(&s.clock, "time", "scheduled time of day, HH:MM")
	fs.Var(&s.days, "days", "weekly days, e.g. mon,wed,fri")
}

func runAssign(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	member := fs.Int64("member", 0, "family member id")
	med := fs.Int64("med", 0, "medication id")
	yes := fs.Bool("yes", false, "use or reactivate an existing assignment without asking")
	var sf scheduleFlags
	sf.register(fs)
	fs.Parse(args)

	in := model.AssignmentInput{
		FamilyMemberID:    *member,
		MedicationID:      *med,
		CurrentDose:       sf.dose.v,
		FrequencyHours:    sf.every.v,
		FrequencyMinHours: sf.min.v,
		FrequencyMaxHours: sf.max.v,
		ScheduleType:      sf.typ.v,
		ScheduleTime:      sf.clock.v,
		ScheduleDays:      sf.days.v,
	}

	life := a.life
	if *yes {
		life = lifecycle.New(a.api, lifecycle.AcceptExisting, logging.Component(a.logger, "lifecycle"))
	}
	res, err := life.Create(ctx, in)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case lifecycle.OutcomeCancelled:
		fmt.Fprintln(a.out, "Nothing changed.")
	case lifecycle.OutcomeCreated:
		fmt.Fprintf(a.out, "Created assignment %d.\n", res.Assignment.ID)
	case lifecycle.OutcomeReused:
		fmt.Fprintf(a.out, "Using existing assignment %d.\n", res.Assignment.ID)
	case lifecycle.OutcomeReactivated:
		fmt.Fprintf(a.out, "Reactivated assignment %d.\n", res.Assignment.ID)
	}
	return nil
}

// runEdit changes only the fields given on the command line; -clear-* flags
// drop an override.
func runEdit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	var sf scheduleFlags
	sf.register(fs)
	clearDose := fs.Bool("clear-dose", false, "use the medication's default dose again")
	clearFreq := fs.Bool("clear-frequency", false, "use the medication's default frequency again")
	clearSchedule := fs.Bool("clear-schedule", false, "remove the calendar schedule")
	fs.Parse(args)

	id, err := idArg(fs, "assignment")
	if err != nil {
		return err
	}
	cur, err := a.api.GetAssignment(ctx, id)
	if err != nil {
		return err
	}

	u := model.AssignmentUpdate{
		CurrentDose:       cur.CurrentDose,
		FrequencyHours:    cur.FrequencyHours,
		FrequencyMinHours: cur.FrequencyMinHours,
		FrequencyMaxHours: cur.FrequencyMaxHours,
		ScheduleType:      cur.ScheduleType,
		ScheduleTime:      cur.ScheduleTime,
		ScheduleDays:      cur.ScheduleDays,
	}
	switch {
	case *clearDose:
		u.CurrentDose = nil
	case sf.dose.v != nil:
		u.CurrentDose = sf.dose.v
	}
	switch {
	case *clearFreq:
		u.FrequencyHours, u.FrequencyMinHours, u.FrequencyMaxHours = nil, nil, nil
	case sf.every.v != nil:
		u.FrequencyHours, u.FrequencyMinHours, u.FrequencyMaxHours = sf.every.v, nil, nil
	case sf.min.v != nil || sf.max.v != nil:
		u.FrequencyHours = nil
		if sf.min.v != nil {
			u.FrequencyMinHours = sf.min.v
		}
		if sf.max.v != nil {
			u.FrequencyMaxHours = sf.max.v
		}
	}
	if *clearSchedule {
		u.ScheduleType, u.ScheduleTime, u.ScheduleDays = nil, nil, nil
	} else {
		if sf.typ.v != nil {
			u.ScheduleType = sf.typ.v
		}
		if sf.clock.v != nil {
			u.ScheduleTime = sf.clock.v
		}
		if sf.days.v != nil {
			u.ScheduleDays = sf.days.v
		}
	}

	updated, err := a.life.Update(ctx, id, u)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s.\n", describe(updated))
	return nil
}

func runStop(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	fs.Parse(args)
	id, err := idArg(fs, "assignment")
	if err != nil {
		return err
	}
	if err := a.life.Stop(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Stopped assignment %d. Its history is kept.\n", id)
	return nil
}

func runReactivate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("reactivate", flag.ExitOnError)
	fs.Parse(args)
	id, err := idArg(fs, "assignment")
	if err != nil {
		return err
	}
	as, err := a.life.Reactivate(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Reactivated %s.\n", describe(as))
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	fs.Parse(args)
	id, err := idArg(fs, "assignment")
	if err != nil {
		return err
	}
	logs, err := a.life.EditHistory(ctx, id)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(a.out, "No edits.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tFIELD\tFROM\tTO")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			l.ChangedAt.Local().Format("2006-01-02 15:04"), l.FieldName, orNone(l.OldValue), orNone(l.NewValue))
	}
	return tw.Flush()
}

// runScheduled lists calendar-scheduled assignments with their next slot.
func runScheduled(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("scheduled", flag.ExitOnError)
	fs.Parse(args)

	list, err := a.api.ScheduledAssignments(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No scheduled assignments.")
		return nil
	}
	now := time.Now()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHAT\tSCHEDULE\tNEXT")
	var errs []error
	for _, as := range list {
		s, err := as.Schedule()
		if err != nil {
			errs = append(errs, fmt.Errorf("assignment %d: %w", as.ID, err))
			continue
		}
		next := "-"
		if t, ok := s.Next(now); ok {
			next = t.Format("Mon Jan 2 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", as.ID, describe(&as), s.Describe(), next)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func orNone(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "(none)"
	}
	return *s
}
