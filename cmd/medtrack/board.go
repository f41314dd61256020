package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/medtrack/internal/dashboard"
	"github.com/dukerupert/medtrack/internal/dosing"
	"github.com/dukerupert/medtrack/internal/liveupdate"
	"github.com/dukerupert/medtrack/internal/logging"
	"github.com/dukerupert/medtrack/internal/refresher"
	"github.com/dukerupert/medtrack/internal/websocket"
)

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	low := fs.Bool("low", false, "also list low-stock medications")
	fs.Parse(args)

	state := dashboard.NewState(a.api, nil, dosing.DefaultPolicy, logging.Component(a.logger, "dashboard"))
	if err := state.Load(ctx); err != nil {
		return err
	}
	renderCards(a.out, state.Cards(), time.Now())

	if *low {
		inv := dashboard.NewInventory(a.api)
		if err := inv.Reload(ctx); err != nil {
			return err
		}
		renderLowStock(a.out, inv)
	}
	return nil
}

// runWatch keeps the board on screen. Cards are recomputed by the refresher
// on their own cadence and everything is re-fetched when another client
// changes something.
func runWatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", a.cfg.RefreshInterval, "how often each card is recomputed")
	probeEvery := fs.Duration("probe", 15*time.Second, "how often connectivity is checked")
	fs.Parse(args)

	timers := refresher.New(*interval, logging.Component(a.logger, "refresher"))
	defer timers.Close()

	views := liveupdate.Views{
		State:     dashboard.NewState(a.api, timers, dosing.DefaultPolicy, logging.Component(a.logger, "dashboard")),
		Catalog:   dashboard.NewCatalog(a.api),
		Inventory: dashboard.NewInventory(a.api),
	}
	defer views.State.Close()

	var mu sync.Mutex
	render := func() {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(a.out, "\033[H\033[2J")
		online := "online"
		if !a.net.Online() {
			online = "OFFLINE"
		}
		fmt.Fprintf(a.out, "%s  (%s)\n\n", time.Now().Format("Mon 15:04:05"), online)
		renderCards(a.out, views.State.Cards(), time.Now())
		renderLowStock(a.out, views.Inventory)
	}
	views.State.OnUpdate(func(dashboard.Card) { render() })
	unsubscribe := a.net.OnChange(func(bool) { render() })
	defer unsubscribe()

	if err := views.ReloadAll(ctx); err != nil {
		return err
	}
	render()

	feed, err := liveupdate.FeedURL(a.cfg.APIURL)
	if err != nil {
		return err
	}
	handle := liveupdate.DashboardHandler(views, logging.Component(a.logger, "liveupdate"))
	sub := liveupdate.New(feed, func(ctx context.Context, msg websocket.Message) {
		handle(ctx, msg)
		render()
	}, logging.Component(a.logger, "liveupdate"))
	sub.OnConnect(func(ctx context.Context) {
		if err := views.ReloadAll(ctx); err != nil {
			a.logger.Warn("reload after connect", "error", err)
		}
		render()
	})

	health, err := healthURL(a.cfg.APIURL)
	if err != nil {
		return err
	}
	probe := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, health, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("health check: %s", resp.Status)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sub.Run(gctx)
	})
	g.Go(func() error {
		a.net.Watch(gctx, *probeEvery, probe, logging.Component(a.logger, "connectivity"))
		return nil
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// healthURL maps http://host/api to http://host/health.
func healthURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/health"
	u.RawQuery = ""
	return u.String(), nil
}

func renderCards(w io.Writer, cards []dashboard.Card, now time.Time) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No active assignments.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMEMBER\tMEDICATION\tDOSE\tSTATUS\tLAST GIVEN\tNEXT")
	for _, c := range cards {
		member, med := "?", "?"
		if c.Assignment.FamilyMember != nil {
			member = c.Assignment.FamilyMember.Name
		}
		if c.Assignment.Medication != nil {
			med = c.Assignment.Medication.Name
		}
		status := string(c.Verdict.Status)
		if c.Err != nil {
			status = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Assignment.ID, member, med, c.Assignment.Dose(), status, c.LastGiven(now), c.NextDue())
	}
	tw.Flush()
}

func renderLowStock(w io.Writer, inv *dashboard.Inventory) {
	low := inv.LowStock()
	if len(low) == 0 {
		return
	}
	fmt.Fprintln(w, "\nLow stock:")
	for _, r := range low {
		name := fmt.Sprintf("medication %d", r.MedicationID)
		if r.Medication != nil {
			name = r.Medication.Name
		}
		fmt.Fprintf(w, "  %s: %g %s\n", name, r.Quantity, r.Unit)
	}
}
