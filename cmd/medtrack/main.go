// Command medtrack is the household client for the medication tracking API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/dukerupert/medtrack/internal/config"
	"github.com/dukerupert/medtrack/internal/gateway"
	"github.com/dukerupert/medtrack/internal/lifecycle"
	"github.com/dukerupert/medtrack/internal/logging"
	"github.com/dukerupert/medtrack/internal/medapi"
	"github.com/dukerupert/medtrack/internal/model"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"status":      {"show every active assignment with its dose status", runStatus},
	"watch":       {"keep the status board on screen with live updates", runWatch},
	"give":        {"record a dose", runGive},
	"assign":      {"assign a medication to a family member", runAssign},
	"edit":        {"change an assignment's dose, frequency or schedule", runEdit},
	"stop":        {"stop an assignment, keeping its history", runStop},
	"reactivate":  {"reactivate a stopped assignment", runReactivate},
	"history":     {"show an assignment's edit history", runHistory},
	"scheduled":   {"list calendar-scheduled assignments and their next slot", runScheduled},
	"doses":       {"list recorded doses", runDoses},
	"members":     {"list or manage family members", runMembers},
	"caregivers":  {"list or manage caregivers", runCaregivers},
	"medications": {"list or manage medications", runMedications},
	"inventory":   {"show or update stock levels", runInventory},
	"export":      {"download an export archive", runExport},
	"import":      {"import a JSON export archive", runImport},
}

// app holds what every command shares.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	net    *gateway.NetworkStatus
	api    *medapi.Client
	life   *lifecycle.Manager
	out    io.Writer
	in     *bufio.Reader
}

func main() {
	global := flag.NewFlagSet("medtrack", flag.ExitOnError)
	envFile := global.String("env", "", "env file to load (default .env)")
	apiURL := global.String("api", "", "API base URL (overrides MEDTRACK_API_URL)")
	global.Usage = usage(global)
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
	}
	a := newApp(cfg, logging.Setup(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	status := gateway.NewNetworkStatus(true)
	gw := gateway.New(gateway.Config{
		BaseURL:      cfg.APIURL,
		HTTPClient:   &http.Client{Timeout: cfg.RequestTimeout},
		Connectivity: status,
		Logger:       logging.Component(logger, "gateway"),
	})
	api := medapi.New(gw)
	a := &app{
		cfg:    cfg,
		logger: logger,
		net:    status,
		api:    api,
		out:    os.Stdout,
		in:     bufio.NewReader(os.Stdin),
	}
	a.life = lifecycle.New(api, lifecycle.ResolverFunc(a.confirmConflict), logging.Component(logger, "lifecycle"))
	return a
}

// confirmConflict asks on stdin what to do with an existing assignment.
func (a *app) confirmConflict(_ context.Context, c model.AssignmentConflict) (lifecycle.Decision, error) {
	fmt.Fprintln(a.out, c.Message)
	if c.IsActive {
		if a.confirm("Use the existing assignment?") {
			return lifecycle.Reuse, nil
		}
		return lifecycle.Cancel, nil
	}
	if a.confirm("Reactivate it?") {
		return lifecycle.Reactivate, nil
	}
	return lifecycle.Cancel, nil
}

func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", question)
	line, _ := a.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func printError(w io.Writer, err error) {
	var gerr *gateway.Error
	var verr *model.ValidationError
	var blocked *lifecycle.BlockedError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintln(w, "invalid input:", verr.Message)
	case errors.As(err, &blocked):
		fmt.Fprintf(w, "cannot delete %s %d:\n", blocked.Entity, blocked.ID)
		for _, r := range blocked.Check.Reasons() {
			fmt.Fprintln(w, "  -", r)
		}
	case errors.As(err, &gerr):
		fmt.Fprintln(w, gerr.UserMessage())
		if gerr.Remediation.Action != "" {
			fmt.Fprintln(w, gerr.Remediation.Action)
		}
	default:
		fmt.Fprintln(w, "error:", err)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: medtrack [flags] <command> [args]\n\ncommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(fs.Output(), "  %-12s %s\n", name, commands[name].summary)
		}
		fmt.Fprintf(fs.Output(), "\nflags:\n")
		fs.PrintDefaults()
	}
}
