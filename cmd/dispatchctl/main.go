// Command dispatchctl drives the dispatch backend from a terminal with the
// credential kept in the local settings database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pickup-dispatch/dispatch/internal/api"
	"pickup-dispatch/dispatch/internal/config"
	"pickup-dispatch/dispatch/internal/logging"
	"pickup-dispatch/dispatch/internal/services"
)

const usage = `usage: dispatchctl [flags] <command> [argument]

commands:
  set-key <key>          store the API credential
  clear-key              forget the API credential
  me                     show the signed-in user
  alerts                 show volunteer job alerts
  requests               show active requests (managers)
  accept <requestID>     accept a pickup request
  deny <requestID>       deny a pickup request
  delete <requestID>     delete a pickup request (managers)
  route <requestID>      execute routing for a request (managers)
  create <pickupPointID> create a request for a pickup point (managers)
  location <text>        report your location
  actions                list recent commands (managers)
  history                list your own recent commands

flags:
`

func main() {
	cfg := config.Load()

	dbDriver := flag.String("db-driver", cfg.DB.Driver, "database driver (sqlite or postgres)")
	dbDSN := flag.String("db", cfg.DB.DSN, "database DSN")
	baseURL := flag.String("base-url", cfg.Dispatch.BaseURL, "dispatch backend base URL")
	wait := flag.Duration("wait", 30*time.Second, "how long to wait for the board to load")
	asJSON := flag.Bool("json", false, "print JSON instead of a table")
	verbose := flag.Bool("v", false, "log to stderr")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		if err := logging.Init(cfg.Server.Env, "debug"); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		logging.UseLogger(nopLogger())
	}
	defer logging.Close()

	cfg.DB.Driver = *dbDriver
	cfg.DB.DSN = *dbDSN
	cfg.Dispatch.BaseURL = *baseURL
	cfg.Redis.Host = ""

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := api.InitDependencies(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to open settings database: %v", err)
	}
	defer deps.Close()

	c := &cli{
		creds:  deps.Services.Credentials,
		dash:   deps.Services.Dashboard,
		out:    os.Stdout,
		wait:   *wait,
		asJSON: *asJSON,
	}
	if err := c.run(ctx, flag.Arg(0), strings.Join(flag.Args()[1:], " ")); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type cli struct {
	creds  *services.CredentialService
	dash   *services.DashboardService
	out    io.Writer
	wait   time.Duration
	asJSON bool
}

var errArgument = errors.New("missing argument")

func (c *cli) run(ctx context.Context, cmd, arg string) error {
	switch cmd {
	case "set-key":
		if arg == "" {
			return fmt.Errorf("%w: set-key <key>", errArgument)
		}
		if err := c.creds.SetCredential(ctx, arg); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Credential stored")
		return nil
	case "clear-key":
		if err := c.creds.ClearCredential(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Credential cleared")
		return nil
	case "me":
		client, err := c.creds.NewClient(ctx)
		if err != nil {
			return err
		}
		user, err := client.Me(ctx)
		if err != nil {
			return err
		}
		return printUser(c.out, user, c.asJSON)
	}

	ws, err := c.workspace(ctx)
	if err != nil {
		return err
	}

	var res *services.CommandResult
	switch cmd {
	case "alerts":
		if ws.User.IsManager() {
			return fmt.Errorf("alerts are for volunteers, use requests")
		}
	case "requests":
		if !ws.User.IsManager() {
			return services.ErrManagerOnly
		}
	case "actions":
		logs, err := c.dash.RecentActions(ctx, ws, 0)
		if err != nil {
			return err
		}
		return printActions(c.out, logs, c.asJSON)
	case "history":
		logs, err := c.dash.UserActions(ctx, ws, 0)
		if err != nil {
			return err
		}
		return printActions(c.out, logs, c.asJSON)
	case "accept", "deny", "delete", "route":
		if arg == "" {
			return fmt.Errorf("%w: %s <requestID>", errArgument, cmd)
		}
		res, err = c.requestCommand(ctx, ws, cmd, arg)
	case "create":
		res, err = c.dash.Create(ctx, ws, arg)
	case "location":
		if arg == "" {
			return fmt.Errorf("%w: location <text>", errArgument)
		}
		res, err = c.dash.ReportLocation(ctx, ws, arg)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}
	if res != nil {
		printResult(c.out, res)
	}

	return c.reloadAndPrint(ctx, ws, res)
}

func (c *cli) requestCommand(ctx context.Context, ws *services.Workspace, cmd, id string) (*services.CommandResult, error) {
	switch cmd {
	case "accept":
		return c.dash.Accept(ctx, ws, id)
	case "deny":
		return c.dash.Deny(ctx, ws, id)
	case "delete":
		return c.dash.Delete(ctx, ws, id)
	default:
		return c.dash.Route(ctx, ws, id)
	}
}

func (c *cli) workspace(ctx context.Context) (*services.Workspace, error) {
	key, err := c.creds.Credential(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.New("no credential stored, run dispatchctl set-key <key> first")
	}
	return c.dash.WorkspaceForKey(ctx, key)
}

// reloadAndPrint prints the board once it is ready. Read-only commands wait
// on the cycle already running; commands wait on the reload they triggered,
// or start one.
func (c *cli) reloadAndPrint(ctx context.Context, ws *services.Workspace, res *services.CommandResult) error {
	waitCtx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()

	var err error
	switch {
	case res == nil:
		_, err = ws.Board.WaitReady(waitCtx, ws.Board.EnsureLoaded())
	case res.Reloaded > 0:
		_, err = ws.Board.WaitReady(waitCtx, res.Reloaded)
	default:
		_, err = ws.Board.ReloadAndWait(waitCtx, "cli")
	}
	if err != nil {
		return fmt.Errorf("board did not load: %w", err)
	}

	return printView(c.out, ws.View(), ws.User.IsManager(), c.asJSON)
}

