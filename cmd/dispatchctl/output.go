package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"pickup-dispatch/dispatch/internal/aggregator"
	"pickup-dispatch/dispatch/internal/models/entities"
	"pickup-dispatch/dispatch/internal/services"
)

func nopLogger() *zap.Logger { return zap.NewNop() }

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUser(out io.Writer, u *entities.User, asJSON bool) error {
	if asJSON {
		return printJSON(out, u)
	}
	fmt.Fprintf(out, "%s (%s)\nrole: %s\nkarma: %d\n", u.Name, u.ID, u.UserType, u.Karma)
	return nil
}

func printResult(out io.Writer, res *services.CommandResult) {
	status := "ok"
	if !res.OK {
		status = "declined"
	}
	fmt.Fprintf(out, "%s %s: %s\n", res.Action, res.TargetID, status)
	if len(res.Routing) > 0 {
		fmt.Fprintf(out, "routing: %s\n", res.Routing)
	}
}

// printView prints alerts for volunteers and requests with acceptance counts for managers.
func printView(out io.Writer, v aggregator.View, manager, asJSON bool) error {
	if asJSON {
		return printJSON(out, v)
	}
	if v.ListError != "" {
		fmt.Fprintf(out, "could not load requests: %s\n", v.ListError)
		return nil
	}
	if len(v.Alerts) == 0 {
		fmt.Fprintln(out, "none")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if manager {
		fmt.Fprintln(tw, "REQUEST\tPICKUP POINT\tACCEPTED")
		for _, a := range v.Alerts {
			accepted := "unknown"
			if a.ResponsesKnown {
				accepted = fmt.Sprintf("%d/%d", a.AcceptCount, a.ResponseCount)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Request.ID, a.PickupName, accepted)
		}
	} else {
		fmt.Fprintln(tw, "REQUEST\tPICKUP POINT\tLOCATION")
		for _, a := range v.Alerts {
			location := "-"
			if a.PickupPoint != nil && a.PickupPoint.Location != "" {
				location = a.PickupPoint.Location
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Request.ID, a.PickupName, location)
		}
	}
	return tw.Flush()
}

func printActions(out io.Writer, logs []entities.ActionLog, asJSON bool) error {
	if asJSON {
		return printJSON(out, logs)
	}
	if len(logs) == 0 {
		fmt.Fprintln(out, "none")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tUSER\tACTION\tTARGET\tOUTCOME")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", l.CreatedAt.Local().Format(time.DateTime), l.UserID, l.Action, l.TargetID, l.Outcome)
	}
	return tw.Flush()
}
