package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jrsteele09/bizdesk/api"
	"github.com/jrsteele09/bizdesk/internal/errors"
	"github.com/jrsteele09/bizdesk/router"
)

var (
	errUsage       = errors.New("invalid usage")
	errNotLoggedIn = errors.Wrapf(errors.ErrNoSession, "run `bizdesk login` first")
)

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: bizdesk <command> [arguments]

Commands:
  login -u <username> -p <password>
  register -u <username> -p <password> [-e <email>]
  logout
  status
  dashboard
  clients    list | get <id> | delete <id> | create -f <file> | update <id> -f <file>
  quotations list | get <id> | delete <id> | create -f <file> | update <id> -f <file> | email <id>
  receipts   list | get <id> | delete <id> | create -f <file> | update <id> -f <file> | email <id>
  items      list
`)
}

func (a *app) dispatch(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "login":
		return a.login(ctx, args, out)
	case "register":
		return a.register(ctx, args, out)
	case "logout":
		return a.logout(out)
	case "status":
		return a.status(out)
	case "dashboard":
		return a.dashboard(ctx, out)
	case "clients":
		return runResource(ctx, a, a.clientCommands(), args, out)
	case "quotations":
		return runResource(ctx, a, a.quotationCommands(), args, out)
	case "receipts":
		return runResource(ctx, a, a.receiptCommands(), args, out)
	case "items":
		return a.items(ctx, args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	}
	printUsage(out)
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

func (a *app) login(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)
	username := fs.String("u", "", "Username")
	password := fs.String("p", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: login needs -u and -p", errUsage)
	}

	if _, err := a.client.Login(ctx, *username, *password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s\n", *username)
	return nil
}

func (a *app) register(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(out)
	username := fs.String("u", "", "Username")
	password := fs.String("p", "", "Password")
	email := fs.String("e", "", "Email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: register needs -u and -p", errUsage)
	}

	resp, err := a.client.Auth.Register(ctx, api.Registration{Username: *username, Password: *password, Email: *email})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (user id %d)\n", resp.Message, resp.UserID)
	return nil
}

func (a *app) logout(out io.Writer) error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	a.store.ClearAllData()
	fmt.Fprintln(out, "Logged out")
	return nil
}

func (a *app) status(out io.Writer) error {
	displayAppname(out, a.config.GetAppName())

	fmt.Fprintf(out, "Backend:  %s\n", a.config.GetBaseURL())
	token := a.session.Token()
	if token == nil {
		fmt.Fprintln(out, "Session:  not logged in")
		return nil
	}
	fmt.Fprintln(out, "Session:  logged in")
	if !token.Expiry.IsZero() {
		state := "valid"
		if !token.Valid() {
			state = "expired, will refresh on next request"
		}
		fmt.Fprintf(out, "Expires:  %s (%s)\n", token.Expiry.Local().Format("2006-01-02 15:04:05"), state)
	}
	fmt.Fprintf(out, "Refresh:  %t\n", token.RefreshToken != "")
	return nil
}

func (a *app) dashboard(ctx context.Context, out io.Writer) error {
	if err := a.enter(ctx, router.RouteDashboard); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Clients\t%d\n", len(a.store.Clients()))
	fmt.Fprintf(w, "Quotations\t%d\n", len(a.store.Quotations()))
	fmt.Fprintf(w, "Pending quotations\t%d\n", len(a.store.PendingQuotations()))
	fmt.Fprintf(w, "Receipts\t%d\n", len(a.store.Receipts()))
	fmt.Fprintf(w, "Total revenue\t%.2f\n", a.store.TotalRevenue())
	if err := w.Flush(); err != nil {
		return err
	}

	recent := a.store.RecentClients()
	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(out, "\nRecent clients:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range recent {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (a *app) items(ctx context.Context, args []string, out io.Writer) error {
	if len(args) != 1 || args[0] != "list" {
		return fmt.Errorf("%w: items supports only list", errUsage)
	}
	if err := a.enter(ctx, router.RouteItems); err != nil {
		return err
	}
	return writeJSON(out, a.store.Items())
}

// enter navigates to route and fails when the guard sends the user to the login page
func (a *app) enter(ctx context.Context, route string) error {
	decision, err := a.guard.Navigate(ctx, route)
	if decision.Path == router.RouteLogin {
		return errNotLoggedIn
	}
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
