package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jrsteele09/bizdesk/model"
	"github.com/jrsteele09/bizdesk/router"
)

// resourceCommands binds the CLI verbs of one resource to the store
type resourceCommands[T model.Identifiable] struct {
	name   string
	route  string
	list   func() []T
	byID   func(id int64) (T, bool)
	get    func(ctx context.Context, id int64) (T, error)
	create func(ctx context.Context, record T) (T, error)
	update func(ctx context.Context, id int64, record T) (T, error)
	remove func(ctx context.Context, id int64) error
	email  func(ctx context.Context, id int64) (string, error)
}

func (a *app) clientCommands() resourceCommands[model.Client] {
	return resourceCommands[model.Client]{
		name:   "clients",
		route:  router.RouteClients,
		list:   a.store.Clients,
		byID:   a.store.ClientByID,
		get:    a.client.Clients.Get,
		create: a.store.CreateClient,
		update: a.store.UpdateClient,
		remove: a.store.DeleteClient,
	}
}

func (a *app) quotationCommands() resourceCommands[model.Quotation] {
	return resourceCommands[model.Quotation]{
		name:   "quotations",
		route:  router.RouteQuotations,
		list:   a.store.Quotations,
		byID:   a.store.QuotationByID,
		get:    a.client.Quotations.Get,
		create: a.store.CreateQuotation,
		update: a.store.UpdateQuotation,
		remove: a.store.DeleteQuotation,
		email:  a.store.SendQuotationEmail,
	}
}

func (a *app) receiptCommands() resourceCommands[model.Receipt] {
	return resourceCommands[model.Receipt]{
		name:   "receipts",
		route:  router.RouteReceipts,
		list:   a.store.Receipts,
		byID:   a.store.ReceiptByID,
		get:    a.client.Receipts.Get,
		create: a.store.CreateReceipt,
		update: a.store.UpdateReceipt,
		remove: a.store.DeleteReceipt,
		email:  a.store.SendReceiptEmail,
	}
}

func runResource[T model.Identifiable](ctx context.Context, a *app, rc resourceCommands[T], args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: %s needs a subcommand", errUsage, rc.name)
	}
	verb, rest := args[0], args[1:]

	if err := a.enter(ctx, rc.route); err != nil {
		return err
	}

	switch verb {
	case "list":
		return writeJSON(out, rc.list())

	case "get":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		record, ok := rc.byID(id)
		if !ok {
			// not cached yet, ask the backend directly
			if record, err = rc.get(ctx, id); err != nil {
				return err
			}
		}
		return writeJSON(out, record)

	case "delete":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		if err := rc.remove(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d\n", id)
		return nil

	case "create":
		record, err := readRecord[T]("create", rest)
		if err != nil {
			return err
		}
		created, err := rc.create(ctx, record)
		if err != nil {
			return err
		}
		return writeJSON(out, created)

	case "update":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		record, err := readRecord[T]("update", rest[1:])
		if err != nil {
			return err
		}
		updated, err := rc.update(ctx, id, record)
		if err != nil {
			return err
		}
		return writeJSON(out, updated)

	case "email":
		if rc.email == nil {
			break
		}
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		msg, err := rc.email(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
		return nil
	}
	return fmt.Errorf("%w: unknown %s subcommand %q", errUsage, rc.name, verb)
}

func parseID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%w: missing id", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, args[0])
	}
	return id, nil
}

// readRecord decodes the JSON file named by -f
func readRecord[T any](verb string, args []string) (T, error) {
	var record T
	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("f", "", "JSON file holding the record")
	if err := fs.Parse(args); err != nil {
		return record, fmt.Errorf("%w: %w", errUsage, err)
	}
	if *file == "" {
		return record, fmt.Errorf("%w: %s needs -f <file>", errUsage, verb)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return record, fmt.Errorf("failed to read %s: %w", *file, err)
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to parse %s: %w", *file, err)
	}
	return record, nil
}
