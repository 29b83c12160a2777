package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"bilancio/internal/client"
	appcli "bilancio/internal/cli"
	"bilancio/internal/core"
	"bilancio/internal/identity"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

// session is the state shared by every command once setup ran.
type session struct {
	out      io.Writer
	storage  identity.Storage
	resolver identity.Resolver
	api      *client.Client
	ledger   *client.Ledger
	opts     report.Options
	now      func() time.Time
}

func (s *session) setup(c *cli.Context) error {
	logger := appcli.SetupLogger(c.String("log-level"), "text", os.Stderr)
	if s.now == nil {
		s.now = time.Now
	}

	path := c.String("state-file")
	if path == "" {
		var err error
		if path, err = identity.DefaultStatePath(); err != nil {
			return err
		}
	}
	s.storage = identity.NewFileStorage(path)

	if owner := strings.TrimSpace(c.String("owner")); owner != "" {
		s.resolver = identity.Fixed(owner)
	} else {
		s.resolver = identity.NewSession(s.storage)
	}

	api, err := client.New(c.String("api"), s.resolver,
		client.WithIdentityHeader(c.String("identity-header")),
		client.WithLogger(logger))
	if err != nil {
		return err
	}
	s.api = api
	s.ledger = client.NewLedger(api)
	// color.NoColor already accounts for NO_COLOR and a non-terminal stdout.
	s.opts = report.Options{Color: !c.Bool("no-color") && !color.NoColor && s.out == io.Writer(os.Stdout)}
	return nil
}

func (s *session) commands() []*cli.Command {
	draftFlags := []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "day of the transaction, YYYY-MM-DD (default: today)"},
		&cli.StringFlag{Name: "amount", Usage: "amount, dot or comma decimals"},
		&cli.StringFlag{Name: "category", Usage: "free text category"},
		&cli.StringFlag{Name: "note", Usage: "free text note"},
		&cli.StringFlag{Name: "type", Usage: "income or expense"},
	}

	return []*cli.Command{
		{
			Name:   "whoami",
			Usage:  "print the owner key sent with every request",
			Action: s.whoami,
		},
		{
			Name:   "new-session",
			Usage:  "replace the stored session id with a fresh one from the server",
			Action: s.newSession,
		},
		{
			Name:   "list",
			Usage:  "list all transactions, most recent first",
			Action: s.list,
		},
		{
			Name:   "add",
			Usage:  "record a new transaction",
			Flags:  draftFlags,
			Action: s.add,
		},
		{
			Name:      "edit",
			Usage:     "change a transaction; unset flags keep their current value",
			ArgsUsage: "[options] ID",
			Flags:     draftFlags,
			Action:    s.edit,
		},
		{
			Name:      "delete",
			Usage:     "delete a transaction",
			ArgsUsage: "ID",
			Action:    s.delete,
		},
		{
			Name:  "summary",
			Usage: "show the dashboard for one month",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "year", Usage: "year, within three years of the current one"},
				&cli.IntFlag{Name: "month", Usage: "month number 1-12"},
				&cli.StringFlag{Name: "view", Value: string(core.TypeExpense), Usage: "breakdown of income or expense"},
				&cli.StringFlag{Name: "category", Usage: "only list transactions in this category"},
			},
			Action: s.summary,
		},
		{
			Name:   "categories",
			Usage:  "print suggested categories",
			Action: s.categories,
		},
	}
}

func (s *session) whoami(c *cli.Context) error {
	key, err := s.resolver.Resolve(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, key)
	return nil
}

func (s *session) newSession(c *cli.Context) error {
	if c.IsSet("owner") {
		return errors.New("--owner overrides the session id; unset it to manage sessions")
	}
	id, err := s.api.NewSession(c.Context)
	if err != nil {
		return err
	}
	if err := s.storage.Set(c.Context, identity.StorageKey, id); err != nil {
		return err
	}
	fmt.Fprintln(s.out, id)
	return nil
}

func (s *session) list(c *cli.Context) error {
	if err := s.ledger.Load(c.Context); err != nil {
		return err
	}
	return report.Transactions(s.out, s.ledger.Items(), s.options())
}

func (s *session) add(c *cli.Context) error {
	d, err := draftFromFlags(c, core.Draft{Date: today(s.now())})
	if err != nil {
		return err
	}
	created, err := s.ledger.Add(c.Context, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s\n", created.ID)
	return nil
}

func (s *session) edit(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	if err := s.ledger.Load(c.Context); err != nil {
		return err
	}
	current, ok := s.ledger.Find(id)
	if !ok {
		return core.ErrNotFound
	}
	d, err := draftFromFlags(c, core.DraftOf(current))
	if err != nil {
		return err
	}
	if _, err := s.ledger.Edit(c.Context, id, d); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %s\n", id)
	return nil
}

func (s *session) delete(c *cli.Context) error {
	id, err := requireID(c)
	if err != nil {
		return err
	}
	if err := s.ledger.Remove(c.Context, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted %s\n", id)
	return nil
}

func (s *session) summary(c *cli.Context) error {
	q, err := monthQuery(c.Int("year"), c.Int("month"), c.String("view"), c.String("category"), s.now())
	if err != nil {
		return err
	}
	view, err := s.api.Summary(c.Context, q)
	if err != nil {
		return err
	}
	return report.Month(s.out, view, s.options())
}

func (s *session) categories(*cli.Context) error {
	for _, typ := range []core.Type{core.TypeExpense, core.TypeIncome} {
		fmt.Fprintf(s.out, "%s: %s\n", typ, strings.Join(core.SuggestedCategories[typ], ", "))
	}
	return nil
}

func (s *session) options() report.Options {
	opts := s.opts
	opts.Now = s.now()
	return opts
}

// draftFromFlags overlays the flags that were set on base.
func draftFromFlags(c *cli.Context, base core.Draft) (core.Draft, error) {
	d := base
	if c.IsSet("date") {
		date, err := core.ParseDate(c.String("date"))
		if err != nil {
			return d, err
		}
		d.Date = date
	}
	if c.IsSet("amount") {
		amount, err := core.ParseAmount(c.String("amount"))
		if err != nil {
			return d, err
		}
		d.Amount = &amount
	}
	if c.IsSet("category") {
		d.Category = c.String("category")
	}
	if c.IsSet("note") {
		d.Note = c.String("note")
	}
	if c.IsSet("type") {
		d.Type = core.Type(strings.ToLower(strings.TrimSpace(c.String("type"))))
	}
	d = d.Normalize()
	return d, d.Validate()
}

// monthQuery builds a summary query. Zero year or month mean the current one.
func monthQuery(year, month int, view, category string, now time.Time) (services.MonthQuery, error) {
	if year == 0 {
		year = now.Year()
	}
	if !slices.Contains(core.YearOptions(now.Year()), year) {
		return services.MonthQuery{}, fmt.Errorf("year must be between %d and %d", now.Year()-3, now.Year()+3)
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return services.MonthQuery{}, fmt.Errorf("month must be between 1 and 12")
	}
	v := core.Type(strings.ToLower(strings.TrimSpace(view)))
	if v == "" {
		v = core.TypeExpense
	}
	if !v.Valid() {
		return services.MonthQuery{}, fmt.Errorf("view must be income or expense")
	}
	return services.MonthQuery{Year: year, Month: time.Month(month), View: v, Category: category}, nil
}

func requireID(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("missing transaction ID")
	}
	return id, nil
}

func today(now time.Time) core.Date {
	return core.NewDate(now.Year(), int(now.Month()), now.Day())
}
