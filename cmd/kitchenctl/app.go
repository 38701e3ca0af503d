package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/setup"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/auth"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/urfave/cli/v2"
)

// session is what the Before hook builds for a command to run against
type session struct {
	cfg      *config.Config
	loc      *time.Location
	store    *setup.Store
	closeLck func() error
	svc      *service.SheetService
}

func (s *session) close() error {
	if s.store == nil {
		return nil
	}
	if s.closeLck != nil {
		s.closeLck()
	}
	return s.store.Close()
}

func newApp(out, errOut io.Writer) *cli.App {
	s := &session{}

	return &cli.App{
		Name:      "kitchenctl",
		Usage:     "Run the kitchen sheet rules from the command line",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "workbook",
				Usage:   "Run against this .xlsx workbook instead of the configured store",
				EnvVars: []string{"KITCHEN_STORE_WORKBOOK_PATH"},
			},
			&cli.IntFlag{
				Name:  "slots",
				Usage: "Number of channel drop-downs on the production sheet (1 or 2)",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "IANA timezone batch dates are taken in",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level",
				Value: "warn",
			},
		},
		Before: func(c *cli.Context) error {
			return s.open(c)
		},
		After: func(c *cli.Context) error {
			return s.close()
		},
		Commands: []*cli.Command{
			{
				Name:  "reclassify",
				Usage: "Recolour every inventory row against its par level",
				Action: func(c *cli.Context) error {
					styled, err := s.svc.OnLoad(c.Context)
					if err != nil {
						return err
					}
					return printJSON(c, map[string]int{"styled": styled})
				},
			},
			{
				Name:  "edit",
				Usage: "Apply one cell edit as if it came from the spreadsheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sheet", Usage: "Sheet name", Required: true},
					&cli.IntFlag{Name: "row", Usage: "1-based row", Required: true},
					&cli.IntFlag{Name: "column", Usage: "1-based column", Required: true},
					&cli.StringFlag{Name: "value", Usage: "New cell value"},
				},
				Action: func(c *cli.Context) error {
					result, err := s.svc.HandleEdit(c.Context, messaging.SheetEditEvent{
						Sheet:  c.String("sheet"),
						Row:    c.Int("row"),
						Column: c.Int("column"),
						Value:  c.String("value"),
					})
					if err != nil {
						return err
					}
					return printJSON(c, result)
				},
			},
			{
				Name:  "batch-code",
				Usage: "Preview the batch code a new production row would get",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true},
					&cli.StringFlag{Name: "selection", Usage: "Channel drop-down value, e.g. 101-D9", Required: true},
					&cli.StringFlag{Name: "date", Usage: "Production date, defaults to now"},
				},
				Action: func(c *cli.Context) error {
					var date time.Time
					if raw := c.String("date"); raw != "" {
						parsed := repository.ParseCellDate(raw, s.loc)
						if parsed == nil {
							return errors.BadRequest("invalid date: " + raw)
						}
						date = *parsed
					}
					preview, err := s.svc.PreviewBatchCode(c.Context, c.String("product"), c.String("selection"), date)
					if err != nil {
						return err
					}
					return printJSON(c, preview)
				},
			},
			{
				Name:  "options",
				Usage: "Show the channel drop-down options for a product",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Required: true},
				},
				Action: func(c *cli.Context) error {
					slots, err := s.svc.PreviewOptions(c.Context, c.String("product"))
					if err != nil {
						return err
					}
					return printJSON(c, slots)
				},
			},
			{
				Name:  "token",
				Usage: "Issue a host token signed with the configured secret",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "Host identity put in the token subject", Value: "apps-script"},
					&cli.StringFlag{Name: "workbook-name", Usage: "Workbook the host serves"},
				},
				Action: func(c *cli.Context) error {
					token, expiry, err := auth.NewHostTokens(&s.cfg.Auth).Issue(c.String("host"), c.String("workbook-name"))
					if err != nil {
						return err
					}
					return printJSON(c, map[string]interface{}{
						"token":      token,
						"expires_at": expiry.UTC(),
					})
				},
			},
		},
	}
}

func (s *session) open(c *cli.Context) error {
	cfg, err := config.Load("kitchenctl")
	if err != nil {
		return err
	}
	if path := c.String("workbook"); path != "" {
		cfg.Store.Driver = config.StoreWorkbook
		cfg.Store.WorkbookPath = path
	}
	if c.IsSet("slots") {
		cfg.Kitchen.Slots = c.Int("slots")
	}
	if c.IsSet("timezone") {
		cfg.Kitchen.Timezone = c.String("timezone")
	}
	if err := cfg.Kitchen.Validate(); err != nil {
		return err
	}

	log := logger.NewConsole("kitchenctl", c.String("log-level"), c.App.ErrWriter)

	loc, err := cfg.Kitchen.Location()
	if err != nil {
		return err
	}
	layout, err := repository.LayoutFromConfig(cfg.Kitchen)
	if err != nil {
		return err
	}
	opts, err := service.OptionsFromConfig(cfg.Kitchen)
	if err != nil {
		return err
	}

	store, err := setup.OpenStore(c.Context, cfg, layout, loc, log)
	if err != nil {
		return err
	}
	locker, closeLocker, err := setup.NewLocker(c.Context, &cfg.Redis, log)
	if err != nil {
		store.Close()
		return err
	}

	s.cfg, s.loc, s.store, s.closeLck = cfg, loc, store, closeLocker
	s.svc = service.NewSheetService(store.Store, layout, opts, locker, nil, log)
	return nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
