package main

import (
	"context"
	"fmt"
	"os"
	"time"

	ucli "github.com/urfave/cli/v2"

	"revdash/internal/cli"
	"revdash/internal/log"
)

// revdash-import seeds the SQLite backend from the CSV files the memory
// backend reads.
func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentStorage)

	app := &ucli.App{
		Name:  "revdash-import",
		Usage: "load records.csv and bank_accounts.csv into a SQLite database",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:  "dir",
				Value: cfg.DataDir,
				Usage: "directory holding records.csv and bank_accounts.csv",
			},
			&ucli.StringFlag{
				Name:  "db",
				Value: cfg.SQLiteDBPath,
				Usage: "SQLite database to import into",
			},
			&ucli.DurationFlag{
				Name:  "timeout",
				Value: 5 * time.Minute,
				Usage: "abort the import after this long",
			},
		},
		Action: func(c *ucli.Context) error {
			dir, dbPath := c.String("dir"), c.String("db")
			repo := cli.InitSQLite(logger, dbPath)
			defer repo.Close()

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			res, err := cli.ImportDataDir(ctx, repo, dir)
			if err != nil {
				return fmt.Errorf("import %s into %s: %w", dir, dbPath, err)
			}
			logger.Info("Import complete",
				log.FieldRecords, res.Records,
				log.FieldBankRecords, res.BankAccounts,
				"db", dbPath)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
}
