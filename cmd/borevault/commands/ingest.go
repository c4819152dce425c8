package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/strataworks/borevault/internal/ingest"
)

// IngestCmd implements the 'ingest' command.
type IngestCmd struct {
	File       string `arg:"" help:"CSV file to load" type:"existingfile"`
	Table      string `short:"t" required:"" help:"Target table name"`
	Record     string `short:"r" help:"Record id to create or update; omitted means a one-shot file write"`
	User       string `short:"u" default:"cli" help:"User recorded in the version history"`
	Comment    string `help:"History comment; a default is generated when empty"`
	SkipErrors bool   `help:"Store the valid rows and report the invalid ones instead of stopping at the first error"`
}

func (i *IngestCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	eng, storage := openStorage(store, cfg, nil)

	result, err := ingest.New(eng, storage, nil).IngestFile(ctx, i.File, ingest.Options{
		TableName:  i.Table,
		RecordID:   i.Record,
		CreatedBy:  i.User,
		Comment:    i.Comment,
		SkipErrors: i.SkipErrors,
	})
	if result != nil {
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(os.Stdout, string(out))
	}
	return err
}
