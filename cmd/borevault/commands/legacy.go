package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/strataworks/borevault/internal/schema"
	"github.com/strataworks/borevault/internal/versioned"
)

// LegacyCmd groups operations on the pre-records borelog layout
// (projects/{p}/borelogs/{b}/metadata.json with a versions[] array).
type LegacyCmd struct {
	Approve LegacyApproveCmd `cmd:"" help:"Approve one legacy borelog version"`
	Latest  LegacyLatestCmd  `cmd:"" help:"Print the rows of the latest approved legacy version"`
}

// LegacyApproveCmd implements 'legacy approve'.
type LegacyApproveCmd struct {
	Project string `short:"p" required:"" help:"Project id"`
	Borelog string `short:"b" required:"" help:"Borelog id"`
	Version int    `required:"" help:"Version number to approve"`
	User    string `short:"u" required:"" help:"Approving user"`
}

func (l *LegacyApproveCmd) Run(root *CLI) error {
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

	doc, err := versioned.NewLegacyStore(store).ApproveVersion(ctx, l.Project, l.Borelog, l.Version, l.User)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

// LegacyLatestCmd implements 'legacy latest'.
type LegacyLatestCmd struct {
	Project string `short:"p" required:"" help:"Project id"`
	Borelog string `short:"b" required:"" help:"Borelog id"`
	Table   string `short:"t" default:"borelog_versions" help:"Table schema the data file was written with"`
}

func (l *LegacyLatestCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	sch, ok := schema.Lookup(l.Table)
	if !ok {
		return fmt.Errorf("no schema found for table: %s", l.Table)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	rows, version, err := versioned.NewLegacyStore(store).LatestApproved(ctx, l.Project, l.Borelog, sch)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(map[string]any{
		"version": version,
		"rows":    rows,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
