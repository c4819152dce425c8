package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/strataworks/borevault/internal/sweep"
)

// SweepCmd implements the 'sweep' command.
type SweepCmd struct{}

func (s *SweepCmd) Run(root *CLI) error {
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

	report, err := sweep.New(store, cfg.Storage.BasePath, nil).Run(ctx)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	if len(report.Findings) > 0 {
		return fmt.Errorf("sweep found %d integrity problem(s)", len(report.Findings))
	}
	return nil
}
