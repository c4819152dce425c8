package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/strataworks/borevault/internal/dispatch"
	"github.com/strataworks/borevault/internal/repository"
)

// CallCmd implements the 'call' command: a local invoke of the dispatcher
// with a request envelope read from a file or stdin.
type CallCmd struct {
	Event string `arg:"" optional:"" help:"JSON event file; '-' or omitted reads stdin"`
}

func (c *CallCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	var raw []byte
	if c.Event == "" || c.Event == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(c.Event)
	}
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	_, storage := openStorage(store, cfg, nil)

	d := dispatch.New(repository.NewRepository(storage), store, nil)
	resp := d.HandleEvent(ctx, raw)

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}
