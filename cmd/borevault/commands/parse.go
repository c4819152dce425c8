package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/strataworks/borevault/internal/borelog"
)

// ParseCmd implements the 'parse' command. It runs entirely locally, no
// store involved.
type ParseCmd struct {
	File string `arg:"" help:"Borelog document (.csv or .xlsx)" type:"existingfile"`
}

func (p *ParseCmd) Run(root *CLI) error {
	if _, err := loadConfig(root); err != nil {
		return err
	}

	data, err := os.ReadFile(p.File)
	if err != nil {
		return err
	}

	var rows borelog.RowReader
	if ext := strings.ToLower(filepath.Ext(p.File)); ext == ".xlsx" || ext == ".xls" {
		sheetRows, err := borelog.ReadXLSXRows(data)
		if err != nil {
			return err
		}
		rows = borelog.NewSliceRowReader(sheetRows)
	} else {
		rows = borelog.NewCSVRowReader(bytes.NewReader(data))
	}

	metadata, strata, err := borelog.ParseDocument(rows)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"metadata": metadata,
		"strata":   strata,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
