package main

import (
	"github.com/alecthomas/kong"

	"github.com/strataworks/borevault/cmd/borevault/commands"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("borevault"),
		kong.Description("Immutable versioned storage for geotechnical records over columnar object storage."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
