// logicproc runs worlds of logic processors.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/logicproc/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var (
	verboseFlag = cli.IntFlag{
		Name:  "verbose, v",
		Usage: "log verbosity (0 errors only, 4 debug)",
		Value: 1,
	}
	logFileFlag = cli.StringFlag{
		Name:  "log",
		Usage: "write logs to `FILE` instead of stderr",
	}
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "world manifest `FILE` (default: logicproc.toml found from the working directory up)",
	}
	noColorFlag = cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable ANSI colour in listings",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "logicproc"
	app.Usage = "assemble, run and serve logic processor worlds"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{verboseFlag, logFileFlag, configFlag, noColorFlag}
	app.Before = func(ctx *cli.Context) error {
		var path *string
		if p := ctx.GlobalString(logFileFlag.Name); p != "" {
			path = &p
		}
		commonlog.Configure(ctx.GlobalInt("verbose"), path)
		return nil
	}
	app.Commands = []cli.Command{
		checkCommand,
		disasmCommand,
		runCommand,
		serveCommand,
		savesCommand,
		lspCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadManifest reads --config, or searches from the working directory.
// Without either, the default world is used.
func loadManifest(ctx *cli.Context) (*manifest.Manifest, error) {
	if path := ctx.GlobalString("config"); path != "" {
		return manifest.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
		m.Dir = wd
	}
	return m, nil
}

// configureColor turns listing colour off for --no-color. Terminal
// detection and NO_COLOR are handled by the color package.
func configureColor(ctx *cli.Context) {
	if ctx.GlobalBool("no-color") {
		color.NoColor = true
	}
}
