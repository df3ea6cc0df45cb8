package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "vault-dump"
	app.Usage = "Inspect, save and audit the custody vault state"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to the YAML configuration file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "show",
			Usage:  "Print the vault state as JSON",
			Flags:  []cli.Flag{allFlag},
			Action: showAction,
		},
		{
			Name:  "dump",
			Usage: "Save the vault state and raw storage items into the directory",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir",
					Usage: "Directory to save the dump into",
					Value: "testdata",
				},
				cli.StringFlag{
					Name:  "label",
					Usage: "Label of the environment (e.g. 'staging')",
				},
			},
			Action: dumpAction,
		},
		{
			Name:  "audit",
			Usage: "Report balance mirrors differing from custody accounts, exit with 1 if any",
			Flags: []cli.Flag{
				allFlag,
				cli.StringFlag{
					Name:  "dir",
					Usage: "Audit dumps from the directory instead of the configured store",
				},
			},
			Action: auditAction,
		},
	}

	return app
}
