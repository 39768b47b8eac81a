package txc

import (
	"fmt"
	"os"

	"github.com/kr/pretty"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "txc",
		Usage: "Work with TransXChange documents directly",
		Subcommands: []*cli.Command{
			{
				Name:      "inspect",
				Usage:     "parse a document and dump the typed tree",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one file argument")
					}

					file, err := os.Open(c.Args().First())
					if err != nil {
						return err
					}
					defer file.Close()

					document, err := Parse(file, ParseEverything())
					if err != nil {
						return err
					}

					pretty.Println(document)

					return nil
				},
			},
		},
	}
}
