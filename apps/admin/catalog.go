package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aspirecraft/enrolment/apps/shared"
	"github.com/aspirecraft/enrolment/core/catalog"
)

func (cli *commandLine) catalogCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load the reference data and print a summary",
		Long: `Load the countries, nationalities, subject areas and CPD course catalog,
from --dir when given or from the configured resources otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				cli.conf.Resources.Dir = dir
			}
			cat, err := catalog.Load(shared.ResourcesFS(cli.conf))
			if err != nil {
				return err
			}
			cli.printCatalog(cat)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Reference data directory (overrides resources.dir)")
	return cmd
}

func (cli *commandLine) printCatalog(cat *catalog.Catalog) {
	var courses int
	for _, c := range cat.Categories() {
		courses += len(cat.Courses(c))
	}
	fmt.Fprintf(cli.out, "countries:      %d\n", len(cat.CountryNames()))
	fmt.Fprintf(cli.out, "nationalities:  %d\n", len(cat.Nationalities()))
	fmt.Fprintf(cli.out, "subject areas:  %d\n", len(cat.SubjectAreas()))
	fmt.Fprintf(cli.out, "CPD categories: %d\n", len(cat.Categories()))
	fmt.Fprintf(cli.out, "CPD courses:    %d\n", courses)
}
