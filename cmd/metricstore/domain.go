package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kylerisse/metricstore/pkg/domain"
	"github.com/spf13/cobra"
)

func newDomainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Work with metric domains",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the canonical form and id of the domains in a JSON file",
		Long: `Reads a JSON file holding one domain object or an array of them and prints
each distinct domain with its id. Domains that compare equal are printed once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := readDomains(args[0])
			if err != nil {
				return err
			}
			set := domain.NewSet(domains...)
			out := cmd.OutOrStdout()
			for _, d := range set.Domains() {
				fmt.Fprintf(out, "# id: %s\n%s\n", d.ID(), d)
			}
			fmt.Fprintf(out, "# %d domains, %d distinct\n", len(domains), set.Len())
			return nil
		},
	})
	return cmd
}

func readDomains(path string) ([]domain.Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var domains []domain.Domain
		if err := json.Unmarshal(data, &domains); err != nil {
			return nil, fmt.Errorf("could not parse domains in %s: %w", path, err)
		}
		return domains, nil
	}

	var d domain.Domain
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("could not parse domain in %s: %w", path, err)
	}
	return []domain.Domain{d}, nil
}
