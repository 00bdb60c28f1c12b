package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"github.com/MichaelAllen1966/hypertune"
	"github.com/MichaelAllen1966/hypertune/rdb"
)

var (
	trialsDSN   string
	trialsStudy string
)

var trialsCmd = &cobra.Command{
	Use:   "trials",
	Short: "Dump the trial ledger of a stored study",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if trialsDSN == "" {
			return fmt.Errorf("--storage is required")
		}

		if trialsStudy == "" {
			return fmt.Errorf("--study is required")
		}

		store, err := rdb.Open(trialsDSN)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.StudyID(trialsStudy)
		if err != nil {
			return err
		}

		trials, err := store.Trials(id)
		if err != nil {
			return err
		}

		for _, t := range trials {
			cmd.Printf("%4d  %-8s  %12g  %s\n", t.ID, t.State, t.Value, formatParams(t))
		}

		return nil
	},
}

func init() {
	trialsCmd.Flags().StringVar(&trialsDSN, "storage", "", "PostgreSQL DSN of the trial ledger")
	trialsCmd.Flags().StringVar(&trialsStudy, "study", "", "study name")

	rootCmd.AddCommand(trialsCmd)
}

func formatParams(t hypertune.FrozenTrial) string {
	names := maps.Keys(t.Params)
	sort.Strings(names)

	out := ""

	for i, name := range names {
		if i > 0 {
			out += " "
		}

		out += fmt.Sprintf("%s=%v", name, t.Params[name])
	}

	return out
}
