package main

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"constellation/internal/output"
)

func showCmd(parent *runOptions) *cobra.Command {
	var diagram bool
	var storeKind, out string
	cmd := &cobra.Command{
		Use:   "show <identity>",
		Short: "Print the stored summary (or diagram) of a directory",
		Long: `Print a document written by a previous run. <identity> is the directory
path as it appears under the output root, e.g. "myproject/internal/api".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &runOptions{configPath: parent.configPath, out: out, store: storeKind}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Output.Store == output.KindMemory {
				return fmt.Errorf("the memory store keeps nothing between runs")
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore(store)

			file := cfg.Output.SummaryFileName
			if diagram {
				file = cfg.Output.DiagramFileName
			}
			identity := strings.Trim(strings.ReplaceAll(args[0], "\\", "/"), "/")
			key := path.Join(identity, file)
			b, err := store.Get(cmd.Context(), key)
			if errors.Is(err, output.ErrNotFound) {
				return fmt.Errorf("no document at %s in %s", key, output.Location(store))
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&diagram, "diagram", false, "print the mermaid diagram instead of the summary")
	cmd.Flags().StringVar(&out, "out", "", "output root directory (fs store)")
	cmd.Flags().StringVar(&storeKind, "store", "", "output store: fs, s3 or postgres")
	return cmd
}
