package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"persondir/internal/directory/service"
	"persondir/internal/directory/sink/file"
	"persondir/internal/directory/store"
)

// errRejected makes the process exit non-zero when a data file has records
// the directory would skip.
var errRejected = errors.New("data file contains rejected records")

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a data file and list every record the directory would skip",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				path = cfg.Storage.DataFile
			}

			sink := file.New(path)
			raw, err := sink.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			rejections := service.New(store.NewInMemory(), sink, service.WithPersistence(false)).Check(raw)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d records, %d rejected\n", path, len(raw), len(rejections))
			if len(rejections) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tID\tNAME\tREASON")
			for _, r := range rejections {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Index, r.ID, r.Name, r.Reason)
			}
			_ = tw.Flush()
			return errRejected
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "JSON data file to check (defaults to storage.data_file)")
	return cmd
}
