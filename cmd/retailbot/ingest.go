package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"retailbot/internal/app"
)

func newIngestCmd(e *env) *cobra.Command {
	var (
		force bool
		probe string
		k     int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Extract, chunk and index the store documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.NewEngine(e.cfg, e.log)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			report, err := engine.ProcessDocuments(ctx, force)
			if err != nil {
				return fmt.Errorf("processing documents: %w", err)
			}

			out := cmd.OutOrStdout()
			if report.LoadedFromCache {
				fmt.Fprintf(out, "Index loaded from cache: %d chunks (model %s, built %s)\n",
					report.Chunks, report.Model, report.CreatedAt.Format("2006-01-02 15:04"))
			} else {
				fmt.Fprintf(out, "Indexed %d chunks with %s\n\n", report.Chunks, report.Model)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DOCUMENT\tCHARACTERS\tCHUNKS")
				for _, d := range report.Documents {
					fmt.Fprintf(tw, "%s\t%d\t%d\n", d.Name, d.Characters, d.Chunks)
				}
				_ = tw.Flush()
				for _, d := range report.Documents {
					if d.Summary != "" {
						fmt.Fprintf(out, "\n[%s] %s\n", d.Name, d.Summary)
					}
				}
			}

			if probe == "" {
				return nil
			}
			chunks, err := engine.SimilarChunks(ctx, probe, k)
			if err != nil {
				return fmt.Errorf("probe: %w", err)
			}
			fmt.Fprintf(out, "\nClosest chunks for %q:\n", probe)
			for i, c := range chunks {
				fmt.Fprintf(out, "%d. [%s #%d] %s\n", i+1, c.Source, c.Index, c.Content)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even when a cached index exists")
	cmd.Flags().StringVar(&probe, "probe", "", "show the chunks closest to this question")
	cmd.Flags().IntVar(&k, "k", 3, "number of chunks shown by --probe")
	return cmd
}

func newResetCacheCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-cache",
		Short: "Delete the cached index so the next run rebuilds it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := app.NewEngine(e.cfg, e.log)
			if err != nil {
				return err
			}
			if err := engine.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
			return nil
		},
	}
}
