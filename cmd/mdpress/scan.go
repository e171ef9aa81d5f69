package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mdpress/internal/log"
	"mdpress/internal/manifest"
	"mdpress/internal/tui"
)

// newScanCmd creates the scan command
func newScanCmd(o *rootOptions) *cobra.Command {
	var (
		drop    bool
		limit   int
		include []string
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "scan <directory|s3://bucket/prefix>...",
		Short: "Show what would be sent to the converter",
		Long:  `Collect the roots exactly as convert would, then list the files and report images that Markdown documents reference but the tree lacks.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("include") {
				o.cfg.Collect.Include = include
			}
			if cmd.Flags().Changed("exclude") {
				o.cfg.Collect.Exclude = exclude
			}
			filter, err := manifest.NewFilter(o.cfg.Collect.Include, o.cfg.Collect.Exclude)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := newSource(ctx, o, args, drop)
			if err != nil {
				return err
			}
			session := manifest.NewSession(manifest.WithFilter(filter))
			m, err := session.Collect(ctx, src)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printHeader(out, strings.Join(args, " "))
			fmt.Fprintln(out, infoText(tui.Summary(m.Stats())))
			printLines(out, manifest.Listing(m, limit))

			if !m.HasMarkdown() {
				fmt.Fprintln(out, warningText("no .md files: the converter would reject this selection"))
			}

			missing, err := manifest.CheckAssets(ctx, m)
			if err != nil {
				log.LogWithError(err).Warn("asset check failed")
				return nil
			}
			for _, a := range missing {
				fmt.Fprintln(out, warningText(fmt.Sprintf("%s references missing %s", a.Document, a.Reference)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "walk the roots concurrently instead of listing one directory")
	cmd.Flags().IntVarP(&limit, "limit", "n", manifest.DefaultListingLimit, "maximum number of paths listed")
	cmd.Flags().StringSliceVar(&include, "include", nil, "only list paths matching these globs")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "never list paths matching these globs")

	return cmd
}
