package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mdpress/internal/log"
	"mdpress/internal/transfer"
	"mdpress/internal/tui"
	"mdpress/internal/watch"
)

// newWatchCmd creates the watch command
func newWatchCmd(o *rootOptions) *cobra.Command {
	f := &convertFlags{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Convert a directory again whenever it changes",
		Long: `Convert the directory once, then watch it and convert again after every
burst of changes. A change arriving while a conversion runs abandons that
conversion in favour of a fresh one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, o); err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				o.cfg.Watch.Debounce = debounce
			}

			ctx := cmd.Context()
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			p, err := newPipeline(ctx, o, func(s transfer.State) {
				log.LogWithFields(log.F("state", s.String())).Debug("conversion state")
			})
			if err != nil {
				return err
			}

			ignore, err := watchIgnore(root, o.cfg.Output.Directory, o.cfg.Output.S3URI != "", o.cfg.Output.DefaultName)
			if err != nil {
				return err
			}
			w, err := watch.New(watch.WithIgnore(ignore))
			if err != nil {
				return err
			}
			if err := w.AddTree(root); err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, infoText(fmt.Sprintf("watching %s (ctrl+c to stop)", root)))

			loop := watch.NewLoop(w, o.cfg.Watch.Debounce, func(ctx context.Context) error {
				m, err := collect(ctx, o, p, []string{root}, f.drop)
				if err != nil {
					return err
				}
				loc, err := p.deliver(ctx, m)
				if err != nil {
					if ctx.Err() == nil {
						fmt.Fprintln(out, errorText(err.Error()))
					}
					return err
				}
				fmt.Fprintln(out, successText(fmt.Sprintf("%s: saved %s", tui.Summary(m.Stats()), loc)))
				return nil
			})
			return loop.Run(ctx)
		},
	}

	f.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before converting again")
	return cmd
}

// watchIgnore skips hidden files and, when artifacts are saved locally,
// whatever a save produces so saving never triggers another conversion. An
// output directory inside root is skipped whole; when root itself is the
// output directory only files with the artifact extension are.
func watchIgnore(root, outDir string, remote bool, defaultName string) (func(string) bool, error) {
	out := ""
	if !remote {
		abs, err := filepath.Abs(outDir)
		if err != nil {
			return nil, err
		}
		out = abs
	}
	nested := out != "" && out != root && within(root, out)
	ext := strings.ToLower(filepath.Ext(defaultName))

	return func(p string) bool {
		if strings.HasPrefix(filepath.Base(p), ".") {
			return true
		}
		if out == "" {
			return false
		}
		if nested && within(out, p) {
			return true
		}
		return filepath.Dir(p) == out && ext != "" && strings.ToLower(filepath.Ext(p)) == ext
	}, nil
}

// within reports whether p is dir or below it.
func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
