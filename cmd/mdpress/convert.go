package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mdpress/internal/log"
	"mdpress/internal/manifest"
	"mdpress/internal/transfer"
	"mdpress/internal/tui"
	"mdpress/pkg/types"
)

// convertFlags override configuration for one run.
type convertFlags struct {
	out     string
	s3      string
	entry   string
	timeout time.Duration
	include []string
	exclude []string
	drop    bool
	noTUI   bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "directory the artifact is saved to")
	cmd.Flags().StringVar(&f.s3, "s3", "", "save the artifact under s3://bucket/prefix instead")
	cmd.Flags().StringVarP(&f.entry, "entry", "e", "", "relative path of the main document, sent as entry_md")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "limit for the whole conversion round trip")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "only send paths matching these globs")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "never send paths matching these globs")
	cmd.Flags().BoolVar(&f.drop, "drop", false, "walk the roots concurrently instead of listing one directory")
}

func (f *convertFlags) apply(cmd *cobra.Command, o *rootOptions) error {
	cfg := o.cfg
	if cmd.Flags().Changed("out") {
		cfg.Output.Directory = f.out
		cfg.Output.S3URI = ""
	}
	if cmd.Flags().Changed("s3") {
		cfg.Output.S3URI = f.s3
	}
	if cmd.Flags().Changed("entry") {
		cfg.Converter.EntryDocument = f.entry
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Converter.Timeout = f.timeout
	}
	if cmd.Flags().Changed("include") {
		cfg.Collect.Include = f.include
	}
	if cmd.Flags().Changed("exclude") {
		cfg.Collect.Exclude = f.exclude
	}
	return cfg.Validate()
}

func newConvertCmd(o *rootOptions) *cobra.Command {
	f := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <directory|s3://bucket/prefix>...",
		Short: "Send a Markdown tree to the converter and save the result",
		Long: `Collect every file below the given roots, send them to the converter in
one multipart request, and save the returned document.

A single local directory is listed the way a directory picker would. Several
roots, S3 locations, or --drop walk each root concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, o); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !f.noTUI && interactive(out) {
				return runConvertTUI(ctx, o, args, f.drop, out)
			}
			return runConvertPlain(ctx, o, args, f.drop, out)
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "print plain progress even on a terminal")
	return cmd
}

func collect(ctx context.Context, o *rootOptions, p *pipeline, args []string, drop bool) (types.Manifest, error) {
	src, err := newSource(ctx, o, args, drop)
	if err != nil {
		return nil, err
	}
	return p.session.Collect(ctx, src)
}

func runConvertPlain(ctx context.Context, o *rootOptions, args []string, drop bool, out io.Writer) error {
	p, err := newPipeline(ctx, o, func(s transfer.State) {
		log.LogWithFields(log.F("state", s.String())).Debug("conversion state")
	})
	if err != nil {
		return err
	}

	m, err := collect(ctx, o, p, args, drop)
	if err != nil {
		return err
	}
	printHeader(out, strings.Join(args, " "))
	fmt.Fprintln(out, infoText(tui.Summary(m.Stats())))

	loc, err := p.deliver(ctx, m)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, successText("saved "+loc))
	return nil
}

func runConvertTUI(ctx context.Context, o *rootOptions, args []string, drop bool, out io.Writer) error {
	var model *tui.Model
	p, err := newPipeline(ctx, o, func(s transfer.State) { model.OnState(s) })
	if err != nil {
		return err
	}

	m, err := collect(ctx, o, p, args, drop)
	if err != nil {
		return err
	}

	model = tui.New(ctx, strings.Join(args, " "), m.Stats(), manifest.Listing(m, 20), func(ctx context.Context) (string, error) {
		return p.deliver(ctx, m)
	})
	if _, err := tea.NewProgram(model, tea.WithOutput(out), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	_, err = model.Result()
	return err
}
