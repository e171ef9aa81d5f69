package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"

	"mdpress/internal/artifact"
	"mdpress/internal/config"
	"mdpress/internal/log"
	"mdpress/internal/manifest"
	"mdpress/internal/transfer"
	"mdpress/internal/traverse"
	"mdpress/pkg/types"
)

// pipeline ties the collected manifest to a converter and an output sink.
type pipeline struct {
	cfg     *config.Config
	session *manifest.Session
	client  *transfer.Client
	sink    artifact.Sink
	logger  *log.Logger
}

func newPipeline(ctx context.Context, o *rootOptions, onState func(transfer.State)) (*pipeline, error) {
	cfg := o.cfg
	filter, err := manifest.NewFilter(cfg.Collect.Include, cfg.Collect.Exclude)
	if err != nil {
		return nil, err
	}
	logger := log.Default()

	client, err := transfer.New(transfer.Options{
		Endpoint:      cfg.Converter.Endpoint,
		Timeout:       cfg.Converter.Timeout,
		FieldName:     cfg.Converter.FieldName,
		EntryDocument: cfg.Converter.EntryDocument,
		DefaultName:   cfg.Output.DefaultName,
		Logger:        logger,
		OnState:       onState,
	})
	if err != nil {
		return nil, err
	}

	sink, err := newSink(ctx, o)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:     cfg,
		session: manifest.NewSession(manifest.WithFilter(filter), manifest.WithSessionLogger(logger)),
		client:  client,
		sink:    sink,
		logger:  logger,
	}, nil
}

func newSink(ctx context.Context, o *rootOptions) (artifact.Sink, error) {
	if uri := o.cfg.Output.S3URI; uri != "" {
		bucket, prefix, err := config.ParseS3URI(uri)
		if err != nil {
			return nil, err
		}
		client, err := o.s3(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS configuration: %w", err)
		}
		return artifact.NewS3Sink(client, bucket, prefix), nil
	}

	dir, err := filepath.Abs(o.cfg.Output.Directory)
	if err != nil {
		return nil, err
	}
	// Rooted at / so the absolute dir resolves as given.
	return artifact.NewDirSink(osfs.New("/"), dir), nil
}

// newSource picks how args are collected. A single local directory behaves
// like a directory picker; several roots, S3 locations, or --drop walk every
// root like a drag and drop.
func newSource(ctx context.Context, o *rootOptions, args []string, drop bool) (manifest.Source, error) {
	if !drop && len(args) == 1 && !isS3(args[0]) {
		return manifest.PickerSource{Root: args[0]}, nil
	}

	cfg := o.cfg
	roots := make([]traverse.Entry, 0, len(args))
	for _, arg := range args {
		if isS3(arg) {
			bucket, prefix, err := config.ParseS3URI(arg)
			if err != nil {
				return nil, err
			}
			client, err := o.s3(ctx)
			if err != nil {
				return nil, fmt.Errorf("load AWS configuration: %w", err)
			}
			roots = append(roots, traverse.NewS3Root(client, bucket, prefix, cfg.Collect.BatchSize))
			continue
		}
		e, err := traverse.NewOSEntry(arg, cfg.Collect.BatchSize)
		if err != nil {
			return nil, err
		}
		roots = append(roots, e)
	}

	return manifest.DropSource{
		Roots: roots,
		Walker: traverse.NewWalker(
			traverse.WithConcurrency(cfg.Collect.Concurrency),
			traverse.WithLogger(log.Default()),
		),
		Concurrency: cfg.Collect.Concurrency,
	}, nil
}

// deliver converts m and hands the artifact to the sink.
func (p *pipeline) deliver(ctx context.Context, m types.Manifest) (string, error) {
	a, err := p.client.Convert(ctx, m)
	if err != nil {
		return "", err
	}

	staged, err := artifact.Stage(a, p.cfg.Output.ReleaseGrace)
	if err != nil {
		return "", err
	}
	defer staged.Close()

	loc, err := staged.SaveTo(ctx, p.sink)
	if err != nil {
		return "", err
	}
	p.logger.With(log.F("location", loc), log.F("size", staged.Size())).Info("artifact saved")
	return loc, nil
}
