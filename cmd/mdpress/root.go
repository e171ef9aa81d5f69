package main

import (
	"context"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"mdpress/internal/config"
	"mdpress/internal/log"
)

// rootOptions carries the loaded configuration and the global flags to every
// subcommand.
type rootOptions struct {
	cfgFile  string
	endpoint string
	logLevel string
	jsonLog  bool
	debug    bool

	cfg *config.Config

	s3Once   sync.Once
	s3Client *s3.Client
	s3Err    error
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "mdpress",
		Short: "Convert a tree of Markdown documents through a remote converter",
		Long: `mdpress collects a directory of Markdown files and their images, sends
them to a Markdown to PDF converter in one request, and saves the result.

Sources can be local directories or s3://bucket/prefix locations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Default().Close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfgFile, "config", "", "config file (default is $HOME/.config/mdpress/config.yaml)")
	flags.StringVar(&o.endpoint, "endpoint", "", "converter URL (overrides config and "+config.EnvEndpoint+")")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&o.jsonLog, "log-json", false, "write logs as JSON")
	flags.BoolVar(&o.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newConvertCmd(o))
	rootCmd.AddCommand(newScanCmd(o))
	rootCmd.AddCommand(newWatchCmd(o))
	rootCmd.AddCommand(newConfigCmd(o))

	return rootCmd
}

// load reads the configuration, applies flag overrides and sets up logging.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadConfigFile(o.cfgFile)
	} else {
		o.cfg, err = config.LoadConfig()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("endpoint") {
		o.cfg.Converter.Endpoint = o.endpoint
	}
	if cmd.Flags().Changed("log-level") {
		o.cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		o.cfg.Log.JSON = o.jsonLog
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	opts := []log.Option{log.WithOutput(cmd.ErrOrStderr()), log.WithLevel(o.cfg.Log.Level)}
	if o.cfg.Log.JSON {
		opts = append(opts, log.WithJSON())
	}
	if o.cfg.Log.File != "" {
		opts = append(opts, log.WithFile(o.cfg.Log.File))
	}
	log.Configure(opts...)
	log.SetDebug(o.debug)
	return nil
}

// s3 returns a client built from the default AWS credential chain. It is
// created on first use so purely local runs never touch AWS configuration.
func (o *rootOptions) s3(ctx context.Context) (*s3.Client, error) {
	o.s3Once.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			o.s3Err = err
			return
		}
		o.s3Client = s3.NewFromConfig(awsCfg)
	})
	return o.s3Client, o.s3Err
}
