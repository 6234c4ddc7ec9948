package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/contact-crawler/pkg/config"
	"github.com/user/contact-crawler/pkg/logger"
	"go.uber.org/zap"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "contact-crawler",
	Short:         "Crawls domains with a headless browser and extracts contact details",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("could not load config: %w", err)
		}
		log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		if cfgFile != "" {
			log.Info("using config file", zap.String("path", cfgFile))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); CONTACT_CRAWLER_* environment variables override it")
	rootCmd.AddCommand(runCmd, serveCmd)
}
