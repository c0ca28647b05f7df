// Package cmd implements the messenger-fs command line, structured the
// way a cobra-based CLI package typically is: a persistent cfgFile flag plus
// cfg.BindFlags wiring every setting into viper during init(), and a
// cobra.OnInitialize hook that reads the optional config file before any
// command body runs. Commands unmarshal the merged configuration through
// loadConfig.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/davlia-projects/messenger-fs/internal/cfg"
)

var (
	cfgFile      string
	bindErr      error
	configFileErr error
)

var rootCmd = &cobra.Command{
	Use:   "messenger-fs",
	Short: "Mount a FUSE filesystem backed by a remote chat account",
	Long: `messenger-fs packs file contents into fixed-size blocks, uploads
them as attachments on a remote chat account, and reconstitutes the
whole filesystem from a metadata snapshot posted as a message to
yourself. It is durable only as far as that account is.`,
}

// Execute runs the root command, exiting the process on error the same
// way a cobra root command typically does.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			configFileErr = fmt.Errorf("reading config file: %w", err)
		}
	}
}

func loadConfig() (cfg.Config, error) {
	if bindErr != nil {
		return cfg.Config{}, bindErr
	}
	if configFileErr != nil {
		return cfg.Config{}, configFileErr
	}

	c, err := cfg.Unmarshal()
	if err != nil {
		return cfg.Config{}, err
	}
	if err := c.Validate(); err != nil {
		return cfg.Config{}, err
	}
	return c, nil
}
