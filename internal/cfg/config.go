// Package cfg defines the mount configuration surface and binds it to
// cobra flags / viper config files, the way a cfg
// package backs its command line (see cmd's init calling cfg.BindFlags
// and loadConfig calling cfg.Unmarshal).
package cfg

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of tunables for a mount, unmarshaled from
// flags and/or a YAML config file by viper.
type Config struct {
	Messenger MessengerConfig `mapstructure:"messenger"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	FileSystem FileSystemConfig `mapstructure:"file-system"`
}

// MessengerConfig configures the remote account backing the
// filesystem. Credentials are deliberately absent here: they come from
// environment variables only (internal/credentials), never from a
// config file or flag that might end up in shell history or a
// world-readable dotfile.
type MessengerConfig struct {
	BaseURL string `mapstructure:"base-url"`
}

// StorageConfig configures block sizing and the capacity ceiling.
type StorageConfig struct {
	BlockSizeKB  int64 `mapstructure:"block-size-kb"`
	MaxNumBlocks int   `mapstructure:"max-num-blocks"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Severity string `mapstructure:"severity"`
	Filename string `mapstructure:"filename"`
	MaxSizeMB int   `mapstructure:"max-size-mb"`
	MaxBackups int  `mapstructure:"max-backups"`
}

// FileSystemConfig configures the mount's kernel-visible identity.
type FileSystemConfig struct {
	FSName  string `mapstructure:"fs-name"`
	ReadOnly bool  `mapstructure:"read-only"`
}

// Default returns the configuration applied before flags/config file
// overrides, seeding viper defaults
// in BindFlags before binding.
func Default() Config {
	return Config{
		Messenger: MessengerConfig{BaseURL: "https://www.messenger.com/api"},
		Storage:   StorageConfig{BlockSizeKB: 256, MaxNumBlocks: 4096},
		Logging:   LoggingConfig{Severity: "info", MaxSizeMB: 100, MaxBackups: 3},
		FileSystem: FileSystemConfig{FSName: "messenger-fs"},
	}
}

// BindFlags registers every Config field as a persistent pflag and
// binds it into viper, so a flag, an environment variable (via
// viper.AutomaticEnv), or a YAML config file can each supply it — the
// same three-source precedence (flag > env > file > default).
func BindFlags(flags *pflag.FlagSet) error {
	def := Default()

	flags.String("messenger.base-url", def.Messenger.BaseURL, "Base URL of the messaging API")
	flags.Int64("storage.block-size-kb", def.Storage.BlockSizeKB, "Fixed size of each storage block, in KiB")
	flags.Int("storage.max-num-blocks", def.Storage.MaxNumBlocks, "Maximum number of blocks the pool may allocate")
	flags.String("logging.severity", def.Logging.Severity, "Log severity: trace, debug, info, warning, error, off")
	flags.String("logging.filename", def.Logging.Filename, "Log file path; empty means stderr")
	flags.Int("logging.max-size-mb", def.Logging.MaxSizeMB, "Log file rotation size, in MB")
	flags.Int("logging.max-backups", def.Logging.MaxBackups, "Number of rotated log files to keep")
	flags.String("file-system.fs-name", def.FileSystem.FSName, "Name reported to the kernel for this mount")
	flags.Bool("file-system.read-only", def.FileSystem.ReadOnly, "Mount read-only")

	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("cfg: binding flags: %w", err)
	}

	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	return nil
}

// Unmarshal decodes viper's current state into a Config, using the same
// "mapstructure" tags the struct is already annotated with.
func Unmarshal() (Config, error) {
	var c Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Config{}, fmt.Errorf("cfg: building decoder: %w", err)
	}
	if err := dec.Decode(viper.AllSettings()); err != nil {
		return Config{}, fmt.Errorf("cfg: decoding config: %w", err)
	}
	return c, nil
}

// Validate checks Config invariants that flags alone can't enforce.
func (c Config) Validate() error {
	if c.Storage.BlockSizeKB < 1 {
		return fmt.Errorf("cfg: storage.block-size-kb must be >= 1")
	}
	if c.Messenger.BaseURL == "" {
		return fmt.Errorf("cfg: messenger.base-url must not be empty")
	}
	return nil
}
