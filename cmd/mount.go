package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/timeutil"
	"github.com/spf13/cobra"

	"github.com/davlia-projects/messenger-fs/internal/cfg"
	"github.com/davlia-projects/messenger-fs/internal/credentials"
	"github.com/davlia-projects/messenger-fs/internal/fuseadapter"
	"github.com/davlia-projects/messenger-fs/internal/logger"
	"github.com/davlia-projects/messenger-fs/internal/messenger"
	"github.com/davlia-projects/messenger-fs/internal/messengerfs"
)

var mountCmd = &cobra.Command{
	Use:   "mount <mount-point>",
	Short: "Mount the filesystem at the given directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runMount,
}

func runMount(cmd *cobra.Command, args []string) error {
	mountPoint := args[0]

	c, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Severity:   logger.ParseSeverity(c.Logging.Severity),
		Filename:   c.Logging.Filename,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	creds, err := credentials.FromEnvironment()
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	client, err := messenger.NewHTTPClient(c.Messenger.BaseURL)
	if err != nil {
		return fmt.Errorf("mount: building messenger client: %w", err)
	}
	if err := client.Authenticate(ctx, creds); err != nil {
		return fmt.Errorf("mount: authenticating: %w", err)
	}
	log.Info("authenticated with messaging account")

	fsConfig := messengerfs.Config{
		BlockSize:    uint64(c.Storage.BlockSizeKB) * 1024,
		MaxNumBlocks: c.Storage.MaxNumBlocks,
		RootUID:      uint32(os.Getuid()),
		RootGID:      uint32(os.Getgid()),
	}

	engine, err := messengerfs.New(ctx, fsConfig, timeutil.RealClock(), client)
	if err != nil {
		return fmt.Errorf("mount: constructing filesystem: %w", err)
	}

	if err := engine.Restore(ctx); err != nil {
		log.Warn("restore failed, starting from a fresh filesystem", "err", err)
	} else {
		log.Info("restored filesystem snapshot")
	}

	server := fuseadapter.New(engine)

	mountCfg := &fuse.MountConfig{
		FSName:     c.FileSystem.FSName,
		Subtype:    "messengerfs",
		VolumeName: c.FileSystem.FSName,
		ReadOnly:   c.FileSystem.ReadOnly,
	}

	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return fmt.Errorf("mount: fuse.Mount: %w", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("received shutdown signal, flushing and unmounting")
		engine.Lock()
		_ = engine.Flush(ctx)
		engine.Unlock()
		_ = fuse.Unmount(mountPoint)
	}()

	if err := mfs.Join(); err != nil {
		return fmt.Errorf("mount: MountedFileSystem.Join: %w", err)
	}

	return nil
}
