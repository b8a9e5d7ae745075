// Command rencfs mounts a reverse-encrypting view of a directory tree
// over FUSE. See spec.md §6 for the CLI contract.
package main

import (
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rencfs/rencfs"
	rencfsfs "github.com/rencfs/rencfs/fs"
)

var (
	decrypt bool
	noAuth  bool
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "rencfs ROOT MOUNTPOINT KEY",
		Short: "Mount a reverse-encrypting FUSE view of a directory",
		Long: `rencfs exposes ROOT through MOUNTPOINT as a read-only, deterministically
encrypted view: every regular file under ROOT appears at MOUNTPOINT as its
AES-CTR ciphertext, MAC-prefixed and keyed by a per-file key derived from the
file's own plaintext (HMAC-SHA-256 under KEY, truncated to 16 bytes).

With --decrypt, ROOT is instead assumed to hold ciphertext produced by a
prior encrypt-mode mount, and MOUNTPOINT exposes the recovered plaintext,
authenticating each file against its embedded MAC at open time unless
--no-auth is given.

The mount is read-only: every write, create, or attribute-mutating call
fails with EROFS.`,
		Args: cobra.ExactArgs(3),
		RunE: runMount,
	}
)

func init() {
	rootCmd.Flags().BoolVarP(&decrypt, "decrypt", "d", false, "mount in decrypt mode (ROOT holds ciphertext)")
	rootCmd.Flags().BoolVarP(&noAuth, "no-auth", "n", false, "skip MAC verification on open (decrypt mode only)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable verbose FUSE logging and debug-level log output")
}

func runMount(cmd *cobra.Command, args []string) error {
	root, mountpoint, key := args[0], args[1], args[2]

	if noAuth && !decrypt {
		return fmt.Errorf("--no-auth is only valid together with --decrypt")
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root %q: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %q is not a directory", root)
	}
	mountInfo, err := os.Stat(mountpoint)
	if err != nil {
		return fmt.Errorf("mountpoint %q: %w", mountpoint, err)
	}
	if !mountInfo.IsDir() {
		return fmt.Errorf("mountpoint %q is not a directory", mountpoint)
	}

	log := logrus.New()
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := log.WithFields(logrus.Fields{"root": root, "mountpoint": mountpoint})

	mode := rencfs.ModeEncrypt
	if decrypt {
		mode = rencfs.ModeDecrypt
	}
	master := rencfs.DeriveMasterKey([]byte(key))
	engine := rencfs.New(mode, master, !noAuth)

	entry.WithField("mode", mode).Info("starting rencfs")

	nodeFs := pathfs.NewPathNodeFs(rencfsfs.New(root, engine, entry), nil)
	conn := nodefs.NewFileSystemConnector(nodeFs.Root(), &nodefs.Options{
		Debug: debug,
	})
	// spec.md §5: the engine is single-threaded by contract; the
	// handle table carries a mutex regardless, but the mount itself
	// disables kernel-level multithreading so reads are serialized the
	// way the design assumes.
	server, err := fuse.NewServer(conn.RawFS(), mountpoint, &fuse.MountOptions{
		SingleThreaded: true,
		Debug:          debug,
	})
	if err != nil {
		return fmt.Errorf("mount %q: %w", mountpoint, err)
	}

	entry.Info("mounted; serving until unmount")
	server.Serve()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rencfs: %v\n", err)
		os.Exit(1)
	}
}
