package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/binthere/internal/config"
	"github.com/oshokin/binthere/internal/logger"
	"github.com/oshokin/binthere/internal/platform"
	"github.com/oshokin/binthere/internal/service/installer"
	"github.com/oshokin/binthere/internal/service/packager"
	"github.com/oshokin/binthere/internal/version"
)

var (
	// cfgPath stores the package metadata file path.
	cfgPath string
	// installDir overrides the installation directory.
	installDir string
	// logLevel sets the minimum level of printed messages.
	logLevel string
	// initOpts collects flags of the init subcommand.
	initOpts packager.Options

	// rootCmd represents the installer command.
	rootCmd = &cobra.Command{
		Use:   "binthere-install",
		Short: "Download and install the binthere executable for this platform.",
		Long: `Downloads the binthere release asset matching this machine's operating system and architecture,
unpacks it into the installation directory and marks the executable as runnable.

The release version and repository come from the package metadata file.
BINTHERE_REPO overrides the repository, BINTHERE_INSTALL_DIR the installation directory.
Running it again reinstalls the same release over the previous one.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := installer.Run(ctx, &installer.Options{
				ConfigPath: cfgPath,
				InstallDir: installDir,
			})

			return err
		},
	}

	// initCmd writes the package metadata file.
	initCmd = &cobra.Command{
		Use:   "init <owner/name>",
		Short: "Write the package metadata file.",
		Long: `Writes the package metadata file the installer reads, then lists the release assets
it will download so the release can be checked before publishing the package.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initOpts.Repository = args[0]

			_, err := packager.Run(cmd.Context(), &initOpts)

			return err
		},
	}

	// platformsCmd lists the platforms a release asset exists for.
	platformsCmd = &cobra.Command{
		Use:   "platforms",
		Short: "List supported platforms.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			current, err := platform.Current()

			for _, descriptor := range platform.Descriptors() {
				marker := " "
				if err == nil && descriptor.Key == current.Key {
					marker = "*"
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s %s\n", marker, descriptor.Key, descriptor.ArchiveName)
			}

			if err != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "this machine: %v\n", err)
			}
		},
	}
)

// Execute runs the binthere-install CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initCmd, platformsCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "binthere-install failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level: debug, info, warn or error")

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"path to package metadata file (default: "+config.DefaultConfigFilename+" beside this executable)")
	rootCmd.Flags().StringVar(&installDir, "install-dir", "",
		"installation directory (default: $"+config.InstallDirEnv+" or ./"+config.DefaultInstallDirName+" beside this executable)")

	initCmd.Flags().StringVarP(&initOpts.ConfigPath, "config", "c", "",
		"path to package metadata file (default: "+config.DefaultConfigFilename+" beside this executable)")
	initCmd.Flags().StringVar(&initOpts.Version, "release", "", "release version (default: this installer's version)")
	initCmd.Flags().StringVar(&initOpts.TagPrefix, "tag-prefix", config.DefaultTagPrefix, "prefix of the release tag")
	initCmd.Flags().StringVar(&initOpts.ReleaseHost, "release-host", config.DefaultReleaseHost, "base URL of the release host")
	initCmd.Flags().BoolVarP(&initOpts.Force, "force", "f", false, "overwrite an existing metadata file")
}
