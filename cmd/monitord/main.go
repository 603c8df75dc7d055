package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Adam-Cosner/monitord/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, service.ErrInvalidArgument) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// GlobalFlags holds flags shared across commands.
type GlobalFlags struct {
	ConfigPath string
}

// ServiceFlags holds register-service flags.
type ServiceFlags struct {
	Init        string
	Name        string
	Description string
	Path        string
	User        string
	Group       string
	WorkDir     string
	Root        string
}

// SnapshotFlags holds one-shot snapshot flags.
type SnapshotFlags struct {
	Category string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	serviceFlags := &ServiceFlags{}
	snapshotFlags := &SnapshotFlags{}

	var registerService bool
	root := &cobra.Command{
		Use:           "monitord",
		Short:         "System monitoring daemon with streaming subscriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if registerService {
				return runRegisterService(cmd, serviceFlags)
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file")

	// --register-service on the root mirrors the historical flag form;
	// the subcommand is the primary spelling.
	root.Flags().BoolVar(&registerService, "register-service", false, "install an init-system unit and exit")
	addServiceFlags(root.Flags(), serviceFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createSnapshotCommand(globalFlags, snapshotFlags),
		createRegisterServiceCommand(serviceFlags),
	)
	return root
}

func runRegisterService(cmd *cobra.Command, f *ServiceFlags) error {
	path, err := service.Register(service.Options{
		Init:        f.Init,
		Name:        f.Name,
		Description: f.Description,
		ExecPath:    f.Path,
		User:        f.User,
		Group:       f.Group,
		WorkDir:     f.WorkDir,
		RootDir:     f.Root,
	})
	if err != nil {
		return err
	}
	cmd.Printf("installed %s\n", path)
	return nil
}

func createRegisterServiceCommand(f *ServiceFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-service",
		Short: "Install an init-system unit for monitord",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRegisterService(cmd, f)
		},
	}
	addServiceFlags(cmd.Flags(), f)
	return cmd
}

func addServiceFlags(fs *pflag.FlagSet, f *ServiceFlags) {
	fs.StringVar(&f.Init, "init", "systemd", "init system: systemd|sysvinit|openrc|runit")
	fs.StringVar(&f.Name, "name", "monitord", "service name")
	fs.StringVar(&f.Description, "description", "", "service description")
	fs.StringVar(&f.Path, "path", "", "daemon binary path (defaults to this executable)")
	fs.StringVar(&f.User, "user", "", "service user")
	fs.StringVar(&f.Group, "group", "", "service group")
	fs.StringVar(&f.WorkDir, "workdir", "", "working directory")
	fs.StringVar(&f.Root, "root", "", "install under an alternate filesystem root (packaging)")
	_ = fs.MarkHidden("root")
}
