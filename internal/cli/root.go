package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/walletbridge/internal/app"
	"github.com/vk/walletbridge/internal/config"
	"github.com/vk/walletbridge/internal/hclconfig"
	"github.com/vk/walletbridge/internal/yamlconfig"
)

// EnvPrefix is the prefix of environment variables mirroring flags, e.g.
// WALLETBRIDGE_LOG_LEVEL for --log-level.
const EnvPrefix = "WALLETBRIDGE"

type root struct {
	v    *viper.Viper
	outW io.Writer
	errW io.Writer
}

// Execute runs the command line. Usage errors are *ExitError with code 2.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	cmd := NewRootCommand(outW, errW)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Each call gets its own viper
// instance, so commands can be built repeatedly in tests.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	r := &root{v: viper.New(), outW: outW, errW: errW}
	r.v.SetEnvPrefix(EnvPrefix)
	r.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	r.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "walletbridge",
		Short: "Bridge between a scripting runtime and native wallet modules",
		Long: `walletbridge exposes native wallet modules to a scripting runtime over
socket.io and tracks long-running wallet workflows by UUID until the
caller removes them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := r.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return r.validateLogFlags()
		},
	}
	cmd.SetOut(outW)
	cmd.SetErr(errW)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err.Error())
	})

	pf := cmd.PersistentFlags()
	pf.StringP("config", "c", "", "Path to a .hcl, .yaml or .yml configuration file.")
	pf.String("log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'. Overrides the file.")
	pf.String("log-format", "", "Log output format: 'text' or 'json'. Overrides the file.")

	cmd.AddCommand(
		r.newServeCommand(),
		r.newModulesCommand(),
		r.newCallCommand(),
		r.newRemoveCommand(),
	)
	return cmd
}

func (r *root) validateLogFlags() error {
	switch level := strings.ToLower(r.v.GetString("log-level")); level {
	case "", "debug", "info", "warn", "error":
	default:
		return usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	switch format := strings.ToLower(r.v.GetString("log-format")); format {
	case "", "text", "json":
	default:
		return usageError("invalid log-format: must be 'text' or 'json'")
	}
	return nil
}

// appConfig collects the overrides shared by every command that builds an App.
func (r *root) appConfig() *app.Config {
	return &app.Config{
		ConfigPath:      r.v.GetString("config"),
		LogLevel:        strings.ToLower(r.v.GetString("log-level")),
		LogFormat:       strings.ToLower(r.v.GetString("log-format")),
		Address:         r.v.GetString("address"),
		HealthcheckPort: r.v.GetInt("healthcheck-port"),
		EvictOnComplete: r.v.GetBool("evict-on-complete"),
	}
}

// loaderFor picks the configuration loader from the file extension.
func loaderFor(path string) config.Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlconfig.NewLoader()
	default:
		return hclconfig.NewLoader()
	}
}

func (r *root) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(r.errW, nil))
}
