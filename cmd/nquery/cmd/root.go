package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sparkmeter/nquery/internal/common/config"
	"github.com/sparkmeter/nquery/internal/common/logging"
	"github.com/sparkmeter/nquery/internal/nomad"
	"github.com/sparkmeter/nquery/internal/nquery"
	"github.com/sparkmeter/nquery/internal/nquery/configuration"
	"github.com/sparkmeter/nquery/internal/projection"
)

const defaultConfigName = ".nquery"

// Settings read from the environment, in addition to flags and the config file.
var envBindings = map[string]string{
	"address":   "NOMAD_ADDR",
	"token":     "NOMAD_TOKEN",
	"namespace": "NOMAD_NAMESPACE",
	"region":    "NOMAD_REGION",
	"debug":     "NQUERY_DEBUG",
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	return rootCmdWithApp(nquery.New())
}

func rootCmdWithApp(a *nquery.App) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "nquery [flags] <prefix>",
		Short: "nquery prints the Nomad jobs whose id starts with a prefix as a JSON array.",
		Long: `nquery prints the Nomad jobs whose id starts with a prefix as a JSON array.

Without --field, each element is the full job definition. With one or more --field flags,
each element is an object mapping every requested dotted path to the value found there,
or null if the job has no such field.

Connection settings may be saved in a config file so they don't have to be given every time.

Example structure:
address: https://nomad.example.com:4646
namespace: default
timeout: 10s

The location of this file can be passed in using the --config argument.
If not provided, $HOME/.nquery.yaml is used.`,
		Example: `  nquery -p etl -f ID -f Meta.data-source
  nquery --status running --pretty web`,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, a, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			queryArgs, err := queryArgsFromFlags(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			queryArgs.Output = a.Params.Output
			queryArgs.Pretty = a.Params.Pretty
			return a.Query(cmd.Context(), queryArgs)
		},
	}

	persistent := cmd.PersistentFlags()
	persistent.String("address", nomad.DefaultAddress, "Address of the Nomad agent")
	persistent.String("token", "", "Nomad ACL token")
	persistent.String("namespace", "", "Namespace to query; * queries all namespaces")
	persistent.String("region", "", "Region to query")
	persistent.Duration("timeout", nomad.DefaultTimeout, "Timeout of each HTTP request")
	persistent.Uint("retries", nomad.DefaultRetries, "Attempts per HTTP request; only transient failures are retried")
	persistent.Int("concurrency", nquery.DefaultConcurrency, "Number of job definitions fetched in parallel")
	persistent.String("config", "", "Config file (default is $HOME/.nquery.yaml)")
	persistent.Bool("debug", false, "Trace every request on stderr")

	flags := cmd.Flags()
	flags.BoolP("parameterized", "p", false, "Only parameterized jobs")
	flags.Bool("no-parameterized", false, "Exclude parameterized jobs")
	flags.Bool("periodic", false, "Only periodic jobs")
	flags.Bool("no-periodic", false, "Exclude periodic jobs")
	flags.String("status", "", "Only jobs with this status, e.g. running")
	flags.String("type", "", "Only jobs of this type, e.g. batch")
	flags.Bool("dispatched", false, "Also print the jobs dispatched from each parameterized job, after their parent")
	flags.StringArrayP("field", "f", nil, "Dotted path of a field to print, e.g. Meta.owner; may be repeated")
	flags.Bool("pretty", false, "Indent JSON output")
	flags.StringP("output", "o", string(configuration.OutputJSON), "Output format: json or yaml")
	cmd.MarkFlagsMutuallyExclusive("parameterized", "no-parameterized")
	cmd.MarkFlagsMutuallyExclusive("periodic", "no-periodic")

	for _, name := range []string{"address", "token", "namespace", "region", "timeout", "retries", "concurrency", "debug"} {
		_ = v.BindPFlag(name, persistent.Lookup(name))
	}
	for _, name := range []string{"pretty", "output"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cmd.AddCommand(versionCmd(a))

	return cmd
}

// initParams merges flags, environment and config file into a configuration and sets up the app with it.
// No request is made to Nomad.
func initParams(cmd *cobra.Command, a *nquery.App, v *viper.Viper) error {
	cfgFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return errors.WithStack(err)
	}
	// Flag and environment only, so that loading the config file can be traced.
	logging.ConfigureCommandLineLogging(os.Stderr, v.GetBool("debug"))
	if err := config.LoadConfigFile(v, cfgFile, defaultConfigName); err != nil {
		return err
	}

	var cfg configuration.Config
	if err := config.Unmarshal(v, &cfg); err != nil {
		return errors.WithMessage(err, "error reading configuration")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.ConfigureCommandLineLogging(os.Stderr, cfg.Debug)

	return a.Configure(&cfg)
}

func queryArgsFromFlags(flags *pflag.FlagSet, prefix string) (*nquery.QueryArgs, error) {
	// GetStringArray round-trips through CSV, which loses a lone empty value.
	rawFields := flags.Lookup("field").Value.(pflag.SliceValue).GetSlice()
	fields, err := projection.ParsePaths(rawFields)
	if err != nil {
		return nil, err
	}

	queryArgs := &nquery.QueryArgs{
		Prefix: prefix,
		Fields: fields,
	}
	if queryArgs.Parameterized, err = marker(flags, "parameterized", "no-parameterized"); err != nil {
		return nil, err
	}
	if queryArgs.Periodic, err = marker(flags, "periodic", "no-periodic"); err != nil {
		return nil, err
	}
	if queryArgs.Status, err = flags.GetString("status"); err != nil {
		return nil, errors.WithStack(err)
	}
	if queryArgs.Type, err = flags.GetString("type"); err != nil {
		return nil, errors.WithStack(err)
	}
	if queryArgs.IncludeDispatched, err = flags.GetBool("dispatched"); err != nil {
		return nil, errors.WithStack(err)
	}
	return queryArgs, nil
}

// marker returns true if the only flag is set, false if the exclude flag is set, and nil if neither is.
func marker(flags *pflag.FlagSet, only string, exclude string) (*bool, error) {
	set, err := flags.GetBool(only)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if set {
		want := true
		return &want, nil
	}
	set, err = flags.GetBool(exclude)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if set {
		want := false
		return &want, nil
	}
	return nil, nil
}
