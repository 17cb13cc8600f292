package main

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/chazu/vrexport/pkg/config"
	"github.com/spf13/cobra"
)

// defaultConfigFile is read from the working directory when --config is not
// given and the file exists.
const defaultConfigFile = "vrexport.toml"

// globals holds the persistent flags.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	output     string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "vrexport",
		Short:         "Export node-graph scenes to scene description files",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "log format: text or json")
	pf.StringVarP(&g.output, "output", "o", "", `output file, "-" for stdout`)

	cmd.AddCommand(
		newExportCmd(g),
		newWatchCmd(g),
		newValidateCmd(g),
		newPreviewCmd(g),
		newConfigCmd(g),
	)
	return cmd
}

// load reads the config and applies flag overrides on top of it.
func (g *globals) load(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case g.configPath != "":
		c, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		c, err := config.Load(defaultConfigFile)
		switch {
		case err == nil:
			cfg = c
		case errors.Is(err, fs.ErrNotExist):
			cfg = config.Default()
		default:
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = g.logFormat
	}
	if flags.Changed("output") {
		cfg.Output = g.output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog logger the config asks for.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lvl, err := cfg.Log.SlogLevel()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func readScript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
