package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"load flag values from a yaml or json config file")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return applyConfig(cmd, afero.NewOsFs(), cfgFile)
	}
}

// applyConfig fills in every flag the command line left untouched from the
// config file. Command line values win over file values. Flags set from the
// file count as changed, so required flags accept file values too.
func applyConfig(cmd *cobra.Command, fsys afero.Fs, path string) error {
	if path == "" {
		return nil
	}
	vip := viper.New()
	vip.SetFs(fsys)
	vip.SetConfigFile(path)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var applyErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !vip.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, vip.GetString(f.Name)); err != nil && applyErr == nil {
			applyErr = fmt.Errorf("config %s: %w", f.Name, err)
		}
	})
	return applyErr
}
