package config

import (
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfigFile reads cfgFile into v. If cfgFile is empty, v looks for a file called defaultName
// (with any extension viper supports) in the user's home directory, and it's fine for that file not to exist.
// An explicitly given file must exist.
func LoadConfigFile(v *viper.Viper, cfgFile string, defaultName string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.WithStack(err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(defaultName)
	}

	err := v.ReadInConfig()
	if err == nil {
		log.Debugf("Using config file: %s", v.ConfigFileUsed())
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		log.Tracef("No config file: %s", err)
		return nil
	}
	return errors.Wrapf(err, "can't read config")
}

// Unmarshal decodes the merged configuration in v into config using CustomHooks.
func Unmarshal(v *viper.Viper, config interface{}) error {
	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
