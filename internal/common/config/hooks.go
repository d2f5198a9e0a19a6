package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks are the decode hooks used when unmarshalling configuration. Passing a decode hook to viper
// replaces its defaults, so the default duration and slice hooks are composed back in here.
// Types implementing encoding.TextUnmarshaler are decoded from strings with their own UnmarshalText.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)),
}
