package configuration

import (
	"github.com/sparkmeter/nquery/internal/common/config"
)

func (c Config) Validate() error {
	return config.Validate(c)
}
