package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger discards everything. Useful as the logger of components under test.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(CommandLineFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}
