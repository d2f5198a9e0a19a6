package logging

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ConfigureCommandLineLogging sets up the standard logrus logger for a command-line tool.
// Everything is written to out, which should be stderr whenever stdout carries the program's result.
// With debug set, the level is lowered to Trace, which includes every HTTP request made.
func ConfigureCommandLineLogging(out io.Writer, debug bool) {
	log.SetFormatter(&CommandLineFormatter{})
	log.SetOutput(out)
	log.SetLevel(levelFor(debug))
}

func levelFor(debug bool) log.Level {
	if debug {
		return log.TraceLevel
	}
	return log.InfoLevel
}

func fieldValue(v interface{}) string {
	switch value := v.(type) {
	case errors.StackTrace:
		return fmt.Sprintf("%+v", value)
	case error:
		return fmt.Sprintf("%q", value.Error())
	case string:
		return fmt.Sprintf("%q", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
