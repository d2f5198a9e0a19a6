package logging

import (
	"bytes"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter renders entries for a human reading a terminal: info messages are printed
// bare, other levels are prefixed with the level, and fields are appended as key=value pairs.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	if entry.Level != log.InfoLevel {
		b.WriteString(strings.ToLower(entry.Level.String()))
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldValue(entry.Data[k]))
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
