package cmd

/*
These tests check that command-line arguments, environment variables and config files are passed through
correctly to nquery, which, during normal operation, queries Nomad through the nomad client package.

They do so by wrapping the PreRunE function of the root command, which initialises the app, so that
after the regular setup the job API of the app is replaced by an in-memory one.
*/

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeter/nquery/internal/common/logging"
	"github.com/sparkmeter/nquery/internal/nomad"
	"github.com/sparkmeter/nquery/internal/nquery"
	"github.com/sparkmeter/nquery/internal/nquery/build"
	"github.com/sparkmeter/nquery/internal/nquery/configuration"
	"github.com/sparkmeter/nquery/internal/projection"
)

var testJobs = map[string]string{
	"etl-1":            `{"ID":"etl-1","Type":"batch","Status":"running","ParameterizedJob":{"Payload":"optional"},"Periodic":null,"Meta":{"data-source":"db-cluster-1"}}`,
	"etl-2":            `{"ID":"etl-2","Type":"batch","Status":"dead","ParameterizedJob":null,"Periodic":{"Spec":"@daily"},"Meta":null}`,
	"etl-1/dispatch-1": `{"ID":"etl-1/dispatch-1","ParentID":"etl-1","Type":"batch","Status":"dead","Meta":{"data-source":"db-cluster-1"}}`,
	"redis":            `{"ID":"redis","Type":"service","Status":"running","ParameterizedJob":null,"Periodic":null,"Meta":null}`,
}

var testListing = []string{"etl-1", "etl-2", "etl-1/dispatch-1", "redis"}

type fakeJobs struct {
	listed []string
}

func (f *fakeJobs) api(t *testing.T) *nquery.JobAPI {
	stubs := func(ctx context.Context, prefix string) []*nomad.JobStub {
		var rv []*nomad.JobStub
		for _, id := range testListing {
			if strings.HasPrefix(id, prefix) {
				job, err := nomad.DecodeJob([]byte(testJobs[id]))
				require.NoError(t, err)
				stub := job.JobStub
				rv = append(rv, &stub)
			}
		}
		return rv
	}
	return &nquery.JobAPI{
		List: func(ctx context.Context, prefix string) ([]*nomad.JobStub, error) {
			f.listed = append(f.listed, prefix)
			return stubs(ctx, prefix), nil
		},
		Get: func(ctx context.Context, namespace string, id string) (*nomad.Job, error) {
			return nomad.DecodeJob([]byte(testJobs[id]))
		},
		ListDispatched: func(ctx context.Context, parentId string) ([]*nomad.JobStub, error) {
			var rv []*nomad.JobStub
			for _, stub := range stubs(ctx, parentId+"/dispatch-") {
				if stub.IsDispatchedFrom(parentId) {
					rv = append(rv, stub)
				}
			}
			return rv, nil
		},
	}
}

// isolate keeps the user's environment and config file out of a test.
func isolate(t *testing.T) {
	t.Helper()
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

// runCmd executes the root command with args, after replacing the job API with fake.
func runCmd(t *testing.T, fake *fakeJobs, args ...string) (*nquery.App, string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	a := nquery.New()
	a.Out = buf
	a.Log = logging.NullLogger
	cmd := rootCmdWithApp(a)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	initParams := cmd.PreRunE
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := initParams(cmd, args); err != nil {
			return err
		}
		a.Params.JobAPI = fake.api(t)
		return nil
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return a, buf.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCmd_Query(t *testing.T) {
	tests := map[string]struct {
		args []string
		want string
	}{
		"full definitions": {
			args: []string{"redis"},
			want: `[` + testJobs["redis"] + `]`,
		},
		"fields": {
			args: []string{"etl", "-f", "ID", "--field", "Meta.data-source"},
			want: `[{"ID":"etl-1","Meta.data-source":"db-cluster-1"},{"ID":"etl-2","Meta.data-source":null},{"ID":"etl-1/dispatch-1","Meta.data-source":"db-cluster-1"}]`,
		},
		"repeated field": {
			args: []string{"redis", "-f", "ID", "-f", "Type", "-f", "ID"},
			want: `[{"ID":"redis","Type":"service"}]`,
		},
		"parameterized": {
			args: []string{"-p", "etl", "-f", "ID"},
			want: `[{"ID":"etl-1"}]`,
		},
		"not parameterized": {
			args: []string{"--no-parameterized", "", "-f", "ID"},
			want: `[{"ID":"etl-2"},{"ID":"etl-1/dispatch-1"},{"ID":"redis"}]`,
		},
		"periodic": {
			args: []string{"--periodic", "", "-f", "ID"},
			want: `[{"ID":"etl-2"}]`,
		},
		"not periodic": {
			args: []string{"--no-periodic", "etl", "-f", "ID"},
			want: `[{"ID":"etl-1"},{"ID":"etl-1/dispatch-1"}]`,
		},
		"status and type": {
			args: []string{"--status", "running", "--type", "batch", "", "-f", "ID"},
			want: `[{"ID":"etl-1"}]`,
		},
		"dispatched": {
			args: []string{"-p", "--dispatched", "etl", "-f", "ID"},
			want: `[{"ID":"etl-1"},{"ID":"etl-1/dispatch-1"}]`,
		},
		"no matches": {
			args: []string{"nginx"},
			want: `[]`,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)

			_, out, err := runCmd(t, &fakeJobs{}, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want+"\n", out)
		})
	}
}

func TestRootCmd_Output(t *testing.T) {
	tests := map[string]struct {
		args   []string
		config string
		want   string
	}{
		"pretty": {
			args: []string{"--pretty", "redis", "-f", "ID"},
			want: "[\n  {\n    \"ID\": \"redis\"\n  }\n]\n",
		},
		"yaml": {
			args: []string{"-o", "yaml", "redis", "-f", "ID", "-f", "Meta"},
			want: "- ID: redis\n  Meta: null\n",
		},
		"yaml from config file": {
			args:   []string{"redis", "-f", "ID"},
			config: "output: yaml\n",
			want:   "- ID: redis\n",
		},
		"flag overrides config file": {
			args:   []string{"redis", "-f", "ID", "--output", "json"},
			config: "output: yaml\npretty: false\n",
			want:   "[{\"ID\":\"redis\"}]\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			args := tc.args
			if tc.config != "" {
				args = append(args, "--config", writeConfig(t, tc.config))
			}

			_, out, err := runCmd(t, &fakeJobs{}, args...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestRootCmd_InvalidInput(t *testing.T) {
	tests := map[string]struct {
		args []string
		env  map[string]string
	}{
		"missing prefix":               {args: []string{}},
		"too many prefixes":            {args: []string{"etl", "redis"}},
		"empty field":                  {args: []string{"etl", "-f", ""}},
		"only empty fields":            {args: []string{"etl", "-f", "", "--field", ""}},
		"field with empty segment":     {args: []string{"etl", "-f", "ID", "-f", "Meta..owner"}},
		"parameterized and not":        {args: []string{"-p", "--no-parameterized", "etl"}},
		"periodic and not":             {args: []string{"--periodic", "--no-periodic", "etl"}},
		"unknown output format":        {args: []string{"-o", "xml", "etl"}},
		"zero concurrency":             {args: []string{"--concurrency", "0", "etl"}},
		"zero retries":                 {args: []string{"--retries", "0", "etl"}},
		"address from environment":     {args: []string{"etl"}, env: map[string]string{"NOMAD_ADDR": "not a url"}},
		"missing explicit config file": {args: []string{"etl", "--config", "/does/not/exist.yaml"}},
		"unparseable timeout":          {args: []string{"etl", "--timeout", "soon"}},
		"unknown flag":                 {args: []string{"etl", "--colour", "red"}},
		"flags without a prefix":       {args: []string{"--debug"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			fake := &fakeJobs{}

			_, out, err := runCmd(t, fake, tc.args...)
			assert.Error(t, err)
			assert.Empty(t, out)
			assert.Empty(t, fake.listed, "no request may be made for invalid input")
		})
	}
}

func TestRootCmd_ConnectionDetails(t *testing.T) {
	isolate(t)
	t.Setenv("NOMAD_TOKEN", "secret")
	t.Setenv("NOMAD_NAMESPACE", "batch")
	cfgFile := writeConfig(t, "address: http://nomad.example.com:4646\ntimeout: 5s\nregion: eu\nconcurrency: 2\n")

	a, _, err := runCmd(t, &fakeJobs{}, "etl", "--config", cfgFile, "--region", "us", "--retries", "5")
	require.NoError(t, err)

	assert.Equal(t, &nomad.ApiConnectionDetails{
		Address:   "http://nomad.example.com:4646",
		Token:     "secret",
		Namespace: "batch",
		Region:    "us",
		Timeout:   5 * time.Second,
		Retries:   5,
	}, a.Params.ApiConnectionDetails)
	assert.Equal(t, 2, a.Params.Concurrency)
	assert.Equal(t, configuration.OutputJSON, a.Params.Output)
}

func TestRootCmd_DefaultConfigFile(t *testing.T) {
	isolate(t)
	home, err := homedir.Dir()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".nquery.yaml"), []byte("namespace: web\n"), 0o600))

	a, _, err := runCmd(t, &fakeJobs{}, "etl")
	require.NoError(t, err)
	assert.Equal(t, "web", a.Params.ApiConnectionDetails.Namespace)
	assert.Equal(t, nomad.DefaultAddress, a.Params.ApiConnectionDetails.Address)
	assert.Equal(t, nomad.DefaultTimeout, a.Params.ApiConnectionDetails.Timeout)
	assert.Equal(t, uint(nomad.DefaultRetries), a.Params.ApiConnectionDetails.Retries)
	assert.Equal(t, nquery.DefaultConcurrency, a.Params.Concurrency)
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	buf := new(bytes.Buffer)
	a := nquery.New()
	a.Out = buf
	cmd := rootCmdWithApp(a)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), build.ReleaseVersion)
	assert.Contains(t, buf.String(), build.GoVersion)
}

func TestQueryArgsFromFlags(t *testing.T) {
	tests := map[string]struct {
		flags         []string
		fields        []string
		parameterized *bool
		periodic      *bool
	}{
		"no flags":          {nil, []string{}, nil, nil},
		"fields":            {[]string{"-f", "ID", "--field", "Meta.owner"}, []string{"ID", "Meta.owner"}, nil, nil},
		"parameterized":     {[]string{"-p"}, []string{}, boolPtr(true), nil},
		"not parameterized": {[]string{"--no-parameterized"}, []string{}, boolPtr(false), nil},
		"periodic":          {[]string{"--periodic"}, []string{}, nil, boolPtr(true)},
		"not periodic":      {[]string{"--no-periodic"}, []string{}, nil, boolPtr(false)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := rootCmdWithApp(nquery.New())
			require.NoError(t, cmd.ParseFlags(tc.flags))

			queryArgs, err := queryArgsFromFlags(cmd.Flags(), "etl")
			require.NoError(t, err)
			assert.Equal(t, "etl", queryArgs.Prefix)
			fields := make([]string, 0, len(queryArgs.Fields))
			for _, p := range queryArgs.Fields {
				fields = append(fields, p.String())
			}
			assert.Equal(t, tc.fields, fields)
			assert.Equal(t, tc.parameterized, queryArgs.Parameterized)
			assert.Equal(t, tc.periodic, queryArgs.Periodic)
		})
	}
}

func TestQueryArgsFromFlags_LoneEmptyField(t *testing.T) {
	cmd := rootCmdWithApp(nquery.New())
	require.NoError(t, cmd.ParseFlags([]string{"-f", ""}))

	_, err := queryArgsFromFlags(cmd.Flags(), "etl")
	require.Error(t, err)
	assert.True(t, projection.IsInvalidPath(err))
}

func TestInitParams_DebugTracesConfigFile(t *testing.T) {
	isolate(t)
	logger := log.StandardLogger()
	level := logger.GetLevel()
	logger.SetLevel(log.InfoLevel)
	hook := test.NewLocal(logger)
	t.Cleanup(func() {
		logger.ReplaceHooks(make(log.LevelHooks))
		logger.SetLevel(level)
	})
	cfgFile := writeConfig(t, "namespace: web\n")

	_, _, err := runCmd(t, &fakeJobs{}, "etl", "--debug", "--config", cfgFile)
	require.NoError(t, err)

	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "Using config file: "+cfgFile)
}

func boolPtr(b bool) *bool {
	return &b
}
