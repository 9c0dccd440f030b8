package cycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nightrunner/internal/artifacts"
	"nightrunner/internal/config"
)

func TestLatestExecution(t *testing.T) {
	exec := func(name, start string) map[string]any {
		props := map[string]any{}
		if start != "" {
			props["startTime"] = start
		}
		return map[string]any{"name": name, "properties": props}
	}

	testCases := []struct {
		name    string
		execs   []map[string]any
		want    string
		wantErr bool
	}{
		{name: "empty", wantErr: true},
		{name: "newest wins", execs: []map[string]any{
			exec("a", "2026-01-01T00:00:00Z"),
			exec("b", "2026-01-02T00:00:00+00:00"),
			exec("c", "2025-12-31T23:59:59Z"),
		}, want: "b"},
		{name: "unparseable is oldest", execs: []map[string]any{
			exec("bad", "yesterday"),
			exec("good", "2020-01-01T00:00:00Z"),
		}, want: "good"},
		{name: "ties keep first", execs: []map[string]any{
			exec("first", "2026-01-01T00:00:00Z"),
			exec("second", "2026-01-01T00:00:00Z"),
		}, want: "first"},
		{name: "zone-less time", execs: []map[string]any{
			exec("old", "2026-01-01T00:00:00Z"),
			exec("naive", "2026-01-01T06:30:00"),
		}, want: "naive"},
		{name: "space separator", execs: []map[string]any{
			exec("old", "2026-01-01T00:00:00Z"),
			exec("spaced", "2026-01-02 00:00:00+00:00"),
		}, want: "spaced"},
		{name: "space separator without zone", execs: []map[string]any{
			exec("spaced", "2026-01-02 00:00:00.123"),
			exec("old", "2026-01-01T00:00:00Z"),
		}, want: "spaced"},
		{name: "all missing keeps first", execs: []map[string]any{exec("x", ""), exec("y", "")}, want: "x"},
		{name: "nameless", execs: []map[string]any{{"properties": map[string]any{}}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LatestExecution(tc.execs)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("got %q, %v; want %q", got, err, tc.want)
			}
		})
	}
}

func TestResolveExecutionDir(t *testing.T) {
	base := t.TempDir()
	for _, d := range []string{"runs/2026-01-01/exec-a", "runs/2026-01-02/exec-b", "runs/2026-01-02/exec-c", "runs/2026-01-03", "custom/exec-z"} {
		if err := os.MkdirAll(filepath.Join(base, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	testCases := []struct {
		name     string
		override string
		envDir   string
		wantName string
		wantErr  bool
	}{
		{name: "override", override: "custom/exec-z", wantName: "exec-z"},
		{name: "override missing", override: "nope", wantErr: true},
		{name: "env dir", envDir: filepath.Join(base, "custom", "exec-z"), wantName: "exec-z"},
		{name: "env dir missing falls through", envDir: "missing", wantName: "exec-c"},
		{name: "newest by date then name", wantName: "exec-c"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, name, err := ResolveExecutionDir(base, tc.override, tc.envDir)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || name != tc.wantName {
				t.Errorf("got %q, %v; want %q", name, err, tc.wantName)
			}
		})
	}

	if _, _, err := ResolveExecutionDir(t.TempDir(), "", ""); err == nil {
		t.Error("expected error without runs/")
	}
}

type fakeRunner struct {
	triggerErr error
	execs      []map[string]any
	logs       string
	meta       map[string]any
	maxLines   int
}

func (f *fakeRunner) Trigger(ctx context.Context) error { return f.triggerErr }
func (f *fakeRunner) ListExecutions(ctx context.Context) ([]map[string]any, error) {
	return f.execs, nil
}
func (f *fakeRunner) FetchLogs(ctx context.Context, execution string, maxLines int) (string, error) {
	f.maxLines = maxLines
	return f.logs, nil
}
func (f *fakeRunner) FetchMetadata(ctx context.Context, execution string) (map[string]any, error) {
	return f.meta, nil
}

func newDriver(t *testing.T, runner JobRunner) (*Driver, *bytes.Buffer) {
	var out bytes.Buffer
	return &Driver{
		Runner:      runner,
		Pipeline:    artifacts.NewPipeline(&out, nil, "NM-910", "grok"),
		Base:        t.TempDir(),
		MaxLogLines: 50,
		Out:         &out,
		Now:         func() time.Time { return time.Date(2026, 7, 8, 9, 10, 11, 0, time.UTC) },
	}, &out
}

func TestRunRemote(t *testing.T) {
	runner := &fakeRunner{
		execs: []map[string]any{{"name": "job-abc", "properties": map[string]any{"startTime": "2026-07-08T01:00:00Z"}}},
		logs:  `MISSION_RESULT_JSON: {"mission":"NM-020","success":true}` + "\n",
		meta:  map[string]any{"properties": map[string]any{"status": "Succeeded"}},
	}
	d, _ := newDriver(t, runner)

	set, err := d.RunRemote(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if set == nil || set.Status != "Succeeded" || len(set.MissionResults) != 1 {
		t.Fatalf("set = %+v", set)
	}
	wantDir := filepath.Join(d.Base, "runs", "2026-07-08", "job-abc")
	if filepath.Dir(set.LogsPath) != wantDir {
		t.Errorf("logs at %s, want under %s", set.LogsPath, wantDir)
	}
	if runner.maxLines != 50 {
		t.Errorf("maxLines = %d", runner.maxLines)
	}
}

func TestRunRemoteAbortsOnCommandError(t *testing.T) {
	cmdErr := &CommandError{Args: []string{"az", "containerapp", "job", "start"}, ExitCode: 3}
	d, _ := newDriver(t, &fakeRunner{triggerErr: cmdErr})

	_, err := d.RunRemote(context.Background())
	var got *CommandError
	if !errors.As(err, &got) || got.ExitCode != 3 {
		t.Fatalf("err = %v, want CommandError with exit 3", err)
	}
}

func TestRunLocalWithProbe(t *testing.T) {
	d, _ := newDriver(t, nil)
	probe := func(ctx context.Context, w io.Writer) error {
		fmt.Fprintln(w, `WORKER_RESULT_JSON: {"mission_id":"NM-910","worker_name":"grok","worker":{"message":"hello"}}`)
		return nil
	}
	set, err := d.RunLocal(context.Background(), LocalOptions{Probe: probe})
	if err != nil {
		t.Fatal(err)
	}
	if set.ExecutionName != "20260708T091011Z" || set.Status != "local" {
		t.Errorf("set = %+v", set)
	}
	if set.WorkerResultsPath == "" || set.ProbeSummaryPath == "" {
		t.Errorf("probe output not processed: %+v", set)
	}
}

func TestRunLocalExistingDir(t *testing.T) {
	d, _ := newDriver(t, nil)
	runDir := filepath.Join(d.Base, "runs", "2026-07-01", "exec-old")
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "logs_exec-old.txt"), []byte("MISSION_RESULT_JSON: {\"mission\":\"NM-1\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := d.RunLocal(context.Background(), LocalOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.MissionResults) != 1 {
		t.Errorf("results = %v", set.MissionResults)
	}
}

func TestAzureCLICommands(t *testing.T) {
	testCases := []struct {
		name      string
		job       config.JobConfig
		wantCalls []string
	}{
		{
			name: "start only",
			job:  config.JobConfig{JobName: "job", ResourceGroup: "rg"},
			wantCalls: []string{
				"az containerapp job start --name job --resource-group rg",
			},
		},
		{
			name: "build push update start",
			job:  config.JobConfig{JobName: "job", ResourceGroup: "rg", ImageRepository: "reg/img", ImageTag: "dev"},
			wantCalls: []string{
				"docker build -t reg/img:dev .",
				"docker push reg/img:dev",
				"az containerapp job update --name job --resource-group rg --image reg/img:dev",
				"az containerapp job start --name job --resource-group rg",
			},
		},
		{
			name: "skip build",
			job:  config.JobConfig{JobName: "job", ResourceGroup: "rg", ImageRepository: "reg/img", ImageTag: "dev", SkipBuild: true},
			wantCalls: []string{
				"az containerapp job update --name job --resource-group rg --image reg/img:dev",
				"az containerapp job start --name job --resource-group rg",
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []string
			a := NewAzureCLI(tc.job, io.Discard)
			a.Run = func(ctx context.Context, name string, args ...string) (string, error) {
				calls = append(calls, strings.Join(append([]string{name}, args...), " "))
				return "", nil
			}
			if err := a.Trigger(context.Background()); err != nil {
				t.Fatal(err)
			}
			if strings.Join(calls, "\n") != strings.Join(tc.wantCalls, "\n") {
				t.Errorf("calls:\n%s\nwant:\n%s", strings.Join(calls, "\n"), strings.Join(tc.wantCalls, "\n"))
			}
		})
	}
}

func TestAzureCLIParsesExecutions(t *testing.T) {
	a := NewAzureCLI(config.JobConfig{JobName: "job", ResourceGroup: "rg"}, io.Discard)
	a.Run = func(ctx context.Context, name string, args ...string) (string, error) {
		return `[{"name":"e1","properties":{"startTime":"2026-01-01T00:00:00Z"}}]`, nil
	}
	execs, err := a.ListExecutions(context.Background())
	if err != nil || len(execs) != 1 || execs[0]["name"] != "e1" {
		t.Errorf("execs = %v, err = %v", execs, err)
	}
}

func TestRunCommandReportsExitCode(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	var out bytes.Buffer
	a := NewAzureCLI(config.JobConfig{}, &out)
	_, err := a.Run(context.Background(), "/bin/sh", "-c", "echo captured; echo oops >&2; exit 7")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.ExitCode != 7 {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(out.String(), "captured") || !strings.Contains(out.String(), "oops") {
		t.Errorf("output not echoed:\n%s", out.String())
	}
}
