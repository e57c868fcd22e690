package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/rpmkit/internal/cli"
)

// LoadConfig never touches the engine, so these tests run in parallel.

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		t.Fatal(err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatal(err)
	}
}

func load(t *testing.T, dir string, input cli.LoadConfigInput) cli.Config {
	t.Helper()

	input.WorkDirOverride = dir

	cfg, err := cli.LoadConfig(input)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	return cfg
}

func Test_LoadConfig_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := load(t, dir, cli.LoadConfigInput{Env: map[string]string{"HOME": dir}})

	want := cli.Config{Format: cli.FormatText, EffectiveCwd: dir}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadConfig_Project_File_With_Comments_When_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, cli.ConfigFileName), `{
		// relative to the project
		"dbpath": "var/lib/rpm",
		"format": "yaml",
	}`)

	cfg := load(t, dir, cli.LoadConfigInput{})

	if got, want := cfg.DBPathAbs, filepath.Join(dir, "var/lib/rpm"); got != want {
		t.Errorf("DBPathAbs=%q, want=%q", got, want)
	}

	if got, want := cfg.Format, cli.FormatYAML; got != want {
		t.Errorf("Format=%q, want=%q", got, want)
	}

	if got, want := cfg.Sources.Project, filepath.Join(dir, cli.ConfigFileName); got != want {
		t.Errorf("Sources.Project=%q, want=%q", got, want)
	}
}

func Test_LoadConfig_Precedence_Full_Chain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")

	writeFile(t, filepath.Join(xdg, "rpmq", "config.json"),
		`{"dbpath": "/global/db", "rcfile": "/global/rpmrc", "format": "json", "defines": ["_a global"]}`)
	writeFile(t, filepath.Join(dir, cli.ConfigFileName), `{"dbpath": "/project/db", "defines": ["_b project"]}`)

	cfg := load(t, dir, cli.LoadConfigInput{
		Env:       map[string]string{"XDG_CONFIG_HOME": xdg},
		Overrides: cli.Config{Format: cli.FormatYAML, Defines: []string{"_c flag"}},
	})

	want := cli.Config{
		DBPath:       "/project/db",
		RCFile:       "/global/rpmrc",
		Format:       cli.FormatYAML,
		Defines:      []string{"_a global", "_b project", "_c flag"},
		EffectiveCwd: dir,
		DBPathAbs:    "/project/db",
		Sources: cli.ConfigSources{
			Global:  filepath.Join(xdg, "rpmq", "config.json"),
			Project: filepath.Join(dir, cli.ConfigFileName),
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func Test_LoadConfig_Global_Falls_Back_To_Home_When_XDG_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".config", "rpmq", "config.json"), `{"rcfile": "/home/rpmrc"}`)

	cfg := load(t, dir, cli.LoadConfigInput{Env: map[string]string{"HOME": dir}})

	if got, want := cfg.RCFile, "/home/rpmrc"; got != want {
		t.Errorf("RCFile=%q, want=%q", got, want)
	}
}

func Test_LoadConfig_Explicit_File_Replaces_Project_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, cli.ConfigFileName), `{"rcfile": "/project/rpmrc", "format": "yaml"}`)
	writeFile(t, filepath.Join(dir, "custom.json"), `{"format": "json"}`)

	cfg := load(t, dir, cli.LoadConfigInput{ConfigPath: "custom.json"})

	if got, want := cfg.Format, cli.FormatJSON; got != want {
		t.Errorf("Format=%q, want=%q", got, want)
	}

	if got, want := cfg.RCFile, ""; got != want {
		t.Errorf("RCFile=%q, want=%q (project file must not be layered)", got, want)
	}
}

func Test_LoadConfig_Returns_Error_When_Config_Broken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   map[string]string
		input   cli.LoadConfigInput
		wantErr error
	}{
		{
			name:    "explicit file missing",
			input:   cli.LoadConfigInput{ConfigPath: "nope.json"},
			wantErr: cli.ErrConfigFileNotFound,
		},
		{
			name:    "project file invalid",
			files:   map[string]string{cli.ConfigFileName: `{"format": `},
			wantErr: cli.ErrConfigInvalid,
		},
		{
			name:    "global file invalid",
			files:   map[string]string{"xdg/rpmq/config.json": `not json`},
			input:   cli.LoadConfigInput{Env: map[string]string{"XDG_CONFIG_HOME": "xdg"}},
			wantErr: cli.ErrConfigInvalid,
		},
		{
			name:    "unknown format",
			input:   cli.LoadConfigInput{Overrides: cli.Config{Format: "xml"}},
			wantErr: cli.ErrInvalidFormat,
		},
		{
			name:    "unknown format in file",
			files:   map[string]string{cli.ConfigFileName: `{"format": "csv"}`},
			wantErr: cli.ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			for rel, content := range tt.files {
				writeFile(t, filepath.Join(dir, rel), content)
			}

			input := tt.input
			input.WorkDirOverride = dir

			if xdg := input.Env["XDG_CONFIG_HOME"]; xdg != "" {
				input.Env = map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, xdg)}
			}

			_, err := cli.LoadConfig(input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v, want %v", err, tt.wantErr)
			}
		})
	}
}

// The tests below go through Run and share the engine's global state.

func Test_ShowRC_Shows_Sources_When_Invoked(t *testing.T) {
	c := cli.NewCLI(t)

	stdout := c.MustRun("showrc", "--macros=false")
	cli.AssertContains(t, stdout, "effective_cwd="+c.Dir)
	cli.AssertContains(t, stdout, "dbpath="+c.DBPath)
	cli.AssertContains(t, stdout, "format=text")
	cli.AssertContains(t, stdout, "(defaults only)")
	cli.AssertNotContains(t, stdout, "# macros")

	c.WriteFile(cli.ConfigFileName, `{"format": "json"}`)

	stdout = c.MustRun("showrc")
	cli.AssertContains(t, stdout, "format=json")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, cli.ConfigFileName))
	cli.AssertContains(t, stdout, "# macros")
	cli.AssertContains(t, stdout, "_dbpath\t"+c.DBPath)
}

func Test_Config_Format_From_Project_File_Applies_To_Output(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)
	c.WriteFile(cli.ConfigFileName, `{
		// comments are fine
		"format": "json",
	}`)

	stdout := c.MustRun("query", "foo")
	cli.AssertContains(t, stdout, `"name": "foo"`)

	stdout = c.MustRun("-o", "text", "query", "foo")
	if got, want := stdout, "foo-1.0-1.x86_64"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Config_Error_Reported_When_Explicit_File_Missing(t *testing.T) {
	c := cli.NewCLI(t)

	stderr := c.MustFail("-c", "missing.json", "list")
	cli.AssertContains(t, stderr, "config file not found")
	cli.AssertContains(t, stderr, "missing.json")
}

func Test_Config_Error_Reported_When_Format_Invalid(t *testing.T) {
	c := cli.NewCLI(t)

	stderr := c.MustFail("--format", "xml", "list")
	cli.AssertContains(t, stderr, "invalid output format")
}
