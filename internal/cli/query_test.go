package cli_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/rpmkit/internal/cli"
)

func Test_Query_Prints_NEVRA_When_Name_Matches(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	if got, want := c.MustRun("query", "baz"), "baz-2:0.3-1.x86_64"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Query_Prints_Results_In_Key_Order_When_Several_Keys(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	got := c.MustRun("query", "baz", "foo", "bar", "foo")
	want := "baz-2:0.3-1.x86_64\nfoo-1.0-1.x86_64\nbar-2.1-1.x86_64\nfoo-1.0-1.x86_64"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func Test_Query_Matches_Other_Fields_When_Field_Given(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	tests := []struct {
		field string
		key   string
		want  string
	}{
		{field: "providename", key: "libfoo.so.1", want: "foo-1.0-1.x86_64\nbar-2.1-1.x86_64"},
		{field: "instfilename", key: "/usr/bin/foo", want: "foo-1.0-1.x86_64"},
		{field: "license", key: "MIT", want: "bar-2.1-1.x86_64"},
		{field: "version", key: "0.3", want: "baz-2:0.3-1.x86_64"},
	}

	for _, tt := range tests {
		got := c.MustRun("query", "-f", tt.field, tt.key)
		if got != tt.want {
			t.Errorf("query -f %s %s: stdout=%q, want=%q", tt.field, tt.key, got, tt.want)
		}
	}
}

func Test_Query_Warns_And_Exits_1_When_Key_Matches_Nothing(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	stdout, stderr, code := c.Run("query", "foo", "Foo", "fo")

	if got, want := code, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, "foo-1.0-1.x86_64\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, `warning: no package matches name="Foo": matching is exact`)
	cli.AssertContains(t, stderr, `warning: no package matches name="fo"`)
}

func Test_Query_Fails_When_Field_Unknown(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	stderr := c.MustFail("query", "-f", "color", "foo")
	cli.AssertContains(t, stderr, `unknown search field "color"`)
}

func Test_Query_Fails_When_No_Key(t *testing.T) {
	c := cli.NewCLI(t)

	stderr := c.MustFail("query")
	cli.AssertContains(t, stderr, "at least one key is required")
}

func Test_Query_Fails_When_Database_Missing(t *testing.T) {
	c := cli.NewCLI(t)

	stderr := c.MustFail("query", "foo")
	cli.AssertContains(t, stderr, "error:")
}

func Test_Query_Prints_JSON_When_Format_JSON(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	stdout := c.MustRun("-o", "json", "query", "bar")

	var got []map[string]any

	err := json.Unmarshal([]byte(stdout), &got)
	if err != nil {
		t.Fatalf("invalid json: %v\n%s", err, stdout)
	}

	if len(got) != 1 {
		t.Fatalf("got %d packages, want 1", len(got))
	}

	if got[0]["name"] != "bar" || got[0]["version"] != "2.1" || got[0]["license"] != "MIT" {
		t.Errorf("unexpected package: %v", got[0])
	}

	if _, ok := got[0]["installtime"]; !ok {
		t.Errorf("installtime missing: %v", got[0])
	}

	if _, ok := got[0]["buildtime"]; ok {
		t.Errorf("zero buildtime should be omitted: %v", got[0])
	}
}

func Test_Query_Prints_Empty_JSON_List_When_Nothing_Matches(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	stdout, _, code := c.Run("-o", "json", "query", "nope")
	if code != 1 {
		t.Errorf("exitCode=%d, want=1", code)
	}

	if got, want := stdout, "[]\n"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}
}

func Test_Query_Prints_YAML_When_Format_YAML(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	stdout := c.MustRun("--format=yaml", "query", "foo")

	var got []struct {
		Name  string   `yaml:"name"`
		Files []string `yaml:"files"`
	}

	err := yaml.Unmarshal([]byte(stdout), &got)
	if err != nil {
		t.Fatalf("invalid yaml: %v\n%s", err, stdout)
	}

	if len(got) != 1 || got[0].Name != "foo" {
		t.Fatalf("got %+v", got)
	}

	if diff := cmp.Diff([]string{"/usr/bin/foo"}, got[0].Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func Test_List_Prints_All_In_Database_Order_When_Invoked(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	got := c.MustRun("list")
	want := "foo-1.0-1.x86_64\nbar-2.1-1.x86_64\nbaz-2:0.3-1.x86_64"

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
}

func Test_List_Stops_At_Limit_When_Given(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	if got, want := c.MustRun("list", "--limit", "2"), "foo-1.0-1.x86_64\nbar-2.1-1.x86_64"; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	stderr := c.MustFail("list", "--limit", "-1")
	cli.AssertContains(t, stderr, "--limit must be non-negative")

	// An early stop must not leak the cursor.
	cli.AssertContains(t, c.MustRun("metrics"), "rpm_cursors_open 0")
}

func Test_List_Prints_Nothing_When_Database_Empty(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB()

	if got := c.MustRun("list"); got != "" {
		t.Errorf("stdout=%q, want empty", got)
	}
}
