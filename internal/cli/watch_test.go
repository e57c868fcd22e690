package cli_test

import (
	"strings"
	"testing"
	"time"

	"github.com/calvinalkan/rpmkit/internal/cli"
	"github.com/calvinalkan/rpmkit/internal/testutil"
)

const watchTimeout = 5 * time.Second

func Test_Watch_Reprints_Query_When_Database_Replaced(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	bg := c.Start("watch", "--count", "1", "foo", "qux")
	bg.WaitForOutput("foo-1.0-1.x86_64", watchTimeout)

	c.WriteDB(testutil.NewPackageBuilder().
		Add("foo", "1.1").
		Add("qux", "3.0").
		Specs()...)

	stdout, stderr, code := bg.Wait(watchTimeout)
	if code != 0 {
		t.Fatalf("exit code %d\nstderr: %s", code, stderr)
	}

	blocks := strings.Split(stdout, "# ")[1:]
	if len(blocks) != 2 {
		t.Fatalf("got %d refreshes, want 2\nstdout:\n%s", len(blocks), stdout)
	}

	cli.AssertContains(t, blocks[0], "foo-1.0-1.x86_64")
	cli.AssertNotContains(t, blocks[0], "qux")
	cli.AssertContains(t, blocks[1], "foo-1.1-1.x86_64\nqux-3.0-1.x86_64")
}

func Test_Watch_Exits_Cleanly_When_Interrupted(t *testing.T) {
	c := cli.NewCLI(t)
	c.WriteDB(fixture()...)

	bg := c.Start("watch")
	bg.WaitForOutput("baz-2:0.3-1.x86_64", watchTimeout)
	bg.Interrupt()

	_, stderr, code := bg.Wait(watchTimeout)
	if code != 0 {
		t.Fatalf("exit code %d\nstderr: %s", code, stderr)
	}
}

func Test_Watch_Fails_When_Database_Dir_Missing(t *testing.T) {
	c := cli.NewCLI(t)

	stderr := c.MustFail("watch", "--count", "1")
	cli.AssertContains(t, stderr, "watch "+c.DBPath)
}
