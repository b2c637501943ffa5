package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), "go: go")
	require.Equal(t, []any{"version", Version, "commit", Commit, "built_at", BuildTime}, KV())
}

func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		args []string
		want string
	}{
		{name: "full", args: []string{"version"}, want: Full()},
		{name: "short", args: []string{"version", "--short"}, want: Short()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			root := &cobra.Command{Use: "arming-test"}
			AttachCobraVersionCommand(root)

			var out bytes.Buffer

			root.SetOut(&out)
			root.SetArgs(tc.args)

			require.NoError(t, root.Execute())
			require.Equal(t, tc.want, strings.TrimSpace(out.String()))
		})
	}
}
