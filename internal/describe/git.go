package describe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git runs the describe query with a local git binary.
type Git struct {
	// Binary is the git executable name or path.  Default: "git".
	Binary string

	// Dir is the repository directory.  Empty means the process working
	// directory.
	Dir string
}

// Compile-time check that Git satisfies the Describer interface.
var _ Describer = (*Git)(nil)

// Describe implements Describer.
func (g *Git) Describe(ctx context.Context) (string, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, DescribeArgs...)
	cmd.Dir = g.Dir
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s describe: %w: %s", bin, err, msg)
		}
		return "", fmt.Errorf("%s describe: %w", bin, err)
	}
	return decode(out)
}
