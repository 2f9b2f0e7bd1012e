package describe

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// gitEnv gives commits a fixed identity and ignores the user's config.
var gitEnv = []string{
	"GIT_AUTHOR_NAME=coreversion",
	"GIT_AUTHOR_EMAIL=coreversion@example.com",
	"GIT_COMMITTER_NAME=coreversion",
	"GIT_COMMITTER_EMAIL=coreversion@example.com",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=" + os.DevNull,
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), gitEnv...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "-c", "commit.gpgsign=false", "commit", "-q", "-m", "update "+name)
}

// ---------------------------------------------------------------------------
// Test suite
// ---------------------------------------------------------------------------

// GitDescribeSuite runs the git backend against real repositories.
// It is skipped when git is not on PATH.
type GitDescribeSuite struct {
	suite.Suite
	ctx  context.Context
	repo string
}

func TestGitDescribeSuite(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
	suite.Run(t, new(GitDescribeSuite))
}

func (s *GitDescribeSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.T().TempDir()
	runGit(s.T(), s.repo, "init", "-q")
	commitFile(s.T(), s.repo, "README", "one\n")
}

func (s *GitDescribeSuite) TestCleanTagIsBare() {
	runGit(s.T(), s.repo, "tag", "v1.2")

	got, err := (&Git{Dir: s.repo}).Describe(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "v1.2", got)
}

func (s *GitDescribeSuite) TestCommitsAheadAndDirty() {
	runGit(s.T(), s.repo, "tag", "v1.2")
	commitFile(s.T(), s.repo, "a", "a\n")
	commitFile(s.T(), s.repo, "b", "b\n")
	commitFile(s.T(), s.repo, "c", "c\n")
	require.NoError(s.T(), os.WriteFile(filepath.Join(s.repo, "README"), []byte("changed\n"), 0o644))

	got, err := (&Git{Dir: s.repo}).Describe(s.ctx)
	require.NoError(s.T(), err)
	assert.Regexp(s.T(), `^v1\.2-3-g[0-9a-f]{4,}-dirty$`, got)
}

func (s *GitDescribeSuite) TestNoTagFallsBackToHash() {
	got, err := (&Git{Dir: s.repo}).Describe(s.ctx)
	require.NoError(s.T(), err)
	assert.Regexp(s.T(), `^[0-9a-f]{4,}$`, got)
}

func (s *GitDescribeSuite) TestNotARepository() {
	dir := s.T().TempDir()

	_, err := (&Git{Dir: dir, Binary: "git"}).Describe(s.ctx)
	assert.Error(s.T(), err)

	got, _ := Resolve(s.ctx, &Git{Dir: dir})
	assert.Equal(s.T(), Fallback, got)
}

// ---------------------------------------------------------------------------
// Without git
// ---------------------------------------------------------------------------

func TestGitMissingBinary(t *testing.T) {
	g := &Git{Binary: "coreversion-no-such-git-binary"}

	_, err := g.Describe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coreversion-no-such-git-binary")

	got, _ := Resolve(context.Background(), g)
	assert.Equal(t, Fallback, got)
}
