// Package testutils provides a shared test fixture (temp dirs, a scrubbed
// environment, and bare git repositories) for exercising the storage core
// against a real git binary instead of mocks.
package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rad-link/corestore/internal/gitstore"
	r "github.com/stretchr/testify/require"
)

type Fixture struct {
	*r.Assertions
	T       *testing.T
	origEnv []string
	Temp    string
}

var GitEnv = []string{
	"PAGER=cat",
	"EDITOR=:",
	"GIT_AUTHOR_NAME=Capt Spaulding",
	"GIT_AUTHOR_EMAIL=captspaulding@scotland-yard.co.uk",
	"GIT_COMMITTER_NAME=Roscoe W Chandler",
	"GIT_COMMITTER_EMAIL=abey@thefishman.gov",
}

func NewFixture(t *testing.T) (fix *Fixture) {
	f := &Fixture{
		Assertions: r.New(t),
		T:          t,
		origEnv:    os.Environ(),
		Temp:       t.TempDir(),
	}

	f.ResetEnv()
	return f
}

// put the env back exactly the way we found it
func (f *Fixture) cleanEnv() {
	os.Clearenv()
	for i := range f.origEnv {
		p := strings.Index(f.origEnv[i], "=")
		if p < 0 {
			continue
		}

		k := f.origEnv[i][0:p]
		v := f.origEnv[i][p+1:]

		os.Setenv(k, v)
	}
}

// clean the env but set a few special vars that keep git from touching
// the real user's home directory or system config
func (f *Fixture) ResetEnv() {
	f.cleanEnv()
	os.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	os.Setenv("HOME", f.Temp)
	for _, kv := range GitEnv {
		i := strings.Index(kv, "=")
		os.Setenv(kv[:i], kv[i+1:])
	}
}

// Sets os.Environ back to what it was when NewFixture was called
func (f *Fixture) Close() {
	f.cleanEnv()
}

func (f *Fixture) GetProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Clean(filepath.Join(filepath.Dir(filename), "../.."))
	_, err := os.Stat(filepath.Join(dir, "go.mod"))
	f.NoError(err, "could not determine top level directory")
	return dir
}

// NewBareRepo creates a fresh bare repository under the fixture's temp dir
// named 'name' and returns an opened *gitstore.Repo handle to it.
func (f *Fixture) NewBareRepo(name string) *gitstore.Repo {
	path := filepath.Join(f.Temp, name)
	repo, err := gitstore.Init(path)
	f.NoError(err)
	return repo
}

func (f *Fixture) RefMustExist(repo *gitstore.Repo, name string) {
	ok, err := repo.HasReference(name)
	f.NoError(err)
	f.True(ok, "expected reference %#v to exist", name)
}

func (f *Fixture) RefMustNotExist(repo *gitstore.Repo, name string) {
	ok, err := repo.HasReference(name)
	f.NoError(err)
	f.False(ok, "expected reference %#v to not exist", name)
}
