package testutils

import (
	"os"
	"testing"
)

func TestGetProjectRootFindsGoMod(t *testing.T) {
	f := NewFixture(t)
	root := f.GetProjectRoot()

	_, err := os.Stat(root + "/go.mod")
	f.NoError(err)
}

func TestNewBareRepoCreatesUsableRepo(t *testing.T) {
	f := NewFixture(t)
	repo := f.NewBareRepo("store.git")

	f.True(repo.IsBare())
	f.RefMustNotExist(repo, "refs/heads/main")
}
