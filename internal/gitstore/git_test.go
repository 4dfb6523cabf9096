package gitstore_test

import (
	"path/filepath"
	"testing"

	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/testutils"
)

type Fixture struct {
	*testutils.Fixture
}

func NewFixture(t *testing.T) *Fixture {
	return &Fixture{testutils.NewFixture(t)}
}

func TestNewMustLazyGitPanicsIfArgIsNotAGitRepo(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	f.Panics(func() {
		gitstore.NewMustLazyGit(f.Temp)()
	})
}

func TestInitCreatesBareRepo(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")
	f.True(repo.IsBare())
	f.Equal(filepath.Join(f.Temp, "store.git"), repo.Path())
}

func TestLazyGitRepo(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")
	lazy := gitstore.NewMustLazyGit(repo.Path())
	f.Equal(repo.Path(), lazy().Path())
}

func TestRunExitingNonZeroIsAnError(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")
	cr, err := repo.Run("show-ref", "--", "there/is/no/way/this/is/a/valid/ref")
	f.NotNil(cr)
	f.Error(err)

	cfe, ok := err.(*gitstore.CommandFailedError)
	f.True(ok)
	f.Equal(1, cfe.ExitCode)
}

func TestHashObjectAndMkTreeAndCommitTree(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	blobHash, err := repo.HashObject([]byte("hello\n"), "blob")
	f.NoError(err)
	f.Len(blobHash, 40)

	treeHash, err := repo.MkTree([]gitstore.TreeEntry{
		{Mode: "100644", Type: "blob", Hash: blobHash, Name: "greeting"},
	})
	f.NoError(err)
	f.Len(treeHash, 40)

	commitHash, err := repo.CommitTree(treeHash, nil, "Initialised with identity deadbeef")
	f.NoError(err)
	f.Len(commitHash, 40)

	gotTree, err := repo.TreeID(commitHash)
	f.NoError(err)
	f.Equal(treeHash, gotTree)
}

func TestUpdateRefAndHasReference(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	blobHash, err := repo.HashObject([]byte("hi\n"), "blob")
	f.NoError(err)
	treeHash, err := repo.MkTree([]gitstore.TreeEntry{{Mode: "100644", Type: "blob", Hash: blobHash, Name: "f"}})
	f.NoError(err)
	commitHash, err := repo.CommitTree(treeHash, nil, "root")
	f.NoError(err)

	f.RefMustNotExist(repo, "refs/heads/main")
	f.NoError(repo.UpdateRef("refs/heads/main", commitHash, "", false))
	f.RefMustExist(repo, "refs/heads/main")

	err = repo.UpdateRef("refs/heads/main", commitHash, "", false)
	f.Error(err, "non-forced update over an existing ref should fail")

	f.NoError(repo.UpdateRef("refs/heads/main", commitHash, "", true))
}

func TestSymbolicRefForceSemantics(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	f.NoError(repo.SymbolicRef("refs/rad/self", "refs/remotes/alice/rad/self", false))
	target, err := repo.SymbolicRefTarget("refs/rad/self")
	f.NoError(err)
	f.Equal("refs/remotes/alice/rad/self", target)

	err = repo.SymbolicRef("refs/rad/self", "refs/remotes/bob/rad/self", false)
	f.Error(err)

	f.NoError(repo.SymbolicRef("refs/rad/self", "refs/remotes/bob/rad/self", true))
	target, err = repo.SymbolicRefTarget("refs/rad/self")
	f.NoError(err)
	f.Equal("refs/remotes/bob/rad/self", target)
}

func TestForEachRefGlobsByPrefix(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	blobHash, _ := repo.HashObject([]byte("x\n"), "blob")
	treeHash, _ := repo.MkTree([]gitstore.TreeEntry{{Mode: "100644", Type: "blob", Hash: blobHash, Name: "f"}})
	commitHash, _ := repo.CommitTree(treeHash, nil, "c")

	f.NoError(repo.UpdateRef("refs/remotes/alice/rad/ids/x", commitHash, "", false))
	f.NoError(repo.UpdateRef("refs/remotes/bob/rad/ids/y", commitHash, "", false))
	f.NoError(repo.UpdateRef("refs/heads/main", commitHash, "", false))

	entries, err := repo.ForEachRef("refs/remotes/*/rad/ids/*")
	f.NoError(err)
	f.Len(entries, 2)
}

func TestIsAncestor(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	blobHash, _ := repo.HashObject([]byte("x\n"), "blob")
	treeHash, _ := repo.MkTree([]gitstore.TreeEntry{{Mode: "100644", Type: "blob", Hash: blobHash, Name: "f"}})
	root, err := repo.CommitTree(treeHash, nil, "root")
	f.NoError(err)
	child, err := repo.CommitTree(treeHash, []string{root}, "child")
	f.NoError(err)

	ok, err := repo.IsAncestor(root, child)
	f.NoError(err)
	f.True(ok)

	ok, err = repo.IsAncestor(child, root)
	f.NoError(err)
	f.False(ok)
}

func TestConfigLocalSetAndGet(t *testing.T) {
	f := NewFixture(t)
	defer f.Close()

	repo := f.NewBareRepo("store.git")

	f.NoError(repo.Config().Local().Set("rad.peerid", "abc123"))
	v, ok, err := repo.Config().Local().Get("rad.peerid")
	f.NoError(err)
	f.True(ok)
	f.Equal("abc123", v)

	_, ok, err = repo.Config().Local().Get("rad.missing")
	f.NoError(err)
	f.False(ok)
}
