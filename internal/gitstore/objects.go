package gitstore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// TreeEntry is one line of a `git mktree` input: a mode/type/hash triple
// addressed by name within the parent tree.
type TreeEntry struct {
	Mode string // "100644", "100755", "120000", "040000", "160000"
	Type string // "blob", "tree", "commit"
	Hash string
	Name string
}

func (e TreeEntry) line() string {
	return fmt.Sprintf("%s %s %s\t%s", e.Mode, e.Type, e.Hash, e.Name)
}

// HashObject writes data into the object database as a loose object of the
// given type and returns its hash.
func (r *Repo) HashObject(data []byte, objType string) (hash string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return "", err
	}
	cmd.AddArgs("hash-object", "-w", "-t", objType, "--stdin")
	cmd.SetStdin(strings.NewReader(string(data)))

	if err = cmd.Run(); err != nil {
		return "", errors.Wrap(err, "hash-object failed")
	}

	lines := cmd.OutputLines()
	if len(lines) < 1 {
		return "", errors.Errorf("hash-object produced no output")
	}

	return strings.TrimSpace(lines[0]), nil
}

// MkTree builds a tree object out of entries and returns its hash.
func (r *Repo) MkTree(entries []TreeEntry) (hash string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return "", err
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.line()
	}

	cmd.AddArgs("mktree")
	cmd.SetStdin(strings.NewReader(strings.Join(lines, "\n") + "\n"))

	if err = cmd.Run(); err != nil {
		return "", errors.Wrap(err, "mktree failed")
	}

	out := cmd.OutputLines()
	if len(out) < 1 {
		return "", errors.Errorf("mktree produced no output")
	}

	return strings.TrimSpace(out[0]), nil
}

// CommitTree creates a commit object pointing at tree, with the given
// parents and message, and returns its hash. An empty message is valid and
// is used by the rad/refs snapshot commits.
func (r *Repo) CommitTree(tree string, parents []string, message string) (hash string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return "", err
	}

	cmd.AddArgs("commit-tree", tree)
	for _, p := range parents {
		cmd.AddArgs("-p", p)
	}
	cmd.SetStdin(strings.NewReader(message))

	if err = cmd.Run(); err != nil {
		return "", errors.Wrap(err, "commit-tree failed")
	}

	out := cmd.OutputLines()
	if len(out) < 1 {
		return "", errors.Errorf("commit-tree produced no output")
	}

	return strings.TrimSpace(out[0]), nil
}

// HasReference reports whether name resolves to an object.
func (r *Repo) HasReference(name string) (ok bool, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return false, err
	}
	cmd.AddArgs("show-ref", "--verify", "--quiet", "--", name)

	err = cmd.Run()
	if err == nil {
		return true, nil
	}

	if cfe, ok := err.(*CommandFailedError); ok && cfe.ExitCode == 1 {
		return false, nil
	}

	return false, err
}

// ResolveRef resolves name (a ref or any git revision expression) to the
// object hash it currently points at.
func (r *Repo) ResolveRef(name string) (hash string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return "", err
	}
	cmd.AddArgs("rev-parse", "--verify", "--quiet", name)

	if err = cmd.Run(); err != nil {
		return "", err
	}

	out := cmd.OutputLines()
	if len(out) < 1 {
		return "", errors.Errorf("rev-parse produced no output for %#v", name)
	}

	return strings.TrimSpace(out[0]), nil
}

// UpdateRef creates or moves a direct reference to point at newValue. If
// oldValue is non-empty, the update is rejected unless name currently points
// at oldValue (optimistic concurrency, mirrors `git update-ref`'s <oldvalue>
// argument). If force is false and the ref already exists, the update fails
// rather than overwriting it.
func (r *Repo) UpdateRef(name, newValue, oldValue string, force bool) (err error) {
	if !force {
		exists, err := r.HasReference(name)
		if err != nil {
			return err
		}
		if exists {
			return errors.Errorf("refusing to overwrite existing reference %#v without force", name)
		}
	}

	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("update-ref", name, newValue)
	if oldValue != "" {
		cmd.AddArgs(oldValue)
	}

	return cmd.Run()
}

// DeleteRef removes a reference. A symbolic reference is removed itself; the
// reference it points at is left alone.
func (r *Repo) DeleteRef(name string) (err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("update-ref", "--no-deref", "-d", name)
	return cmd.Run()
}

// SymbolicRef points name at target as a symbolic reference. When force is
// false, the call fails if name already exists, matching the non-forced
// symref creation used when first laying down rad/self and rad/ids/<id>.
func (r *Repo) SymbolicRef(name, target string, force bool) (err error) {
	if !force {
		exists, err := r.HasReference(name)
		if err != nil {
			return err
		}
		if !exists {
			// a symbolic ref whose target does not exist yet does not
			// resolve to an object, but it still exists.
			_, symErr := r.SymbolicRefTarget(name)
			exists = symErr == nil
		}
		if exists {
			return errors.Errorf("refusing to overwrite existing symbolic reference %#v without force", name)
		}
	}

	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("symbolic-ref", name, target)
	return cmd.Run()
}

// SymbolicRefTarget returns the reference that name points at, without
// resolving it further.
func (r *Repo) SymbolicRefTarget(name string) (target string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return "", err
	}
	cmd.AddArgs("symbolic-ref", "--quiet", name)

	if err = cmd.Run(); err != nil {
		return "", err
	}

	out := cmd.OutputLines()
	if len(out) < 1 {
		return "", errors.Errorf("symbolic-ref produced no output for %#v", name)
	}

	return strings.TrimSpace(out[0]), nil
}

// RefEntry is one row of a for-each-ref listing.
type RefEntry struct {
	Name string
	Hash string
}

// ForEachRef globs refs under the given pattern(s) and returns the matches.
// This is a single, non-lazy pass: the storage core's Design Notes call for
// iteration that does not need to survive concurrent ref churn, so we just
// buffer the (typically small) result set rather than streaming it.
func (r *Repo) ForEachRef(patterns ...string) (entries []RefEntry, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return nil, err
	}
	cmd.AddArgs("for-each-ref", "--format=%(objectname) %(refname)")
	cmd.AddArgs(patterns...)

	if err = cmd.Run(); err != nil {
		return nil, errors.Wrap(err, "for-each-ref failed")
	}

	for _, line := range cmd.OutputLines() {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			continue
		}
		entries = append(entries, RefEntry{Hash: fields[0], Name: fields[1]})
	}

	return entries, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ancestor, descendant string) (ok bool, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return false, err
	}
	cmd.AddArgs("merge-base", "--is-ancestor", ancestor, descendant)

	err = cmd.Run()
	if err == nil {
		return true, nil
	}

	if cfe, ok := err.(*CommandFailedError); ok && cfe.ExitCode == 1 {
		return false, nil
	}

	return false, err
}

// TreeID returns the tree object a commit points at, used by update_refs to
// short-circuit when a new rad/refs snapshot would be identical to the one
// already recorded.
func (r *Repo) TreeID(commit string) (tree string, err error) {
	return r.ResolveRef(commit + "^{tree}")
}

// AddRemote configures a named remote with the given fetch URL and refspecs.
func (r *Repo) AddRemote(name, url string, refspecs ...string) (err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("remote", "add", name, url)
	if err = cmd.Run(); err != nil {
		return err
	}

	for _, spec := range refspecs {
		if err = r.Config().Local().Set("remote."+name+".fetch", spec); err != nil {
			return err
		}
	}

	return nil
}

// ListRemotes returns the configured remote names.
func (r *Repo) ListRemotes() (names []string, err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return nil, err
	}
	cmd.AddArgs("remote")

	if err = cmd.Run(); err != nil {
		return nil, err
	}

	for _, line := range cmd.OutputLines() {
		line = strings.TrimSpace(line)
		if line != "" {
			names = append(names, line)
		}
	}

	return names, nil
}

// RemoveRemote removes a configured remote.
func (r *Repo) RemoveRemote(name string) (err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("remote", "remove", name)
	return cmd.Run()
}

// FetchRefspecs runs `git fetch` for the given remote with explicit refspecs,
// overriding whatever is configured for it. This is the plumbing primitive
// the fetch executor's prefetch/fetch phases both build on.
func (r *Repo) FetchRefspecs(remote string, refspecs ...string) (err error) {
	cmd, err := r.Cmd()
	if err != nil {
		return err
	}
	cmd.AddArgs("fetch", "--no-tags", "--prune", remote)
	cmd.AddArgs(refspecs...)
	return cmd.Run()
}
