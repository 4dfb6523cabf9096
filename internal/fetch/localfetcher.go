package fetch

import (
	"github.com/pkg/errors"

	"github.com/rad-link/corestore/internal/gitstore"
	"github.com/rad-link/corestore/internal/identity"
	"github.com/rad-link/corestore/internal/refname"
)

// LocalFetcher is a Fetcher backed by a sibling bare repository reachable
// on the same filesystem, used by tests to exercise Storage's clone/fetch
// flows without a real network layer.
type LocalFetcher struct {
	repo   *gitstore.Repo
	url    identity.URL
	remote string
}

// NewLocalFetcher binds repo (the local handle) to a remote peer's on-disk
// store at remotePath.
func NewLocalFetcher(repo *gitstore.Repo, url identity.URL, remotePath string) (*LocalFetcher, error) {
	remote := refname.TrackingRemoteName(url.Urn.Id, url.Authority)

	if has, _ := hasRemote(repo, remote); !has {
		if err := repo.AddRemote(remote, remotePath); err != nil {
			return nil, errors.Wrap(err, "failed to configure fetcher remote")
		}
	}

	return &LocalFetcher{repo: repo, url: url, remote: remote}, nil
}

func hasRemote(repo *gitstore.Repo, name string) (bool, error) {
	names, err := repo.ListRemotes()
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *LocalFetcher) Url() identity.URL { return f.url }

// Prefetch pulls only the remote's identity references.
func (f *LocalFetcher) Prefetch() error {
	ns := refname.NamespaceOf(f.url.Urn.Id)
	localNs := ns + "/remotes/" + f.url.Authority.String()
	return f.repo.FetchRefspecs(f.remote,
		"+"+ns+"/rad/id:"+localNs+"/rad/id",
		"+"+ns+"/rad/self:"+localNs+"/rad/self",
		"+"+ns+"/rad/ids/*:"+localNs+"/rad/ids/*",
	)
}

// Fetch pulls everything else under the remote's namespace: heads,
// rad/refs, and its own view of the peers it tracks. The negotiation
// closures are unused by this filesystem-local implementation since there
// is no bandwidth budget to economize on; a real network fetcher would use
// them to decide what is worth transferring.
func (f *LocalFetcher) Fetch(_ []identity.PeerId, _ GetRefs, _ GetCertifiers) error {
	ns := refname.NamespaceOf(f.url.Urn.Id)
	localNs := ns + "/remotes/" + f.url.Authority.String()
	return f.repo.FetchRefspecs(f.remote,
		"+"+ns+"/*:"+localNs+"/*",
	)
}
