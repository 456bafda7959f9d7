package app

import (
	"context"
	"fmt"

	"docsnap/internal/config"
	"docsnap/internal/docsnap"
	"docsnap/internal/gitrepo"
	"docsnap/internal/store"
)

// sessionFactory builds a fresh docsnap.Session for every operation from
// freshly resolved secrets, so edits to the secret file or environment take
// effect without a restart.
type sessionFactory struct {
	cfg      *config.Config
	resolver *config.Resolver
	runner   gitrepo.Runner
	logger   docsnap.Logger
	// shared replaces the per-session store when set (store type "memory").
	shared docsnap.Store
}

func (f *sessionFactory) OpenSession(ctx context.Context) (*docsnap.Session, error) {
	eff, err := f.resolver.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolving configuration: %w", err)
	}
	f.logger.Debug("configuration resolved", "effective", eff.String())

	st := f.shared
	if st == nil {
		st, err = store.NewStoreFromConfig(f.cfg.Store, eff)
		if err != nil {
			return nil, fmt.Errorf("creating store: %w", err)
		}
	}

	repo := gitrepo.NewSynchronizer(f.runner, gitrepo.Options{
		Dir:            f.cfg.Repository.WorkDir,
		RemoteURL:      eff.RepoURL(),
		Branch:         f.cfg.Repository.Branch,
		SnapshotFile:   f.cfg.Repository.SnapshotFile,
		LeaseForcePush: f.cfg.Repository.LeaseForcePush,
		AuthorName:     f.cfg.Repository.AuthorName,
		AuthorEmail:    f.cfg.Repository.AuthorEmail,
	}, f.logger)

	return &docsnap.Session{
		Store:         st,
		Repository:    repo,
		RemoteEnabled: eff.RemoteEnabled(),
		ResetAllowed:  eff.ResetAllowed(),
	}, nil
}
