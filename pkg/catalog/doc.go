// Package catalog stores named predicates and composes them.
//
// Predicates are kept as encoded YAML documents in a storage backend
// (see package storage). Compose conjoins predicates by name, left to right,
// and caches the result:
//
//	cat := catalog.New(storage.NewMemoryStorage())
//	_, _ = cat.PutFile(ctx, "predicates/positive.yaml")
//	_, _ = cat.PutFile(ctx, "predicates/small.yaml")
//	pred, err := cat.Compose(ctx, "positive", "small")
//
// A cached composite is keyed by the names and content hashes of its parts,
// and replacing or deleting a part drops it. Idle composites are removed by
// Prune, which a Scheduler runs on a cron schedule.
//
// A Watcher keeps the catalog in sync with predicate files on disk: it loads
// every file under its paths, then reloads changed files and deletes the
// predicates of removed ones.
package catalog
