// Package repository implements the Repository facade from spec.md
// §4.8 and the on-disk layout from §6, grounded on harmony.repository.
// Repository in the original Python implementation.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/harmonyfs/harmony/internal/atomicfile"
	"github.com/harmonyfs/harmony/internal/commit"
	"github.com/harmonyfs/harmony/internal/connector"
	"github.com/harmonyfs/harmony/internal/digestcache"
	"github.com/harmonyfs/harmony/internal/harmonyerr"
	"github.com/harmonyfs/harmony/internal/locationid"
	"github.com/harmonyfs/harmony/internal/locationstate"
	"github.com/harmonyfs/harmony/internal/logger"
	"github.com/harmonyfs/harmony/internal/merge"
	"github.com/harmonyfs/harmony/internal/metrics"
	"github.com/harmonyfs/harmony/internal/remotes"
	"github.com/harmonyfs/harmony/internal/repostate"
	"github.com/harmonyfs/harmony/internal/ruleset"
	"github.com/harmonyfs/harmony/internal/workdir"
)

var l = logger.Default

const harmonySubdir = ".harmony"

const (
	configFile          = "config"
	remotesFile         = "remotes"
	rulesFile           = "rules"
	repositoryStateFile = "repository_state"
	locationStatesDir   = "location_states"
	digestCacheDir      = "digestcache"
)

// FileStatus describes the status of one path, as reported by status.
type FileStatus struct {
	Path                  string
	ExistsInRepository    bool
	MaybeModified         bool
	ExistsInWorkdir       bool
	ExistsInLocationState bool
	IsMostRecent          bool
}

// config is the small {id, name} record persisted at .harmony/config.
type config struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Repository is the facade that owns LocationStates, RepositoryState,
// Ruleset, Remotes, and WorkingDirectory, and drives init/clone/commit/
// pull/get against them.
type Repository struct {
	ID   string
	Name string

	HarmonyDir string
	RootDir    string

	LocationStates  *locationstate.Store
	RepositoryState *repostate.Store
	Rules           *ruleset.Ruleset
	Remotes         *remotes.Remotes
	WorkingDir      *workdir.WorkingDirectory

	cache *digestcache.Cache
}

// Close releases resources held open for the process lifetime, namely
// the digest cache's leveldb handle.
func (r *Repository) Close() error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Close()
}

// ShortID returns a truncated, log-friendly rendering of the repository's id.
func (r *Repository) ShortID() string { return locationid.Short(r.ID) }

// FindHarmonyDir walks upward from startDir looking for a .harmony
// directory, mirroring find_harmony_directory's upward search.
func FindHarmonyDir(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	dir, err = filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, harmonySubdir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", harmonyerr.New(harmonyerr.NotARepository, fmt.Sprintf("no harmony repository found above %q", startDir))
}

// Init creates a fresh repository rooted at rootDir.
func Init(rootDir, name string) (*Repository, error) {
	harmonyDir := filepath.Join(rootDir, harmonySubdir)
	if info, err := os.Stat(harmonyDir); err == nil && info.IsDir() {
		return nil, harmonyerr.New(harmonyerr.AlreadyInitialized, harmonyDir+" already exists")
	}
	if err := os.MkdirAll(harmonyDir, 0o755); err != nil {
		return nil, err
	}
	// location_states is created up front, even though it starts out
	// empty, so that a fresh clone source always has something for a
	// peer's fetch of the location_states tree to find.
	if err := os.MkdirAll(filepath.Join(harmonyDir, locationStatesDir), 0o755); err != nil {
		return nil, err
	}

	if name == "" {
		name = defaultName(rootDir)
	}

	rules, err := ruleset.New()
	if err != nil {
		return nil, err
	}
	wd, err := workdir.New(rootDir, rules)
	if err != nil {
		return nil, err
	}
	cache, err := digestcache.Open(filepath.Join(harmonyDir, digestCacheDir))
	if err != nil {
		return nil, err
	}
	wd.SetCache(cache)

	repo := &Repository{
		ID:              locationid.New(),
		Name:            name,
		HarmonyDir:      harmonyDir,
		RootDir:         rootDir,
		LocationStates:  locationstate.New(),
		RepositoryState: repostate.New(),
		Rules:           rules,
		Remotes:         remotes.New(),
		WorkingDir:      wd,
		cache:           cache,
	}

	l.Infof("initialized repository")
	l.Infof("  ID  : %s (%s)", repo.ShortID(), repo.ID)
	l.Infof("  Name: %s", repo.Name)
	l.Infof("  WD  : %s", repo.RootDir)

	if err := repo.Save(); err != nil {
		return nil, err
	}
	return repo, nil
}

func defaultName(rootDir string) string {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return fmt.Sprintf("%s-%s", host, filepath.Base(rootDir))
}

// Load reads an existing repository from harmonyDir.
func Load(harmonyDir string) (*Repository, error) {
	rootDir := filepath.Dir(harmonyDir)

	var cfg config
	if err := readJSON(filepath.Join(harmonyDir, configFile), &cfg); err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading config", err)
	}

	rules := &ruleset.Ruleset{}
	if err := readJSON(filepath.Join(harmonyDir, rulesFile), rules); err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading rules", err)
	}
	if err := requireNonEmptyRules(rules); err != nil {
		return nil, err
	}

	rem := remotes.New()
	var remoteList []remotes.Remote
	if err := readJSON(filepath.Join(harmonyDir, remotesFile), &remoteList); err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading remotes", err)
	}
	for _, r := range remoteList {
		if err := rem.Add(r.Location, r.Name, r.ID); err != nil {
			return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "loading remotes", err)
		}
	}

	repoState := repostate.New()
	var repoFiles map[string]repostate.RepositoryFileState
	if err := readJSON(filepath.Join(harmonyDir, repositoryStateFile), &repoFiles); err != nil {
		return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading repository_state", err)
	}
	repoState.Overwrite(repoFiles)

	locStates, err := loadLocationStatesDir(filepath.Join(harmonyDir, locationStatesDir))
	if err != nil {
		return nil, err
	}

	wd, err := workdir.New(rootDir, rules)
	if err != nil {
		return nil, err
	}
	cache, err := digestcache.Open(filepath.Join(harmonyDir, digestCacheDir))
	if err != nil {
		return nil, err
	}
	wd.SetCache(cache)

	repo := &Repository{
		ID:              cfg.ID,
		Name:            cfg.Name,
		HarmonyDir:      harmonyDir,
		RootDir:         rootDir,
		LocationStates:  locStates,
		RepositoryState: repoState,
		Rules:           rules,
		Remotes:         rem,
		WorkingDir:      wd,
		cache:           cache,
	}

	l.Infof("loaded repository")
	l.Infof("  ID  : %s (%s)", repo.ShortID(), repo.ID)
	l.Infof("  Name: %s", repo.Name)
	l.Infof("  WD  : %s", repo.RootDir)

	return repo, nil
}

// loadLocationStatesDir reads every per-location file below dir (the
// layout written by saveLocationStates, one file per location id) into a
// fresh Store. A missing directory is not an error -- it just means no
// location has reported in yet -- and yields an empty Store.
func loadLocationStatesDir(dir string) (*locationstate.Store, error) {
	locStates := locationstate.New()
	if dir == "" {
		return locStates, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return locStates, nil
		}
		return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading location_states", err)
	}
	items := make(map[string]*locationstate.LocationState)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var ls locationstate.LocationState
		if err := readJSON(filepath.Join(dir, e.Name()), &ls); err != nil {
			return nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading location state "+e.Name(), err)
		}
		items[e.Name()] = &ls
	}
	locStates.Replace(items)
	return locStates, nil
}

func requireNonEmptyRules(rs *ruleset.Ruleset) error {
	// An empty ruleset would mean .harmony is tracked like any other
	// directory, almost certainly a sign of corrupt state.
	if rs.Committable(".harmony/config") {
		return harmonyerr.New(harmonyerr.CorruptState, "loaded ruleset does not exclude .harmony -- refusing to use it")
	}
	return nil
}

// Find discovers and loads the repository containing startDir.
func Find(startDir string) (*Repository, error) {
	harmonyDir, err := FindHarmonyDir(startDir)
	if err != nil {
		return nil, err
	}
	return Load(harmonyDir)
}

// Clone initializes a fresh repository at rootDir and pulls state from
// location.
func Clone(ctx context.Context, rootDir, location, name string) (*Repository, []merge.Conflict, error) {
	repo, err := Init(rootDir, name)
	if err != nil {
		return nil, nil, err
	}

	conn, err := connector.Connect(location)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Open(ctx); err != nil {
		return nil, nil, err
	}
	files, err := conn.FetchMetadataFiles(ctx, []string{configFile})
	conn.Close()
	recordFetch("metadata", err)
	if err != nil {
		return nil, nil, err
	}

	var sourceConfig config
	if err := readJSON(files[configFile], &sourceConfig); err != nil {
		return nil, nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading remote config", err)
	}

	if err := repo.Remotes.Add(location, sourceConfig.Name, sourceConfig.ID); err != nil {
		return nil, nil, err
	}

	conflicts, err := repo.PullState(ctx, location)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Save(); err != nil {
		return nil, nil, err
	}
	return repo, conflicts, nil
}

// Save persists every component to .harmony/.
func (r *Repository) Save() error {
	if err := r.saveLocationStates(); err != nil {
		return err
	}
	if err := r.saveRepositoryState(); err != nil {
		return err
	}
	if err := r.saveRemotes(); err != nil {
		return err
	}
	if err := r.saveRules(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(r.HarmonyDir, configFile), config{ID: r.ID, Name: r.Name})
}

func (r *Repository) saveLocationStates() error {
	for _, id := range r.LocationStates.Locations() {
		r.LocationStates.SaveTick(id)
		ls := r.LocationStates.Get(id)
		if ls == nil {
			continue
		}
		path := filepath.Join(r.HarmonyDir, locationStatesDir, id)
		if err := writeJSON(path, ls); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) saveRepositoryState() error {
	return writeJSON(filepath.Join(r.HarmonyDir, repositoryStateFile), r.RepositoryState.Snapshot())
}

func (r *Repository) saveRemotes() error {
	list := r.Remotes.GetRemotes()
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return writeJSON(filepath.Join(r.HarmonyDir, remotesFile), list)
}

func (r *Repository) saveRules() error {
	return writeJSON(filepath.Join(r.HarmonyDir, rulesFile), r.Rules)
}

// Commit scans the working directory and records any changes.
func (r *Repository) Commit() (bool, error) {
	l.Debugf("%s committing...", r.ShortID())
	eng := commit.New(r.ID, r.WorkingDir, r.LocationStates, r.RepositoryState)
	anyChange, err := eng.Commit()
	if err != nil {
		return false, err
	}
	if err := r.saveLocationStates(); err != nil {
		return false, err
	}
	if err := r.saveRepositoryState(); err != nil {
		return false, err
	}
	l.Debugf("%s committed. Changes seen: %v", r.ShortID(), anyChange)
	return anyChange, nil
}

// PullState fetches the remote's LocationStates and RepositoryState from
// remoteSpec. The remote LocationStates are folded into the local store
// and persisted unconditionally -- they carry no conflicts, only
// per-location scalar clocks -- before RepositoryState is merged. If that
// merge is conflict-free, it's applied, matching local files are
// auto-renamed, and the result is recommitted. Local state is left
// untouched if any conflict is returned.
func (r *Repository) PullState(ctx context.Context, remoteSpec string) ([]merge.Conflict, error) {
	l.Debugf("%s pull from %s", r.ShortID(), remoteSpec)

	remoteLocationStates, remoteRepoState, err := r.fetchRemoteState(ctx, remoteSpec)
	if err != nil {
		return nil, err
	}

	r.LocationStates.MergeFrom(remoteLocationStates)
	if err := r.saveLocationStates(); err != nil {
		return nil, err
	}

	conflicts, merged := merge.Merge(r.RepositoryState, remoteRepoState, r.ID)
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	r.RepositoryState.Overwrite(merged.Snapshot())
	if err := r.saveRepositoryState(); err != nil {
		return nil, err
	}

	if err := merge.AutoRename(r.WorkingDir, r.RepositoryState); err != nil {
		return nil, err
	}

	if _, err := r.Commit(); err != nil {
		return nil, err
	}
	return nil, nil
}

// fetchRemoteState pulls both halves of the remote's .harmony/ tree that
// pull_state needs: the location_states directory (one file per location
// the remote has heard from) and the single repository_state file.
func (r *Repository) fetchRemoteState(ctx context.Context, remoteSpec string) (*locationstate.Store, *repostate.Store, error) {
	location := r.Remotes.GetLocationAny(remoteSpec)

	conn, err := connector.Connect(location)
	if err != nil {
		return nil, nil, err
	}
	if err := conn.Open(ctx); err != nil {
		return nil, nil, err
	}
	defer conn.Close()

	// The trailing slash on locationStatesDir tells the Connector this
	// entry is a directory to mirror wholesale, not a single file --
	// distinguishing it from repositoryStateFile without the caller
	// having to probe the remote first.
	locationStatesRequest := locationStatesDir + "/"
	files, err := conn.FetchMetadataFiles(ctx, []string{repositoryStateFile, locationStatesRequest})
	recordFetch("metadata", err)
	if err != nil {
		return nil, nil, err
	}

	var repoFiles map[string]repostate.RepositoryFileState
	if err := readJSON(files[repositoryStateFile], &repoFiles); err != nil {
		return nil, nil, harmonyerr.Wrap(harmonyerr.CorruptState, "reading remote repository_state", err)
	}
	remoteRepoState := repostate.New()
	remoteRepoState.Overwrite(repoFiles)

	remoteLocationStates, err := loadLocationStatesDir(files[locationStatesRequest])
	if err != nil {
		return nil, nil, err
	}

	return remoteLocationStates, remoteRepoState, nil
}

// PullFile fetches a single payload file from remoteSpec and commits the
// resulting working-directory change.
func (r *Repository) PullFile(ctx context.Context, path, remoteSpec string) error {
	location := r.Remotes.GetLocationAny(remoteSpec)

	conn, err := connector.Connect(location)
	if err != nil {
		return err
	}
	if err := conn.Open(ctx); err != nil {
		return err
	}
	defer conn.Close()

	err = conn.FetchPayloadFiles(ctx, []string{path}, r.RootDir)
	recordFetch("payload", err)
	if err != nil {
		return err
	}

	_, err = r.Commit()
	return err
}

func recordFetch(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.Fetches.WithLabelValues(kind, result).Inc()
}

// AddRemote registers a new remote and persists it.
func (r *Repository) AddRemote(name, location, id string) error {
	if err := r.Remotes.Add(location, name, id); err != nil {
		return err
	}
	return r.saveRemotes()
}

// RemoveRemote unregisters a remote and persists the change.
func (r *Repository) RemoveRemote(name string) error {
	if err := r.Remotes.Remove(name); err != nil {
		return err
	}
	return r.saveRemotes()
}

// GetRemotes returns every registered remote.
func (r *Repository) GetRemotes() []remotes.Remote {
	return r.Remotes.GetRemotes()
}

// GetFileStats returns per-path status for every file known to the
// repository or present (but untracked) in the working directory.
func (r *Repository) GetFileStats() ([]FileStatus, error) {
	paths := r.RepositoryState.Paths()
	known := make(map[string]bool, len(paths))

	stats := make([]FileStatus, 0, len(paths))
	for _, path := range paths {
		known[path] = true
		re := r.RepositoryState.Get(path)
		le := r.LocationStates.GetFileState(r.ID, path)

		stats = append(stats, FileStatus{
			Path:                  path,
			ExistsInRepository:    true,
			MaybeModified:         r.WorkingDir.MaybeModified(le),
			ExistsInWorkdir:       r.WorkingDir.Contains(path),
			ExistsInLocationState: le.Exists(),
			IsMostRecent:          !le.Exists() || le.Digest == re.Digest,
		})
	}

	wdFiles, err := r.WorkingDir.Enumerate()
	if err != nil {
		return nil, err
	}
	for _, path := range wdFiles {
		if known[path] {
			continue
		}
		stats = append(stats, FileStatus{
			Path:               path,
			ExistsInRepository: false,
			IsMostRecent:       true,
			ExistsInWorkdir:    true,
		})
	}

	return stats, nil
}

func readJSON(path string, v interface{}) error {
	data, err := atomicfile.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, data, 0o644)
}
