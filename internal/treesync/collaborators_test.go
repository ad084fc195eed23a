package treesync_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/internal/execshell"
	"github.com/temirov/gitp/internal/gitrepo"
	"github.com/temirov/gitp/internal/invocation"
	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/filesystem"
	"github.com/temirov/gitp/internal/repos/shared"
	"github.com/temirov/gitp/internal/tree"
	"github.com/temirov/gitp/internal/treesync"
)

const (
	testInitialHeadConstant = "c0"
)

type eventLog struct {
	mutex  sync.Mutex
	root   string
	events []string
}

func (log *eventLog) add(format string, arguments ...any) {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	log.events = append(log.events, fmt.Sprintf(format, arguments...))
}

func (log *eventLog) snapshot() []string {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	return append([]string(nil), log.events...)
}

func (log *eventLog) relative(directory string) string {
	relativePath, relError := filepath.Rel(log.root, directory)
	if relError != nil {
		return directory
	}
	return filepath.ToSlash(relativePath)
}

type fakeRepositories struct {
	log         *eventLog
	mutex       sync.Mutex
	manifests   map[string]string
	failingURLs map[string]bool
	dirty       map[string]bool
	remoteHeads map[string]string
	heads       map[string]string
}

func newFakeRepositories(log *eventLog) *fakeRepositories {
	return &fakeRepositories{
		log:         log,
		manifests:   map[string]string{},
		failingURLs: map[string]bool{},
		dirty:       map[string]bool{},
		remoteHeads: map[string]string{},
		heads:       map[string]string{},
	}
}

func (repositories *fakeRepositories) Clone(executionContext context.Context, invocationContext invocation.Context, options gitrepo.CloneOptions) error {
	if repositories.failingURLs[options.SourceURL] {
		return errors.New("remote unavailable")
	}
	if mkdirError := os.MkdirAll(filepath.Join(options.DestinationPath, ".git"), 0o755); mkdirError != nil {
		return mkdirError
	}
	if contents, found := repositories.manifests[options.SourceURL]; found {
		if writeError := os.WriteFile(filepath.Join(options.DestinationPath, manifest.DefaultFileName), []byte(contents), 0o644); writeError != nil {
			return writeError
		}
	}
	repositories.mutex.Lock()
	repositories.heads[options.DestinationPath] = testInitialHeadConstant
	repositories.mutex.Unlock()

	if len(options.Branch) > 0 {
		repositories.log.add("clone %s %s@%s", repositories.log.relative(options.DestinationPath), options.SourceURL, options.Branch)
	} else {
		repositories.log.add("clone %s %s", repositories.log.relative(options.DestinationPath), options.SourceURL)
	}
	return nil
}

func (repositories *fakeRepositories) Checkout(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, revision string) error {
	repositories.log.add("checkout %s %s", repositories.log.relative(repositoryPath), revision)
	return nil
}

func (repositories *fakeRepositories) Fetch(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) error {
	repositories.log.add("fetch %s", repositories.log.relative(repositoryPath))
	return nil
}

func (repositories *fakeRepositories) PullFastForward(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, branch string) error {
	repositories.mutex.Lock()
	if remoteHead, found := repositories.remoteHeads[repositoryPath]; found {
		repositories.heads[repositoryPath] = remoteHead
	}
	repositories.mutex.Unlock()
	repositories.log.add("pull %s", repositories.log.relative(repositoryPath))
	return nil
}

func (repositories *fakeRepositories) ResolveHead(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (string, error) {
	repositories.mutex.Lock()
	defer repositories.mutex.Unlock()
	if head, found := repositories.heads[repositoryPath]; found {
		return head, nil
	}
	return testInitialHeadConstant, nil
}

func (repositories *fakeRepositories) HasLocalChanges(executionContext context.Context, invocationContext invocation.Context, repositoryPath string) (bool, error) {
	return repositories.dirty[repositoryPath], nil
}

func (repositories *fakeRepositories) RemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string) (string, error) {
	return "", nil
}

func (repositories *fakeRepositories) SetRemoteURL(executionContext context.Context, invocationContext invocation.Context, repositoryPath string, remoteName string, remoteURL string) error {
	repositories.log.add("set-url %s %s", repositories.log.relative(repositoryPath), remoteURL)
	return nil
}

type fakeHooks struct {
	log     *eventLog
	failing map[string]bool
}

func (hooks *fakeHooks) ExecuteShell(executionContext context.Context, script string, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	relativeDirectory := hooks.log.relative(details.WorkingDirectory)
	hooks.log.add("hook %s %s %s=%s", relativeDirectory, script, invocation.ParentRepositoryEnvironmentVariable, details.EnvironmentVariables[invocation.ParentRepositoryEnvironmentVariable])
	if hooks.failing[script] {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandShell}, Result: execshell.ExecutionResult{ExitCode: 1}}
	}
	return execshell.ExecutionResult{}, nil
}

type recordingFileSystem struct {
	filesystem.OSFileSystem
	log *eventLog
}

func (fileSystem recordingFileSystem) Symlink(target string, linkPath string) error {
	fileSystem.log.add("symlink %s -> %s", fileSystem.log.relative(linkPath), target)
	return fileSystem.OSFileSystem.Symlink(target, linkPath)
}

type engineFixture struct {
	root         string
	log          *eventLog
	repositories *fakeRepositories
	hooks        *fakeHooks
	output       *bytes.Buffer
	resolver     *tree.Resolver
	engine       *treesync.Engine
}

func newEngineFixture(testInstance *testing.T, root string) *engineFixture {
	testInstance.Helper()
	log := &eventLog{root: root}
	repositories := newFakeRepositories(log)
	hooks := &fakeHooks{log: log, failing: map[string]bool{}}
	output := &bytes.Buffer{}
	resolver := tree.NewResolver(nil, nil, nil, nil)

	engine, engineError := treesync.NewEngine(treesync.Dependencies{
		Resolver:     resolver,
		Repositories: repositories,
		Hooks:        hooks,
		FileSystem:   recordingFileSystem{log: log},
		Reporter:     shared.NewWriterReporter(output),
	}, treesync.Options{})
	require.NoError(testInstance, engineError)

	return &engineFixture{root: root, log: log, repositories: repositories, hooks: hooks, output: output, resolver: resolver, engine: engine}
}

func (fixture *engineFixture) resolve(testInstance *testing.T) *tree.Tree {
	testInstance.Helper()
	resolved, resolveError := fixture.resolver.Resolve(fixture.root)
	require.NoError(testInstance, resolveError)
	return resolved
}

func writeManifest(testInstance *testing.T, directory string, contents string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(directory, 0o755))
	require.NoError(testInstance, os.WriteFile(filepath.Join(directory, manifest.DefaultFileName), []byte(contents), 0o644))
}

func makeRepository(testInstance *testing.T, directory string) {
	testInstance.Helper()
	require.NoError(testInstance, os.MkdirAll(filepath.Join(directory, ".git"), 0o755))
}

func loadManifest(testInstance *testing.T, directory string) *manifest.Manifest {
	testInstance.Helper()
	loaded, loadError := manifest.NewStore(nil, "", nil).Load(directory)
	require.NoError(testInstance, loadError)
	return loaded
}
