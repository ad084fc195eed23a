package tests

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationCommandTimeout = 60 * time.Second
	gitExecutableConstant     = "git"
	initialBranchConstant     = "main"
)

type commandOutcome struct {
	output   string
	exitCode int
}

// runGitp executes the CLI in workingDirectory and returns the combined output and exit code.
func runGitp(testInstance *testing.T, workingDirectory string, environment []string, arguments ...string) commandOutcome {
	testInstance.Helper()
	executionContext, cancel := context.WithTimeout(context.Background(), integrationCommandTimeout)
	defer cancel()

	command := exec.CommandContext(executionContext, gitpBinaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(append([]string{}, os.Environ()...), environment...)

	outputBytes, runError := command.CombinedOutput()
	outcome := commandOutcome{output: string(outputBytes)}
	var exitError *exec.ExitError
	switch {
	case runError == nil:
	case errors.As(runError, &exitError):
		outcome.exitCode = exitError.ExitCode()
	default:
		require.NoError(testInstance, runError, outcome.output)
	}
	return outcome
}

func requireGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(gitExecutableConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
}

func runGit(testInstance *testing.T, workingDirectory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command(gitExecutableConstant, arguments...)
	command.Dir = workingDirectory
	outputBytes, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, string(outputBytes))
	return strings.TrimSpace(string(outputBytes))
}

// createUpstream initializes a repository under parent with one commit per file in files.
func createUpstream(testInstance *testing.T, parent string, name string, files map[string]string) string {
	testInstance.Helper()
	repositoryPath := filepath.Join(parent, name)
	require.NoError(testInstance, os.MkdirAll(repositoryPath, 0o755))
	runGit(testInstance, repositoryPath, "init", "--initial-branch="+initialBranchConstant)
	for fileName, contents := range files {
		commitFile(testInstance, repositoryPath, fileName, contents)
	}
	return repositoryPath
}

func commitFile(testInstance *testing.T, repositoryPath string, fileName string, contents string) {
	testInstance.Helper()
	filePath := filepath.Join(repositoryPath, fileName)
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(contents), 0o644))
	runGit(testInstance, repositoryPath, "add", fileName)
	runGit(testInstance, repositoryPath, "commit", "-m", "update "+fileName)
}

func filterStructuredOutput(rawOutput string) string {
	lines := strings.Split(rawOutput, "\n")
	var filtered []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if strings.HasPrefix(trimmed, "{") {
			continue
		}
		filtered = append(filtered, line)
	}
	if len(filtered) == 0 {
		return ""
	}
	return strings.Join(filtered, "\n") + "\n"
}
