package docs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/temirov/gitp/cmd/cli"
	"github.com/temirov/gitp/internal/manifest"
)

const (
	readmeFileNameConstant           = "README.md"
	yamlFenceStartConstant           = "```yaml"
	yamlFenceEndConstant             = "```"
	configHeaderMarkerConstant       = "# config.yaml"
	manifestHeaderMarkerConstant     = "# .gitp_manifest"
	parentDirectoryReferenceConstant = ".."
	missingHeaderMessageConstant     = "README example missing header marker"
	missingStartFenceMessageConstant = "README example missing yaml fence start"
	missingEndFenceMessageConstant   = "README example missing yaml fence end"
	configurationTypeConstant        = "yaml"
)

func readReadme(testInstance *testing.T) string {
	testInstance.Helper()
	workingDirectory, workingDirectoryError := os.Getwd()
	require.NoError(testInstance, workingDirectoryError)

	readmePath := filepath.Join(workingDirectory, parentDirectoryReferenceConstant, readmeFileNameConstant)
	contentBytes, readError := os.ReadFile(readmePath)
	require.NoError(testInstance, readError)
	return string(contentBytes)
}

// extractSnippet returns the yaml fence that contains headerMarker.
func extractSnippet(testInstance *testing.T, contentText string, headerMarker string) string {
	testInstance.Helper()
	headerIndex := strings.Index(contentText, headerMarker)
	require.NotEqual(testInstance, -1, headerIndex, missingHeaderMessageConstant)

	fenceStartIndex := strings.LastIndex(contentText[:headerIndex], yamlFenceStartConstant)
	require.NotEqual(testInstance, -1, fenceStartIndex, missingStartFenceMessageConstant)

	remainingText := contentText[headerIndex:]
	fenceEndRelativeIndex := strings.Index(remainingText, yamlFenceEndConstant)
	require.NotEqual(testInstance, -1, fenceEndRelativeIndex, missingEndFenceMessageConstant)
	fenceEndIndex := headerIndex + fenceEndRelativeIndex

	return strings.TrimSpace(contentText[fenceStartIndex+len(yamlFenceStartConstant) : fenceEndIndex])
}

func TestReadmeConfigurationParses(testInstance *testing.T) {
	snippet := extractSnippet(testInstance, readReadme(testInstance), configHeaderMarkerConstant)

	viperInstance := viper.New()
	viperInstance.SetConfigType(configurationTypeConstant)
	require.NoError(testInstance, viperInstance.ReadConfig(strings.NewReader(snippet)))

	var configuration cli.ApplicationConfiguration
	require.NoError(testInstance, viperInstance.Unmarshal(&configuration, func(decoderConfiguration *mapstructure.DecoderConfig) {
		decoderConfiguration.ErrorUnused = true
	}))
	require.Equal(testInstance, manifest.DefaultFileName, configuration.Tree.ManifestFileName)
	require.Equal(testInstance, 4, configuration.Tree.Jobs)
}

func TestReadmeManifestParses(testInstance *testing.T) {
	snippet := extractSnippet(testInstance, readReadme(testInstance), manifestHeaderMarkerConstant)

	decoded, decodeError := manifest.Decode([]byte(snippet))
	require.NoError(testInstance, decodeError)
	require.NoError(testInstance, manifest.Validate(decoded))

	testCases := []struct {
		path     string
		expected manifest.RepoEntry
	}{
		{path: "lib", expected: manifest.RepoEntry{URL: "https://github.com/example/lib.git", Branch: "main"}},
		{path: "vendor/json", expected: manifest.RepoEntry{URL: "https://github.com/example/json.git", Commit: "4f2a9c1"}},
		{path: "docs", expected: manifest.RepoEntry{Link: "../shared/docs"}},
		{path: "build", expected: manifest.RepoEntry{Type: manifest.EntryTypeOverlay, Link: "~/builds", LinkNewest: true, LinkFilter: "^release-"}},
	}
	for _, testCase := range testCases {
		testInstance.Run(testCase.path, func(testInstance *testing.T) {
			entry, found := decoded.Lookup(testCase.path)
			require.True(testInstance, found)
			require.Equal(testInstance, testCase.expected, entry)
		})
	}
	require.Equal(testInstance, []string{"make setup"}, decoded.PostClone)
	require.Equal(testInstance, []string{"make generate"}, decoded.PostPull)
}
