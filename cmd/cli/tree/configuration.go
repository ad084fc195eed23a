package tree

import (
	"strings"

	"github.com/temirov/gitp/internal/manifest"
	"github.com/temirov/gitp/internal/repos/shared"
)

const (
	manifestFileNameKeyConstant = "manifest_file_name"
	jobsKeyConstant             = "jobs"
	remoteKeyConstant           = "remote"
	forceKeyConstant            = "force"
	configurationKeySeparator   = "."
	defaultJobsConstant         = 1
)

// Configuration captures the tree section of the gitp configuration.
type Configuration struct {
	ManifestFileName string `mapstructure:"manifest_file_name"`
	Jobs             int    `mapstructure:"jobs"`
	Remote           string `mapstructure:"remote"`
	Force            bool   `mapstructure:"force"`
}

// DefaultConfiguration returns baseline configuration values for tree commands.
func DefaultConfiguration() Configuration {
	return Configuration{
		ManifestFileName: manifest.DefaultFileName,
		Jobs:             defaultJobsConstant,
		Remote:           shared.OriginRemoteNameConstant,
		Force:            false,
	}
}

// DefaultConfigurationValues produces Viper defaults for tree commands under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		ConfigurationKey(rootKey, manifestFileNameKeyConstant): defaults.ManifestFileName,
		ConfigurationKey(rootKey, jobsKeyConstant):             defaults.Jobs,
		ConfigurationKey(rootKey, remoteKeyConstant):           defaults.Remote,
		ConfigurationKey(rootKey, forceKeyConstant):            defaults.Force,
	}
}

// ConfigurationKey joins rootKey and a tree setting name into a Viper key.
func ConfigurationKey(rootKey string, settingName string) string {
	return rootKey + configurationKeySeparator + settingName
}

// JobsConfigurationKey names the parallelism setting below rootKey.
func JobsConfigurationKey(rootKey string) string {
	return ConfigurationKey(rootKey, jobsKeyConstant)
}

// RemoteConfigurationKey names the remote setting below rootKey.
func RemoteConfigurationKey(rootKey string) string {
	return ConfigurationKey(rootKey, remoteKeyConstant)
}

func (configuration Configuration) sanitize() Configuration {
	sanitized := configuration
	defaults := DefaultConfiguration()
	sanitized.ManifestFileName = strings.TrimSpace(sanitized.ManifestFileName)
	if len(sanitized.ManifestFileName) == 0 {
		sanitized.ManifestFileName = defaults.ManifestFileName
	}
	if sanitized.Jobs < defaultJobsConstant {
		sanitized.Jobs = defaults.Jobs
	}
	sanitized.Remote = strings.TrimSpace(sanitized.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaults.Remote
	}
	return sanitized
}
