package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/roadmap/internal/paths"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "ROADMAP"
)

// Config keys.
const (
	cfgKeyRoadmapPath  = "roadmap_path"
	cfgKeyDocsDir      = "docs_dir"
	cfgKeySrcDirs      = "src_dirs"
	cfgKeyClaimsPath   = "claims_path"
	cfgKeyClaimExpiry  = "claim_expiry"
	cfgKeyDataDir      = "data_dir"
	cfgKeySyncStrategy = "sync_strategy"
	cfgKeyGuidancePath = "guidance_path"
	cfgKeyLogLevel     = "log_level"
	cfgKeyLogFormat    = "log_format"
	cfgKeyLogFile      = "log_file"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# roadmap CLI configuration
# Relative paths are resolved against the project root, the nearest
# directory above the working directory that holds roadmap_path.

roadmap_path: docs/architecture/Development-Roadmap.md
docs_dir: docs
# src_dirs: [src]
claims_path: docs/architecture/.task-claims.json
claim_expiry: 2h

# immediate writes after every operation; batch writes once per command.
sync_strategy: batch

# guidance_path: docs/architecture/guidance.yaml
# data_dir:

log_level: warn
log_format: text
# log_file:
`

// loadConfig reads config.yaml from configDir, creating the directory and
// a default file on first run. A missing file is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyRoadmapPath, types.DefaultRoadmapPath)
	v.SetDefault(cfgKeyDocsDir, types.DefaultDocsDir)
	v.SetDefault(cfgKeySrcDirs, []string{})
	v.SetDefault(cfgKeyClaimsPath, types.DefaultClaimsPath)
	v.SetDefault(cfgKeyClaimExpiry, types.DefaultClaimExpiry)
	v.SetDefault(cfgKeySyncStrategy, types.SyncBatch)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// storeConfig resolves the configured paths against the project root.
// dataDirFlag wins over the configured data_dir.
func storeConfig(v *viper.Viper, dataDirFlag string) (types.Config, string, error) {
	roadmapRel := v.GetString(cfgKeyRoadmapPath)
	root, err := paths.FindProjectRoot(roadmapRel)
	if err != nil {
		if root, err = os.Getwd(); err != nil {
			return types.Config{}, "", err
		}
	}
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}

	var src []string
	for _, d := range v.GetStringSlice(cfgKeySrcDirs) {
		src = append(src, paths.Resolve(root, d))
	}
	cfg := types.Config{
		RoadmapPath:  paths.Resolve(root, roadmapRel),
		DocsDir:      paths.Resolve(root, v.GetString(cfgKeyDocsDir)),
		SrcDirs:      src,
		ClaimsPath:   paths.Resolve(root, v.GetString(cfgKeyClaimsPath)),
		ClaimExpiry:  v.GetDuration(cfgKeyClaimExpiry),
		DataDir:      dataDir,
		SyncStrategy: v.GetString(cfgKeySyncStrategy),
		GuidancePath: paths.Resolve(root, v.GetString(cfgKeyGuidancePath)),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", err
	}
	return cfg, root, nil
}
