package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dkaus1/vscode-ai-ext/pkg/types"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load.
const (
	EnvConfig        = "AICC_CONFIG"
	EnvConfigContent = "AICC_CONFIG_CONTENT"
	EnvProvider      = "AICC_PROVIDER"
	EnvModel         = "AICC_MODEL"
	EnvAccessToken   = "AICC_ACCESS_TOKEN"
	EnvMaxTokens     = "AICC_MAX_TOKENS"
)

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.config/aicodecompanion/config.{json,jsonc,yaml})
// 2. Project config (<dir>/.aicodecompanion.{json,jsonc,yaml})
// 3. AICC_CONFIG file
// 4. AICC_CONFIG_CONTENT inline JSON
// 5. <dir>/.env, without overriding variables already set
// 6. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider:    types.ProviderOpenAI,
		APIProvider: types.DefaultAPIProviders(),
	}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	globalPath := GetPaths().Config
	for _, name := range configFileNames("config") {
		loadOnce(filepath.Join(globalPath, name), globalPath)
	}

	if directory != "" {
		for _, name := range configFileNames(".aicodecompanion") {
			loadOnce(filepath.Join(directory, name), directory)
		}
	}

	if configPath := os.Getenv(EnvConfig); configPath != "" {
		loadOnce(configPath, filepath.Dir(configPath))
	}

	if configContent := os.Getenv(EnvConfigContent); configContent != "" {
		var inlineConfig types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(configContent)), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	if directory != "" {
		// A missing .env is the common case.
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	applyEnvOverrides(config)

	return config, nil
}

func configFileNames(base string) []string {
	return []string{base + ".json", base + ".jsonc", base + ".yaml", base + ".yml"}
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data, baseDir)

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return err
		}
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// SaveProjectProvider records key as the active provider in the project
// config of directory and returns the file written. Other project settings
// are kept as written, placeholders included. A running Watch picks the
// change up.
func SaveProjectProvider(directory, key string) (string, error) {
	path := ProjectConfigPath(directory)
	for _, name := range configFileNames(".aicodecompanion") {
		candidate := filepath.Join(directory, name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
	}

	var project types.Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			err = yaml.Unmarshal(data, &project)
		} else {
			err = json.Unmarshal(jsonc.ToJSON(data), &project)
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return "", err
	}

	project.Provider = key
	if err := Save(&project, path); err != nil {
		return "", err
	}
	return path, nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}
		// Escape for JSON string
		escaped := strings.ReplaceAll(strings.TrimSpace(string(content)), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")
		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.Provider != "" {
		target.Provider = source.Provider
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.MaxTokens > 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.ModelMaxTokensLength > 0 {
		target.ModelMaxTokensLength = source.ModelMaxTokensLength
	}
	if source.Temperature != nil {
		target.Temperature = source.Temperature
	}
	if source.TopP != nil {
		target.TopP = source.TopP
	}
	if source.EncryptionKey != "" {
		target.EncryptionKey = source.EncryptionKey
	}

	if source.APIProvider != nil {
		if target.APIProvider == nil {
			target.APIProvider = make(map[string]types.ProviderConfig)
		}
		for k, v := range source.APIProvider {
			// Keep the known kind when a file only overrides the endpoint.
			if v.Kind == "" {
				v.Kind = target.APIProvider[k].Kind
			}
			target.APIProvider[k] = v
		}
	}

	if source.TestingLibraries != nil {
		if target.TestingLibraries == nil {
			target.TestingLibraries = make(map[string]types.TestingLibraryConfig)
		}
		for k, v := range source.TestingLibraries {
			target.TestingLibraries[k] = v
		}
	}

	if source.Review != nil {
		target.Review = source.Review
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *types.Config) {
	if provider := os.Getenv(EnvProvider); provider != "" {
		config.Provider = provider
	}
	if model := os.Getenv(EnvModel); model != "" {
		config.Model = model
	}
	if token := os.Getenv(EnvAccessToken); token != "" {
		config.AccessToken = token
	}
	if maxTokens := os.Getenv(EnvMaxTokens); maxTokens != "" {
		if n, err := strconv.Atoi(maxTokens); err == nil && n > 0 {
			config.MaxTokens = n
		}
	}
}

// Save saves the configuration to a file. YAML is used for .yaml/.yml paths.
func Save(config *types.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
