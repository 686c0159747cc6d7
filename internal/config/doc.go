// Package config loads the companion configuration.
//
// # Configuration Loading
//
// Load merges configuration from several sources, later sources winning:
//
//  1. Global config in the XDG config dir (~/.config/aicodecompanion/config.json,
//     config.jsonc or config.yaml)
//  2. Project config in the workspace (.aicodecompanion.json, .jsonc or .yaml)
//  3. AICC_CONFIG file
//  4. AICC_CONFIG_CONTENT inline JSON
//  5. The workspace .env file (never overrides variables already set)
//  6. AICC_PROVIDER, AICC_MODEL, AICC_ACCESS_TOKEN and AICC_MAX_TOKENS
//
// JSON files may carry comments; they are stripped with tidwall/jsonc.
//
// # Variable Interpolation
//
// String values support {env:VAR_NAME} and {file:path} placeholders. Relative
// file paths resolve against the directory of the config file that names them.
//
//	{
//	  "provider": "PSChat",
//	  "encryptionKey": "{file:~/.secrets/aicc.key}",
//	  "apiProvider": {
//	    "PSChat": {"endPointUrl": "{env:PSCHAT_URL}"}
//	  }
//	}
//
// # Hot Reload
//
// Watch re-runs Load whenever a project config file or .env changes, so a
// long-running server picks up new settings between turns.
package config
