package config

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// expandEnvVars recursively expands ${VAR}, ${VAR:-default} and $VAR
// patterns in a parsed config map.
func expandEnvVars(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = expandValue(v)
	}
	return result
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = expandValue(item)
		}
		return result
	default:
		return v
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvString(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]

			if idx := strings.Index(inner, ":-"); idx != -1 {
				if val := os.Getenv(inner[:idx]); val != "" {
					return val
				}
				return inner[idx+2:]
			}
			return os.Getenv(inner)
		}
		return os.Getenv(match[1:])
	})
}

// applyEnvOverrides lets the plain environment variables of a .env-only
// deployment override the file. Unparseable integers are ignored.
func applyEnvOverrides(cfg *Config) {
	setString := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	setInt := func(name string, dst *int) {
		v, ok := os.LookupEnv(name)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			slog.Warn("Ignoring non-integer environment variable", "name", name, "value", v)
			return
		}
		*dst = n
	}

	setString("GOOGLE_API_KEY", &cfg.Providers.Gemini.APIKey)
	setString("DEFAULT_PROVIDER", &cfg.Providers.Default)
	setString("GEMINI_MODEL", &cfg.Providers.Gemini.Model)
	setString("OLLAMA_HOST", &cfg.Providers.Ollama.Host)
	setString("OLLAMA_MODEL", &cfg.Providers.Ollama.Model)
	setString("REDIS_URL", &cfg.Store.Redis.URL)
	setString("MEMORY_STRATEGY", &cfg.Memory.Strategy)
	setInt("FETCH_LAST_N", &cfg.Memory.FetchLastN)
	setInt("MAX_TOKENS_BEFORE_SUMMARIZE", &cfg.Memory.MaxTokensBeforeSummarize)
	setInt("MAX_MESSAGES", &cfg.Memory.MaxMessages)
	setInt("KEEP_LAST", &cfg.Memory.KeepLast)
	setInt("WINDOW_SIZE", &cfg.Memory.WindowSize)
}
