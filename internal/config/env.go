package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "PAPERSIM_"

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv fills fields still unset after parsing the config file from
// PAPERSIM_* environment variables. Values that fail to parse are ignored.
func ApplyEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	if !cfg.Debug {
		cfg.Debug = envBool("DEBUG")
	}

	setString(&cfg.Server.Host, "HOST")
	setInt(&cfg.Server.Port, "PORT")
	if cfg.Server.MaxUploadBytes == 0 {
		if n, err := strconv.ParseInt(env("MAX_UPLOAD_BYTES"), 10, 64); err == nil {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if cfg.Server.RateLimit == 0 {
		if f, err := strconv.ParseFloat(env("RATE_LIMIT"), 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if cfg.Server.RequestTimeout == 0 {
		if d, err := time.ParseDuration(env("REQUEST_TIMEOUT")); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}

	setString(&cfg.Storage.DatabasePath, "DATABASE_PATH")
	setString(&cfg.Storage.BleveIndexPath, "BLEVE_INDEX_PATH")
	setString(&cfg.Storage.VectorIndexPath, "VECTOR_INDEX_PATH")

	setString(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.ModelPath, "MODEL_PATH")
	setString(&cfg.Embedding.ModelName, "MODEL_NAME")
	setInt(&cfg.Embedding.Dimensions, "DIMENSIONS")
	setString(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if len(cfg.Watch.Directories) == 0 {
		if v := env("WATCH_DIRS"); v != "" {
			for _, d := range strings.Split(v, string(os.PathListSeparator)) {
				if d = strings.TrimSpace(d); d != "" {
					cfg.Watch.Directories = append(cfg.Watch.Directories, d)
				}
			}
		}
	}
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + name))
}

func envBool(name string) bool {
	b, err := strconv.ParseBool(env(name))
	return err == nil && b
}

func setString(dst *string, name string) {
	if *dst == "" {
		*dst = env(name)
	}
}

func setInt(dst *int, name string) {
	if *dst != 0 {
		return
	}
	if n, err := strconv.Atoi(env(name)); err == nil {
		*dst = n
	}
}
