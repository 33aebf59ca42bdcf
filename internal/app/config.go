package app

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr      string
	MongoURI      string
	MongoDatabase string
	LogLevel      string
	LogFormat     string

	CacheDir         string
	CacheMaxBytes    int64
	StreamChunkBytes int64
	VideoExtensions  []string

	RemoteScanRoot  string
	ScanInterval    int // minutes, 0 = scheduled scans disabled
	MegaListPath    string
	MegaFetchPath   string
	TransferTimeout int // minutes, wall clock for the CLI transport

	CORSAllowedOrigins []string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DB", "mediavault"),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "text")),

		CacheDir:         getEnv("CACHE_DIR", "cache"),
		CacheMaxBytes:    getEnvInt64("CACHE_MAX_BYTES", 100<<30),
		StreamChunkBytes: getEnvInt64("STREAM_CHUNK_BYTES", 16<<20),
		VideoExtensions:  getEnvList("VIDEO_EXTENSIONS", ".mp4,.mkv,.avi,.mov,.webm,.m4v,.wmv"),

		RemoteScanRoot:  getEnv("REMOTE_SCAN_ROOT", "/video"),
		ScanInterval:    int(getEnvInt64("SCAN_INTERVAL_MINUTES", 0)),
		MegaListPath:    getEnv("MEGA_LS_PATH", "mega-ls"),
		MegaFetchPath:   getEnv("MEGA_GET_PATH", "mega-get"),
		TransferTimeout: int(getEnvInt64("TRANSFER_TIMEOUT_MINUTES", 60)),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	if parsed < 0 {
		return fallback
	}
	return parsed
}

func getEnvList(key, fallback string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		raw = fallback
	}
	var values []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		values = append(values, item)
	}
	return values
}
