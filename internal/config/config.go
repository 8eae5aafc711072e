package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/betterbet/scout-analytics/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	CacheEnabled               bool
	CacheTTL                   time.Duration
	CORSAllowedOrigins         []string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	PprofEnabled               bool
	PprofAddr                  string
	BigQueryProjectID          string
	BigQueryDatasetID          string
	ScheduleTablePrefix        string
	EventsTablePrefix          string
	ScheduleColumnOverrides    map[int]map[string]string
	EventsColumnOverrides      map[int]map[string]string
	WarehouseYears             []int
	StartTimeFromYear          int
	ExpectedMatchesPerSeason   int
	EventSearchDefaultLimit    int
	SchemaCheckEnabled         bool
	SchemaCheckWorkers         int
	WarehouseCircuitEnabled    bool
	WarehouseCircuitFailures   int
	WarehouseCircuitOpenTime   time.Duration
	WarehouseCircuitHalfOpen   int
	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	UptraceCaptureRequestBody  bool
	UptraceRequestBodyMaxBytes int
	BetterStackEnabled         bool
	BetterStackEndpoint        string
	BetterStackToken           string
	BetterStackTimeout         time.Duration
	BetterStackMinLevel        logging.Level
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	LogLevel                   logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}

	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	betterStackEnabled, err := strconv.ParseBool(getEnv("BETTERSTACK_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_ENABLED: %w", err)
	}
	betterStackEndpoint := strings.TrimSpace(getEnv("BETTERSTACK_ENDPOINT", ""))
	if betterStackEnabled && betterStackEndpoint == "" {
		return Config{}, fmt.Errorf("BETTERSTACK_ENDPOINT is required when BETTERSTACK_ENABLED=true")
	}
	betterStackTimeout, err := time.ParseDuration(getEnv("BETTERSTACK_TIMEOUT", "3s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse BETTERSTACK_TIMEOUT: %w", err)
	}
	if betterStackTimeout <= 0 {
		return Config{}, fmt.Errorf("BETTERSTACK_TIMEOUT must be > 0")
	}
	betterStackMinLevel := parseLogLevel(getEnv("BETTERSTACK_MIN_LEVEL", "error"))

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofAddr == "" {
		pprofAddr = ":6060"
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	bigQueryProjectID := strings.TrimSpace(getEnv("BIGQUERY_PROJECT_ID", ""))
	if bigQueryProjectID == "" {
		return Config{}, fmt.Errorf("BIGQUERY_PROJECT_ID is required")
	}
	bigQueryDatasetID := strings.TrimSpace(getEnv("BIGQUERY_DATASET_ID", "betterdata"))

	scheduleTablePrefix := strings.TrimSpace(getEnv("WAREHOUSE_SCHEDULE_TABLE_PREFIX", "schedule_brasileirao_serie_a"))
	eventsTablePrefix := strings.TrimSpace(getEnv("WAREHOUSE_EVENTS_TABLE_PREFIX", "eventos_brasileirao_serie_a"))

	warehouseYears, err := parseYears(getEnv("WAREHOUSE_YEARS", "2024,2025"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_YEARS: %w", err)
	}
	if len(warehouseYears) == 0 {
		return Config{}, fmt.Errorf("WAREHOUSE_YEARS cannot be empty")
	}

	startTimeFromYear, err := getEnvAsInt("WAREHOUSE_START_TIME_FROM_YEAR", 2024)
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_START_TIME_FROM_YEAR: %w", err)
	}

	scheduleColumnOverrides, err := parseColumnOverrides(getEnv("WAREHOUSE_SCHEDULE_OVERRIDES", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_SCHEDULE_OVERRIDES: %w", err)
	}
	eventsColumnOverrides, err := parseColumnOverrides(getEnv("WAREHOUSE_EVENTS_OVERRIDES", ""))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_EVENTS_OVERRIDES: %w", err)
	}

	expectedMatchesPerSeason, err := getEnvAsInt("WAREHOUSE_EXPECTED_MATCHES_PER_SEASON", 38)
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_EXPECTED_MATCHES_PER_SEASON: %w", err)
	}
	if expectedMatchesPerSeason <= 0 {
		return Config{}, fmt.Errorf("WAREHOUSE_EXPECTED_MATCHES_PER_SEASON must be > 0")
	}

	eventSearchDefaultLimit, err := getEnvAsInt("EVENT_SEARCH_DEFAULT_LIMIT", 5000)
	if err != nil {
		return Config{}, fmt.Errorf("parse EVENT_SEARCH_DEFAULT_LIMIT: %w", err)
	}
	if eventSearchDefaultLimit <= 0 {
		return Config{}, fmt.Errorf("EVENT_SEARCH_DEFAULT_LIMIT must be > 0")
	}

	schemaCheckEnabled, err := strconv.ParseBool(getEnv("SCHEMA_CHECK_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEMA_CHECK_ENABLED: %w", err)
	}
	schemaCheckWorkers, err := getEnvAsInt("SCHEMA_CHECK_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse SCHEMA_CHECK_WORKERS: %w", err)
	}
	if schemaCheckWorkers < 1 {
		return Config{}, fmt.Errorf("SCHEMA_CHECK_WORKERS must be >= 1")
	}

	circuitEnabled, err := strconv.ParseBool(getEnv("WAREHOUSE_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_CIRCUIT_ENABLED: %w", err)
	}
	circuitFailures, err := getEnvAsInt("WAREHOUSE_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if circuitFailures < 1 {
		return Config{}, fmt.Errorf("WAREHOUSE_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	circuitOpenTimeout, err := time.ParseDuration(getEnv("WAREHOUSE_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if circuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("WAREHOUSE_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	circuitHalfOpenMaxReq, err := getEnvAsInt("WAREHOUSE_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse WAREHOUSE_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if circuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("WAREHOUSE_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	cfg := Config{
		AppEnv:                     appEnv,
		ServiceName:                getEnv("APP_SERVICE_NAME", "scout-analytics-api"),
		ServiceVersion:             getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:                   getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins:         splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		PprofEnabled:               pprofEnabled,
		PprofAddr:                  pprofAddr,
		BigQueryProjectID:          bigQueryProjectID,
		BigQueryDatasetID:          bigQueryDatasetID,
		ScheduleTablePrefix:        scheduleTablePrefix,
		EventsTablePrefix:          eventsTablePrefix,
		ScheduleColumnOverrides:    scheduleColumnOverrides,
		EventsColumnOverrides:      eventsColumnOverrides,
		WarehouseYears:             warehouseYears,
		StartTimeFromYear:          startTimeFromYear,
		ExpectedMatchesPerSeason:   expectedMatchesPerSeason,
		EventSearchDefaultLimit:    eventSearchDefaultLimit,
		SchemaCheckEnabled:         schemaCheckEnabled,
		SchemaCheckWorkers:         schemaCheckWorkers,
		WarehouseCircuitEnabled:    circuitEnabled,
		WarehouseCircuitFailures:   circuitFailures,
		WarehouseCircuitOpenTime:   circuitOpenTimeout,
		WarehouseCircuitHalfOpen:   circuitHalfOpenMaxReq,
		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		UptraceCaptureRequestBody:  uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes: uptraceRequestBodyMaxBytes,
		BetterStackEnabled:         betterStackEnabled,
		BetterStackEndpoint:        betterStackEndpoint,
		BetterStackToken:           strings.TrimSpace(getEnv("BETTERSTACK_TOKEN", "")),
		BetterStackTimeout:         betterStackTimeout,
		BetterStackMinLevel:        betterStackMinLevel,
		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	cacheEnabled, err := strconv.ParseBool(getEnv("CACHE_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_ENABLED: %w", err)
	}
	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}
	cfg.CacheEnabled = cacheEnabled
	cfg.CacheTTL = cacheTTL

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	logLevel := parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))

	cfg.ReadTimeout = readTimeout
	cfg.WriteTimeout = writeTimeout
	cfg.LogLevel = logLevel

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

// parseYears accepts a comma separated list of seasons where each item is
// either a single year ("2024") or an inclusive range ("2022-2025").
// Duplicates collapse and the result is sorted ascending.
func parseYears(raw string) ([]int, error) {
	seen := make(map[int]struct{})
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		if from, to, ok := strings.Cut(item, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(from))
			if err != nil {
				return nil, fmt.Errorf("invalid range start in item %q: %w", item, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("invalid range end in item %q: %w", item, err)
			}
			if end < start {
				return nil, fmt.Errorf("range end before start in item %q", item)
			}
			for year := start; year <= end; year++ {
				seen[year] = struct{}{}
			}
			continue
		}

		year, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q: %w", item, err)
		}
		seen[year] = struct{}{}
	}

	out := make([]int, 0, len(seen))
	for year := range seen {
		out = append(out, year)
	}
	sort.Ints(out)

	return out, nil
}

// parseColumnOverrides accepts comma separated "year:canonical=source" items,
// e.g. "2022:match_date=data,2022:status=situacao". Each item renames the
// physical column backing one canonical column for that season.
func parseColumnOverrides(raw string) (map[int]map[string]string, error) {
	out := make(map[int]map[string]string)
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		yearPart, mapping, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("invalid override item %q: want year:canonical=source", item)
		}
		year, err := strconv.Atoi(strings.TrimSpace(yearPart))
		if err != nil {
			return nil, fmt.Errorf("invalid year in override item %q: %w", item, err)
		}
		canonical, source, ok := strings.Cut(mapping, "=")
		if !ok {
			return nil, fmt.Errorf("invalid override item %q: want year:canonical=source", item)
		}
		canonical = strings.TrimSpace(canonical)
		source = strings.TrimSpace(source)
		if canonical == "" || source == "" {
			return nil, fmt.Errorf("invalid override item %q: empty column name", item)
		}

		if out[year] == nil {
			out[year] = make(map[string]string)
		}
		out[year][canonical] = source
	}

	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
