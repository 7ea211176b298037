package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfiguration is returned when a loaded value can not be used.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTL           time.Duration
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for caching and the token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Admins
	AdminUsernames []string
	// Game rules
	Challenges  ChallengeConfig
	Pets        PetConfig
	Leaderboard LeaderboardConfig
	Map         MapConfig
}

// ChallengeConfig carries the values the streak engine, the reach checks and
// the sweeps run with.
type ChallengeConfig struct {
	Interval              time.Duration
	QuestionFeaturePoints int
	ReachedFeaturePoints  int
	CheckUserRange        bool
	RangeMeters           float64
	NearbyLimit           int
	SweepInterval         time.Duration
	Timezone              string
	Location              *time.Location
}

type PetConfig struct {
	DecayInterval time.Duration
	DecayPercent  int
	QuizHealBonus int
}

type LeaderboardConfig struct {
	Size     int
	CacheTTL time.Duration
}

// MapConfig describes the playable area and the client's 3D map settings.
type MapConfig struct {
	MinLat, MaxLat         float64
	MinLon, MaxLon         float64
	DefaultLat, DefaultLon float64
	MinWorldX, MaxWorldX   float64
	MinWorldY, MaxWorldY   float64
	MinWorldZ, MaxWorldZ   float64
	CameraMapURL           string
	BgColour               string
	RenderDist             int
}

// Now returns the current instant in the configured game timezone. Windows are
// anchored to midnight of this zone.
func (c ChallengeConfig) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// Load reads config/config.json, fills defaults and applies environment
// overrides. A .env file in the working directory is loaded first when present.
func Load() (AppConfig, error) {
	_ = godotenv.Load()
	return LoadFrom(filepath.Join("config", "config.json"))
}

// LoadFrom is Load with an explicit JSON path.
// Precedence: JSON file -> defaults -> environment variable overrides.
func LoadFrom(path string) (AppConfig, error) {
	cfg := AppConfig{Challenges: ChallengeConfig{CheckUserRange: true}}

	if err := loadJSONConfig(path, &cfg); err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := finalize(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func finalize(c *AppConfig) error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET must be set", ErrInvalidConfiguration)
	}
	if c.Challenges.Interval <= 0 {
		return fmt.Errorf("%w: challenges interval must be positive", ErrInvalidConfiguration)
	}
	if c.Challenges.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep interval must be positive", ErrInvalidConfiguration)
	}
	loc, err := time.LoadLocation(c.Challenges.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfiguration, c.Challenges.Timezone, err)
	}
	c.Challenges.Location = loc
	m := c.Map
	if m.MinLat >= m.MaxLat || m.MinLon >= m.MaxLon {
		return fmt.Errorf("%w: map bounds are empty", ErrInvalidConfiguration)
	}
	if m.DefaultLat < m.MinLat || m.DefaultLat > m.MaxLat || m.DefaultLon < m.MinLon || m.DefaultLon > m.MaxLon {
		return fmt.Errorf("%w: default map location lies outside the map bounds", ErrInvalidConfiguration)
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported DB_DRIVER %q", ErrInvalidConfiguration, c.DBDriver)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getFloat := func(m map[string]any, key string) float64 {
		if v, ok := m[key].(float64); ok {
			return v
		}
		return 0
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if arr, ok := m[key].([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
		return nil
	}
	var durErr error
	getDuration := func(m map[string]any, key string) time.Duration {
		s := getString(m, key)
		if s == "" {
			return 0
		}
		d, err := ParseDuration(s)
		if err != nil && durErr == nil {
			durErr = fmt.Errorf("%s: %w", key, err)
		}
		return d
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.TokenTTL = getDuration(app, "TokenTTL")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if list := getStringSlice(app, "AdminUsernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.GinMode = getString(lg, "GinMode")
		out.GinPath = getString(lg, "GinPath")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		if b, ok := lg["Compress"].(bool); ok {
			out.LogCompress = b
		}
	}

	if adm, ok := raw["admin"].(map[string]any); ok {
		if list := getStringSlice(adm, "Usernames"); len(list) > 0 {
			out.AdminUsernames = list
		}
	}

	if ch, ok := raw["challenges"].(map[string]any); ok {
		out.Challenges.Interval = getDuration(ch, "Interval")
		out.Challenges.QuestionFeaturePoints = getInt(ch, "QuestionFeaturePoints")
		out.Challenges.ReachedFeaturePoints = getInt(ch, "ReachedFeaturePoints")
		if b, ok := ch["CheckUserRange"].(bool); ok {
			out.Challenges.CheckUserRange = b
		}
		out.Challenges.RangeMeters = getFloat(ch, "RangeMeters")
		out.Challenges.NearbyLimit = getInt(ch, "NearbyLimit")
		out.Challenges.SweepInterval = getDuration(ch, "SweepInterval")
		out.Challenges.Timezone = getString(ch, "Timezone")
	}

	if pt, ok := raw["pets"].(map[string]any); ok {
		out.Pets.DecayInterval = getDuration(pt, "DecayInterval")
		out.Pets.DecayPercent = getInt(pt, "DecayPercent")
		out.Pets.QuizHealBonus = getInt(pt, "QuizHealBonus")
	}

	if lb, ok := raw["leaderboard"].(map[string]any); ok {
		out.Leaderboard.Size = getInt(lb, "Size")
		out.Leaderboard.CacheTTL = getDuration(lb, "CacheTTL")
	}

	if mp, ok := raw["map"].(map[string]any); ok {
		out.Map = MapConfig{
			MinLat:       getFloat(mp, "MinLat"),
			MaxLat:       getFloat(mp, "MaxLat"),
			MinLon:       getFloat(mp, "MinLon"),
			MaxLon:       getFloat(mp, "MaxLon"),
			DefaultLat:   getFloat(mp, "DefaultLat"),
			DefaultLon:   getFloat(mp, "DefaultLon"),
			MinWorldX:    getFloat(mp, "MinWorldX"),
			MaxWorldX:    getFloat(mp, "MaxWorldX"),
			MinWorldY:    getFloat(mp, "MinWorldY"),
			MaxWorldY:    getFloat(mp, "MaxWorldY"),
			MinWorldZ:    getFloat(mp, "MinWorldZ"),
			MaxWorldZ:    getFloat(mp, "MaxWorldZ"),
			CameraMapURL: getString(mp, "CameraMapURL"),
			BgColour:     getString(mp, "BgColour"),
			RenderDist:   getInt(mp, "RenderDist"),
		}
	}

	return durErr
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 72 * time.Hour
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "ecopet"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}

	ch := &c.Challenges
	if ch.Interval == 0 {
		ch.Interval = 24 * time.Hour
	}
	if ch.QuestionFeaturePoints == 0 {
		ch.QuestionFeaturePoints = 2
	}
	if ch.ReachedFeaturePoints == 0 {
		ch.ReachedFeaturePoints = 1
	}
	if ch.RangeMeters == 0 {
		ch.RangeMeters = 100
	}
	if ch.NearbyLimit == 0 {
		ch.NearbyLimit = 10
	}
	if ch.SweepInterval == 0 {
		ch.SweepInterval = time.Minute
	}
	if ch.Timezone == "" {
		ch.Timezone = "UTC"
	}

	if c.Pets.DecayInterval == 0 {
		c.Pets.DecayInterval = 24 * time.Hour
	}
	if c.Pets.DecayPercent == 0 {
		c.Pets.DecayPercent = 5
	}
	if c.Pets.QuizHealBonus == 0 {
		c.Pets.QuizHealBonus = 20
	}
	if c.Leaderboard.Size == 0 {
		c.Leaderboard.Size = 10
	}
	if c.Leaderboard.CacheTTL == 0 {
		c.Leaderboard.CacheTTL = 30 * time.Second
	}

	m := &c.Map
	if m.MinLat == 0 && m.MaxLat == 0 && m.MinLon == 0 && m.MaxLon == 0 {
		// Streatham campus, Exeter
		m.MinLat, m.MaxLat = 50.7300, 50.7420
		m.MinLon, m.MaxLon = -3.5450, -3.5250
	}
	if m.DefaultLat == 0 && m.DefaultLon == 0 {
		m.DefaultLat = (m.MinLat + m.MaxLat) / 2
		m.DefaultLon = (m.MinLon + m.MaxLon) / 2
	}
	if c.Map.BgColour == "" {
		c.Map.BgColour = "#87CEEB"
	}
	if c.Map.RenderDist == 0 {
		c.Map.RenderDist = 1000
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	parseInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid integer value %s=%s: %w", key, v, err))
				return
			}
			*dst = i
		}
	}
	parseDur := func(key string, dst *time.Duration) {
		if v := getEnv(key, ""); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid duration value %s=%s: %w", key, v, err))
				return
			}
			*dst = d
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("JWT_SECRET", &c.JWTSecret)
	parseDur("TOKEN_TTL", &c.TokenTTL)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_PATH", &c.GinPath)
	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)
	parseInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	setString("REDIS_HOST", &c.RedisHost)
	parseInt("REDIS_PORT", &c.RedisPort)
	parseInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	parseInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	parseInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	parseInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}

	parseDur("CHALLENGE_INTERVAL", &c.Challenges.Interval)
	parseInt("QUESTION_FEATURE_POINTS", &c.Challenges.QuestionFeaturePoints)
	parseInt("REACHED_FEATURE_POINTS", &c.Challenges.ReachedFeaturePoints)
	if v := getEnv("CHECK_USER_CHALLENGE_RANGE", ""); v != "" {
		c.Challenges.CheckUserRange = v == "true"
	}
	if v := getEnv("CHALLENGE_RANGE_METERS", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid float value CHALLENGE_RANGE_METERS=%s: %w", v, err))
		} else {
			c.Challenges.RangeMeters = f
		}
	}
	parseInt("NEARBY_LIMIT", &c.Challenges.NearbyLimit)
	parseDur("SWEEP_INTERVAL", &c.Challenges.SweepInterval)
	setString("GAME_TIMEZONE", &c.Challenges.Timezone)
	parseDur("PET_DECAY_INTERVAL", &c.Pets.DecayInterval)
	parseDur("LEADERBOARD_CACHE_TTL", &c.Leaderboard.CacheTTL)

	return errors.Join(errs...)
}

// ParseDuration accepts Go duration syntax plus a whole-day suffix such as "1d"
// or "7d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
