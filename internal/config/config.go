package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	NATS      NATSConfig      `yaml:"nats"`
	MinIO     MinIOConfig     `yaml:"minio"`
	Vision    VisionConfig    `yaml:"vision"`
	Datasets  DatasetsConfig  `yaml:"datasets"`
	ColorName ColorNameConfig `yaml:"color_name"`
	Recommend RecommendConfig `yaml:"recommend"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	// PublicURL is the base under which uploaded objects are reachable. When
	// empty, uploads are returned as presigned links valid for PresignExpiry.
	PublicURL     string        `yaml:"public_url"`
	PresignExpiry time.Duration `yaml:"presign_expiry"`
	UploadTimeout time.Duration `yaml:"upload_timeout"`
}

// ClassifierConfig names the ONNX model and label mapping used for one usage.
type ClassifierConfig struct {
	Model     string `yaml:"model"`
	Labels    string `yaml:"labels"`
	InputSize int    `yaml:"input_size"`
}

type VisionConfig struct {
	ModelsDir   string                      `yaml:"models_dir"`
	Classifiers map[string]ClassifierConfig `yaml:"classifiers"`
	// SegmenterModel is optional; without it the background is estimated from
	// the image border.
	SegmenterModel      string        `yaml:"segmenter_model"`
	SegmenterInputSize  int           `yaml:"segmenter_input_size"`
	MaskThreshold       float64       `yaml:"mask_threshold"`
	BackgroundTolerance float64       `yaml:"background_tolerance"`
	DominantColors      int           `yaml:"dominant_colors"`
	MaxSamplePixels     int           `yaml:"max_sample_pixels"`
	InferenceTimeout    time.Duration `yaml:"inference_timeout"`
}

type DatasetsConfig struct {
	// Sources are local paths, http(s) URLs, or minio://<key> objects.
	Compatibility string        `yaml:"compatibility"`
	Catalog       string        `yaml:"catalog"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
}

type ColorNameConfig struct {
	BaseURL          string        `yaml:"base_url"`
	Timeout          time.Duration `yaml:"timeout"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
}

type RecommendConfig struct {
	// Backend selects where nearest compatibility rows are computed:
	// "memory" scans the dataset, "postgres" uses the pgvector index.
	Backend string `yaml:"backend"`
	// CandidateLimit bounds the nearest rows considered before filtering.
	// Zero keeps every row.
	CandidateLimit int `yaml:"candidate_limit"`
	MaxMatches     int `yaml:"max_matches"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Recommend.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("recommend.backend must be memory or postgres, got %q", c.Recommend.Backend)
	}
	if c.Recommend.CandidateLimit < 0 {
		return fmt.Errorf("recommend.candidate_limit must not be negative")
	}
	if c.Datasets.Catalog == "" {
		return fmt.Errorf("datasets.catalog is required")
	}
	if c.Recommend.Backend == "memory" && c.Datasets.Compatibility == "" {
		return fmt.Errorf("datasets.compatibility is required for the memory backend")
	}
	for usage, cl := range c.Vision.Classifiers {
		if cl.Model == "" || cl.Labels == "" {
			return fmt.Errorf("vision.classifiers.%s needs model and labels", usage)
		}
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "uploads"
	}
	if cfg.MinIO.Region == "" {
		cfg.MinIO.Region = "us-east-1"
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 7 * 24 * time.Hour
	}
	if cfg.MinIO.UploadTimeout == 0 {
		cfg.MinIO.UploadTimeout = 15 * time.Second
	}
	for usage, cl := range cfg.Vision.Classifiers {
		if cl.InputSize == 0 {
			cl.InputSize = 224
			cfg.Vision.Classifiers[usage] = cl
		}
	}
	if cfg.Vision.SegmenterInputSize == 0 {
		cfg.Vision.SegmenterInputSize = 320
	}
	if cfg.Vision.MaskThreshold == 0 {
		cfg.Vision.MaskThreshold = 0.5
	}
	if cfg.Vision.BackgroundTolerance == 0 {
		cfg.Vision.BackgroundTolerance = 40
	}
	if cfg.Vision.DominantColors == 0 {
		cfg.Vision.DominantColors = 3
	}
	if cfg.Vision.MaxSamplePixels == 0 {
		cfg.Vision.MaxSamplePixels = 40000
	}
	if cfg.Vision.InferenceTimeout == 0 {
		cfg.Vision.InferenceTimeout = 10 * time.Second
	}
	if cfg.Datasets.CacheTTL == 0 {
		cfg.Datasets.CacheTTL = 30 * time.Minute
	}
	if cfg.Datasets.FetchTimeout == 0 {
		cfg.Datasets.FetchTimeout = 30 * time.Second
	}
	if cfg.ColorName.BaseURL == "" {
		cfg.ColorName.BaseURL = "https://www.thecolorapi.com"
	}
	if cfg.ColorName.Timeout == 0 {
		cfg.ColorName.Timeout = 5 * time.Second
	}
	if cfg.ColorName.CacheTTL == 0 {
		cfg.ColorName.CacheTTL = 24 * time.Hour
	}
	if cfg.ColorName.FailureThreshold == 0 {
		cfg.ColorName.FailureThreshold = 5
	}
	if cfg.ColorName.OpenTimeout == 0 {
		cfg.ColorName.OpenTimeout = 30 * time.Second
	}
	if cfg.Recommend.Backend == "" {
		cfg.Recommend.Backend = "memory"
	}
	if cfg.Recommend.MaxMatches == 0 {
		cfg.Recommend.MaxMatches = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OUTFIT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OUTFIT_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("OUTFIT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("OUTFIT_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("OUTFIT_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("OUTFIT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("OUTFIT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("OUTFIT_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("OUTFIT_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("OUTFIT_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("OUTFIT_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("OUTFIT_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("OUTFIT_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("OUTFIT_COMPATIBILITY_DATASET"); v != "" {
		cfg.Datasets.Compatibility = v
	}
	if v := os.Getenv("OUTFIT_CATALOG_DATASET"); v != "" {
		cfg.Datasets.Catalog = v
	}
	if v := os.Getenv("OUTFIT_RECOMMEND_BACKEND"); v != "" {
		cfg.Recommend.Backend = v
	}
	if v := os.Getenv("OUTFIT_CANDIDATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recommend.CandidateLimit = n
		}
	}
}
