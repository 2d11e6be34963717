package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
	Minio     MinioConfig     `mapstructure:"minio"`
	Media     MediaConfig     `mapstructure:"media"`
	FFmpeg    FFmpegConfig    `mapstructure:"ffmpeg"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	EnableTLS    bool          `mapstructure:"enable_tls"`
}

// GetRedisAddr 拼接Redis地址
func (c RedisConfig) GetRedisAddr() string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Enabled          bool        `mapstructure:"enabled"`
	BootstrapServers []string    `mapstructure:"bootstrap_servers"`
	ClientID         string      `mapstructure:"client_id"`
	GroupID          string      `mapstructure:"group_id"`
	Topics           KafkaTopics `mapstructure:"topics"`
}

// KafkaTopics 订阅的主题
type KafkaTopics struct {
	MediaProcess string `mapstructure:"media_process"`
}

// MinioConfig MinIO配置（制品镜像存储）
type MinioConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKey       string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// MediaConfig 本地媒体存储配置
type MediaConfig struct {
	RootDir    string `mapstructure:"root_dir"`
	PublicBase string `mapstructure:"public_base"`
}

// FFmpegConfig FFmpeg/FFprobe相关配置
type FFmpegConfig struct {
	BinaryPath     string   `mapstructure:"binary_path"`
	ProbePath      string   `mapstructure:"probe_path"`
	SearchPaths    []string `mapstructure:"search_paths"`
	Threads        int      `mapstructure:"threads"`
	Preset         string   `mapstructure:"preset"`
	SegmentSeconds int      `mapstructure:"segment_seconds"`
}

// PipelineConfig 处理管线配置
type PipelineConfig struct {
	EnableHLS        bool          `mapstructure:"enable_hls"`
	EnableRenditions bool          `mapstructure:"enable_renditions"`
	EnableFloorTier  bool          `mapstructure:"enable_floor_tier"`
	StalenessWindow  time.Duration `mapstructure:"staleness_window"`
	HeartbeatEvery   time.Duration `mapstructure:"heartbeat_every"`
	ProgressEvery    time.Duration `mapstructure:"progress_every"`
	StallWarnAfter   time.Duration `mapstructure:"stall_warn_after"`
	KeepLogs         int           `mapstructure:"keep_logs"`
	MetadataTimeout  time.Duration `mapstructure:"metadata_timeout"`
	StreamTimeout    time.Duration `mapstructure:"stream_timeout"`
	RenditionTimeout time.Duration `mapstructure:"rendition_timeout"`
	HLSTimeout       time.Duration `mapstructure:"hls_timeout"`
}

// StreamConfig 流式分发配置
// Delivery 取 direct（应用进程读盘）或 nginx（X-Accel-Redirect）
type StreamConfig struct {
	Delivery       string `mapstructure:"delivery"`
	AccelPrefix    string `mapstructure:"accel_prefix"`
	ChunkSizeBytes int    `mapstructure:"chunk_size_bytes"`
}

// WorkerConfig Worker相关配置
type WorkerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	WorkerID            string        `mapstructure:"worker_id"`
	MaxConcurrentJobs   int           `mapstructure:"max_concurrent_jobs"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	MaxJobAttempts      int           `mapstructure:"max_job_attempts"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`
}

// WatchdogConfig 卡死任务巡检配置
type WatchdogConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

// ProfilingConfig 持续剖析配置（Pyroscope）
type ProfilingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address"`
	AppName       string `mapstructure:"app_name"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("kafka.enabled", true)
	viper.SetDefault("kafka.client_id", "media-service")
	viper.SetDefault("kafka.group_id", "media-service-group")
	viper.SetDefault("kafka.bootstrap_servers", []string{"localhost:29092"})
	viper.SetDefault("kafka.topics.media_process", "media.process")
	viper.SetDefault("pipeline.enable_hls", true)
	viper.SetDefault("pipeline.enable_renditions", true)
	viper.SetDefault("pipeline.enable_floor_tier", true)

	// 设置环境变量前缀
	viper.SetEnvPrefix("GO_MEDIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.normalize()

	return &config, nil
}

// normalize 补全配置的默认值
func (c *Config) normalize() {
	// 兼容不同的密钥字段
	if c.Minio.AccessKeyID == "" {
		c.Minio.AccessKeyID = c.Minio.AccessKey
	}
	if c.Minio.SecretAccessKey == "" {
		c.Minio.SecretAccessKey = c.Minio.SecretKey
	}

	if c.Media.RootDir == "" {
		c.Media.RootDir = "storage/media"
	}

	if c.FFmpeg.BinaryPath == "" {
		c.FFmpeg.BinaryPath = "ffmpeg"
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = "ffprobe"
	}
	if len(c.FFmpeg.SearchPaths) == 0 {
		c.FFmpeg.SearchPaths = []string{"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin"}
	}
	if c.FFmpeg.Preset == "" {
		c.FFmpeg.Preset = "fast"
	}
	if c.FFmpeg.SegmentSeconds <= 0 {
		c.FFmpeg.SegmentSeconds = 6
	}
	if c.FFmpeg.Threads < 0 {
		c.FFmpeg.Threads = 0
	}

	if c.Pipeline.StalenessWindow <= 0 {
		c.Pipeline.StalenessWindow = 120 * time.Second
	}
	if c.Pipeline.HeartbeatEvery <= 0 {
		c.Pipeline.HeartbeatEvery = 5 * time.Second
	}
	if c.Pipeline.ProgressEvery <= 0 {
		c.Pipeline.ProgressEvery = 3 * time.Second
	}
	if c.Pipeline.StallWarnAfter <= 0 {
		c.Pipeline.StallWarnAfter = 60 * time.Second
	}
	if c.Pipeline.KeepLogs <= 0 {
		c.Pipeline.KeepLogs = 200
	}
	if c.Pipeline.MetadataTimeout <= 0 {
		c.Pipeline.MetadataTimeout = 2 * time.Minute
	}
	if c.Pipeline.StreamTimeout <= 0 {
		c.Pipeline.StreamTimeout = 30 * time.Minute
	}
	if c.Pipeline.RenditionTimeout <= 0 {
		c.Pipeline.RenditionTimeout = time.Hour
	}
	if c.Pipeline.HLSTimeout <= 0 {
		c.Pipeline.HLSTimeout = 2 * time.Hour
	}

	if c.Stream.Delivery == "" {
		c.Stream.Delivery = "direct"
	}
	if c.Stream.AccelPrefix == "" {
		c.Stream.AccelPrefix = "/_protected_media"
	}
	if c.Stream.ChunkSizeBytes <= 0 {
		c.Stream.ChunkSizeBytes = 64 * 1024
	}

	if c.Worker.MaxConcurrentJobs <= 0 {
		c.Worker.MaxConcurrentJobs = 2
	}
	if c.Worker.QueueCapacity <= 0 {
		c.Worker.QueueCapacity = c.Worker.MaxConcurrentJobs * 10
	}
	if c.Worker.MaxJobAttempts <= 0 {
		c.Worker.MaxJobAttempts = 3
	}
	if c.Worker.ShutdownGracePeriod == 0 {
		c.Worker.ShutdownGracePeriod = 10 * time.Second
	}
	if c.Worker.WorkerID == "" {
		c.Worker.WorkerID = "media-worker"
	}

	if c.Watchdog.Interval <= 0 {
		c.Watchdog.Interval = 30 * time.Second
	}
	if c.Watchdog.BatchSize <= 0 {
		c.Watchdog.BatchSize = 100
	}
}

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// SetGlobalConfig 设置全局配置（启动阶段调用一次）
func SetGlobalConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig 获取全局配置
func GetGlobalConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalConfig
}
