package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Aliyun struct {
		APIKey    string          `yaml:"api_key"`
		APIURL    string          `yaml:"api_url"` // chat completions 地址
		Model     string          `yaml:"model"`
		Embedding EmbeddingConfig `yaml:"embedding"`
	} `yaml:"aliyun"`

	// 技能/证书词表来源配置
	Ontology OntologyConfig `yaml:"ontology"`

	// 匹配与评估配置
	Matcher MatcherConfig `yaml:"matcher"`

	// 偏见检测配置
	Bias BiasConfig `yaml:"bias"`

	// 存储配置
	MySQL MySQLConfig `yaml:"mysql"`
	Redis RedisConfig `yaml:"redis"`
	MinIO MinIOConfig `yaml:"minio"`

	// 服务器配置
	Server ServerConfig `yaml:"server"`

	// 日志配置
	Logger LoggerConfig `yaml:"logger"`

	// 当前解析器版本，随匹配记录落库
	ActiveParserVersion string `yaml:"active_parser_version"`
}

// EmbeddingConfig Aliyun Embedding 配置
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
}

// OntologyConfig 词表来源。
// 每项可以为空（使用内置默认词表）、本地文件路径或 http(s) URL，
// 文件/URL 内容为 JSON 字符串数组。
type OntologyConfig struct {
	SkillSource string `yaml:"skill_source"`
	CertSource  string `yaml:"cert_source"`
}

// MatcherConfig 匹配评分配置
type MatcherConfig struct {
	// 语义匹配余弦阈值，0 表示使用内置默认值
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// LLM评估超时，例如 "30s"；超时后回退到启发式结果
	EvalTimeout string `yaml:"eval_timeout"`
	// 标题行匹配是否使用宽松的包含模式（默认精确匹配）
	LooseSectionHeadings bool `yaml:"loose_section_headings"`
}

// BiasConfig 偏见检测配置
type BiasConfig struct {
	// PatternsPath 偏见类别→正则 的JSON文件路径，空则使用内置默认
	PatternsPath string `yaml:"patterns_path"`
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"`
	MaxOpenConns int `yaml:"max_open_conns"`
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"`
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`
	// 日志级别(1-4)
	LogLevel int `yaml:"log_level"`
}

// RedisConfig Redis配置结构
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"`
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"`
	// MD5去重记录的过期天数，0表示默认1年
	MD5RecordExpireDays int `yaml:"md5_record_expire_days"`
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	// 原始简历存储桶
	OriginalsBucket string `yaml:"originalsBucket"`
	Location        string `yaml:"location"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Address string `yaml:"address"` // 例如 ":8080"
	// APIKey 非空时启用 keyauth 鉴权
	APIKey string `yaml:"api_key"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`       // debug, info, warn, error
	Format       string `yaml:"format"`      // json, pretty
	TimeFormat   string `yaml:"time_format"` // 时间格式
	ReportCaller bool   `yaml:"report_caller"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		// 尝试在常见位置查找配置文件
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".resume-screener", "config.yaml"),
		}
		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
		if configPath == "" {
			// 测试环境下直接返回默认配置
			if inTestEnv() {
				return createDefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		if inTestEnv() {
			return createDefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖敏感配置（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}
	if envModel := os.Getenv("ALIYUN_MODEL"); envModel != "" {
		config.Aliyun.Model = envModel
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults 补齐缺失的默认值
func applyDefaults(config *Config) {
	if config.Server.Address == "" {
		config.Server.Address = ":8080"
	}
	if config.Aliyun.APIURL == "" {
		config.Aliyun.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	}
	if config.Aliyun.Model == "" {
		config.Aliyun.Model = "qwen-plus"
	}
	if config.Aliyun.Embedding.Model == "" {
		config.Aliyun.Embedding.Model = "text-embedding-v3"
	}
	if config.Aliyun.Embedding.Dimensions == 0 {
		config.Aliyun.Embedding.Dimensions = 1024
	}
	if config.Aliyun.Embedding.BaseURL == "" {
		config.Aliyun.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	}
	if config.Matcher.EvalTimeout == "" {
		config.Matcher.EvalTimeout = "30s"
	}
	if config.ActiveParserVersion == "" {
		config.ActiveParserVersion = "1.0"
	}
}

// createDefaultConfig 创建默认配置，用于测试环境
func createDefaultConfig() *Config {
	config := &Config{}
	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.Redis.Address = "localhost:6379"
	config.MinIO.Endpoint = "localhost:9000"
	config.MinIO.OriginalsBucket = "resumes-originals"
	config.Logger.Level = "debug"
	config.Logger.Format = "pretty"
	applyDefaults(config)
	return config
}

// inTestEnv 粗略判断是否运行在 go test 下
func inTestEnv() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}
