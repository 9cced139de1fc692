package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigFromFile 验证 YAML 配置能被成功加载且字段映射正确
func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
aliyun:
  api_key: "sk-test"
  model: "qwen-max"
  embedding:
    model: "text-embedding-v3"
    dimensions: 512
matcher:
  similarity_threshold: 0.7
  eval_timeout: "10s"
  loose_section_headings: true
mysql:
  host: "db.internal"
  port: 3307
redis:
  address: "cache.internal:6379"
  md5_record_expire_days: 30
minio:
  endpoint: "minio.internal:9000"
  originalsBucket: "resumes"
server:
  address: ":9090"
  api_key: "secret"
`
	tmpDir, err := os.MkdirTemp("", "config-test")
	require.NoError(t, err, "无法创建临时目录")
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err, "无法写入临时配置文件")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err, "加载合法配置不应返回错误")
	require.NotNil(t, cfg)

	assert.Equal(t, "sk-test", cfg.Aliyun.APIKey)
	assert.Equal(t, "qwen-max", cfg.Aliyun.Model)
	assert.Equal(t, 512, cfg.Aliyun.Embedding.Dimensions)
	assert.Equal(t, 0.7, cfg.Matcher.SimilarityThreshold)
	assert.Equal(t, "10s", cfg.Matcher.EvalTimeout)
	assert.True(t, cfg.Matcher.LooseSectionHeadings)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
	assert.Equal(t, 30, cfg.Redis.MD5RecordExpireDays)
	assert.Equal(t, "resumes", cfg.MinIO.OriginalsBucket)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.APIKey)
}

// TestLoadConfigAppliesDefaults 验证缺失字段会被补齐默认值
func TestLoadConfigAppliesDefaults(t *testing.T) {
	yamlContent := `
mysql:
  host: "localhost"
`
	tmpDir, err := os.MkdirTemp("", "config-test-defaults")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.Server.Address, "服务器地址应有默认值")
	assert.Equal(t, "qwen-plus", cfg.Aliyun.Model, "模型名应有默认值")
	assert.Equal(t, 1024, cfg.Aliyun.Embedding.Dimensions, "向量维度应有默认值")
	assert.Equal(t, "30s", cfg.Matcher.EvalTimeout, "评估超时应有默认值")
	assert.Equal(t, "1.0", cfg.ActiveParserVersion, "解析器版本应有默认值")
}

// TestLoadConfigEnvOverride 验证环境变量可以覆盖文件中的敏感配置
func TestLoadConfigEnvOverride(t *testing.T) {
	yamlContent := `
aliyun:
  api_key: "from-file"
`
	tmpDir, err := os.MkdirTemp("", "config-test-env")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	err = os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	t.Setenv("ALIYUN_API_KEY", "from-env")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Aliyun.APIKey, "环境变量应优先于文件配置")
}

// TestLoadConfigMissingFileInTestEnv 验证测试环境下缺失配置文件时回退到默认配置
func TestLoadConfigMissingFileInTestEnv(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err, "测试环境下缺失配置文件不应报错")
	require.NotNil(t, cfg)
	assert.Equal(t, ":8080", cfg.Server.Address)
}
