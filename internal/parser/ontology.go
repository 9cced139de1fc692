package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

// DefaultSkillLabels 内置技能词表，词表来源加载失败时的兜底
var DefaultSkillLabels = []string{
	"Python", "Java", "C++", "JavaScript", "SQL", "HTML", "CSS",
	"React.js", "Flask", "RESTful APIs", "MongoDB", "MySQL", "Docker", "AWS", "Git",
	"Google Cloud Run", "CloudSQL", "Azure", "PostgreSQL", "Firebase", "Firestore",
	"Machine Learning", "Deep Learning", "NLP", "Generative AI", "LLM Fine-Tuning",
	"RAG", "Transformers",
	"TensorFlow", "Scikit-learn", "OpenCV", "Hugging Face", "LangChain", "Pandas",
	"Data Structures and Algorithms", "Object Oriented Programming",
	"Computer Networks", "Operating Systems", "Database Management",
}

// DefaultCertLabels 内置证书词表
var DefaultCertLabels = []string{
	"AWS Certified", "Azure Certified", "GCP Certified", "Oracle Certified",
	"Google Certified", "Microsoft Certified",
}

// ontologySourceKind 词表来源类别
type ontologySourceKind int

const (
	ontologySourceDefault ontologySourceKind = iota
	ontologySourceFile
	ontologySourceURL
)

// OntologySource 词表来源的标签化变体: 内置默认 / 本地文件 / 远程URL。
// 构造引擎时解析一次，之后词表只读。
type OntologySource struct {
	kind     ontologySourceKind
	location string
}

// DefaultOntology 使用内置默认词表
func DefaultOntology() OntologySource {
	return OntologySource{kind: ontologySourceDefault}
}

// OntologyFromFile 从本地JSON文件加载词表（内容为字符串数组）
func OntologyFromFile(path string) OntologySource {
	return OntologySource{kind: ontologySourceFile, location: path}
}

// OntologyFromURL 从远程URL加载词表
func OntologyFromURL(url string) OntologySource {
	return OntologySource{kind: ontologySourceURL, location: url}
}

// OntologySourceFrom 根据配置字符串推断来源：空→默认，http(s)→URL，否则文件路径
func OntologySourceFrom(location string) OntologySource {
	switch {
	case location == "":
		return DefaultOntology()
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return OntologyFromURL(location)
	default:
		return OntologyFromFile(location)
	}
}

// ResolveLabels 解析词表来源为标签列表。
// 文件/URL加载失败不致命：记录警告并回退到 fallback。
func ResolveLabels(source OntologySource, fallback []string, logger *log.Logger) []string {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var (
		data []byte
		err  error
	)
	switch source.kind {
	case ontologySourceDefault:
		return fallback
	case ontologySourceFile:
		data, err = os.ReadFile(source.location)
	case ontologySourceURL:
		data, err = fetchURL(source.location)
	}
	if err != nil {
		logger.Printf("加载词表失败 (%s)，使用内置默认词表: %v", source.location, err)
		return fallback
	}

	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		logger.Printf("词表JSON格式错误 (%s)，使用内置默认词表: %v", source.location, err)
		return fallback
	}
	if len(labels) == 0 {
		logger.Printf("词表为空 (%s)，使用内置默认词表", source.location)
		return fallback
	}
	return labels
}

func fetchURL(url string) ([]byte, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("词表请求返回状态码 %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Vocabulary 带预计算向量的只读词表。
// 向量在构造时一次性生成，进程内所有请求共享；禁止按请求重算。
type Vocabulary struct {
	labels     []string
	embeddings [][]float64
	labelSet   map[string]struct{}
}

// NewVocabulary 构造词表并预计算全部标签的向量。
// 向量生成失败视为构造期错误，直接返回（引擎应拒绝启动）。
func NewVocabulary(ctx context.Context, labels []string, embedder embedding.Embedder) (*Vocabulary, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("词表不能为空")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder 不能为空")
	}

	embeddings, err := embedder.EmbedStrings(ctx, labels)
	if err != nil {
		return nil, fmt.Errorf("词表向量预计算失败: %w", err)
	}
	if len(embeddings) != len(labels) {
		return nil, fmt.Errorf("词表向量数量不匹配: %d 标签 / %d 向量", len(labels), len(embeddings))
	}

	labelSet := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		labelSet[label] = struct{}{}
	}

	return &Vocabulary{
		labels:     labels,
		embeddings: embeddings,
		labelSet:   labelSet,
	}, nil
}

// Labels 返回词表标签（调用方不得修改）
func (v *Vocabulary) Labels() []string {
	return v.labels
}

// Embeddings 返回预计算向量（调用方不得修改）
func (v *Vocabulary) Embeddings() [][]float64 {
	return v.embeddings
}

// Contains 判断标签是否属于词表（大小写敏感）
func (v *Vocabulary) Contains(label string) bool {
	_, ok := v.labelSet[label]
	return ok
}

// Len 词表大小
func (v *Vocabulary) Len() int {
	return len(v.labels)
}
