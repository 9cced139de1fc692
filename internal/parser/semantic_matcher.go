package parser

import (
	"context"
	"io"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
)

// defaultSimilarityThreshold 余弦相似度默认阈值
const defaultSimilarityThreshold = 0.6

// SemanticMatcher 把自由文本候选词匹配到受控词表。
// 两路取并集：向量相似度捕捉同义/改写的提法，字面包含保证
// 逐字出现的标签不会因向量噪声被漏掉。
type SemanticMatcher struct {
	embedder  embedding.Embedder
	threshold float64
	logger    *log.Logger
}

// SemanticMatcherOption 匹配器配置选项
type SemanticMatcherOption func(*SemanticMatcher)

// WithSimilarityThreshold 覆盖默认余弦阈值
func WithSimilarityThreshold(threshold float64) SemanticMatcherOption {
	return func(m *SemanticMatcher) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithMatcherLogger 设置日志记录器
func WithMatcherLogger(logger *log.Logger) SemanticMatcherOption {
	return func(m *SemanticMatcher) {
		m.logger = logger
	}
}

// NewSemanticMatcher 创建语义匹配器
func NewSemanticMatcher(embedder embedding.Embedder, options ...SemanticMatcherOption) *SemanticMatcher {
	m := &SemanticMatcher{
		embedder:  embedder,
		threshold: defaultSimilarityThreshold,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Match 返回词表中语义上出现在输入里的标签子集，按字典序排序。
// 输入为空时不发起向量调用，直接返回空结果。
// 向量调用失败降级为零向量（字面包含这一路不受影响），不向上传播。
func (m *SemanticMatcher) Match(ctx context.Context, inputs []string, vocab *Vocabulary) []string {
	if len(inputs) == 0 || vocab == nil || vocab.Len() == 0 {
		return nil
	}

	inputVectors, err := m.embedder.EmbedStrings(ctx, inputs)
	if err != nil || len(inputVectors) != len(inputs) {
		m.logger.Printf("输入向量化失败，降级为零向量: %v", err)
		inputVectors = ZeroVectors(len(inputs), vectorDim(vocab.Embeddings()))
	}

	found := make(map[string]struct{})

	// 第一路：每个输入取与词表的 argmax 余弦相似度，超过阈值即命中
	labels := vocab.Labels()
	vocabVectors := vocab.Embeddings()
	for i := range inputs {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for j := range vocabVectors {
			score := CosineSimilarity(inputVectors[i], vocabVectors[j])
			if score > bestScore {
				bestScore = score
				bestIdx = j
			}
		}
		if bestIdx >= 0 && bestScore > m.threshold {
			found[labels[bestIdx]] = struct{}{}
		}
	}

	// 第二路：字面包含（大小写不敏感）。
	// 已知精度风险：短标签可能命中无关长词的子串（如 "Go" 命中 "Google"），
	// 与上游行为保持一致，不做词边界修正。
	for _, input := range inputs {
		lowerInput := strings.ToLower(input)
		for _, label := range labels {
			if strings.Contains(lowerInput, strings.ToLower(label)) {
				found[label] = struct{}{}
			}
		}
	}

	matched := make([]string, 0, len(found))
	for label := range found {
		matched = append(matched, label)
	}
	sort.Strings(matched)
	return matched
}

// CosineSimilarity 计算两个向量的余弦相似度，零向量或维度不一致时返回0
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ZeroVectors 生成 n 个 dim 维零向量，作为向量服务失败时的降级输出
func ZeroVectors(n, dim int) [][]float64 {
	vectors := make([][]float64, n)
	for i := range vectors {
		vectors[i] = make([]float64, dim)
	}
	return vectors
}

// vectorDim 返回向量集中第一个非空向量的维度
func vectorDim(vectors [][]float64) int {
	for _, v := range vectors {
		if len(v) > 0 {
			return len(v)
		}
	}
	return 0
}
