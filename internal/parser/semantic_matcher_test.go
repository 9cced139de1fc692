package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder 测试用的向量服务。按文本查表返回预置向量，
// 未命中时返回 dim 维零向量，可配置为恒定失败。
type stubEmbedder struct {
	vectors map[string][]float64
	dim     int
	err     error
	calls   int
}

func (s *stubEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = make([]float64, s.dim)
	}
	return out, nil
}

// newTestVocabulary 用预置向量构造词表
func newTestVocabulary(t *testing.T, labels []string, vectors map[string][]float64) *Vocabulary {
	t.Helper()
	vocab, err := NewVocabulary(context.Background(), labels, &stubEmbedder{vectors: vectors, dim: 2})
	require.NoError(t, err)
	return vocab
}

// TestMatchSemanticHit 向量相似度超过阈值的同义提法应命中词表标签
func TestMatchSemanticHit(t *testing.T) {
	vocabVectors := map[string][]float64{
		"Python": {1, 0},
		"AWS":    {0, 1},
	}
	vocab := newTestVocabulary(t, []string{"Python", "AWS"}, vocabVectors)

	embedder := &stubEmbedder{vectors: map[string][]float64{
		"snake language": {0.95, 0.05},
	}, dim: 2}
	matcher := NewSemanticMatcher(embedder)

	matched := matcher.Match(context.Background(), []string{"snake language"}, vocab)
	assert.Equal(t, []string{"Python"}, matched, "语义相似的提法应命中对应标签")
}

// TestMatchLiteralGuarantee 向量服务失败时，字面包含的标签仍必须命中
func TestMatchLiteralGuarantee(t *testing.T) {
	vocab := newTestVocabulary(t, []string{"Python", "AWS"}, map[string][]float64{
		"Python": {1, 0},
		"AWS":    {0, 1},
	})

	matcher := NewSemanticMatcher(&stubEmbedder{err: errors.New("embedding service down")})

	matched := matcher.Match(context.Background(), []string{"experienced in aws cloud"}, vocab)
	assert.Equal(t, []string{"AWS"}, matched, "向量失败降级后字面匹配不受影响")
}

// TestMatchUnionSorted 两路命中取并集，输出按字典序排序且无重复
func TestMatchUnionSorted(t *testing.T) {
	vocab := newTestVocabulary(t, []string{"Python", "AWS", "Docker"}, map[string][]float64{
		"Python": {1, 0},
		"AWS":    {0, 1},
		"Docker": {0.7, 0.7},
	})

	embedder := &stubEmbedder{vectors: map[string][]float64{
		"python scripting": {0.99, 0.01}, // 语义+字面双命中 Python
		"aws lambda":       {0.01, 0.99}, // 语义+字面双命中 AWS
	}, dim: 2}
	matcher := NewSemanticMatcher(embedder)

	matched := matcher.Match(context.Background(), []string{"python scripting", "aws lambda"}, vocab)
	assert.Equal(t, []string{"AWS", "Python"}, matched)
}

// TestMatchBelowThreshold 相似度不超过阈值且无字面包含时不命中
func TestMatchBelowThreshold(t *testing.T) {
	vocab := newTestVocabulary(t, []string{"Python", "AWS"}, map[string][]float64{
		"Python": {1, 0},
		"AWS":    {0, 1},
	})

	embedder := &stubEmbedder{vectors: map[string][]float64{
		"carpentry": {0.5, 0.5}, // 与两个标签的余弦均约0.707>0.6，改用高阈值验证
	}, dim: 2}
	matcher := NewSemanticMatcher(embedder, WithSimilarityThreshold(0.9))

	matched := matcher.Match(context.Background(), []string{"carpentry"}, vocab)
	assert.Empty(t, matched)
}

// TestMatchEmptyInputSkipsEmbedding 空输入不应发起向量调用
func TestMatchEmptyInputSkipsEmbedding(t *testing.T) {
	vocab := newTestVocabulary(t, []string{"Python"}, map[string][]float64{"Python": {1, 0}})

	embedder := &stubEmbedder{dim: 2}
	matcher := NewSemanticMatcher(embedder)

	assert.Empty(t, matcher.Match(context.Background(), nil, vocab))
	assert.Empty(t, matcher.Match(context.Background(), []string{}, vocab))
	assert.Equal(t, 0, embedder.calls, "空输入不应调用向量服务")
}

// TestMatchNilVocabulary 词表为空时直接返回空结果
func TestMatchNilVocabulary(t *testing.T) {
	embedder := &stubEmbedder{dim: 2}
	matcher := NewSemanticMatcher(embedder)

	assert.Empty(t, matcher.Match(context.Background(), []string{"python"}, nil))
	assert.Equal(t, 0, embedder.calls)
}

// TestCosineSimilarity 余弦相似度的边界行为
func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9, "同方向向量相似度为1")
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9, "正交向量相似度为0")
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9, "反方向向量相似度为-1")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}), "零向量相似度为0")
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 2}), "维度不一致相似度为0")
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil), "空向量相似度为0")
}

// TestZeroVectors 降级零向量的形状
func TestZeroVectors(t *testing.T) {
	vectors := ZeroVectors(3, 4)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Equal(t, make([]float64, 4), v)
	}
}
