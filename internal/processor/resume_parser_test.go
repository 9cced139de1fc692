package processor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/parser"
)

// countingEmbedder 测试用向量服务。按文本查表返回预置向量，未命中返回零向量，
// 记录所有被嵌入的文本，可配置为恒定失败。
type countingEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float64
	dim     int
	err     error
	texts   []string
}

func (s *countingEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	s.mu.Lock()
	s.texts = append(s.texts, texts...)
	s.mu.Unlock()
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

func (s *countingEmbedder) GetDimensions() int {
	return s.dim
}

// embedCount 返回指定文本被嵌入的次数
func (s *countingEmbedder) embedCount(text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, t := range s.texts {
		if t == text {
			count++
		}
	}
	return count
}

// stubTextExtractor 测试用文本提取器
type stubTextExtractor struct {
	text string
	err  error
}

func (s *stubTextExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.text != "" {
		return s.text, nil
	}
	return string(data), nil
}

// newTestResumeParser 构造走字面匹配路径的编排器（零向量不触发语义命中）
func newTestResumeParser(t *testing.T, skillLabels, certLabels []string, options ...ResumeParserOption) *ResumeParser {
	t.Helper()
	embedder := &countingEmbedder{dim: 2}
	ctx := context.Background()

	skillVocab, err := parser.NewVocabulary(ctx, skillLabels, embedder)
	require.NoError(t, err)
	certVocab, err := parser.NewVocabulary(ctx, certLabels, embedder)
	require.NoError(t, err)

	p, err := NewResumeParser(
		parser.NewSectionSplitter(),
		parser.NewEntityExtractor(),
		parser.NewSemanticMatcher(embedder),
		skillVocab,
		certVocab,
		options...,
	)
	require.NoError(t, err)
	return p
}

// TestParseSkillsAndEducation 技能走词表匹配并排序，教育按行保留原文
func TestParseSkillsAndEducation(t *testing.T) {
	p := newTestResumeParser(t, []string{"Python", "AWS", "Docker"}, []string{"AWS Certified"})

	extract, err := p.Parse(context.Background(), "Skills\nPython, AWS\nEducation\nBachelor of Technology")
	require.NoError(t, err)

	assert.Equal(t, []string{"AWS", "Python"}, extract.Skills)
	assert.Equal(t, []string{"Bachelor of Technology"}, extract.Education)
}

// TestParseFullResume 完整简历的端到端抽取
func TestParseFullResume(t *testing.T) {
	p := newTestResumeParser(t, []string{"Python", "Go", "Kubernetes"}, []string{"AWS Certified"})

	text := "Jane Doe\njane@example.com | +1-555-123-4567\n" +
		"Technical Skills\nLanguages: Python, Go\n" +
		"Work Experience\nSoftware Engineer at ACME\n• Built data pipelines\n• Led the cloud migration\nPlatform Engineer at Initech\n" +
		"Education\nB.Tech in Computer Science\n" +
		"Certifications\nAWS Certified Developer"

	extract, err := p.Parse(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", extract.CandidateName)
	assert.Equal(t, []string{"jane@example.com"}, extract.Emails)
	assert.Equal(t, []string{"+1-555-123-4567"}, extract.Phones)
	assert.Equal(t, []string{"Go", "Python"}, extract.Skills)
	assert.Equal(t, []string{"AWS Certified"}, extract.Certifications)
	assert.Equal(t, []string{"B.Tech in Computer Science"}, extract.Education)
	require.Len(t, extract.Experience, 2, "子弹行应归并到前一条雇主行")
	assert.Equal(t, "Software Engineer at ACME\n• Built data pipelines\n• Led the cloud migration", extract.Experience[0])
	assert.Equal(t, "Platform Engineer at Initech", extract.Experience[1])
	assert.Equal(t, text, extract.RawText)
}

// TestParseEmptyInput 空文本返回结构完整的空结果，不报错
func TestParseEmptyInput(t *testing.T) {
	p := newTestResumeParser(t, []string{"Python"}, []string{"AWS Certified"})

	extract, err := p.Parse(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "Unknown", extract.CandidateName)
	assert.Empty(t, extract.Emails)
	assert.Empty(t, extract.Phones)
	assert.NotNil(t, extract.Skills)
	assert.Empty(t, extract.Skills)
	assert.NotNil(t, extract.Certifications)
	assert.Empty(t, extract.Certifications)
	assert.Empty(t, extract.Experience)
	assert.Empty(t, extract.Education)
}

// TestParseEmptySkillSectionSkipsEmbedding 技能章节缺失时不应发起向量调用
func TestParseEmptySkillSectionSkipsEmbedding(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	ctx := context.Background()

	skillVocab, err := parser.NewVocabulary(ctx, []string{"Python"}, embedder)
	require.NoError(t, err)
	certVocab, err := parser.NewVocabulary(ctx, []string{"AWS Certified"}, embedder)
	require.NoError(t, err)

	p, err := NewResumeParser(
		parser.NewSectionSplitter(),
		parser.NewEntityExtractor(),
		parser.NewSemanticMatcher(embedder),
		skillVocab, certVocab,
	)
	require.NoError(t, err)

	embedsBefore := len(embedder.texts)
	extract, err := p.Parse(ctx, "Jane Doe\nEducation\nMIT")
	require.NoError(t, err)

	assert.Empty(t, extract.Skills)
	assert.Equal(t, embedsBefore, len(embedder.texts), "无技能/证书章节时不应有新的向量调用")
}

// TestParseBytesExtractionFailureDegrades 文本提取失败按空简历处理，不报错
func TestParseBytesExtractionFailureDegrades(t *testing.T) {
	extractor := &stubTextExtractor{err: errors.New("corrupt file")}
	p := newTestResumeParser(t, []string{"Python"}, []string{"AWS Certified"}, WithTextExtractor(extractor))

	extract, err := p.ParseBytes(context.Background(), []byte{0xde, 0xad}, "resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", extract.CandidateName)
	assert.Empty(t, extract.Skills)
}

// TestParseBytesWithExtractor 提取成功后正常走结构化抽取
func TestParseBytesWithExtractor(t *testing.T) {
	p := newTestResumeParser(t, []string{"Python"}, []string{"AWS Certified"},
		WithTextExtractor(&stubTextExtractor{}))

	extract, err := p.ParseBytes(context.Background(), []byte("John Smith\nSkills\nPython"), "resume.txt")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", extract.CandidateName)
	assert.Equal(t, []string{"Python"}, extract.Skills)
}

// TestNewResumeParserValidation 缺少必要组件时构造失败
func TestNewResumeParserValidation(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	ctx := context.Background()
	vocab, err := parser.NewVocabulary(ctx, []string{"Python"}, embedder)
	require.NoError(t, err)

	_, err = NewResumeParser(nil, parser.NewEntityExtractor(), parser.NewSemanticMatcher(embedder), vocab, vocab)
	assert.Error(t, err)

	_, err = NewResumeParser(parser.NewSectionSplitter(), parser.NewEntityExtractor(), parser.NewSemanticMatcher(embedder), nil, vocab)
	assert.Error(t, err)
}

// TestGroupExperienceEntries 工作经历分组的边界行为
func TestGroupExperienceEntries(t *testing.T) {
	entries := groupExperienceEntries("• orphan bullet\nEngineer at ACME\n• did things")
	require.Len(t, entries, 2)
	assert.Equal(t, "• orphan bullet", entries[0], "开头的子弹行自成一条")
	assert.Equal(t, "Engineer at ACME\n• did things", entries[1])

	assert.Empty(t, groupExperienceEntries(""))
}

// TestSplitSkillTokens 技能行的切分规则
func TestSplitSkillTokens(t *testing.T) {
	tokens := splitSkillTokens("Languages: Python, Go\nTools: Docker")
	assert.Equal(t, []string{"Python", "Go", "Docker"}, tokens)

	assert.Empty(t, splitSkillTokens("Categories:\n , ,"))
}
