package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/types"
)

// TestSplitBasicSections 验证基础的标题切分与章节顺序
func TestSplitBasicSections(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "Skills\nPython, AWS\nEducation\nBachelor of Technology"
	sections := splitter.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionSkills, sections[0].Type)
	assert.Equal(t, "Python, AWS", sections[0].Content)
	assert.Equal(t, types.SectionEducation, sections[1].Type)
	assert.Equal(t, "Bachelor of Technology", sections[1].Content)
}

// TestSplitHeaderBeforeFirstHeading 第一个标题之前的内容应归入 HEADER
func TestSplitHeaderBeforeFirstHeading(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "John Doe\njohn.doe@example.com\n\nEducation\nMIT, B.S. Computer Science"
	sections := splitter.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionHeader, sections[0].Type)
	assert.Equal(t, "John Doe\njohn.doe@example.com", sections[0].Content)
	assert.Equal(t, types.SectionEducation, sections[1].Type)
}

// TestSplitMergesRepeatedSections 同名章节重复出现时正文以换行合并
func TestSplitMergesRepeatedSections(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "Education\nMIT\nSkills\nGo\nEducation\nStanford"
	sections := splitter.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionEducation, sections[0].Type)
	assert.Equal(t, "MIT\nStanford", sections[0].Content)
	assert.Equal(t, types.SectionSkills, sections[1].Type)
	assert.Equal(t, "Go", sections[1].Content)
}

// TestSplitHeadingNormalization 标题匹配应忽略大小写和尾部冒号
func TestSplitHeadingNormalization(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "TECHNICAL SKILLS:\nPython\nWork Experience\nACME Corp"
	sections := splitter.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionSkills, sections[0].Type)
	assert.Equal(t, types.SectionExperience, sections[1].Type)
}

// TestSplitExactModeIgnoresEmbeddedKeywords 精确模式下正文中包含关键词的句子不应被当作标题
func TestSplitExactModeIgnoresEmbeddedKeywords(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "Summary\nI have many skills to offer and broad education background"
	sections := splitter.Split(text)

	require.Len(t, sections, 1)
	assert.Equal(t, types.SectionHeader, sections[0].Type)
	assert.Contains(t, sections[0].Content, "skills to offer")
}

// TestSplitLooseModeMatchesContainedKeywords 宽松模式下包含关键词的行也视为标题
func TestSplitLooseModeMatchesContainedKeywords(t *testing.T) {
	splitter := NewSectionSplitter(WithLooseHeadingMatch())

	text := "My Skills\nPython\nRelated Projects\nChat Bot"
	sections := splitter.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionSkills, sections[0].Type)
	assert.Equal(t, types.SectionProjects, sections[1].Type)
}

// TestSplitPreservesAllBodyLines 除标题外所有非空行都必须出现在某个章节里
func TestSplitPreservesAllBodyLines(t *testing.T) {
	splitter := NewSectionSplitter()

	text := "Jane Roe\nWork Experience\nSoftware Engineer at ACME\n• Built pipelines\n\nEducation\nB.Tech\nCertifications\nAWS Certified"
	sections := splitter.Split(text)

	var joined strings.Builder
	for _, sec := range sections {
		joined.WriteString(sec.Content)
		joined.WriteString("\n")
	}
	all := joined.String()

	for _, line := range []string{"Jane Roe", "Software Engineer at ACME", "• Built pipelines", "B.Tech", "AWS Certified"} {
		assert.Contains(t, all, line, "非标题行不应被丢弃")
	}
}

// TestSplitEmptyInput 空输入应返回空章节列表
func TestSplitEmptyInput(t *testing.T) {
	splitter := NewSectionSplitter()

	assert.Empty(t, splitter.Split(""))
	assert.Empty(t, splitter.Split("\n\n  \n"))
}

// TestSectionListAccessors 验证 SectionList 的查找辅助方法
func TestSectionListAccessors(t *testing.T) {
	splitter := NewSectionSplitter()
	sections := splitter.Split("Skills\nGo, Rust\nLanguages\nEnglish")

	assert.True(t, sections.Has(types.SectionSkills))
	assert.False(t, sections.Has(types.SectionEducation))
	assert.Equal(t, "Go, Rust", sections.Text(types.SectionSkills))
	assert.Equal(t, "", sections.Text(types.SectionEducation))
}
