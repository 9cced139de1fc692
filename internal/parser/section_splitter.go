package parser

import (
	"io"
	"log"
	"strings"

	"resume-screener-go/internal/types"
)

// sectionKeywordEntry 章节关键词表的一项。
// 表是有序切片而非map：行命中多个章节关键词时，先测试到的章节获胜，
// 必须保证遍历顺序稳定。
type sectionKeywordEntry struct {
	Type     types.SectionType
	Keywords []string
}

// sectionKeywordTable 标题行关键词表。
// 关键词全部为小写，匹配前会对行做同样的规范化。
var sectionKeywordTable = []sectionKeywordEntry{
	{types.SectionEducation, []string{"education"}},
	{types.SectionExperience, []string{"work experience", "employment history", "professional experience"}},
	{types.SectionSkills, []string{"technical skills", "skills"}},
	{types.SectionProjects, []string{"projects"}},
	{types.SectionAchievements, []string{"achievements and responsibilities", "achievements", "honors", "awards"}},
	{types.SectionCertifications, []string{"certifications", "licenses"}},
	{types.SectionPublications, []string{"publications"}},
	{types.SectionLanguages, []string{"languages"}},
	{types.SectionInterests, []string{"interests", "hobbies"}},
}

// SectionSplitter 基于标题关键词把简历原文切分为有序章节。
// 默认使用精确匹配模式（整行等于关键词），避免正文中偶然包含
// "skills" 之类词语的句子被误判为标题。
type SectionSplitter struct {
	// loose 为 true 时改用包含模式：规范化后的行包含关键词即视为标题
	loose  bool
	logger *log.Logger
}

// SectionSplitterOption 分段器配置选项
type SectionSplitterOption func(*SectionSplitter)

// WithLooseHeadingMatch 启用宽松的包含匹配模式
func WithLooseHeadingMatch() SectionSplitterOption {
	return func(s *SectionSplitter) {
		s.loose = true
	}
}

// WithSplitterLogger 设置日志记录器
func WithSplitterLogger(logger *log.Logger) SectionSplitterOption {
	return func(s *SectionSplitter) {
		s.logger = logger
	}
}

// NewSectionSplitter 创建分段器
func NewSectionSplitter(options ...SectionSplitterOption) *SectionSplitter {
	s := &SectionSplitter{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Split 扫描全文并返回按首次出现顺序排列的章节列表。
// 第一个标题之前的内容归入 HEADER；同名章节重复出现时正文以换行拼接；
// 除标题行外不丢弃任何非空行。
func (s *SectionSplitter) Split(text string) types.SectionList {
	var sections types.SectionList
	index := make(map[types.SectionType]int)

	flush := func(current types.SectionType, buffer []string) {
		if len(buffer) == 0 {
			return
		}
		body := strings.Join(buffer, "\n")
		if i, ok := index[current]; ok {
			sections[i].Content = sections[i].Content + "\n" + body
			return
		}
		index[current] = len(sections)
		sections = append(sections, types.Section{Type: current, Content: body})
	}

	current := types.SectionHeader
	var buffer []string

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		if matched, ok := s.matchHeading(line); ok {
			flush(current, buffer)
			current = matched
			buffer = buffer[:0]
			continue
		}
		buffer = append(buffer, line)
	}
	flush(current, buffer)

	s.logger.Printf("分段完成: %d 个章节", len(sections))
	return sections
}

// matchHeading 判断一行是否为章节标题，返回命中的章节类型。
// 规范化：小写 + 去掉尾部冒号和空白。表内第一个命中的关键词获胜。
func (s *SectionSplitter) matchHeading(line string) (types.SectionType, bool) {
	normalized := strings.TrimSpace(strings.TrimRight(strings.ToLower(line), ":"))
	if normalized == "" {
		return "", false
	}
	for _, entry := range sectionKeywordTable {
		for _, keyword := range entry.Keywords {
			if normalized == keyword || (s.loose && strings.Contains(normalized, keyword)) {
				return entry.Type, true
			}
		}
	}
	return "", false
}
