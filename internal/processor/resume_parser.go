package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/types"
)

// ResumeParser 简历结构化抽取的编排器。
// 对外只有 Parse / ParseBytes 两个入口：分段一次，身份信息从全文提取，
// 技能与证书走语义词表匹配，其余章节按行保留原文。
// 词表在构造后只读，Parse 是输入文本的纯函数，可并发调用。
type ResumeParser struct {
	splitter      SectionSegmenter
	entity        *parser.EntityExtractor
	matcher       *parser.SemanticMatcher
	skillVocab    *parser.Vocabulary
	certVocab     *parser.Vocabulary
	textExtractor TextExtractor
	logger        *zerolog.Logger
}

// ResumeParserOption 编排器配置选项
type ResumeParserOption func(*ResumeParser)

// WithTextExtractor 配置文件文本提取器，仅 ParseBytes 需要
func WithTextExtractor(extractor TextExtractor) ResumeParserOption {
	return func(p *ResumeParser) {
		p.textExtractor = extractor
	}
}

// WithParserLogger 配置日志记录器
func WithParserLogger(logger *zerolog.Logger) ResumeParserOption {
	return func(p *ResumeParser) {
		p.logger = logger
	}
}

// NewResumeParser 创建抽取编排器。
// skillVocab / certVocab 必须是已完成向量预计算的词表，splitter、entity、matcher 不可为空。
func NewResumeParser(
	splitter SectionSegmenter,
	entity *parser.EntityExtractor,
	matcher *parser.SemanticMatcher,
	skillVocab *parser.Vocabulary,
	certVocab *parser.Vocabulary,
	options ...ResumeParserOption,
) (*ResumeParser, error) {
	if splitter == nil || entity == nil || matcher == nil {
		return nil, fmt.Errorf("NewResumeParser: splitter/entity/matcher 均不可为空")
	}
	if skillVocab == nil || certVocab == nil {
		return nil, fmt.Errorf("NewResumeParser: 词表未初始化")
	}

	p := &ResumeParser{
		splitter:   splitter,
		entity:     entity,
		matcher:    matcher,
		skillVocab: skillVocab,
		certVocab:  certVocab,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.logger == nil {
		nop := zerolog.Nop()
		p.logger = &nop
	}
	return p, nil
}

// ParseBytes 从原始文件内容解析简历。
// 文本提取失败只记录错误并按空文本继续，调用方总能拿到结构完整的抽取结果。
func (p *ResumeParser) ParseBytes(ctx context.Context, content []byte, fileName string) (*types.ResumeExtract, error) {
	var text string
	if p.textExtractor == nil {
		p.logger.Warn().Str("file", fileName).Msg("未配置文本提取器，按空文本处理")
	} else {
		extracted, err := p.textExtractor.Extract(ctx, content, fileName)
		if err != nil {
			p.logger.Error().Err(err).Str("file", fileName).Msg("文本提取失败，按空文本继续")
		} else {
			text = extracted
		}
	}
	return p.Parse(ctx, text)
}

// Parse 把简历全文解析为结构化抽取结果。
// 空文本返回姓名为 Unknown、列表字段全空的合法结果，不报错。
func (p *ResumeParser) Parse(ctx context.Context, text string) (*types.ResumeExtract, error) {
	sections := p.splitter.Split(text)

	skills, err := p.matchSection(ctx, sections.Text(types.SectionSkills), p.skillVocab, splitSkillTokens)
	if err != nil {
		return nil, fmt.Errorf("技能匹配失败: %w", err)
	}
	certs, err := p.matchSection(ctx, sections.Text(types.SectionCertifications), p.certVocab, nonEmptyLines)
	if err != nil {
		return nil, fmt.Errorf("证书匹配失败: %w", err)
	}

	extract := &types.ResumeExtract{
		CandidateName:  p.entity.ExtractName(ctx, text),
		Emails:         p.entity.ExtractEmails(text),
		Phones:         p.entity.ExtractPhones(text),
		Skills:         skills,
		Certifications: certs,
		Education:      nonEmptyLines(sections.Text(types.SectionEducation)),
		Experience:     groupExperienceEntries(sections.Text(types.SectionExperience)),
		Achievements:   nonEmptyLines(sections.Text(types.SectionAchievements)),
		Projects:       nonEmptyLines(sections.Text(types.SectionProjects)),
		Publications:   nonEmptyLines(sections.Text(types.SectionPublications)),
		Languages:      nonEmptyLines(sections.Text(types.SectionLanguages)),
		Interests:      nonEmptyLines(sections.Text(types.SectionInterests)),
		RawText:        text,
		Sections:       sections,
	}

	p.logger.Debug().
		Str("candidate", extract.CandidateName).
		Int("sections", len(sections)).
		Int("skills", len(extract.Skills)).
		Int("certifications", len(extract.Certifications)).
		Msg("简历结构化抽取完成")

	return extract, nil
}

// matchSection 对章节正文做语义词表匹配，tokenize 决定候选串的切分方式
func (p *ResumeParser) matchSection(ctx context.Context, sectionText string, vocab *parser.Vocabulary, tokenize func(string) []string) ([]string, error) {
	if sectionText == "" {
		return []string{}, nil
	}
	inputs := tokenize(sectionText)
	matched := p.matcher.Match(ctx, inputs, vocab)
	if matched == nil {
		matched = []string{}
	}
	return matched, nil
}

// splitSkillTokens 技能章节的切分：每行先去掉 "类别:" 前缀，再按逗号拆分
func splitSkillTokens(sectionText string) []string {
	var tokens []string
	for _, line := range strings.Split(sectionText, "\n") {
		if idx := strings.Index(line, ":"); idx >= 0 {
			line = line[idx+1:]
		}
		for _, token := range strings.Split(line, ",") {
			if t := strings.TrimSpace(token); t != "" {
				tokens = append(tokens, t)
			}
		}
	}
	return tokens
}

// nonEmptyLines 按行拆分并去掉空行，保留原文
func nonEmptyLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}

// groupExperienceEntries 把工作经历按雇主/职位行分组：
// 以 "•" 开头的行追加到前一条非子弹行，开头就是子弹行时自成一条。
func groupExperienceEntries(text string) []string {
	if text == "" {
		return []string{}
	}

	entries := []string{}
	current := ""
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "•") {
			if current == "" {
				current = line
			} else {
				current += "\n" + line
			}
			continue
		}
		if current != "" {
			entries = append(entries, strings.TrimSpace(current))
		}
		current = line
	}
	if strings.TrimSpace(current) != "" {
		entries = append(entries, strings.TrimSpace(current))
	}
	return entries
}
