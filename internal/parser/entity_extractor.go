package parser

import (
	"context"
	"io"
	"log"
	"regexp"
	"sort"
	"strings"

	"resume-screener-go/internal/types"
)

// EntityTagger 命名实体识别接口。
// 实现方对全文做NER并返回 (label, text) 片段；姓名提取只消费 PERSON 标签。
type EntityTagger interface {
	Tag(ctx context.Context, text string) ([]types.Entity, error)
}

var (
	// emailPattern 宽松的 local-part@domain 形式
	emailPattern = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)

	// phonePattern 可选国家码 + 10位号码，允许 - . 空格 分隔和括号区号
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
)

// EntityExtractor 从简历全文提取候选人姓名、邮箱和电话
type EntityExtractor struct {
	tagger EntityTagger // 可为 nil，此时跳过NER回退
	logger *log.Logger
}

// EntityExtractorOption 提取器配置选项
type EntityExtractorOption func(*EntityExtractor)

// WithEntityTagger 设置NER回退使用的实体标注器
func WithEntityTagger(tagger EntityTagger) EntityExtractorOption {
	return func(e *EntityExtractor) {
		e.tagger = tagger
	}
}

// WithEntityLogger 设置日志记录器
func WithEntityLogger(logger *log.Logger) EntityExtractorOption {
	return func(e *EntityExtractor) {
		e.logger = logger
	}
}

// NewEntityExtractor 创建实体提取器
func NewEntityExtractor(options ...EntityExtractorOption) *EntityExtractor {
	e := &EntityExtractor{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// ExtractName 提取候选人姓名。
// 顺序：首个非空行启发式 → NER的PERSON片段 → 首个非空行原文 → "Unknown"。
func (e *EntityExtractor) ExtractName(ctx context.Context, text string) string {
	firstLine := firstNonEmptyLine(text)
	if firstLine == "" {
		return "Unknown"
	}

	// 首行不含邮箱、不含分隔符、词数少于4时直接当作姓名
	if !strings.Contains(firstLine, "@") &&
		!strings.Contains(firstLine, "·") &&
		len(strings.Fields(firstLine)) < 4 {
		return firstLine
	}

	if e.tagger != nil {
		entities, err := e.tagger.Tag(ctx, text)
		if err != nil {
			e.logger.Printf("NER标注失败，回退到首行: %v", err)
		}
		for _, ent := range entities {
			if ent.Label != types.EntityLabelPerson {
				continue
			}
			// 过滤单词误报和被误标成人名的长公司名
			if strings.Contains(ent.Text, " ") && len(strings.Fields(ent.Text)) < 4 {
				return ent.Text
			}
		}
	}

	return firstLine
}

// ExtractEmails 提取全文中的所有邮箱，去重并按字典序排序
func (e *EntityExtractor) ExtractEmails(text string) []string {
	return dedupSorted(emailPattern.FindAllString(text, -1))
}

// ExtractPhones 提取全文中的所有电话号码，去重并按字典序排序
func (e *EntityExtractor) ExtractPhones(text string) []string {
	var phones []string
	for _, m := range phonePattern.FindAllString(text, -1) {
		phones = append(phones, strings.TrimSpace(m))
	}
	return dedupSorted(phones)
}

// firstNonEmptyLine 返回首个非空行（去除首尾空白）
func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// dedupSorted 大小写敏感去重并按字典序排序
func dedupSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}
