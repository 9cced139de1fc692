package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"resume-screener-go/internal/types"
)

// llmMatchResult LLM评估响应的反序列化结构
type llmMatchResult struct {
	MatchScore    float64  `json:"match_score"`
	Strengths     []string `json:"strengths"`
	Gaps          []string `json:"gaps"`
	Justification string   `json:"justification"`
}

// LLMMatchEvaluator 封装LLM客户端与Prompt逻辑，对候选人-岗位匹配做结构化评估。
// 评估是增强路径而非硬依赖：任何失败都应由调用方回退到启发式结果。
type LLMMatchEvaluator struct {
	llmModel        model.ToolCallingChatModel
	promptTemplate  string
	fewShotExamples string
	logger          *log.Logger
}

// LLMMatchEvaluatorOption 评估器配置选项
type LLMMatchEvaluatorOption func(*LLMMatchEvaluator)

// WithCustomPromptTemplate 设置自定义提示词模板
func WithCustomPromptTemplate(template string) LLMMatchEvaluatorOption {
	return func(e *LLMMatchEvaluator) {
		e.promptTemplate = template
	}
}

// WithFewShotExamples 设置少样本示例
func WithFewShotExamples(examples string) LLMMatchEvaluatorOption {
	return func(e *LLMMatchEvaluator) {
		e.fewShotExamples = examples
	}
}

// NewLLMMatchEvaluator 创建评估器实例
func NewLLMMatchEvaluator(llmModel model.ToolCallingChatModel, logger *log.Logger, options ...LLMMatchEvaluatorOption) *LLMMatchEvaluator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	evaluator := &LLMMatchEvaluator{
		llmModel: llmModel,
		logger:   logger,
	}

	evaluator.generatePromptTemplate()

	for _, opt := range options {
		opt(evaluator)
	}
	return evaluator
}

func (e *LLMMatchEvaluator) generatePromptTemplate() {
	e.promptTemplate = `你是一位资深的技术招聘专家。请基于下面的【岗位描述】和【候选人简历摘要】进行对比分析，并严格按照指定的JSON格式输出匹配度评估。

**请严格遵循以下JSON输出格式规范：**
1.  **"match_score"**: 数字 (0-10)，反映整体匹配程度。
2.  **"strengths"**: 字符串数组 (至多5项)，候选人与岗位高度匹配的具体关键点。
3.  **"gaps"**: 字符串数组 (至多5项)，候选人相对岗位要求的具体不足或需进一步考察之处。
4.  **"justification"**: 字符串，一小段专业的评估理由。

**JSON格式细节要求：**
- 完整输出必须是一个合法的JSON对象。
- 所有字段名和字符串值都必须使用双引号；字符串值内部的双引号必须用反斜杠转义。
- 禁止在JSON结构之外输出任何额外文本、解释或Markdown标记。

供参考的向量相似度基准分 (0-10): %.2f

【岗位描述】:
"""
%s
"""

【候选人简历摘要】:
"""
%s
"""

请基于以上所有指令，仔细评估并只输出JSON对象。`
}

// Evaluate 执行JD与简历摘要的匹配评估。
// baseScore 仅作为提示词中的相似度基准提供给模型。
func (e *LLMMatchEvaluator) Evaluate(ctx context.Context, jobText string, resumeSummary string, baseScore float64) (*types.MatchEvaluation, error) {
	if e.llmModel == nil {
		return nil, fmt.Errorf("LLMMatchEvaluator: llmModel 未初始化")
	}

	userMsgContent := fmt.Sprintf(e.promptTemplate, baseScore, jobText, resumeSummary)

	systemBaseMessage := "你是一位资深的AI招聘助手，专注于分析岗位描述和候选人简历的匹配度。"
	finalSystemMessage := systemBaseMessage
	if e.fewShotExamples != "" {
		finalSystemMessage = e.fewShotExamples + "\n\n" + systemBaseMessage
	}

	messages := []*einoschema.Message{
		einoschema.SystemMessage(finalSystemMessage),
		einoschema.UserMessage(userMsgContent),
	}

	response, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLMMatchEvaluator: LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLMMatchEvaluator: LLM返回空响应")
	}

	processedContent := strings.TrimPrefix(response.Content, "\uFEFF")

	jsonStr := ExtractJSONObject(processedContent)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMMatchEvaluator: 未能从LLM响应中提取JSON。原始内容: %.300s", processedContent)
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var result llmMatchResult
	// ① 正常解析；② 失败后尝试修复字符串内未转义的引号再解析一次
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		fixedJSONStr := sanitizeJSON(jsonStr)
		if jsonErr := json.Unmarshal([]byte(fixedJSONStr), &result); jsonErr != nil {
			return nil, fmt.Errorf("LLMMatchEvaluator: JSON反序列化失败（含修复重试）。原始错误: %w。修复后错误: %v", err, jsonErr)
		}
	}

	if err := validateMatchResult(&result); err != nil {
		return nil, fmt.Errorf("LLMMatchEvaluator: 评估结果非法: %w", err)
	}

	return &types.MatchEvaluation{
		MatchScore:    NormalizeScore(result.MatchScore),
		Strengths:     result.Strengths,
		Gaps:          result.Gaps,
		Justification: result.Justification,
		EvaluatedAt:   time.Now().Unix(),
		EvaluationID:  uuid.NewString(),
	}, nil
}

// NormalizeScore 把评估分规范到 0-10 量表。
// 模型偶尔按 0-100 量表作答，大于10的值按百分制处理后再截断。
func NormalizeScore(score float64) float64 {
	if score > 10 {
		score = score / 10
	}
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}

// validateMatchResult 验证评估结果是否符合要求
func validateMatchResult(result *llmMatchResult) error {
	if result.MatchScore < 0 || result.MatchScore > 100 {
		return fmt.Errorf("match_score 必须位于 0-100 之间，实际为 %v", result.MatchScore)
	}
	if result.Justification == "" {
		return fmt.Errorf("justification 不能为空")
	}
	return nil
}

// ExtractJSONObject 从自由文本中提取第一个花括号配平的JSON对象。
// 基于括号深度扫描，字段值里的嵌套花括号不会截断结果。
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 遍历 src，把位于字符串字面量内部但并非真正结束的双引号改写为 \"，
// 以保证整个JSON在Go端能够正常反序列化。
// 通过检查下一个非空白字符是否为 :, ], }, 或 , 来判断该 " 是否为字符串的结束。
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		if c == '"' && !escaped {
			if !inStr {
				inStr = true
				b.WriteByte(c)
			} else {
				j := i + 1
				for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
					j++
				}
				if j < len(src) && (src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}') {
					inStr = false
					b.WriteByte(c)
				} else {
					b.WriteString("\\\"")
				}
			}
			escaped = false
		} else if c == '\\' && !escaped {
			escaped = true
			b.WriteByte(c)
		} else {
			b.WriteByte(c)
			escaped = false
		}
	}

	return b.String()
}
