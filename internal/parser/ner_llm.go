package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"resume-screener-go/internal/types"
)

const nerPromptTemplate = `请从下面的文本中识别命名实体，并以JSON数组输出。
每个元素形如 {"label": "PERSON", "text": "张三"}，label 取值限定为 PERSON、ORG、LOC。
只输出JSON数组本身，不要附加任何解释。若没有识别到实体，输出 []。

文本:
"""
%s
"""`

// nerTextLimit 送往NER的文本上限，姓名等身份实体几乎总在开头
const nerTextLimit = 2000

// LLMEntityTagger 用通用对话模型做命名实体识别，实现 EntityTagger 接口。
// NER失败只影响姓名识别的精度，调用方会回退到首行启发式。
type LLMEntityTagger struct {
	llmModel model.ToolCallingChatModel
	logger   *log.Logger
}

// NewLLMEntityTagger 创建基于LLM的实体识别器
func NewLLMEntityTagger(llmModel model.ToolCallingChatModel, logger *log.Logger) *LLMEntityTagger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &LLMEntityTagger{
		llmModel: llmModel,
		logger:   logger,
	}
}

// Tag 识别文本中的命名实体
func (t *LLMEntityTagger) Tag(ctx context.Context, text string) ([]types.Entity, error) {
	if t.llmModel == nil {
		return nil, fmt.Errorf("LLMEntityTagger: llmModel 未初始化")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) > nerTextLimit {
		text = text[:nerTextLimit]
	}

	messages := []*einoschema.Message{
		einoschema.UserMessage(fmt.Sprintf(nerPromptTemplate, text)),
	}

	response, err := t.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLMEntityTagger: LLM调用失败: %w", err)
	}
	if response == nil || response.Content == "" {
		return nil, fmt.Errorf("LLMEntityTagger: LLM返回空响应")
	}

	jsonStr := extractJSONArray(response.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("LLMEntityTagger: 未能从响应中提取JSON数组。原始内容: %.200s", response.Content)
	}

	var entities []types.Entity
	if err := json.Unmarshal([]byte(jsonStr), &entities); err != nil {
		return nil, fmt.Errorf("LLMEntityTagger: JSON反序列化失败: %w", err)
	}

	t.logger.Printf("LLMEntityTagger: 识别出 %d 个实体", len(entities))
	return entities, nil
}

// extractJSONArray 按方括号深度提取第一个配平的JSON数组
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '[':
			level++
		case ']':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
