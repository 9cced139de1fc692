package processor

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"

	"resume-screener-go/internal/types"
)

//
// 文本提取相关接口
//

// TextExtractor 文件文本提取接口，fileName 用于判断文件类型
type TextExtractor interface {
	// Extract 从文件内容中提取纯文本
	Extract(ctx context.Context, data []byte, fileName string) (string, error)
}

//
// 向量嵌入相关接口
//

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	// EmbedStrings 将文本转换为向量表示
	EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error)

	// GetDimensions 返回嵌入向量的维度
	GetDimensions() int
}

// JobVectorCache 岗位描述向量缓存接口。
// 同一岗位对多份简历评分时，向量只计算一次；实现必须保证并发安全。
type JobVectorCache interface {
	// GetOrCompute 命中则直接返回缓存向量，否则调用 compute 计算并写入缓存
	GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]float64, error)) ([]float64, error)
}

//
// 匹配评估相关接口
//

// MatchEvaluator LLM匹配评估接口。
// 评估失败时调用方回退到启发式结果，不向上传播错误。
type MatchEvaluator interface {
	// Evaluate 评估岗位描述与简历摘要的匹配度，baseScore 为向量相似度基准分
	Evaluate(ctx context.Context, jobText string, resumeSummary string, baseScore float64) (*types.MatchEvaluation, error)
}

//
// 结构化抽取相关接口
//

// SectionSegmenter 简历分段接口
type SectionSegmenter interface {
	// Split 把简历全文切成有序的章节列表
	Split(text string) types.SectionList
}
