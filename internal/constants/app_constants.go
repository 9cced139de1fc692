package constants

import "time"

const (
	// DefaultParserVer 当前解析流程版本，随提交记录落库
	DefaultParserVer = "1.0"

	// SemanticMatchThreshold 语义匹配的余弦相似度阈值
	SemanticMatchThreshold = 0.6

	// MaxStrengthItems / MaxGapItems 匹配结果中列表字段的上限
	MaxStrengthItems = 5
	MaxGapItems      = 5

	// SummaryExperienceEntries / SummaryEducationEntries 简历摘要取前N条
	SummaryExperienceEntries = 3
	SummaryEducationEntries  = 2

	// JDCacheDuration JD向量缓存过期时间（仅Redis实现使用）
	JDCacheDuration = 24 * time.Hour

	// RawFileMD5SetKey 原始文件MD5去重集合
	RawFileMD5SetKey = "resumes:file_md5s"
)

// 匹配结果处理状态
const (
	StatusPendingParsing = "PENDING_PARSING"
	StatusParsed         = "PARSED"
	StatusScored         = "SCORED"
)
