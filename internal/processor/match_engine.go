package processor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"resume-screener-go/internal/bias"
	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/types"
	"resume-screener-go/pkg/utils"
)

// defaultEvalTimeout LLM评估的默认超时，超时后回退到启发式结果
const defaultEvalTimeout = 30 * time.Second

// MatchEngine 候选人与岗位的匹配打分引擎。
// 流水线：简历摘要 → 向量相似度基准分 → LLM结构化评估（可降级）→ 偏见校正。
// 岗位向量经 JobVectorCache 复用，同一岗位对多份简历只计算一次。
type MatchEngine struct {
	embedder    TextEmbedder
	evaluator   MatchEvaluator
	mitigator   *bias.Mitigator
	jobCache    JobVectorCache
	evalTimeout time.Duration
	logger      *zerolog.Logger
}

// MatchEngineOption 引擎配置选项
type MatchEngineOption func(*MatchEngine)

// WithMatchEvaluator 配置LLM评估器，不配置时只用启发式打分
func WithMatchEvaluator(evaluator MatchEvaluator) MatchEngineOption {
	return func(e *MatchEngine) {
		e.evaluator = evaluator
	}
}

// WithEvalTimeout 配置LLM评估超时
func WithEvalTimeout(timeout time.Duration) MatchEngineOption {
	return func(e *MatchEngine) {
		if timeout > 0 {
			e.evalTimeout = timeout
		}
	}
}

// WithJobVectorCache 配置岗位向量缓存实现
func WithJobVectorCache(cache JobVectorCache) MatchEngineOption {
	return func(e *MatchEngine) {
		e.jobCache = cache
	}
}

// WithEngineLogger 配置日志记录器
func WithEngineLogger(logger *zerolog.Logger) MatchEngineOption {
	return func(e *MatchEngine) {
		e.logger = logger
	}
}

// NewMatchEngine 创建匹配引擎，embedder 与 mitigator 不可为空
func NewMatchEngine(embedder TextEmbedder, mitigator *bias.Mitigator, options ...MatchEngineOption) (*MatchEngine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("NewMatchEngine: embedder 不可为空")
	}
	if mitigator == nil {
		return nil, fmt.Errorf("NewMatchEngine: mitigator 不可为空")
	}

	e := &MatchEngine{
		embedder:    embedder,
		mitigator:   mitigator,
		evalTimeout: defaultEvalTimeout,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.jobCache == nil {
		e.jobCache = NewMemoryJobVectorCache()
	}
	if e.logger == nil {
		nop := zerolog.Nop()
		e.logger = &nop
	}
	return e, nil
}

// ScoreText 用原始岗位描述文本打分，标题留空
func (e *MatchEngine) ScoreText(ctx context.Context, resume *types.ResumeExtract, jobText string) (*types.MatchOutput, error) {
	return e.Score(ctx, resume, &types.JobDescription{Description: jobText})
}

// Score 对一份简历与一个岗位打分。
// 嵌入失败降级为零向量，LLM失败降级为启发式结果；只有入参非法才返回错误。
func (e *MatchEngine) Score(ctx context.Context, resume *types.ResumeExtract, job *types.JobDescription) (*types.MatchOutput, error) {
	if resume == nil || job == nil {
		return nil, fmt.Errorf("MatchEngine.Score: resume/job 不可为空")
	}

	resumeSummary := buildResumeSummary(resume)
	jobText := buildJobText(job)

	jobVec, err := e.jobCache.GetOrCompute(ctx, jobCacheKey(job), func(ctx context.Context) ([]float64, error) {
		return e.embedSingle(ctx, jobText)
	})
	if err != nil {
		return nil, fmt.Errorf("岗位向量计算失败: %w", err)
	}

	resumeVec, err := e.embedSingle(ctx, resumeSummary)
	if err != nil {
		return nil, fmt.Errorf("简历向量计算失败: %w", err)
	}

	similarity := parser.CosineSimilarity(resumeVec, jobVec)
	baseScore := clipScore((similarity + 1) * 5)

	evaluation := e.evaluateWithFallback(ctx, resume, job, jobText, resumeSummary, baseScore)

	mitigated := e.mitigator.ApplyChecks(evaluation.MatchScore, resume, job)

	output := &types.MatchOutput{
		CandidateName: candidateNameOrUnknown(resume),
		MatchScore:    math.Round(mitigated.Score*100) / 100,
		Strengths:     truncateList(evaluation.Strengths, constants.MaxStrengthItems),
		Gaps:          truncateList(evaluation.Gaps, constants.MaxGapItems),
		Justification: evaluation.Justification,
		Details: map[string]interface{}{
			"similarity":  similarity,
			"base_score":  baseScore,
			"bias_flags":  mitigated.BiasFlags,
			"adjustments": mitigated.Adjustments,
		},
	}

	e.logger.Info().
		Str("candidate", output.CandidateName).
		Str("job_title", job.Title).
		Float64("similarity", similarity).
		Float64("base_score", baseScore).
		Float64("final_score", output.MatchScore).
		Strs("bias_flags", mitigated.BiasFlags).
		Msg("匹配打分完成")

	return output, nil
}

// Mitigator 返回偏见校正器，供批量公平性报告使用
func (e *MatchEngine) Mitigator() *bias.Mitigator {
	return e.mitigator
}

// evaluateWithFallback 执行LLM评估，任何失败都回退到启发式结果。
// 评估带独立超时，失败不会传播到调用方。
func (e *MatchEngine) evaluateWithFallback(ctx context.Context, resume *types.ResumeExtract, job *types.JobDescription, jobText, resumeSummary string, baseScore float64) *types.MatchEvaluation {
	if e.evaluator != nil {
		evalCtx, cancel := context.WithTimeout(ctx, e.evalTimeout)
		defer cancel()

		evaluation, err := e.evaluator.Evaluate(evalCtx, jobText, resumeSummary, baseScore)
		if err == nil {
			return evaluation
		}
		e.logger.Warn().Err(err).Msg("LLM评估失败，回退到启发式结果")
	}

	return &types.MatchEvaluation{
		MatchScore:    baseScore,
		Strengths:     resume.Skills,
		Gaps:          missingSkills(job.RequiredSkills, resume.Skills),
		Justification: fmt.Sprintf("Heuristic score: %.2f", baseScore),
	}
}

// embedSingle 嵌入单条文本，失败时降级为零向量
func (e *MatchEngine) embedSingle(ctx context.Context, text string) ([]float64, error) {
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil || len(vectors) == 0 {
		e.logger.Warn().Err(err).Msg("嵌入计算失败，降级为零向量")
		return make([]float64, e.embedder.GetDimensions()), nil
	}
	return vectors[0], nil
}

// buildResumeSummary 构造简历摘要：技能全量加上前几条工作与教育经历。
// 不用全文，避免超出嵌入接口的输入长度限制。
func buildResumeSummary(resume *types.ResumeExtract) string {
	var sb strings.Builder
	sb.WriteString("Skills: ")
	sb.WriteString(strings.Join(resume.Skills, ", "))

	if len(resume.Experience) > 0 {
		sb.WriteString(". Experience: ")
		sb.WriteString(strings.Join(headOf(resume.Experience, constants.SummaryExperienceEntries), " | "))
	}
	if len(resume.Education) > 0 {
		sb.WriteString(". Education: ")
		sb.WriteString(strings.Join(headOf(resume.Education, constants.SummaryEducationEntries), " | "))
	}
	return sb.String()
}

// buildJobText 构造岗位描述的嵌入输入
func buildJobText(job *types.JobDescription) string {
	return fmt.Sprintf("Job Title: %s. Description: %s", job.Title, job.Description)
}

// jobCacheKey 岗位向量的缓存键：有标题用标题，否则用描述的MD5
func jobCacheKey(job *types.JobDescription) string {
	if job.Title != "" {
		return job.Title
	}
	return utils.CalculateMD5([]byte(job.Description))
}

// missingSkills 岗位要求中简历未覆盖的技能，排序保证输出稳定
func missingSkills(required, owned []string) []string {
	ownedSet := make(map[string]struct{}, len(owned))
	for _, s := range owned {
		ownedSet[s] = struct{}{}
	}
	missing := []string{}
	for _, s := range required {
		if _, ok := ownedSet[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}

func candidateNameOrUnknown(resume *types.ResumeExtract) string {
	if resume.CandidateName == "" {
		return "Unknown"
	}
	return resume.CandidateName
}

func truncateList(items []string, max int) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > max {
		return items[:max]
	}
	return items
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func clipScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
