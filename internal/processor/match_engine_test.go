package processor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-screener-go/internal/bias"
	"resume-screener-go/internal/types"
)

// stubEvaluator 测试用匹配评估器
type stubEvaluator struct {
	evaluation *types.MatchEvaluation
	err        error
	block      bool
	calls      int
}

func (s *stubEvaluator) Evaluate(ctx context.Context, jobText string, resumeSummary string, baseScore float64) (*types.MatchEvaluation, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.evaluation, nil
}

// TestScoreHeuristicFallbackWithoutEvaluator 未配置LLM评估器时使用启发式结果
func TestScoreHeuristicFallbackWithoutEvaluator(t *testing.T) {
	jobText := "Job Title: Backend Engineer. Description: Build services in Go"
	summaryVec := []float64{1, 0}
	embedder := &countingEmbedder{
		dim: 2,
		vectors: map[string][]float64{
			jobText:      summaryVec,
			"Skills: Go": summaryVec,
		},
	}
	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""))
	require.NoError(t, err)

	resume := &types.ResumeExtract{CandidateName: "Jane Doe", Skills: []string{"Go"}}
	job := &types.JobDescription{
		Title:          "Backend Engineer",
		Description:    "Build services in Go",
		RequiredSkills: []string{"Rust", "Go"},
	}

	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	// 相似度1 → 基准分 (1+1)*5 = 10
	assert.InDelta(t, 10.0, output.MatchScore, 1e-9)
	assert.Equal(t, "Jane Doe", output.CandidateName)
	assert.Equal(t, []string{"Go"}, output.Strengths, "启发式强项为简历技能")
	assert.Equal(t, []string{"Rust"}, output.Gaps, "启发式短板为未覆盖的要求技能，已排序")
	assert.Equal(t, "Heuristic score: 10.00", output.Justification)

	require.NotNil(t, output.Details)
	for _, key := range []string{"similarity", "base_score", "bias_flags", "adjustments"} {
		assert.Contains(t, output.Details, key)
	}
}

// TestScoreEmbeddingFailureDegradesToZeroVectors 向量服务失败降级为零向量，不报错
func TestScoreEmbeddingFailureDegradesToZeroVectors(t *testing.T) {
	embedder := &countingEmbedder{dim: 4, err: errors.New("embedding service down")}
	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""))
	require.NoError(t, err)

	resume := &types.ResumeExtract{CandidateName: "Jane Doe", Skills: []string{"Go"}}
	job := &types.JobDescription{Title: "SRE", Description: "Keep things running"}

	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	// 零向量相似度0 → 基准分 (0+1)*5 = 5
	assert.InDelta(t, 5.0, output.MatchScore, 1e-9)
	assert.Equal(t, "Heuristic score: 5.00", output.Justification)
	assert.Equal(t, 0.0, output.Details["similarity"])
}

// TestScoreUsesEvaluatorResult LLM评估成功时使用其结果并截断列表
func TestScoreUsesEvaluatorResult(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	evaluator := &stubEvaluator{evaluation: &types.MatchEvaluation{
		MatchScore:    9.2,
		Strengths:     []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"},
		Gaps:          []string{"g1"},
		Justification: "候选人高度匹配。",
	}}

	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""), WithMatchEvaluator(evaluator))
	require.NoError(t, err)

	resume := &types.ResumeExtract{CandidateName: "Jane Doe", Skills: []string{"Go"}}
	job := &types.JobDescription{Title: "SRE", Description: "desc"}

	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	assert.InDelta(t, 9.2, output.MatchScore, 1e-9)
	assert.Len(t, output.Strengths, 5, "强项最多保留5项")
	assert.Equal(t, []string{"g1"}, output.Gaps)
	assert.Equal(t, "候选人高度匹配。", output.Justification)
	assert.Equal(t, 1, evaluator.calls)
}

// TestScoreEvaluatorFailureFallsBack LLM评估失败回退到启发式结果
func TestScoreEvaluatorFailureFallsBack(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	evaluator := &stubEvaluator{err: errors.New("llm unavailable")}

	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""), WithMatchEvaluator(evaluator))
	require.NoError(t, err)

	resume := &types.ResumeExtract{Skills: []string{"Go"}}
	job := &types.JobDescription{Title: "SRE", Description: "desc"}

	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	assert.Equal(t, "Heuristic score: 5.00", output.Justification)
	assert.Equal(t, "Unknown", output.CandidateName)
}

// TestScoreEvaluatorTimeoutFallsBack 评估超时不阻塞打分，回退到启发式结果
func TestScoreEvaluatorTimeoutFallsBack(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	evaluator := &stubEvaluator{block: true}

	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""),
		WithMatchEvaluator(evaluator),
		WithEvalTimeout(20*time.Millisecond))
	require.NoError(t, err)

	resume := &types.ResumeExtract{Skills: []string{"Go"}}
	job := &types.JobDescription{Title: "SRE", Description: "desc"}

	start := time.Now()
	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "Heuristic score: 5.00", output.Justification)
}

// TestScoreJobVectorComputedOnce 同一岗位对多份简历评分时，岗位向量只计算一次
func TestScoreJobVectorComputedOnce(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""))
	require.NoError(t, err)

	job := &types.JobDescription{Title: "Backend Engineer", Description: "Build services"}
	jobText := fmt.Sprintf("Job Title: %s. Description: %s", job.Title, job.Description)

	for i := 0; i < 3; i++ {
		resume := &types.ResumeExtract{
			CandidateName: fmt.Sprintf("Candidate %d", i),
			Skills:        []string{"Go"},
		}
		_, err := engine.Score(context.Background(), resume, job)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, embedder.embedCount(jobText), "岗位描述只应被嵌入一次")
}

// TestScoreFairnessCapApplied 技能重合率过低的高分会被限高并记录在Details里
func TestScoreFairnessCapApplied(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	evaluator := &stubEvaluator{evaluation: &types.MatchEvaluation{
		MatchScore:    9.0,
		Justification: "看起来很匹配",
	}}

	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""), WithMatchEvaluator(evaluator))
	require.NoError(t, err)

	resume := &types.ResumeExtract{Skills: []string{"Photoshop"}}
	job := &types.JobDescription{
		Title:          "Platform Engineer",
		Description:    "desc",
		RequiredSkills: []string{"Go", "Rust", "Docker", "Kubernetes", "Terraform"},
	}

	output, err := engine.Score(context.Background(), resume, job)
	require.NoError(t, err)

	assert.InDelta(t, 7.0, output.MatchScore, 1e-9, "重合率0时限高 (0.2-0)*10 = 2.0")
	adjustments, ok := output.Details["adjustments"].([]string)
	require.True(t, ok)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "Fairness cap applied: -2.00", adjustments[0])
}

// TestScoreTextWrapsDescription ScoreText 等价于无标题岗位的打分
func TestScoreTextWrapsDescription(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""))
	require.NoError(t, err)

	output, err := engine.ScoreText(context.Background(), &types.ResumeExtract{Skills: []string{"Go"}}, "Build backend services")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, output.MatchScore, 1e-9)
}

// TestScoreValidation 空入参返回错误
func TestScoreValidation(t *testing.T) {
	embedder := &countingEmbedder{dim: 2}
	engine, err := NewMatchEngine(embedder, bias.NewMitigator(""))
	require.NoError(t, err)

	_, err = engine.Score(context.Background(), nil, &types.JobDescription{})
	assert.Error(t, err)
	_, err = engine.Score(context.Background(), &types.ResumeExtract{}, nil)
	assert.Error(t, err)
}

// TestNewMatchEngineValidation 构造参数校验
func TestNewMatchEngineValidation(t *testing.T) {
	_, err := NewMatchEngine(nil, bias.NewMitigator(""))
	assert.Error(t, err)
	_, err = NewMatchEngine(&countingEmbedder{dim: 2}, nil)
	assert.Error(t, err)
}
