package bias

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"regexp"
	"sort"

	"resume-screener-go/internal/types"
)

// biasPattern 一条偏见检测规则，类别加正则
type biasPattern struct {
	category string
	re       *regexp.Regexp
}

// defaultPatternDefs 默认偏见词表，覆盖性别、年龄、族裔和姓名来源线索。
// 顺序固定，保证flags输出可复现。
var defaultPatternDefs = []struct {
	Category string
	Pattern  string
}{
	{"gender", `(?i)\b(he|she|his|her|male|female|man|woman|boy|girl)\b`},
	{"age", `(?i)\b(young|old|senior|junior|experienced|years old|age)\b`},
	{"ethnicity", `(?i)\b(asian|african|european|american|indian|chinese)\b`},
	{"name_origin", `(?i)\b(foreign|international|native|local)\b`},
}

// Mitigator 对匹配分数做偏见检测与公平性校正。
// 纯转换，无内部状态，可被多个goroutine并发调用。
type Mitigator struct {
	patterns []biasPattern
	logger   *log.Logger
}

// MitigatorOption 配置选项
type MitigatorOption func(*Mitigator)

// WithMitigatorLogger 配置自定义日志记录器
func WithMitigatorLogger(logger *log.Logger) MitigatorOption {
	return func(m *Mitigator) {
		m.logger = logger
	}
}

// NewMitigator 创建偏见校正器。
// patternsPath 指向 类别→正则 的JSON文件；文件缺失或格式非法时回退到内置默认词表，
// 只记录警告不报错。传空串直接使用默认词表。
func NewMitigator(patternsPath string, options ...MitigatorOption) *Mitigator {
	m := &Mitigator{
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range options {
		opt(m)
	}
	m.patterns = m.loadPatterns(patternsPath)
	return m
}

func (m *Mitigator) loadPatterns(path string) []biasPattern {
	if path != "" {
		if patterns, err := loadPatternsFromFile(path); err != nil {
			m.logger.Printf("偏见词表加载失败 (%s)，回退到默认词表: %v", path, err)
		} else {
			return patterns
		}
	}

	patterns := make([]biasPattern, 0, len(defaultPatternDefs))
	for _, def := range defaultPatternDefs {
		patterns = append(patterns, biasPattern{
			category: def.Category,
			re:       regexp.MustCompile(def.Pattern),
		})
	}
	return patterns
}

// loadPatternsFromFile 从JSON文件加载 类别→正则 映射。
// JSON对象无序，加载后按类别名排序保证检测顺序稳定。
func loadPatternsFromFile(path string) ([]biasPattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("偏见词表为空")
	}

	categories := make([]string, 0, len(raw))
	for category := range raw {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	patterns := make([]biasPattern, 0, len(raw))
	for _, category := range categories {
		re, err := regexp.Compile("(?i)" + raw[category])
		if err != nil {
			return nil, fmt.Errorf("类别 %q 的正则非法: %w", category, err)
		}
		patterns = append(patterns, biasPattern{category: category, re: re})
	}
	return patterns, nil
}

// ApplyChecks 执行偏见检测和公平性校正，返回调整后的结果。
// 输入分数先无条件截断到 [0, 10]，flags仅作审计信号，不参与调分。
func (m *Mitigator) ApplyChecks(score float64, resume *types.ResumeExtract, job *types.JobDescription) types.MitigationResult {
	result := types.MitigationResult{
		Score:       clip(score, 0, 10),
		BiasFlags:   []string{},
		Adjustments: []string{},
	}

	if resume != nil {
		if detected := m.detectBiasPatterns(resume.RawText); len(detected) > 0 {
			m.logger.Printf("检测到潜在偏见词: %v", detected)
			result.BiasFlags = detected
		}
	}

	m.applyFairnessConstraints(&result, resume, job)
	return result
}

// detectBiasPatterns 扫描文本，返回命中的偏见类别（按词表定义顺序）
func (m *Mitigator) detectBiasPatterns(text string) []string {
	var detected []string
	for _, p := range m.patterns {
		if p.re.MatchString(text) {
			detected = append(detected, p.category)
		}
	}
	return detected
}

// applyFairnessConstraints 按技能重合率对分数做有界校正：
// 重合率 > 0.5 且分数 < 4.0 时补偿，重合率 < 0.2 且分数 > 8.0 时限高。
func (m *Mitigator) applyFairnessConstraints(result *types.MitigationResult, resume *types.ResumeExtract, job *types.JobDescription) {
	if resume == nil || job == nil || len(job.RequiredSkills) == 0 {
		return
	}

	score := result.Score
	ratio := skillMatchRatio(resume.Skills, job.RequiredSkills)

	if ratio > 0.5 && score < 4.0 {
		adjustment := (ratio - 0.5) * 2
		result.Score = math.Min(10.0, score+adjustment)
		result.Adjustments = append(result.Adjustments, fmt.Sprintf("Fairness boost applied: +%.2f", adjustment))
		m.logger.Printf("技能匹配率 %.2f 但分数偏低 (%.2f)，应用公平性补偿", ratio, score)
	}

	if ratio < 0.2 && score > 8.0 {
		adjustment := (0.2 - ratio) * 10
		result.Score = math.Max(0.0, score-adjustment)
		result.Adjustments = append(result.Adjustments, fmt.Sprintf("Fairness cap applied: -%.2f", adjustment))
		m.logger.Printf("技能匹配率 %.2f 但分数偏高 (%.2f)，应用公平性限高", ratio, score)
	}
}

// skillMatchRatio 候选人技能与岗位要求技能的重合比例
func skillMatchRatio(resumeSkills, requiredSkills []string) float64 {
	if len(requiredSkills) == 0 {
		return 0
	}
	skillSet := make(map[string]struct{}, len(resumeSkills))
	for _, s := range resumeSkills {
		skillSet[s] = struct{}{}
	}
	matched := 0
	for _, s := range requiredSkills {
		if _, ok := skillSet[s]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(requiredSkills))
}

// GetFairnessReport 为一批评估结果生成公平性报告
func (m *Mitigator) GetFairnessReport(results []types.MitigationResult) (*types.FairnessReport, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("没有可分析的评估结果")
	}

	scores := make([]float64, 0, len(results))
	totalFlags := 0
	flagSet := make(map[string]struct{})
	for _, r := range results {
		scores = append(scores, r.Score)
		totalFlags += len(r.BiasFlags)
		for _, flag := range r.BiasFlags {
			flagSet[flag] = struct{}{}
		}
	}

	uniqueTypes := make([]string, 0, len(flagSet))
	for flag := range flagSet {
		uniqueTypes = append(uniqueTypes, flag)
	}
	sort.Strings(uniqueTypes)

	variance := varianceOf(scores)
	return &types.FairnessReport{
		TotalCandidates:   len(results),
		AverageScore:      meanOf(scores),
		ScoreVariance:     variance,
		BiasFlagsDetected: totalFlags,
		UniqueBiasTypes:   uniqueTypes,
		Recommendation:    fairnessRecommendation(len(scores), totalFlags, variance),
	}, nil
}

// fairnessRecommendation 按固定阈值生成文字建议：
// 命中率超过30%提示人工复核，方差超过6.0提示评估标准不一致。
func fairnessRecommendation(candidateCount, flagCount int, variance float64) string {
	if float64(flagCount) > float64(candidateCount)*0.3 {
		return "High bias risk detected. Consider manual review of evaluations."
	}
	if variance > 6.0 {
		return "High score variance detected. Review evaluation criteria for consistency."
	}
	return "Evaluation appears fair and consistent."
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 总体方差（分母为N）
func varianceOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := meanOf(values)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
