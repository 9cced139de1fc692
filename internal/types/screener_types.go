package types

// SectionType 表示简历章节类型
type SectionType string

const (
	// SectionHeader 文件头部（第一个章节标题之前的内容）
	SectionHeader SectionType = "HEADER"
	// SectionEducation 教育经历章节
	SectionEducation SectionType = "EDUCATION"
	// SectionExperience 工作经历章节
	SectionExperience SectionType = "WORK_EXPERIENCE"
	// SectionSkills 技能章节
	SectionSkills SectionType = "TECHNICAL_SKILLS"
	// SectionProjects 项目经历章节
	SectionProjects SectionType = "PROJECTS"
	// SectionCertifications 证书章节
	SectionCertifications SectionType = "CERTIFICATIONS"
	// SectionAchievements 获奖与职责章节
	SectionAchievements SectionType = "ACHIEVEMENTS"
	// SectionPublications 论文发表章节
	SectionPublications SectionType = "PUBLICATIONS"
	// SectionLanguages 语言能力章节
	SectionLanguages SectionType = "LANGUAGES"
	// SectionInterests 兴趣爱好章节
	SectionInterests SectionType = "INTERESTS"
)

// Section 简历中一个带标签的连续文本区域
type Section struct {
	Type    SectionType `json:"type"`
	Content string      `json:"content"`
}

// SectionList 按首次出现顺序排列的章节集合。
// 同名章节在分段阶段已合并，列表内每个 SectionType 至多出现一次。
type SectionList []Section

// Text 返回指定章节的正文，不存在时返回空字符串
func (l SectionList) Text(t SectionType) string {
	for _, s := range l {
		if s.Type == t {
			return s.Content
		}
	}
	return ""
}

// Has 判断指定章节是否存在
func (l SectionList) Has(t SectionType) bool {
	for _, s := range l {
		if s.Type == t {
			return true
		}
	}
	return false
}

// ResumeExtract 一份简历的结构化抽取结果。
// 构造完成后不再修改；所有列表字段去重。
type ResumeExtract struct {
	CandidateName  string      `json:"candidate_name"`
	Emails         []string    `json:"emails"`
	Phones         []string    `json:"phones"`
	Skills         []string    `json:"skills"`
	Certifications []string    `json:"certifications"`
	Education      []string    `json:"education"`
	Experience     []string    `json:"experience"`
	Achievements   []string    `json:"achievements"`
	Projects       []string    `json:"projects"`
	Publications   []string    `json:"publications"`
	Languages      []string    `json:"languages"`
	Interests      []string    `json:"interests"`
	RawText        string      `json:"raw_text"`
	Sections       SectionList `json:"sections"`
}

// JobDescription 岗位描述
type JobDescription struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"required_skills"`
}

// MatchOutput 候选人与岗位的最终匹配结果
type MatchOutput struct {
	CandidateName string   `json:"candidate_name"`
	MatchScore    float64  `json:"match_score"` // [0, 10]，保留两位小数
	Strengths     []string `json:"strengths"`   // 至多5条
	Gaps          []string `json:"gaps"`        // 至多5条
	Justification string   `json:"justification"`

	// Details 诊断信息，至少包含 similarity 与 base_score，
	// 以及偏见审计产生的 bias_flags / adjustments
	Details map[string]interface{} `json:"details"`
}

// MatchEvaluation LLM结构化评估结果（偏见校正前）
type MatchEvaluation struct {
	MatchScore    float64  `json:"match_score"`
	Strengths     []string `json:"strengths"`
	Gaps          []string `json:"gaps"`
	Justification string   `json:"justification"`

	// 评估时间与ID，用于落库审计
	EvaluatedAt  int64  `json:"evaluated_at"`
	EvaluationID string `json:"evaluation_id,omitempty"`
}

// MitigationResult 偏见校正结果
type MitigationResult struct {
	// 校正后的分数，始终位于 [0, 10]
	Score float64 `json:"score"`

	// 命中的偏见类别，仅作审计信号，不直接影响分数
	BiasFlags []string `json:"bias_flags"`

	// 人类可读的分数调整说明
	Adjustments []string `json:"adjustments"`
}

// FairnessReport 一批评估结果的公平性报告
type FairnessReport struct {
	TotalCandidates   int      `json:"total_candidates"`
	AverageScore      float64  `json:"average_score"`
	ScoreVariance     float64  `json:"score_variance"`
	BiasFlagsDetected int      `json:"bias_flags_detected"`
	UniqueBiasTypes   []string `json:"unique_bias_types"`
	Recommendation    string   `json:"recommendation"`
}

// Entity 命名实体识别结果中的一个片段
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// EntityLabelPerson 人名实体标签，姓名提取只消费该标签
const EntityLabelPerson = "PERSON"
