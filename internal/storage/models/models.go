package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表
type Candidate struct {
	CandidateID  string    `gorm:"type:char(36);primaryKey"`
	PrimaryName  string    `gorm:"type:varchar(255)"`
	PrimaryPhone string    `gorm:"type:varchar(50);uniqueIndex:idx_candidates_primary_phone_unique"`
	PrimaryEmail string    `gorm:"type:varchar(255);uniqueIndex:idx_candidates_primary_email_unique"`
	CreatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Job 岗位信息表
type Job struct {
	JobID              string         `gorm:"type:char(36);primaryKey"`
	JobTitle           string         `gorm:"type:varchar(255);not null"`
	JobDescriptionText string         `gorm:"type:text;not null"`
	RequiredSkillsJSON datatypes.JSON `gorm:"type:json"`
	Status             string         `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt          time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// ResumeSubmission 简历提交/快照表
type ResumeSubmission struct {
	SubmissionUUID      string         `gorm:"type:char(36);primaryKey"`
	CandidateID         *string        `gorm:"type:char(36);index:idx_rs_candidate_id"`
	SubmissionTimestamp time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_rs_submission_timestamp"`
	TargetJobID         *string        `gorm:"type:char(36);index:idx_rs_target_job_id"`
	OriginalFilename    string         `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string         `gorm:"type:varchar(1024)"`
	RawTextMD5          string         `gorm:"type:char(32);index:idx_rs_raw_text_md5"`
	ExtractJSON         datatypes.JSON `gorm:"type:json"` // 结构化抽取结果快照
	ProcessingStatus    string         `gorm:"type:varchar(50);default:'PENDING_PARSING';index:idx_rs_processing_status"`
	ParserVersion       string         `gorm:"type:varchar(50)"`
	CreatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	Job       *Job       `gorm:"foreignKey:TargetJobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}

// MatchResult 岗位-简历匹配评估表
type MatchResult struct {
	MatchID         uint64         `gorm:"primaryKey;autoIncrement"`
	SubmissionUUID  string         `gorm:"type:char(36);not null;index:idx_mr_submission_uuid;uniqueIndex:idx_mr_submission_job_unique,priority:1"`
	JobID           string         `gorm:"type:char(36);not null;index:idx_mr_job_id_score,priority:1;uniqueIndex:idx_mr_submission_job_unique,priority:2"`
	CandidateName   string         `gorm:"type:varchar(255)"`
	MatchScore      *float64       `gorm:"type:float;index:idx_mr_job_id_score,priority:2"`
	SimilarityScore *float64       `gorm:"type:float"`
	BaseScore       *float64       `gorm:"type:float"`
	StrengthsJSON   datatypes.JSON `gorm:"type:json"`
	GapsJSON        datatypes.JSON `gorm:"type:json"`
	Justification   string         `gorm:"type:text"`
	BiasFlagsJSON   datatypes.JSON `gorm:"type:json"`
	AdjustmentsJSON datatypes.JSON `gorm:"type:json"`
	EvaluatedAt     *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	ResumeSubmission *ResumeSubmission `gorm:"foreignKey:SubmissionUUID;references:SubmissionUUID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job              *Job              `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (MatchResult) TableName() string {
	return "match_results"
}

// MapToJSON Helper function to convert map[string]interface{} to datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return bytes, nil
}
