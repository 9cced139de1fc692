package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"

	"resume-screener-go/internal/config"
	"resume-screener-go/internal/constants"
	"resume-screener-go/internal/logger"
	"resume-screener-go/internal/processor"
	"resume-screener-go/internal/storage"
	"resume-screener-go/internal/storage/models"
	"resume-screener-go/internal/types"
	"resume-screener-go/pkg/utils"
)

// ScreenerHandler 简历筛选的请求处理器，串联解析、打分与持久化。
// 持久化是尽力而为：MySQL/Redis/MinIO任一组件缺失时跳过对应步骤，
// 解析与打分结果始终正常返回。
type ScreenerHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	parser  *processor.ResumeParser
	engine  *processor.MatchEngine
}

// NewScreenerHandler 创建请求处理器
func NewScreenerHandler(
	cfg *config.Config,
	storage *storage.Storage,
	parser *processor.ResumeParser,
	engine *processor.MatchEngine,
) *ScreenerHandler {
	return &ScreenerHandler{
		cfg:     cfg,
		storage: storage,
		parser:  parser,
		engine:  engine,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string               `json:"submission_uuid"`
	Status         string               `json:"status"`
	Extract        *types.ResumeExtract `json:"extract,omitempty"`
}

// AnalyzeMatchRequest 匹配分析请求
type AnalyzeMatchRequest struct {
	ResumeText     string   `json:"resume_text"`
	ResumeID       string   `json:"resume_id"`
	JobID          string   `json:"job_id"`
	JobTitle       string   `json:"job_title"`
	JobDescription string   `json:"job_description"`
	RequiredSkills []string `json:"required_skills"`
}

// ShortlistEntry 岗位候选名单中的一条记录
type ShortlistEntry struct {
	SubmissionUUID string   `json:"submission_uuid"`
	CandidateName  string   `json:"candidate_name"`
	MatchScore     float64  `json:"match_score"`
	Strengths      []string `json:"strengths"`
	Gaps           []string `json:"gaps"`
	Justification  string   `json:"justification"`
}

// HandleResumeUpload 处理简历上传：去重、存原件、提取文本、结构化抽取并落库
func (h *ScreenerHandler) HandleResumeUpload(ctx context.Context, fileBytes []byte, filename string, targetJobID string) (*ResumeUploadResponse, error) {
	fileMD5Hex := utils.CalculateMD5(fileBytes)

	// Redis可用时做文件级去重；查询失败按未重复处理
	if h.storage != nil && h.storage.Redis != nil {
		exists, err := h.storage.Redis.CheckRawFileMD5Exists(ctx, fileMD5Hex)
		if err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("查询文件MD5去重集合失败，跳过去重")
		} else if exists {
			logger.Info().Str("md5", fileMD5Hex).Str("filename", filename).Msg("检测到重复的文件MD5，跳过处理")
			return &ResumeUploadResponse{
				Status: "DUPLICATE_FILE_SKIPPED",
			}, nil
		}
	}

	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	// 原件归档失败不阻断解析
	var originalObjectKey string
	if h.storage != nil && h.storage.MinIO != nil {
		originalObjectKey, err = h.storage.MinIO.UploadResumeFile(ctx, submissionUUID, ext, fileBytes)
		if err != nil {
			logger.Error().Err(err).Str("filename", filename).Msg("上传简历原件到MinIO失败")
			originalObjectKey = ""
		}
	}

	if h.storage != nil && h.storage.Redis != nil {
		if err := h.storage.Redis.AddRawFileMD5(ctx, fileMD5Hex); err != nil {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("添加文件MD5到去重集合失败")
		}
	}

	extract, err := h.parser.ParseBytes(ctx, fileBytes, filename)
	if err != nil {
		return nil, fmt.Errorf("简历结构化抽取失败: %w", err)
	}

	h.persistSubmission(ctx, submissionUUID, filename, originalObjectKey, targetJobID, extract)

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         constants.StatusParsed,
		Extract:        extract,
	}, nil
}

// persistSubmission 保存提交记录与候选人信息，失败只记日志
func (h *ScreenerHandler) persistSubmission(ctx context.Context, submissionUUID, filename, objectKey, targetJobID string, extract *types.ResumeExtract) {
	if h.storage == nil || h.storage.MySQL == nil {
		return
	}

	extractJSON, err := models.MapToJSON(map[string]interface{}{
		"candidate_name": extract.CandidateName,
		"emails":         extract.Emails,
		"phones":         extract.Phones,
		"skills":         extract.Skills,
		"certifications": extract.Certifications,
		"education":      extract.Education,
		"experience":     extract.Experience,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("序列化抽取结果失败")
	}

	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		OriginalFilename:    filename,
		OriginalFilePathOSS: objectKey,
		RawTextMD5:          utils.CalculateMD5([]byte(extract.RawText)),
		ExtractJSON:         extractJSON,
		ProcessingStatus:    constants.StatusParsed,
		ParserVersion:       constants.DefaultParserVer,
	}
	if targetJobID != "" {
		submission.TargetJobID = utils.StringPtr(targetJobID)
	}

	if err := h.storage.MySQL.SaveResumeSubmission(ctx, submission); err != nil {
		logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("保存简历提交记录失败")
		return
	}

	if len(extract.Emails) > 0 {
		candidateUUID, err := uuid.NewV7()
		if err != nil {
			return
		}
		candidate := &models.Candidate{
			CandidateID:  candidateUUID.String(),
			PrimaryName:  extract.CandidateName,
			PrimaryEmail: extract.Emails[0],
		}
		if len(extract.Phones) > 0 {
			candidate.PrimaryPhone = extract.Phones[0]
		}
		if err := h.storage.MySQL.UpsertCandidateByEmail(ctx, candidate); err != nil {
			logger.Warn().Err(err).Msg("保存候选人信息失败")
		}
	}
}

// HandleAnalyzeMatch 处理匹配分析：解析（或读取已存储的）简历，与岗位打分
func (h *ScreenerHandler) HandleAnalyzeMatch(ctx context.Context, req *AnalyzeMatchRequest) (*types.MatchOutput, error) {
	if req.ResumeText == "" && req.ResumeID == "" {
		return nil, fmt.Errorf("resume_text 与 resume_id 至少提供一个")
	}
	if req.JobDescription == "" {
		return nil, fmt.Errorf("job_description 不能为空")
	}

	var extract *types.ResumeExtract
	var err error
	if req.ResumeText != "" {
		extract, err = h.parser.Parse(ctx, req.ResumeText)
		if err != nil {
			return nil, fmt.Errorf("解析简历文本失败: %w", err)
		}
	} else {
		extract, err = h.loadStoredExtract(ctx, req.ResumeID)
		if err != nil {
			return nil, err
		}
	}

	job := &types.JobDescription{
		Title:          req.JobTitle,
		Description:    req.JobDescription,
		RequiredSkills: req.RequiredSkills,
	}

	output, err := h.engine.Score(ctx, extract, job)
	if err != nil {
		return nil, fmt.Errorf("匹配打分失败: %w", err)
	}

	if req.ResumeID != "" && req.JobID != "" {
		h.persistMatchResult(ctx, req.ResumeID, req.JobID, output)
	}

	return output, nil
}

// loadStoredExtract 从存储中恢复已解析的简历：重新下载原件并解析
func (h *ScreenerHandler) loadStoredExtract(ctx context.Context, submissionUUID string) (*types.ResumeExtract, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("未配置MySQL，无法按 resume_id 查询")
	}

	submission, err := h.storage.MySQL.GetResumeSubmission(ctx, submissionUUID)
	if err != nil {
		return nil, fmt.Errorf("查询简历提交记录失败: %w", err)
	}
	if submission == nil {
		return nil, fmt.Errorf("简历 %s 不存在", submissionUUID)
	}

	if submission.OriginalFilePathOSS == "" || h.storage.MinIO == nil {
		return nil, fmt.Errorf("简历 %s 没有可用的原件", submissionUUID)
	}

	fileBytes, err := h.storage.MinIO.GetResumeFile(ctx, submission.OriginalFilePathOSS)
	if err != nil {
		return nil, fmt.Errorf("下载简历原件失败: %w", err)
	}

	return h.parser.ParseBytes(ctx, fileBytes, submission.OriginalFilename)
}

// persistMatchResult 保存匹配结果，失败只记日志
func (h *ScreenerHandler) persistMatchResult(ctx context.Context, submissionUUID, jobID string, output *types.MatchOutput) {
	if h.storage == nil || h.storage.MySQL == nil {
		return
	}

	now := time.Now()
	result := &models.MatchResult{
		SubmissionUUID: submissionUUID,
		JobID:          jobID,
		CandidateName:  output.CandidateName,
		MatchScore:     &output.MatchScore,
		StrengthsJSON:  utils.ConvertArrayToJSON(output.Strengths),
		GapsJSON:       utils.ConvertArrayToJSON(output.Gaps),
		Justification:  output.Justification,
		EvaluatedAt:    &now,
	}
	if sim, ok := output.Details["similarity"].(float64); ok {
		result.SimilarityScore = &sim
	}
	if base, ok := output.Details["base_score"].(float64); ok {
		result.BaseScore = &base
	}
	if flags, ok := output.Details["bias_flags"].([]string); ok {
		result.BiasFlagsJSON = utils.ConvertArrayToJSON(flags)
	}
	if adjustments, ok := output.Details["adjustments"].([]string); ok {
		result.AdjustmentsJSON = utils.ConvertArrayToJSON(adjustments)
	}

	if err := h.storage.MySQL.SaveMatchResult(ctx, result); err != nil {
		logger.Error().Err(err).Str("submission_uuid", submissionUUID).Str("job_id", jobID).Msg("保存匹配结果失败")
		return
	}

	if err := h.storage.MySQL.UpdateResumeProcessingStatus(ctx, submissionUUID, constants.StatusScored); err != nil {
		logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("更新简历状态失败")
	}
}

// HandleShortlist 返回岗位下按分数排序的候选名单
func (h *ScreenerHandler) HandleShortlist(ctx context.Context, jobID string, topK int) ([]ShortlistEntry, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("未配置MySQL，无法查询候选名单")
	}

	results, err := h.storage.MySQL.ListTopMatchesByJob(ctx, jobID, topK)
	if err != nil {
		return nil, fmt.Errorf("查询岗位匹配结果失败: %w", err)
	}

	entries := make([]ShortlistEntry, 0, len(results))
	for _, r := range results {
		entry := ShortlistEntry{
			SubmissionUUID: r.SubmissionUUID,
			CandidateName:  r.CandidateName,
			Strengths:      utils.ConvertJSONToArray(r.StrengthsJSON),
			Gaps:           utils.ConvertJSONToArray(r.GapsJSON),
			Justification:  r.Justification,
		}
		if r.MatchScore != nil {
			entry.MatchScore = *r.MatchScore
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// HandleFairnessReport 对最近的匹配结果生成公平性报告
func (h *ScreenerHandler) HandleFairnessReport(ctx context.Context, limit int) (*types.FairnessReport, error) {
	if h.storage == nil || h.storage.MySQL == nil {
		return nil, fmt.Errorf("未配置MySQL，无法生成公平性报告")
	}

	results, err := h.storage.MySQL.ListMatchResults(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("查询匹配结果失败: %w", err)
	}

	mitigations := make([]types.MitigationResult, 0, len(results))
	for _, r := range results {
		m := types.MitigationResult{
			BiasFlags:   utils.ConvertJSONToArray(r.BiasFlagsJSON),
			Adjustments: utils.ConvertJSONToArray(r.AdjustmentsJSON),
		}
		if r.MatchScore != nil {
			m.Score = *r.MatchScore
		}
		mitigations = append(mitigations, m)
	}

	report, err := h.engine.Mitigator().GetFairnessReport(mitigations)
	if err != nil {
		return nil, fmt.Errorf("生成公平性报告失败: %w", err)
	}
	return report, nil
}
