package router

import (
	"context"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"resume-screener-go/internal/api/handler"
)

// RegisterRoutes 注册 API 路由。apiKey 非空时对业务路由启用鉴权，健康检查始终放行。
func RegisterRoutes(h *server.Hertz, screener *handler.ScreenerHandler, apiKey string) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	api.POST("/resume/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}

		targetJobID := ctx.PostForm("target_job_id")

		fileBytes, err := readMultipartFile(fileHeader)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
			return
		}

		resp, err := screener.HandleResumeUpload(c, fileBytes, fileHeader.Filename, targetJobID)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/match/analyze", func(c context.Context, ctx *app.RequestContext) {
		var req handler.AnalyzeMatchRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体解析失败"})
			return
		}

		output, err := screener.HandleAnalyzeMatch(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, output)
	})

	api.GET("/jobs/:job_id/shortlist", func(c context.Context, ctx *app.RequestContext) {
		jobID := ctx.Param("job_id")
		topK, _ := strconv.Atoi(ctx.DefaultQuery("top_k", "10"))

		entries, err := screener.HandleShortlist(c, jobID, topK)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, utils.H{
			"job_id":     jobID,
			"top_k":      topK,
			"candidates": entries,
		})
	})

	api.GET("/fairness/report", func(c context.Context, ctx *app.RequestContext) {
		limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))

		report, err := screener.HandleFairnessReport(c, limit)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, report)
	})
}

// readMultipartFile 读取multipart表单文件的全部内容
func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
