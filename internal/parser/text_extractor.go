package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
)

// extractTimeout 单文件解析上限
const extractTimeout = 30 * time.Second

// FileTextExtractor 按文件类型提取纯文本。
// PDF走Eino解析器，TXT直接读取；其余类型（docx、图片等）返回空文本并记录警告，
// 由上层按空简历处理，不视为错误。
type FileTextExtractor struct {
	pdfParser *pdf.PDFParser
	logger    *log.Logger
}

// FileTextExtractorOption 提取器配置选项
type FileTextExtractorOption func(*FileTextExtractor)

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) FileTextExtractorOption {
	return func(e *FileTextExtractor) {
		e.logger = logger
	}
}

// NewFileTextExtractor 初始化文本提取器。
// PDF解析配置为不按页分割，整份文档返回单段连续文本。
func NewFileTextExtractor(ctx context.Context, options ...FileTextExtractorOption) (*FileTextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	extractor := &FileTextExtractor{
		pdfParser: p,
		logger:    log.New(io.Discard, "", 0),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// Extract 从文件内容中提取纯文本，fileName 仅用于判断扩展名。
func (e *FileTextExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))

	switch ext {
	case "pdf":
		return e.extractPDF(ctx, bytes.NewReader(data), fileName)
	case "txt":
		return string(data), nil
	case "docx", "png", "jpg", "jpeg":
		e.logger.Printf("暂不支持的文件类型 %q (%s)，按空文本处理", ext, fileName)
		return "", nil
	default:
		e.logger.Printf("未知文件类型 %q (%s)，按空文本处理", ext, fileName)
		return "", nil
	}
}

// extractPDF 从Reader中提取完整PDF文本
func (e *FileTextExtractor) extractPDF(ctx context.Context, reader io.Reader, uri string) (string, error) {
	startTime := time.Now()
	e.logger.Printf("开始提取PDF文本 (URI: %s)", uri)

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	docs, err := e.pdfParser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]interface{}{
			"source_file": uri,
		}),
	)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("PDF提取失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", fmt.Errorf("eino PDF parser failed for %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for %s", uri)
	}

	// 合并所有文档内容（ToPages=false时通常只有一个）
	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(doc.Content)
	}

	text := sb.String()
	e.logger.Printf("PDF提取完成: %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())
	return text, nil
}
