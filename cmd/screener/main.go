package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"resume-screener-go/internal/api/handler"
	"resume-screener-go/internal/api/router"
	"resume-screener-go/internal/bias"
	"resume-screener-go/internal/config"
	appCoreLogger "resume-screener-go/internal/logger"
	"resume-screener-go/internal/parser"
	"resume-screener-go/internal/processor"
	"resume-screener-go/internal/storage"
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 组件级std logger，debug时输出到stderr
	componentLogger := log.New(io.Discard, "", 0)
	if cfg.Logger.Level == "debug" {
		componentLogger = log.New(os.Stderr, "[Screener] ", log.LstdFlags)
	}

	aliyunEmbedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		glog.Fatalf("初始化阿里云Embedder失败: %v", err)
	}
	glog.Info("阿里云Embedder初始化成功")

	var llmChatModel model.ToolCallingChatModel
	if cfg.Aliyun.APIKey != "" {
		llmChatModel, err = parser.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
		if err != nil {
			glog.Fatalf("初始化Qwen聊天模型失败: %v", err)
		}
		glog.Info("Qwen聊天模型初始化成功")
	} else {
		glog.Warn("未配置API Key，LLM评估与NER不可用，将使用启发式降级路径")
	}

	// 词表加载失败回退内置默认；向量预计算失败直接终止启动
	skillLabels := parser.ResolveLabels(parser.OntologySourceFrom(cfg.Ontology.SkillSource), parser.DefaultSkillLabels, componentLogger)
	certLabels := parser.ResolveLabels(parser.OntologySourceFrom(cfg.Ontology.CertSource), parser.DefaultCertLabels, componentLogger)

	skillVocab, err := parser.NewVocabulary(ctx, skillLabels, aliyunEmbedder)
	if err != nil {
		glog.Fatalf("技能词表向量预计算失败: %v", err)
	}
	certVocab, err := parser.NewVocabulary(ctx, certLabels, aliyunEmbedder)
	if err != nil {
		glog.Fatalf("证书词表向量预计算失败: %v", err)
	}
	glog.Infof("词表初始化成功: %d 项技能, %d 项证书", skillVocab.Len(), certVocab.Len())

	var splitterOptions []parser.SectionSplitterOption
	if cfg.Matcher.LooseSectionHeadings {
		splitterOptions = append(splitterOptions, parser.WithLooseHeadingMatch())
	}
	splitterOptions = append(splitterOptions, parser.WithSplitterLogger(componentLogger))
	splitter := parser.NewSectionSplitter(splitterOptions...)

	entityOptions := []parser.EntityExtractorOption{parser.WithEntityLogger(componentLogger)}
	if llmChatModel != nil {
		entityOptions = append(entityOptions, parser.WithEntityTagger(parser.NewLLMEntityTagger(llmChatModel, componentLogger)))
	}
	entityExtractor := parser.NewEntityExtractor(entityOptions...)

	matcherOptions := []parser.SemanticMatcherOption{parser.WithMatcherLogger(componentLogger)}
	if cfg.Matcher.SimilarityThreshold > 0 {
		matcherOptions = append(matcherOptions, parser.WithSimilarityThreshold(cfg.Matcher.SimilarityThreshold))
	}
	semanticMatcher := parser.NewSemanticMatcher(aliyunEmbedder, matcherOptions...)

	textExtractor, err := parser.NewFileTextExtractor(ctx, parser.WithExtractorLogger(componentLogger))
	if err != nil {
		glog.Fatalf("创建文本提取器失败: %v", err)
	}

	resumeParser, err := processor.NewResumeParser(
		splitter,
		entityExtractor,
		semanticMatcher,
		skillVocab,
		certVocab,
		processor.WithTextExtractor(textExtractor),
		processor.WithParserLogger(&appCoreLogger.Logger),
	)
	if err != nil {
		glog.Fatalf("初始化简历解析器失败: %v", err)
	}
	glog.Info("简历解析器初始化成功")

	mitigator := bias.NewMitigator(cfg.Bias.PatternsPath, bias.WithMitigatorLogger(componentLogger))

	engineOptions := []processor.MatchEngineOption{
		processor.WithEngineLogger(&appCoreLogger.Logger),
	}
	if llmChatModel != nil {
		engineOptions = append(engineOptions, processor.WithMatchEvaluator(parser.NewLLMMatchEvaluator(llmChatModel, componentLogger)))
	}
	if cfg.Matcher.EvalTimeout != "" {
		if d, parseErr := time.ParseDuration(cfg.Matcher.EvalTimeout); parseErr == nil {
			engineOptions = append(engineOptions, processor.WithEvalTimeout(d))
		} else {
			glog.Warnf("解析eval_timeout失败 (%s): %v, 使用默认值", cfg.Matcher.EvalTimeout, parseErr)
		}
	}
	// Redis可用时用跨进程的岗位向量缓存，否则退回进程内缓存
	if storageManager.Redis != nil {
		engineOptions = append(engineOptions, processor.WithJobVectorCache(storage.NewRedisJobVectorCache(storageManager.Redis)))
	}

	matchEngine, err := processor.NewMatchEngine(aliyunEmbedder, mitigator, engineOptions...)
	if err != nil {
		glog.Fatalf("初始化匹配引擎失败: %v", err)
	}
	glog.Info("匹配引擎初始化成功")

	screenerHandler := handler.NewScreenerHandler(cfg, storageManager, resumeParser, matchEngine)

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, screenerHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog全局logger，并把Hertz日志桥接过去
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	zlog.Logger = appCoreLogger.Logger

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)

	if level, err := zerolog.ParseLevel(cfg.Logger.Level); err == nil {
		switch level {
		case zerolog.DebugLevel:
			glog.SetLevel(glog.LevelDebug)
		case zerolog.WarnLevel:
			glog.SetLevel(glog.LevelWarn)
		case zerolog.ErrorLevel:
			glog.SetLevel(glog.LevelError)
		default:
			glog.SetLevel(glog.LevelInfo)
		}
	}
}
