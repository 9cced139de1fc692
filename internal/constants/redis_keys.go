package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// JobModulePrefix 岗位模块
	JobModulePrefix = "job"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityVector 向量实体
	EntityVector = "vector"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"

	// KeyJobDescriptionVector JD向量缓存 (STRING, JSON编码)
	// 格式: app:job:vector:{cacheKey}
	KeyJobDescriptionVector = AppPrefix + ":" + JobModulePrefix + ":" + EntityVector + ":%s"

	// KeyFileMD5Set 文件MD5集合，用于上传快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet
)
