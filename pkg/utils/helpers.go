package utils

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"gorm.io/datatypes"
)

// StringPtr 返回字符串的指针
func StringPtr(s string) *string {
	return &s
}

// CalculateMD5 computes the MD5 hash of a byte slice.
func CalculateMD5(data []byte) string {
	hasher := md5.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}

// ConvertArrayToJSON 将字符串数组转换为JSON列
func ConvertArrayToJSON(arr []string) datatypes.JSON {
	if len(arr) == 0 {
		return datatypes.JSON("[]")
	}
	jsonBytes, err := json.Marshal(arr)
	if err != nil {
		// 简单数组序列化几乎不会失败，失败时返回安全的空数组
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(jsonBytes)
}

// ConvertJSONToArray 将JSON列还原为字符串数组，解析失败时返回nil
func ConvertJSONToArray(j datatypes.JSON) []string {
	if len(j) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(j, &arr); err != nil {
		return nil
	}
	return arr
}
