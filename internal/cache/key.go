package cache

import (
	"net/url"
	"strconv"
	"strings"
)

// allSentinel 表示未指定 group/tag。
const allSentinel = "all"

// BuildKey 生成交付缓存 key：
//
//	v{version}:content:{locale}:group:{group|all}:tag:{tag|all}
//
// 取值经过 query 转义，冒号不会原样出现；字面值 "all" 编码为 "%61ll"
// （QueryEscape 从不转义字母，所以该编码不会与其它取值冲突）。
// 因此不同的 (version, locale, group, tag) 组合总是得到不同的 key。
func BuildKey(version int64, locale, group, tag string) string {
	var b strings.Builder
	b.Grow(48 + len(locale) + len(group) + len(tag))
	b.WriteString("v")
	b.WriteString(strconv.FormatInt(version, 10))
	b.WriteString(":content:")
	b.WriteString(escapeSegment(locale))
	b.WriteString(":group:")
	b.WriteString(optionalSegment(group))
	b.WriteString(":tag:")
	b.WriteString(optionalSegment(tag))
	return b.String()
}

func optionalSegment(value string) string {
	if value == "" {
		return allSentinel
	}
	if value == allSentinel {
		return "%61ll"
	}
	return escapeSegment(value)
}

func escapeSegment(value string) string {
	return url.QueryEscape(value)
}
