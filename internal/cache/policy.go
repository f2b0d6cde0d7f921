package cache

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy 请求的缓存策略
type Strategy string

const (
	CacheFirst           Strategy = "cache-first"            // 静态资源：命中即返回，不走网络
	NetworkFirst         Strategy = "network-first"          // API/动态内容：网络优先，失败回退缓存
	StaleWhileRevalidate Strategy = "stale-while-revalidate" // 先返回缓存，后台刷新
)

// PatternRule 单条策略规则
// Match 以 "/" 开头时按路径前缀匹配，否则按后缀匹配（如 ".js"）
type PatternRule struct {
	Match    string   `yaml:"match"`
	Strategy Strategy `yaml:"strategy"`
}

// Policy 缓存策略表：按声明顺序取首个匹配规则，未命中默认 NetworkFirst
// worker 启动时装载后不可变，新版本缓存代整体替换
type Policy struct {
	Rules []PatternRule `yaml:"patterns"`
}

// Classify 确定请求路径的缓存策略（纯函数，首个匹配优先）
func (p Policy) Classify(path string) Strategy {
	for _, rule := range p.Rules {
		if rule.Match == "" {
			continue
		}
		if strings.HasPrefix(rule.Match, "/") {
			if strings.HasPrefix(path, rule.Match) {
				return rule.Strategy
			}
		} else if strings.HasSuffix(path, rule.Match) {
			return rule.Strategy
		}
	}
	return NetworkFirst
}

// DefaultPolicy 内置策略表（未提供策略文件时使用）
func DefaultPolicy() Policy {
	return Policy{Rules: []PatternRule{
		{Match: "/api/", Strategy: NetworkFirst},
		{Match: "/static/", Strategy: CacheFirst},
		{Match: ".js", Strategy: CacheFirst},
		{Match: ".css", Strategy: CacheFirst},
		{Match: ".png", Strategy: CacheFirst},
		{Match: ".svg", Strategy: CacheFirst},
		{Match: ".woff2", Strategy: CacheFirst},
		{Match: "/events/", Strategy: StaleWhileRevalidate},
	}}
}

// LoadPolicy 从 YAML 文件装载策略表
func LoadPolicy(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file: %w", err)
	}
	for _, rule := range p.Rules {
		switch rule.Strategy {
		case CacheFirst, NetworkFirst, StaleWhileRevalidate:
		default:
			return Policy{}, fmt.Errorf("unknown strategy %q for pattern %q", rule.Strategy, rule.Match)
		}
	}
	return p, nil
}
