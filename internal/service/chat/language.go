package chat

import (
	"context"
	"strings"
)

// DefaultLanguage 是模型交互使用的语言，也是无法识别时的回退。
const DefaultLanguage = "en"

const autoDetect = "auto"

var supportedLanguages = map[string]struct{}{
	"en": {}, "ta": {}, "hi": {}, "es": {}, "fr": {}, "de": {}, "te": {}, "zh": {}, "ar": {},
}

// ResolveLanguage coerces code into the supported set; anything else becomes en.
func ResolveLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := supportedLanguages[code]; ok {
		return code
	}
	return DefaultLanguage
}

// resolveLanguage 处理 "auto"：交给翻译服务检测，检测结果同样需要落在支持集合内。
func (s *Service) resolveLanguage(ctx context.Context, requested, text string) string {
	if !strings.EqualFold(strings.TrimSpace(requested), autoDetect) {
		return ResolveLanguage(requested)
	}
	if s.translator == nil || strings.TrimSpace(text) == "" {
		return DefaultLanguage
	}
	return ResolveLanguage(s.translator.DetectLanguage(ctx, text).Value)
}
