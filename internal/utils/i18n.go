package utils

// Server-side copy for the few strings the API returns to visitors.

// SupportedLocales lists the locales with a translation table; the first is the default.
var SupportedLocales = []string{"en", "zh"}

var translations = map[string]map[string]string{
	"en": {
		"health.ok":          "ok",
		"survey.not_found":   "Survey not found or inactive.",
		"submission.invalid": "Invalid submission data.",
		"request.invalid":    "Validation error",
		"auth.invalid":       "Invalid credentials.",
		"auth.unauthorized":  "Unauthorised",
		"rate.limited":       "Too many requests. Please try again later.",
		"server.error":       "Internal server error",
		"resource.not_found": "Not found",
		"question.not_found": "Question not found.",
		"request.conflict":   "Conflict",
		"request.forbidden":  "Forbidden",
	},
	"zh": {
		"health.ok":          "好的",
		"survey.not_found":   "问卷不存在或未启用。",
		"submission.invalid": "提交数据无效。",
		"request.invalid":    "校验失败",
		"auth.invalid":       "账号或密码错误。",
		"auth.unauthorized":  "未授权",
		"rate.limited":       "请求过于频繁，请稍后再试。",
		"server.error":       "服务器内部错误",
		"resource.not_found": "未找到",
		"question.not_found": "题目不存在。",
		"request.conflict":   "冲突",
		"request.forbidden":  "禁止访问",
	},
}

// T returns the translated string for key in locale; falls back to English, then the key.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
