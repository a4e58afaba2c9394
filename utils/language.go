package utils

import (
	"path/filepath"
	"strings"
)

var languageByExt = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".rs":    "rust",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".sql":   "sql",
	".html":  "html",
	".css":   "css",
	".scss":  "scss",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
	".xml":   "xml",
	".md":    "markdown",
	".txt":   "plaintext",
	".pdf":   "pdf",
}

// DetectLanguage đoán ngôn ngữ theo phần mở rộng, không biết thì "plaintext".
func DetectLanguage(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	switch base {
	case "dockerfile":
		return "dockerfile"
	case "makefile":
		return "makefile"
	}
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return lang
	}
	return "plaintext"
}

func IsPDF(filename, contentType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") || contentType == "application/pdf"
}

// IsTextFile đúng cho source code và file text, nội dung sẽ được lưu inline.
func IsTextFile(filename, contentType string) bool {
	if IsPDF(filename, contentType) {
		return false
	}
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	lang := DetectLanguage(filename)
	return lang != "plaintext" || strings.EqualFold(filepath.Ext(filename), ".txt")
}

func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
