package diff

import (
	"path"
	"strings"
)

// languageByExtension is a fixed extension-to-label table used to tag
// findings and prompts with the file's language. It is intentionally a
// flat lookup, not a grammar: full syntax awareness belongs to the
// external static analyzer collaborator, not this package.
var languageByExtension = map[string]string{
	".go":    "go",
	".py":    "python",
	".rb":    "ruby",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rs":    "rust",
	".php":   "php",
	".swift": "swift",
	".scala": "scala",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".tf":    "terraform",
	".proto": "protobuf",
	".md":    "markdown",
	".html":  "html",
	".css":   "css",
}

// Language returns the language label for a file path based on its
// extension, or "" if the extension is unrecognized.
func Language(filePath string) string {
	ext := strings.ToLower(path.Ext(filePath))
	return languageByExtension[ext]
}
