// Package languages resolves protocol language identifiers from file names.
//
// Identifiers follow https://code.visualstudio.com/docs/languages/identifiers.
package languages

import (
	"path/filepath"
	"strings"
)

var _byFileName = map[string]string{
	"dockerfile": "dockerfile",
	"make":       "makefile",
	"makefile":   "makefile",
}

var _byExtension = map[string]string{
	".bat":        "bat",
	".bib":        "bibtex",
	".c":          "c",
	".clj":        "clojure",
	".coffee":     "coffeescript",
	".cpp":        "cpp",
	".cs":         "csharp",
	".cshtml":     "razor",
	".css":        "css",
	".cxx":        "cpp",
	".diff":       "diff",
	".fs":         "fsharp",
	".go":         "go",
	".groovy":     "groovy",
	".h":          "c",
	".handlebars": "handlebars",
	".hbs":        "handlebars",
	".html":       "html",
	".hxx":        "cpp",
	".ini":        "ini",
	".jade":       "jade",
	".java":       "java",
	".js":         "javascript",
	".json":       "json",
	".latex":      "latex",
	".less":       "less",
	".lua":        "lua",
	".m":          "objective-c",
	".markdown":   "markdown",
	".md":         "markdown",
	".mk":         "makefile",
	".mm":         "objective-cpp",
	".php":        "php",
	".ps1":        "powershell",
	".pug":        "jade",
	".py":         "python",
	".r":          "r",
	".rb":         "ruby",
	".rs":         "rust",
	".sass":       "sass",
	".scala":      "scala",
	".scss":       "scss",
	".shader":     "shaderlab",
	".sh":         "shellscript",
	".sql":        "sql",
	".swift":      "swift",
	".tex":        "tex",
	".ts":         "typescript",
	".xml":        "xml",
	".xsl":        "xsl",
	".yaml":       "yaml",
	".yml":        "yaml",
}

// Identifier returns the language identifier for path, or "" when it is not known.
// Well-known file names take precedence over the extension.
func Identifier(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)

	if id, ok := _byFileName[strings.ToLower(strings.TrimSuffix(base, ext))]; ok {
		return id
	}
	return _byExtension[strings.ToLower(ext)]
}
