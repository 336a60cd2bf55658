package differ

// Token is a run of source text with a uniform visual style.
type Token struct {
	Text  string
	Style Style
}

// Style describes how a token should be rendered.
type Style struct {
	Foreground string // hex color, empty for default
	Bold       bool
}

// Tokenizer splits source code into styled tokens for a language.
// A nil result means the language is unsupported; rendering falls back to
// plain text.
type Tokenizer interface {
	Tokenize(language, source string) []Token
}

// LanguageDetector maps a file path to a language name understood by the
// Tokenizer.
type LanguageDetector interface {
	DetectFromPath(path string) string
}
