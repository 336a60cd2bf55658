// Package chroma provides syntax highlighting using the chroma library.
package chroma

import (
	"path/filepath"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/fwojciec/differ"
)

// Compile-time interface verification.
var (
	_ differ.Tokenizer        = (*Tokenizer)(nil)
	_ differ.LanguageDetector = (*Tokenizer)(nil)
)

// Tokenizer extracts syntax tokens using chroma.
type Tokenizer struct{}

// NewTokenizer creates a new chroma-based tokenizer.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// DetectFromPath returns the language for a file path, or empty when
// chroma has no lexer for it.
func (t *Tokenizer) DetectFromPath(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}

// Tokenize splits source code into styled tokens for the given language.
// Returns nil for unsupported languages so rendering falls back to plain
// text; an empty slice for empty source.
func (t *Tokenizer) Tokenize(language, source string) []differ.Token {
	if source == "" {
		return []differ.Token{}
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil
	}

	var tokens []differ.Token
	for token := iterator(); token != chroma.EOF; token = iterator() {
		tokens = append(tokens, differ.Token{
			Text:  token.Value,
			Style: tokenStyle(token.Type),
		})
	}
	return tokens
}

// tokenStyle returns the visual style for a chroma token type. Colors are
// muted so they read through the diff add/remove backgrounds.
func tokenStyle(tt chroma.TokenType) differ.Style {
	switch {
	case tt.InCategory(chroma.Keyword):
		return differ.Style{Foreground: "#bb9af7", Bold: true}
	case tt.InCategory(chroma.Comment):
		return differ.Style{Foreground: "#565f89"}
	case tt.InSubCategory(chroma.LiteralString):
		return differ.Style{Foreground: "#9ece6a"}
	case tt.InSubCategory(chroma.LiteralNumber):
		return differ.Style{Foreground: "#ff9e64"}
	case tt.InCategory(chroma.Operator):
		return differ.Style{Foreground: "#89ddff"}
	case tt == chroma.NameFunction || tt == chroma.NameFunctionMagic:
		return differ.Style{Foreground: "#7aa2f7"}
	case tt == chroma.NameBuiltin || tt == chroma.NameBuiltinPseudo:
		return differ.Style{Foreground: "#e0af68"}
	default:
		return differ.Style{}
	}
}
