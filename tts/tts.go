// Package tts renders spoken clips that can be scheduled like any other
// sound file.
package tts

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/Duckduckgot/gtts"
	"github.com/Duckduckgot/gtts/voices"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultLanguage is the voice used when none is given
const DefaultLanguage = voices.English

var ErrEmptyName = errors.New("resulting filename is empty after processing")

// Generator writes speech clips into a directory
type Generator struct {
	speech gtts.Speech
}

// NewGenerator creates a generator writing MP3 files into dir
func NewGenerator(dir, language string) *Generator {
	if language == "" {
		language = DefaultLanguage
	}
	return &Generator{speech: gtts.Speech{Folder: dir, Language: language}}
}

// Generate synthesizes text and returns the path of the written clip
func (g *Generator) Generate(text string) (string, error) {
	name, err := FileName(text)
	if err != nil {
		return "", err
	}

	path, err := g.speech.CreateSpeechFile(text, name)
	if err != nil {
		return "", fmt.Errorf("failed to generate speech for %q: %w", text, err)
	}
	return filepath.Clean(path), nil
}

// FileName turns text into an ASCII file name without extension:
// accents are folded, symbols dropped and spaces replaced by underscores.
func FileName(text string) (string, error) {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
	)
	normalized, _, err := transform.String(t, text)
	if err != nil {
		return "", err
	}

	filtered := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, normalized)

	name := strings.Join(strings.Fields(strings.ToLower(filtered)), "_")
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
