package assemble

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.md
var defaultPromptFS embed.FS

// DefaultInstruction returns the role instruction for the given language.
// A user override at ~/.config/tutorctl/prompts/tutor_{lang}.md replaces the
// embedded default; unknown languages fall back to English.
func DefaultInstruction(lang string) string {
	if lang != "ar" {
		lang = "en"
	}
	filename := "tutor_" + lang + ".md"

	if home, err := os.UserHomeDir(); err == nil {
		override := readFileString(filepath.Join(home, ".config", "tutorctl", "prompts", filename))
		if override != "" {
			return override
		}
	}

	data, err := defaultPromptFS.ReadFile("prompts/" + filename)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// FailureMessage is the fixed localized string appended as an assistant turn
// when the remote agent call fails. It must be stable: tests and the UI rely
// on the exact text.
func FailureMessage(lang string) string {
	if lang == "ar" {
		return "عذراً، حدث خطأ أثناء معالجة طلبك. حاول مرة أخرى."
	}
	return "Sorry, something went wrong while processing your request. Please try again."
}

// AttachmentTooLarge is the localized inline warning for oversized files.
func AttachmentTooLarge(lang string) string {
	if lang == "ar" {
		return "الملف المرفق كبير جداً."
	}
	return "The attached file is too large."
}

// AttachmentUnsupported is the localized inline warning for files of a type
// the app cannot process.
func AttachmentUnsupported(lang string) string {
	if lang == "ar" {
		return "نوع الملف المرفق غير مدعوم."
	}
	return "The attached file type is not supported."
}

// readFileString reads a file and returns its trimmed content.
// Returns empty string if the file doesn't exist or is empty.
func readFileString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
