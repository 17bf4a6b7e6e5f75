package sheet

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/morris0411/ManavisGradesApp/core"
)

var errUndecodable = errors.New("ファイルの文字コードを判別できません（UTF-8 または Shift_JIS で保存してください）")

// Decode returns the upload as UTF-8 text.
// UTF-8 (with or without BOM) is tried first, then Shift_JIS (Windows-31J).
func Decode(data []byte) (string, error) {
	if utf8.Valid(data) {
		out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
		if err != nil {
			return "", core.NewValidationError(errUndecodable)
		}
		return string(out), nil
	}

	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return "", core.NewValidationError(errUndecodable)
	}
	text := string(out)
	if strings.ContainsRune(text, utf8.RuneError) {
		return "", core.NewValidationError(errUndecodable)
	}
	return text, nil
}
