package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	t.Cleanup(func() { SetLanguage("en") })

	assert.Equal(t, "expected string", T("invalid_type", map[string]string{"expected": "string"}))
	assert.Equal(t, "items must be unique", T("not_unique", nil))
	assert.Equal(t, "no_such_code", T("no_such_code", nil))

	SetLanguage("ja")
	assert.Equal(t, "未知のキー x です", T("unknown_key", map[string]string{"key": "x"}))

	SetLanguage("fr")
	assert.Equal(t, "unknown key x", T("unknown_key", map[string]string{"key": "x"}))
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	t.Cleanup(func() { SetTranslator(nil) })
	SetTranslator(upper{})
	assert.Equal(t, "X:rule", T("rule", nil))
	SetTranslator(nil)
	assert.Equal(t, "matches no variant", T("union_no_match", nil))
}
