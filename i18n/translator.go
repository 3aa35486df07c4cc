// Package i18n provides the messages attached to validation issues.
package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "key"), referenced as {name} in dictionary entries.
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":          "expected {expected}",
		"required":              "required property {key} missing",
		"unknown_key":           "unknown key {key}",
		"too_small":             "must be {op} {limit}",
		"too_big":               "must be {op} {limit}",
		"too_short":             "must have at least {limit} {unit}",
		"too_long":              "must have at most {limit} {unit}",
		"pattern":               "does not match {pattern}",
		"invalid_enum":          "not one of the allowed values",
		"invalid_format":        "invalid {format}",
		"not_multiple":          "must be a multiple of {limit}",
		"not_unique":            "items must be unique",
		"discriminator_missing": "missing discriminator {key}",
		"discriminator_unknown": "unknown discriminator value {value}",
		"union_no_match":        "matches no variant",
		"union_ambiguous":       "matches more than one variant",
		"rule":                  "failed rule {rule}",
	},
	"ja": {
		"invalid_type":          "型が不正です（期待: {expected}）",
		"required":              "必須プロパティ {key} が不足しています",
		"unknown_key":           "未知のキー {key} です",
		"too_small":             "{limit} {op} である必要があります",
		"too_big":               "{limit} {op} である必要があります",
		"too_short":             "短すぎます（最小 {limit}）",
		"too_long":              "長すぎます（最大 {limit}）",
		"pattern":               "パターン {pattern} に一致しません",
		"invalid_enum":          "許可された値ではありません",
		"invalid_format":        "{format} 形式ではありません",
		"not_multiple":          "{limit} の倍数である必要があります",
		"not_unique":            "要素が重複しています",
		"discriminator_missing": "判別子 {key} がありません",
		"discriminator_unknown": "判別子の値 {value} は未知です",
		"union_no_match":        "どのバリアントにも一致しません",
		"union_ambiguous":       "複数のバリアントに一致します",
		"rule":                  "ルール {rule} を満たしません",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

type holder struct{ Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{dictTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	current.Store(&holder{dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return current.Load().Message(code, data) }
