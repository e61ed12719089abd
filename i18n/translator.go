package i18n

import "strings"

// Translator retrieves localized messages for Issue codes.
// data provides optional metadata to embed in the message (for example,
// "name" or "shape"). Placeholders are written as {key}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		msg = jaMessages[code]
	default: // "en"
		msg = enMessages[code]
	}
	if msg == "" {
		return code
	}
	return expand(msg, data)
}

var enMessages = map[string]string{
	"unknown_field":       "unknown field {name}",
	"unknown_variant":     "unknown variant {name}",
	"index_out_of_range":  "index {index} out of range",
	"kind_mismatch":       "operation not valid on {kind} shape {shape}",
	"no_variant_selected": "no variant selected",
	"nesting":             "already building the inner value",
	"invalid_type":        "invalid type",
	"parse_error":         "parse error",
	"max_depth":           "max depth exceeded",
	"unknown_key":         "unknown key",
	"duplicate_key":       "duplicate key",
	"required":            "required member {name} missing",
	"no_default":          "no default available",
	"incomplete":          "value is incomplete",
	"proxy_failed":        "conversion from {proxy} to {target} failed",
	"invalid_state":       "invalid builder state",
	"poisoned":            "builder is poisoned by an earlier error",
	"deferred_nested":     "nested deferred regions are not supported",
	"invalid_shape":       "invalid shape definition: {reason}",
}

var jaMessages = map[string]string{
	"unknown_field":       "未知のフィールドです: {name}",
	"unknown_variant":     "未知のバリアントです: {name}",
	"index_out_of_range":  "インデックス {index} が範囲外です",
	"kind_mismatch":       "{kind} 型 {shape} では無効な操作です",
	"no_variant_selected": "バリアントが選択されていません",
	"nesting":             "内側の値を構築中です",
	"invalid_type":        "型が不正です",
	"parse_error":         "解析エラー",
	"max_depth":           "最大深さを超えました",
	"unknown_key":         "未知のキーです",
	"duplicate_key":       "キーが重複しています",
	"required":            "必須メンバー {name} が不足しています",
	"no_default":          "デフォルト値がありません",
	"incomplete":          "値が未完成です",
	"proxy_failed":        "{proxy} から {target} への変換に失敗しました",
	"invalid_state":       "ビルダーの状態が不正です",
	"poisoned":            "以前のエラーによりビルダーは使用できません",
	"deferred_nested":     "入れ子の遅延領域はサポートされていません",
	"invalid_shape":       "型定義が不正です: {reason}",
}

func expand(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
