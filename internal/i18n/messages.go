package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ja holds the Japanese catalog keyed by the English source string.
var ja = []struct{ key, msg string }{
	{"Rollbook", "サイコロ記録"},
	{"Record dice rolls for your characters", "キャラクターに関するサイコロの出目を記録しておくためのアプリです"},
	{"New Entry", "新規入力"},
	{"View Records", "記録を見る"},
	{"Character name", "キャラクター名"},
	{"Date", "年月日"},
	{"Roll value", "さいころの出目"},
	{"Notes", "備考"},
	{"Record", "記録する"},
	{"Recorded", "記録されました"},
	{"Required fields are missing", "必須項目が入力されていません"},
	{"Please correct the fields below", "以下の項目を修正してください"},
	{"No records", "記録がありません"},
	{"Filter by character name", "キャラクター名でフィルタ"},
	{"Date range", "日付範囲"},
	{"Roll value range", "さいころの出目の範囲"},
	{"Apply filter", "フィルタを適用"},
	{"Reset", "リセット"},
	{"Download CSV", "CSVをダウンロード"},
	{"%d of %d records", "%d / %d 件"},
	{"Could not reach the record store", "記録の保存先に接続できません"},
	{"Try again", "再試行"},
	{"The record is kept in this session but was not saved", "記録はこのセッションに保持されていますが、保存されていません"},
	{"Retry save", "保存を再試行"},
	{"Saved", "保存しました"},
	{"There are unsaved records in this session", "このセッションに未保存の記録があります"},
	{"Invalid filter", "フィルタが不正です"},
	{"Character name is required", "キャラクター名は必須です"},
	{"Date is required", "年月日は必須です"},
	{"Date must be YYYY-MM-DD on or after 2000-01-01", "年月日は2000-01-01以降をYYYY-MM-DD形式で入力してください"},
	{"Roll value is required", "さいころの出目は必須です"},
	{"Roll value must be a whole number from 0 to 100", "さいころの出目は0から100の整数で入力してください"},
	{"Language", "言語"},
}

func init() {
	for _, m := range ja {
		if err := message.SetString(language.Japanese, m.key, m.msg); err != nil {
			panic(err)
		}
	}
}
