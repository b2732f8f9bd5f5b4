package roster

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldedLetters はNFD分解で基本文字に分かれない文字の置き換え表。
var foldedLetters = map[rune]string{
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'ø': "o", 'Ø': "O",
	'ß': "ss",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ı': "i",
}

// StripDiacritics はダイアクリティカルマークを除去する。
// NFD分解して結合文字（Mn）を取り除き、分解できない文字は置き換え表で変換する。
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}

	if !strings.ContainsFunc(out, func(r rune) bool { _, ok := foldedLetters[r]; return ok }) {
		return out
	}
	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if rep, ok := foldedLetters[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeName は氏名を照合用に正規化する。
// ダイアクリティカルマーク除去、前後の空白除去、小文字化の順に適用する。
// 同じ関数をシートの氏名とディレクトリの表示名の両方に使う。
func NormalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(StripDiacritics(s)))
}

// fold は大文字小文字とダイアクリティカルマークを無視した比較用の文字列を返す。
func fold(s string) string {
	return NormalizeName(s)
}
