package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"kakeibo/internal/core"
)

var (
	amountRe = regexp.MustCompile(`(¥\s*)?(\d{1,3}(?:,\d{3})+|\d+)(\s*円)?`)

	totalKeywords = []string{"合計", "総計", "お買上", "total"}
)

type amountToken struct {
	value     int64
	yenMarked bool
	grouped   bool
}

// ExtractAmount picks the receipt total from OCR text.
//
// Amounts on a line naming a total win. Otherwise the largest amount marked
// with ¥ or 円 is taken, and failing that the largest number written with
// thousands separators. It reports false when nothing qualifies.
func ExtractAmount(text string) (int64, bool) {
	var keyword, marked, grouped []int64

	for _, line := range strings.Split(core.FoldWidth(text), "\n") {
		tokens := scanAmounts(line)
		if len(tokens) == 0 {
			continue
		}
		isTotal := hasTotalKeyword(line)
		for _, tok := range tokens {
			if isTotal {
				keyword = append(keyword, tok.value)
			}
			if tok.yenMarked {
				marked = append(marked, tok.value)
			}
			if tok.grouped {
				grouped = append(grouped, tok.value)
			}
		}
	}

	for _, set := range [][]int64{keyword, marked, grouped} {
		if v, ok := largest(set); ok {
			return v, true
		}
	}
	return 0, false
}

func scanAmounts(line string) []amountToken {
	var out []amountToken
	for _, m := range amountRe.FindAllStringSubmatch(line, -1) {
		digits := m[2]
		v, err := strconv.ParseInt(strings.ReplaceAll(digits, ",", ""), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, amountToken{
			value:     v,
			yenMarked: m[1] != "" || m[3] != "",
			grouped:   strings.Contains(digits, ","),
		})
	}
	return out
}

func hasTotalKeyword(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range totalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func largest(vs []int64) (int64, bool) {
	if len(vs) == 0 {
		return 0, false
	}
	max := vs[0]
	for _, v := range vs[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}
