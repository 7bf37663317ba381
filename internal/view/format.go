package view

import (
	"fmt"
	"strconv"
	"strings"
)

func FormatScore(v float64) string {
	return fmt.Sprintf("%.2f score", v)
}

func FormatDrop(v float64) string {
	return fmt.Sprintf("%.1f%% projected drop", v)
}

// FormatProbability renders a 0-1 probability as a percentage.
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func FormatSentiment(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func FormatPosts(n int) string {
	if n == 1 {
		return "1 post"
	}
	return groupThousands(strconv.Itoa(n)) + " posts"
}

func FormatRevenue(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + groupThousands(strconv.FormatFloat(v, 'f', 0, 64))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
