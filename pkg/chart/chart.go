// Package chart builds quickchart.io render URLs; the image itself is fetched
// by Telegram when the URL is sent as a photo.
package chart

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const baseURL = "https://quickchart.io/chart"

// LineURL builds a line-chart URL for one labeled series.
func LineURL(label string, labels []string, values []float64) string {
	config := fmt.Sprintf(
		`{type:'line',data:{labels:[%s],datasets:[{label:'%s',data:[%s]}]}}`,
		joinQuoted(labels),
		escapeSingleQuotes(label),
		joinFloats(values),
	)
	return baseURL + "?c=" + url.QueryEscape(config)
}

func joinQuoted(labels []string) string {
	quoted := make([]string, 0, len(labels))
	for _, l := range labels {
		quoted = append(quoted, "'"+escapeSingleQuotes(l)+"'")
	}
	return strings.Join(quoted, ",")
}

func joinFloats(values []float64) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
