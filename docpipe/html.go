package docpipe

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var htmlSanitizer = bluemonday.UGCPolicy()

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// decodeHTML sanitizes the payload and converts it to markdown so tables and
// lists survive as line-oriented text. If conversion yields nothing, a plain
// text walk over the DOM is the fallback.
func decodeHTML(data []byte) (*Content, error) {
	sanitized := htmlSanitizer.SanitizeBytes(data)

	md, err := mdConverter.ConvertString(string(sanitized))
	if err == nil && strings.TrimSpace(md) != "" {
		return &Content{Text: strings.TrimSpace(md)}, nil
	}

	return &Content{Text: htmlTextFallback(sanitized)}, nil
}

// htmlTextFallback collects text nodes line by line.
func htmlTextFallback(data []byte) string {
	root, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
