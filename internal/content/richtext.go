package content

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"
)

// htmlText returns the character data of an HTML fragment with markup,
// scripts and styles removed. Entities are decoded.
func htmlText(b []byte) string {
	z := html.NewTokenizer(bytes.NewReader(b))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style, atom.Head, atom.Title:
				skip++
			case atom.Br:
				sb.WriteByte('\n')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				sb.WriteByte('\n')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style, atom.Head, atom.Title:
				if skip > 0 {
					skip--
				}
			}
		}
	}
}

// rtfDestinations are groups whose text is metadata, not document content.
var rtfDestinations = map[string]bool{
	"fonttbl":            true,
	"colortbl":           true,
	"expandedcolortbl":   true,
	"stylesheet":         true,
	"info":               true,
	"pict":               true,
	"header":             true,
	"footer":             true,
	"headerl":            true,
	"headerr":            true,
	"footerl":            true,
	"footerr":            true,
	"listtable":          true,
	"listoverridetable":  true,
	"rsidtbl":            true,
	"generator":          true,
	"themedata":          true,
	"colorschememapping": true,
	"latentstyles":       true,
	"datastore":          true,
	"xmlnstbl":           true,
	"filetbl":            true,
	"revtbl":             true,
}

var rtfSymbols = map[string]string{
	"par":       "\n",
	"line":      "\n",
	"sect":      "\n",
	"page":      "\n",
	"row":       "\n",
	"cell":      "\t",
	"tab":       "\t",
	"emdash":    "—",
	"endash":    "–",
	"bullet":    "•",
	"lquote":    "‘",
	"rquote":    "’",
	"ldblquote": "“",
	"rdblquote": "”",
	"emspace":   " ",
	"enspace":   " ",
}

type rtfGroup struct {
	skip bool
	uc   int // characters to drop after a \u escape
}

// rtfText extracts the plain text of an RTF document. It understands groups,
// ignorable destinations, hex and unicode escapes, and the common symbol
// control words. Everything else is dropped.
func rtfText(b []byte) string {
	var (
		sb      strings.Builder
		stack   []rtfGroup
		cur     = rtfGroup{uc: 1}
		pending int // fallback characters still to drop after \u
		dec     = charmap.Windows1252.NewDecoder()
	)

	emit := func(s string) {
		if cur.skip {
			return
		}
		if pending > 0 {
			pending--
			return
		}
		sb.WriteString(s)
	}

	for i := 0; i < len(b); i++ {
		c := b[i]
		switch c {
		case '{':
			stack = append(stack, cur)
		case '}':
			if n := len(stack); n > 0 {
				cur = stack[n-1]
				stack = stack[:n-1]
			}
			pending = 0
		case '\r', '\n':
		case '\\':
			if i+1 >= len(b) {
				break
			}
			i++
			c = b[i]
			switch {
			case c == '\\' || c == '{' || c == '}':
				emit(string(c))
			case c == '*':
				cur.skip = true
			case c == '~':
				emit(" ")
			case c == '_':
				emit("-")
			case c == '-':
			case c == '\n' || c == '\r':
				emit("\n")
			case c == '\'':
				if i+2 < len(b) {
					if v, err := strconv.ParseUint(string(b[i+1:i+3]), 16, 8); err == nil {
						s, _ := dec.String(string([]byte{byte(v)}))
						emit(s)
					}
					i += 2
				}
			case isLetter(c):
				start := i
				for i < len(b) && isLetter(b[i]) {
					i++
				}
				word := string(b[start:i])
				pstart := i
				if i < len(b) && b[i] == '-' {
					i++
				}
				for i < len(b) && b[i] >= '0' && b[i] <= '9' {
					i++
				}
				param, hasParam := 0, false
				if i > pstart {
					if v, err := strconv.Atoi(string(b[pstart:i])); err == nil {
						param, hasParam = v, true
					}
				}
				// A single space delimits the control word and is consumed.
				if i >= len(b) || b[i] != ' ' {
					i--
				}

				switch {
				case rtfDestinations[word]:
					cur.skip = true
				case word == "uc" && hasParam:
					cur.uc = param
				case word == "u" && hasParam:
					if param < 0 {
						param += 65536
					}
					emit(string(rune(param)))
					pending = cur.uc
				default:
					if s, ok := rtfSymbols[word]; ok {
						emit(s)
					}
				}
			}
		default:
			emit(string(c))
		}
	}
	return sb.String()
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
