package lexer

import (
	"strings"

	"github.com/bashkit/bashkit/internal/token"
)

// RegisterHeredoc queues a heredoc body to be collected from the next
// source line onward, once the current line's NEWLINE is reached. The
// parser calls this immediately after recognising a "<<"/"<<-" redirection
// operator and its delimiter word.
func (l *Lexer) RegisterHeredoc(delim string, quoted, stripTabs bool) *[]token.Fragment {
	body := new([]token.Fragment)
	l.pendingHeredocs = append(l.pendingHeredocs, &pendingHeredoc{
		delim:     delim,
		quoted:    quoted,
		stripTabs: stripTabs,
		target:    body,
	})
	return body
}

// collectPendingHeredocs reads raw lines until each queued delimiter is
// matched, in registration order (spec.md §4.1 heredoc delimiter capture).
func (l *Lexer) collectPendingHeredocs() error {
	if len(l.pendingHeredocs) == 0 {
		return nil
	}
	pending := l.pendingHeredocs
	l.pendingHeredocs = nil
	for _, hd := range pending {
		var lines []string
		for {
			lineStart := l.pos
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			line := l.input[lineStart:l.pos]
			if l.ch == '\n' {
				l.readChar()
			}
			trimmed := line
			if hd.stripTabs {
				trimmed = strings.TrimLeft(line, "\t")
			}
			if trimmed == hd.delim {
				break
			}
			lines = append(lines, line)
			if l.ch == 0 {
				return &LexError{Pos: l.here(), Reason: "unterminated heredoc, expected delimiter " + hd.delim}
			}
		}
		body := strings.Join(lines, "\n")
		if len(lines) > 0 {
			body += "\n"
		}
		if hd.stripTabs {
			stripped := make([]string, 0, len(lines))
			for _, ln := range lines {
				stripped = append(stripped, strings.TrimLeft(ln, "\t"))
			}
			body = strings.Join(stripped, "\n")
			if len(stripped) > 0 {
				body += "\n"
			}
		}
		if hd.quoted {
			*hd.target = []token.Fragment{{Kind: token.FragLiteral, Text: body}}
			continue
		}
		// Expansion unless the delimiter was quoted: re-lex the body as
		// the interior of a double-quoted run so $var/`cmd`/$(( )) still
		// expand but literal quote characters in the body are preserved.
		frags, err := lexHeredocBody(body)
		if err != nil {
			return err
		}
		*hd.target = frags
	}
	return nil
}

func lexHeredocBody(body string) ([]token.Fragment, error) {
	sub := New(body)
	var frags []token.Fragment
	var lit []byte
	flush := func() {
		if len(lit) > 0 {
			frags = append(frags, token.Fragment{Kind: token.FragLiteral, Text: string(lit)})
			lit = nil
		}
	}
	for sub.ch != 0 {
		switch sub.ch {
		case '$':
			flush()
			f, err := sub.lexDollar()
			if err != nil {
				return nil, err
			}
			frags = append(frags, f)
		case '`':
			flush()
			f, err := sub.lexBacktick()
			if err != nil {
				return nil, err
			}
			frags = append(frags, f)
		case '\\':
			if sub.peekChar() == '$' || sub.peekChar() == '`' || sub.peekChar() == '\\' {
				sub.readChar()
				lit = append(lit, sub.ch)
				sub.readChar()
			} else {
				lit = append(lit, sub.ch)
				sub.readChar()
			}
		default:
			lit = append(lit, sub.ch)
			sub.readChar()
		}
	}
	flush()
	return frags, nil
}
