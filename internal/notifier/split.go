package notifier

import (
	"strings"
	"unicode/utf8"
)

// atom is the smallest unit SplitMessage will not cut: a tag, an entity
// or a single rune.
type atom struct {
	s     string
	n     int    // runes
	open  string // tag name when s opens a tag
	close string // tag name when s closes a tag
}

func tokenize(s string) []atom {
	var out []atom
	for len(s) > 0 {
		switch s[0] {
		case '<':
			if end := strings.IndexByte(s, '>'); end > 0 {
				tag := s[:end+1]
				a := atom{s: tag, n: utf8.RuneCountInString(tag)}
				switch {
				case strings.HasPrefix(tag, "</"):
					a.close = tagName(tag)
				case !strings.HasSuffix(tag, "/>"):
					a.open = tagName(tag)
				}
				out = append(out, a)
				s = s[end+1:]
				continue
			}
		case '&':
			if end := strings.IndexByte(s, ';'); end > 1 && end <= 10 && !strings.ContainsAny(s[1:end], " \t\n&<") {
				out = append(out, atom{s: s[:end+1], n: utf8.RuneCountInString(s[:end+1])})
				s = s[end+1:]
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(s)
		out = append(out, atom{s: s[:size], n: 1})
		s = s[size:]
	}
	return out
}

func tagName(tag string) string {
	name := strings.TrimLeft(tag, "</")
	if i := strings.IndexAny(name, " \t\n/>"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// lines groups atoms into lines, each keeping its trailing newline.
func lines(atoms []atom) [][]atom {
	var out [][]atom
	start := 0
	for i, a := range atoms {
		if a.s == "\n" {
			out = append(out, atoms[start:i+1])
			start = i + 1
		}
	}
	if start < len(atoms) {
		out = append(out, atoms[start:])
	}
	return out
}

func applyTags(stack []atom, atoms []atom) []atom {
	stack = append([]atom(nil), stack...)
	for _, a := range atoms {
		switch {
		case a.open != "":
			stack = append(stack, a)
		case a.close != "":
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].open == a.close {
					stack = append(stack[:i], stack[i+1:]...)
					break
				}
			}
		}
	}
	return stack
}

func closers(stack []atom) (string, int) {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i].open + ">")
	}
	return b.String(), utf8.RuneCountInString(b.String())
}

type splitter struct {
	max   int
	out   []string
	buf   strings.Builder
	size  int
	body  bool // buf holds more than the reopened tags
	stack []atom
}

func (sp *splitter) fits(atoms []atom) bool {
	n := 0
	for _, a := range atoms {
		n += a.n
	}
	_, closeLen := closers(applyTags(sp.stack, atoms))
	return sp.size+n+closeLen <= sp.max
}

func (sp *splitter) add(atoms []atom) {
	for _, a := range atoms {
		if !sp.body && a.s == "\n" {
			continue
		}
		sp.buf.WriteString(a.s)
		sp.size += a.n
		sp.body = true
	}
	sp.stack = applyTags(sp.stack, atoms)
}

// flush closes the tags still open, emits the piece and starts the next
// one by reopening them.
func (sp *splitter) flush() {
	if sp.body {
		closing, _ := closers(sp.stack)
		sp.out = append(sp.out, strings.TrimRight(sp.buf.String(), "\n")+closing)
	}
	sp.buf.Reset()
	sp.size = 0
	sp.body = false
	for _, a := range sp.stack {
		sp.buf.WriteString(a.s)
		sp.size += a.n
	}
}

// SplitMessage cuts text into pieces of at most max runes, preferring line
// boundaries. Tags still open at a cut are closed at the end of the piece
// and reopened at the start of the next, and no tag or entity is ever cut,
// so each piece is valid Telegram HTML on its own.
func SplitMessage(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}
	sp := &splitter{max: max}
	for _, line := range lines(tokenize(text)) {
		if sp.fits(line) {
			sp.add(line)
			continue
		}
		if sp.body {
			sp.flush()
			if sp.fits(line) {
				sp.add(line)
				continue
			}
		}
		for _, a := range line {
			if sp.body && !sp.fits([]atom{a}) {
				sp.flush()
			}
			sp.add([]atom{a})
		}
	}
	if sp.body {
		sp.flush()
	}
	return sp.out
}
