package compiler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Joker/jade"
)

// Block markers stand in for pongo2 block tags while jade writes its output.
// jade closes every block with one shared token, so the matching end tag is
// only known once the markers are walked with a stack.
const (
	blockOpen  = "{%@"
	blockClose = "@%}"
)

var configureJade sync.Once

// pongoTokens points jade's output tokens at pongo2 syntax. Empty fields
// keep jade's defaults.
var pongoTokens = jade.ReplaseTokens{
	TagArgEsc: ` %s="{{ %s }}"`,
	TagArgUne: ` %s="{% autoescape off %}{{ %s }}{% endautoescape %}"`,
	TagArgAdd: `%s+" "+%s`,

	CondIf:     blockOpen + "if %s" + blockClose,
	CondUnless: blockOpen + "unless %s" + blockClose,
	CondCase:   blockOpen + "case %s" + blockClose,
	CondWhile:  blockOpen + "while %s" + blockClose,
	CondFor:    blockOpen + "for %s, %s in %s" + blockClose,
	CondForIf:  blockOpen + "for %[2]s, %[3]s in %[4]s" + blockClose,
	CondEnd:    blockOpen + "end" + blockClose,

	CodeForElse:   "{% empty %}",
	CodeLongcode:  "{% comment %}%s{% endcomment %}",
	CodeBuffered:  "{{ %s }}",
	CodeUnescaped: "{% autoescape off %}{{ %s }}{% endautoescape %}",
	CodeElse:      "{% else %}",
	CodeElseIf:    "{% elif %s %}",
	CodeCaseWhen:  blockOpen + "when %s" + blockClose,
	CodeCaseDef:   blockOpen + "default" + blockClose,
	CodeMixBlock:  "{# block #}",

	MixinVar:     "{% set %s = %s %}",
	MixinVarRest: "{# %[1]s: %#[2]v #}",
}

// Jade compiles Pug with github.com/Joker/jade into pongo2 template source.
// Includes and extends are resolved by jade relative to the process working
// directory.
//
// jade keeps its output tokens in package state, so the first call switches
// every jade user in the process to the pongo2 dialect.
func Jade() Compiler {
	configureJade.Do(func() {
		jade.Config(pongoTokens)
	})
	return Func(func(name string, source []byte) (string, error) {
		out, err := jade.Parse(name, source)
		if err != nil {
			return "", fmt.Errorf("compiler: pug %q: %w", name, err)
		}
		out, err = translateBlocks(out)
		if err != nil {
			return "", fmt.Errorf("compiler: pug %q: %w", name, err)
		}
		return out, nil
	})
}

type block struct {
	kind     string
	subject  string
	branches int
}

// translateBlocks rewrites block markers into pongo2 tags. A case block
// becomes an if/elif chain comparing its subject with each when value.
func translateBlocks(src string) (string, error) {
	if !strings.Contains(src, blockOpen) {
		return src, nil
	}

	var (
		out   strings.Builder
		stack []*block
	)
	out.Grow(len(src))

	for {
		i := strings.Index(src, blockOpen)
		if i < 0 {
			out.WriteString(src)
			break
		}
		out.WriteString(src[:i])

		rest := src[i+len(blockOpen):]
		j := strings.Index(rest, blockClose)
		if j < 0 {
			return "", errors.New("unterminated block marker")
		}
		keyword, arg, _ := strings.Cut(rest[:j], " ")
		arg = strings.TrimSpace(arg)
		src = rest[j+len(blockClose):]

		switch keyword {
		case "if":
			stack = append(stack, &block{kind: "if"})
			fmt.Fprintf(&out, "{%% if %s %%}", arg)

		case "unless":
			stack = append(stack, &block{kind: "if"})
			fmt.Fprintf(&out, "{%% if not (%s) %%}", arg)

		case "for":
			vars, seq, ok := strings.Cut(arg, " in ")
			if !ok {
				return "", fmt.Errorf("malformed each %q", arg)
			}
			key, value, _ := strings.Cut(vars, ", ")
			stack = append(stack, &block{kind: "for"})
			if key == "_" {
				fmt.Fprintf(&out, "{%% for %s in %s %%}", value, seq)
			} else {
				fmt.Fprintf(&out, "{%% for %s, %s in %s %%}", key, value, seq)
			}

		case "case":
			stack = append(stack, &block{kind: "case", subject: arg})

		case "when", "default":
			if len(stack) == 0 || stack[len(stack)-1].kind != "case" {
				return "", fmt.Errorf("%s outside of case", keyword)
			}
			c := stack[len(stack)-1]
			switch {
			case keyword == "default" && c.branches == 0:
				out.WriteString("{% if true %}")
			case keyword == "default":
				out.WriteString("{% else %}")
			case c.branches == 0:
				fmt.Fprintf(&out, "{%% if %s == %s %%}", c.subject, arg)
			default:
				fmt.Fprintf(&out, "{%% elif %s == %s %%}", c.subject, arg)
			}
			c.branches++

		case "end":
			if len(stack) == 0 {
				return "", errors.New("unbalanced block end")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch {
			case top.kind == "for":
				out.WriteString("{% endfor %}")
			case top.kind == "if", top.branches > 0:
				out.WriteString("{% endif %}")
			}

		case "while":
			return "", fmt.Errorf("while loops are not supported: %q", arg)

		default:
			return "", fmt.Errorf("unknown block %q", keyword)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("unclosed %s block", stack[len(stack)-1].kind)
	}
	return out.String(), nil
}
