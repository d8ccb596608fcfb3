package evallang

import (
	"fmt"
	"strconv"
)

// Parse parses the full contents of one Thunk source file (a single
// top-level expression) into an Expr tree, tagging every node with a
// Span into file.
func Parse(file, src string) (Expr, error) {
	p := &parser{lex: newLexer(src), file: file}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("%s: unexpected trailing input at offset %d", file, p.tok.start)
	}
	return expr, nil
}

type parser struct {
	lex  *lexer
	file string
	tok  token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) span(start int) Span {
	return Span{File: p.file, Start: start, End: p.tok.start}
}

func (p *parser) parseExpr() (Expr, error) {
	switch p.tok.kind {
	case tokInt:
		start := p.tok.start
		v, _ := strconv.ParseInt(p.tok.text, 10, 64)
		end := p.tok.end
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &IntLit{Sp: Span{File: p.file, Start: start, End: end}, Value: v}, nil
	case tokString:
		start, end := p.tok.start, p.tok.end
		v := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &StrLit{Sp: Span{File: p.file, Start: start, End: end}, Value: v}, nil
	case tokSymbol:
		start, end := p.tok.start, p.tok.end
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		sp := Span{File: p.file, Start: start, End: end}
		switch name {
		case "true":
			return &BoolLit{Sp: sp, Value: true}, nil
		case "false":
			return &BoolLit{Sp: sp, Value: false}, nil
		case "nil":
			return &NilLit{Sp: sp}, nil
		default:
			return &VarRef{Sp: sp, Name: name}, nil
		}
	case tokLParen:
		return p.parseList()
	default:
		return nil, fmt.Errorf("%s: unexpected token at offset %d", p.file, p.tok.start)
	}
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.tok.kind != kind {
		return fmt.Errorf("%s: expected %s at offset %d", p.file, what, p.tok.start)
	}
	return p.advance()
}

func (p *parser) parseList() (Expr, error) {
	start := p.tok.start
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	if p.tok.kind == tokSymbol {
		switch p.tok.text {
		case "lambda":
			return p.parseLambda(start, "")
		case "let":
			return p.parseLet(start)
		case "if":
			return p.parseIf(start)
		case "delay":
			return p.parseDelay(start)
		case "+", "-", "*", "/", "<", "==":
			return p.parseBinOp(start)
		case "define":
			return p.parseDefine(start)
		}
	}
	return p.parseApp(start)
}

// (lambda (params...) body)
func (p *parser) parseLambda(start int, name string) (Expr, error) {
	if err := p.advance(); err != nil { // consume 'lambda'
		return nil, err
	}
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	var params []string
	for p.tok.kind == tokSymbol {
		params = append(params, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &Lambda{Sp: p.span(start), Name: name, Params: params, Body: body}, nil
}

// (define name (lambda ...)) is sugar that names the lambda for Print lookup.
func (p *parser) parseDefine(start int) (Expr, error) {
	if err := p.advance(); err != nil { // consume 'define'
		return nil, err
	}
	if p.tok.kind != tokSymbol {
		return nil, fmt.Errorf("%s: expected name after define at offset %d", p.file, p.tok.start)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.kind == tokLParen {
		lstart := p.tok.start
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokSymbol && p.tok.text == "lambda" {
			lam, err := p.parseLambda(lstart, name)
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokRParen, ")"); err != nil {
				return nil, err
			}
			return lam, nil
		}
		return nil, fmt.Errorf("%s: define only supports naming a lambda", p.file)
	}
	return nil, fmt.Errorf("%s: define only supports naming a lambda", p.file)
}

// (let (name value) body)
func (p *parser) parseLet(start int) (Expr, error) {
	if err := p.advance(); err != nil { // consume 'let'
		return nil, err
	}
	if err := p.expect(tokLParen, "("); err != nil {
		return nil, err
	}
	if p.tok.kind != tokSymbol {
		return nil, fmt.Errorf("%s: expected binding name at offset %d", p.file, p.tok.start)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &Let{Sp: p.span(start), Name: name, Value: value, Body: body}, nil
}

// (if cond then else)
func (p *parser) parseIf(start int) (Expr, error) {
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &If{Sp: p.span(start), Cond: cond, Then: then, Else: els}, nil
}

// (delay expr)
func (p *parser) parseDelay(start int) (Expr, error) {
	if err := p.advance(); err != nil { // consume 'delay'
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &Delay{Sp: p.span(start), Inner: inner}, nil
}

// (op left right)
func (p *parser) parseBinOp(start int) (Expr, error) {
	op := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokRParen, ")"); err != nil {
		return nil, err
	}
	return &BinOp{Sp: p.span(start), Op: op, Left: left, Right: right}, nil
}

// (fn arg...)
func (p *parser) parseApp(start int) (Expr, error) {
	fn, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	var args []Expr
	for p.tok.kind != tokRParen {
		if p.tok.kind == tokEOF {
			return nil, fmt.Errorf("%s: unterminated application starting at offset %d", p.file, start)
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, err
	}
	return &App{Sp: p.span(start), Fn: fn, Args: args}, nil
}
