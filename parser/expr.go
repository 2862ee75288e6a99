// Package parser implements liquidcore's expression parser (this file) and
// template parser (template.go): a precedence-climbing recursive descent
// parser, hand-written over a hand-written lexer rather than generated
// from a grammar.
package parser

import (
	"fmt"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/internal/invariant"
	"github.com/aledsdavies/liquidcore/lexer"
	"github.com/aledsdavies/liquidcore/lqerr"
)

// exprParser holds the token-stream state shared by every grammar level.
// It is embedded into the template-level Parser (template.go) so both
// parsers share one Lexer and one token cursor.
type exprParser struct {
	lex *lexer.Lexer
	tok lexer.Token

	depth    int
	maxDepth int
}

func (p *exprParser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *exprParser) pos() lqerr.Position {
	return lqerr.Position{Line: p.tok.Pos.Line, Column: p.tok.Pos.Column, Offset: p.tok.Pos.Offset}
}

func (p *exprParser) astPos() ast.Position {
	return ast.Position{Line: p.tok.Pos.Line, Column: p.tok.Pos.Column, Offset: p.tok.Pos.Offset}
}

func (p *exprParser) syntaxErrorf(format string, args ...any) error {
	return &lqerr.SyntaxError{Message: fmt.Sprintf(format, args...), Pos: p.pos()}
}

func (p *exprParser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.tok.Type != tt {
		return lexer.Token{}, p.syntaxErrorf("expected %s, got %s", tt, p.tok.Type)
	}
	tok := p.tok
	if err := p.advance(); err != nil {
		return lexer.Token{}, err
	}
	return tok, nil
}

// enterExpr tracks nesting depth for the four grammar positions that can
// recurse into a fresh or_expr: a tag's or interpolation's top-level
// expression, parenthesized sub-expressions, call arguments, and
// bracket-index expressions. Exceeding maxDepth raises
// lqerr.DepthExceeded instead of risking a runtime stack overflow on
// adversarial input.
func (p *exprParser) enterExpr() (func(), error) {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return nil, &lqerr.DepthExceeded{Max: p.maxDepth, Pos: p.pos()}
	}
	return func() { p.depth-- }, nil
}

// parseExpr parses a full or_expr. p.tok must already hold the first token
// of the expression; on return p.tok holds the first token past it.
func (p *exprParser) parseExpr() (ast.Expr, error) {
	leave, err := p.enterExpr()
	if err != nil {
		return nil, err
	}
	defer leave()
	return p.parseOr()
}

// parseOr := and_expr ( "or" and_expr )*
func (p *exprParser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.OR {
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: ast.OpOr, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

// parseAnd := equality_expr ( "and" equality_expr )*
func (p *exprParser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.AND {
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.Logical{Op: ast.OpAnd, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

// parseEquality := relational_expr ( ("==" | "!=") relational_expr )*
func (p *exprParser) parseEquality() (ast.Expr, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.EQ || p.tok.Type == lexer.NE {
		op := binOpFor(p.tok.Type)
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

// parseRelational := pipe_expr ( (">=" | "<=" | ">" | "<") pipe_expr )*
func (p *exprParser) parseRelational() (ast.Expr, error) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	for isRelOp(p.tok.Type) {
		op := binOpFor(p.tok.Type)
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePipe()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

func isRelOp(tt lexer.TokenType) bool {
	switch tt {
	case lexer.GE, lexer.LE, lexer.GT, lexer.LT:
		return true
	default:
		return false
	}
}

// parsePipe := additive_expr ( "|" identifier ( "(" arg_list ")" )? )*
//
// "x | f(a, b)" lowers to Call("f", [x, a, b]); chains lower left to right
// so "x | f | g(a)" becomes Call("g", [Call("f", [x]), a]).
func (p *exprParser) parsePipe() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.PIPE {
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		args := []ast.Expr{left}
		if p.tok.Type == lexer.LPAREN {
			if err := p.advance(); err != nil {
				return nil, err
			}
			extra, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			args = append(args, extra...)
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
		}
		left = &ast.Call{Name: nameTok.Value, Args: args, Position: pos}
	}
	return left, nil
}

// parseAdditive := multiplicative_expr ( ("+" | "-") multiplicative_expr )*
func (p *exprParser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.PLUS || p.tok.Type == lexer.MINUS {
		op := binOpFor(p.tok.Type)
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

// parseMultiplicative := unary_expr ( ("*" | "/" | "%") unary_expr )*
func (p *exprParser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.Type == lexer.STAR || p.tok.Type == lexer.SLASH || p.tok.Type == lexer.PERCENT {
		op := binOpFor(p.tok.Type)
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Op: op, Left: left, Right: right, Position: pos}
	}
	return left, nil
}

// parseUnary := "not" unary_expr | primary
func (p *exprParser) parseUnary() (ast.Expr, error) {
	if p.tok.Type == lexer.NOT {
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: ast.OpNot, Operand: operand, Position: pos}, nil
	}
	return p.parsePrimary()
}

// parsePrimary := literal
//
//	| "(" or_expr ")"
//	| identifier "(" arg_list? ")"   // function-call form
//	| variable_path
//	| "-" NUMBER                      // negative numeric literal
//
// The "-" NUMBER case resolves the lexical ambiguity between a negative
// number literal and the subtraction operator without any lexer lookahead:
// MINUS is always its own token; parseAdditive consumes it as the binary
// operator whenever it appears between two operands, so the only place
// primary ever sees a leading MINUS is an operand position.
func (p *exprParser) parsePrimary() (ast.Expr, error) {
	switch p.tok.Type {
	case lexer.MINUS:
		return p.parseNegativeNumber()
	case lexer.NUMBER:
		return p.parseNumberLiteral(1)
	case lexer.STRING:
		tok := p.tok
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LiteralString, Str: tok.Value, Position: pos}, nil
	case lexer.TRUE, lexer.FALSE:
		b := p.tok.Type == lexer.TRUE
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LiteralBool, Bool: b, Position: pos}, nil
	case lexer.NIL:
		pos := p.astPos()
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Kind: ast.LiteralNil, Position: pos}, nil
	case lexer.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.IDENT:
		return p.parseIdentOrPath()
	default:
		return nil, p.syntaxErrorf("unexpected token %s in expression", p.tok.Type)
	}
}

func (p *exprParser) parseNegativeNumber() (ast.Expr, error) {
	pos := p.astPos()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type != lexer.NUMBER {
		return nil, p.syntaxErrorf("expected number after '-', got %s", p.tok.Type)
	}
	lit, err := p.parseNumberLiteral(-1)
	if err != nil {
		return nil, err
	}
	l := lit.(*ast.Literal)
	l.Position = pos
	return l, nil
}

func (p *exprParser) parseNumberLiteral(sign int64) (ast.Expr, error) {
	tok := p.tok
	pos := p.astPos()
	if err := p.advance(); err != nil {
		return nil, err
	}
	return parseNumberToken(tok.Value, sign, pos)
}

// parseIdentOrPath disambiguates the function-call form "identifier ( arg_list? )"
// from a variable_path starting with that identifier.
func (p *exprParser) parseIdentOrPath() (ast.Expr, error) {
	nameTok := p.tok
	pos := p.astPos()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Type == lexer.LPAREN {
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &ast.Call{Name: nameTok.Value, Args: args, Position: pos}, nil
	}
	return p.parseVariablePathFrom(nameTok.Value, pos)
}

// parseArgList := or_expr ("," or_expr)*
func (p *exprParser) parseArgList() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.tok.Type == lexer.RPAREN {
		return args, nil
	}
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.tok.Type != lexer.COMMA {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return args, nil
}

// parseVariablePathFrom continues a variable_path after its head
// identifier has already been consumed:
//
//	variable_path := identifier ( "." identifier | "[" or_expr "]" )*
func (p *exprParser) parseVariablePathFrom(head string, pos ast.Position) (ast.Expr, error) {
	var segments []ast.PathSegment
	for {
		switch p.tok.Type {
		case lexer.DOT:
			if err := p.advance(); err != nil {
				return nil, err
			}
			nameTok, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			segments = append(segments, ast.PathSegment{Kind: ast.SegmentProperty, Name: nameTok.Value})
		case lexer.LBRACKET:
			if err := p.advance(); err != nil {
				return nil, err
			}
			leave, err := p.enterExpr()
			if err != nil {
				return nil, err
			}
			idx, err := p.parseOr()
			leave()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			segments = append(segments, ast.PathSegment{Kind: ast.SegmentIndex, Expr: idx})
		default:
			return &ast.Variable{Head: head, Segments: segments, Position: pos}, nil
		}
	}
}

func binOpFor(tt lexer.TokenType) ast.BinaryOp {
	switch tt {
	case lexer.PLUS:
		return ast.OpAdd
	case lexer.MINUS:
		return ast.OpSub
	case lexer.STAR:
		return ast.OpMul
	case lexer.SLASH:
		return ast.OpDiv
	case lexer.PERCENT:
		return ast.OpMod
	case lexer.EQ:
		return ast.OpEq
	case lexer.NE:
		return ast.OpNe
	case lexer.LT:
		return ast.OpLt
	case lexer.LE:
		return ast.OpLe
	case lexer.GT:
		return ast.OpGt
	case lexer.GE:
		return ast.OpGe
	default:
		invariant.Invariant(false, "binOpFor called with non-operator token %s", tt)
		return ast.OpAdd
	}
}
