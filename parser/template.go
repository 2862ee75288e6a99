package parser

import (
	"log/slog"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/internal/invariant"
	"github.com/aledsdavies/liquidcore/lexer"
	"github.com/aledsdavies/liquidcore/lqerr"
)

// Options configures a single Parse call.
type Options struct {
	// MaxSourceSize caps the input length in bytes, checked before lexing
	// begins. Zero means "use the default ceiling" (DefaultMaxSourceSize).
	MaxSourceSize int

	// MaxDepth caps expression and block nesting depth. Zero means "use
	// the default ceiling" (DefaultMaxDepth).
	MaxDepth int

	// Logger, when non-nil, receives debug-level trace output during
	// parsing. A nil Logger disables tracing.
	Logger *slog.Logger
}

// Defaults applied when the corresponding Options field is zero.
const (
	DefaultMaxSourceSize = 10 << 20 // 10 MiB
	DefaultMaxDepth      = 200
)

// Parser is the template-level parser: it interleaves text runs,
// interpolations, tags and comments into a flat node list; the caller
// (liquidcore.Compile) hands that list to the structurer.
type Parser struct {
	exprParser
	logger *slog.Logger
}

// Parse compiles source into a flat (pre-structuring) node list with
// whitespace trimming already applied: the trim pass runs once, here,
// before the structurer sees the list.
func Parse(source string, opts Options) ([]ast.Node, error) {
	maxSize := opts.MaxSourceSize
	if maxSize == 0 {
		maxSize = DefaultMaxSourceSize
	}
	if len(source) > maxSize {
		return nil, &lqerr.SourceTooLarge{Size: len(source), Max: maxSize}
	}

	maxDepth := opts.MaxDepth
	if maxDepth == 0 {
		maxDepth = DefaultMaxDepth
	}

	p := &Parser{
		exprParser: exprParser{
			lex:      lexer.New(source, opts.Logger),
			maxDepth: maxDepth,
		},
		logger: opts.Logger,
	}
	if p.logger != nil {
		p.logger.Debug("parsing template", "bytes", len(source))
	}

	if err := p.advance(); err != nil {
		return nil, err
	}

	nodes, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	blockDepth := 0
	for _, n := range nodes {
		if tag, ok := n.(*ast.Tag); ok {
			switch tag.Kind {
			case ast.TagIf, ast.TagFor:
				if blockDepth++; blockDepth > maxDepth {
					return nil, &lqerr.DepthExceeded{Max: maxDepth, Pos: toLQErrPos(tag.Position)}
				}
			case ast.TagEndIf, ast.TagEndFor:
				blockDepth--
			}
		}
	}
	applyTrim(nodes)
	return nodes, nil
}

// parseNodes consumes tokens until EOF, producing a flat node list.
func (p *Parser) parseNodes() ([]ast.Node, error) {
	var nodes []ast.Node
	for p.tok.Type != lexer.EOF {
		node, err := p.parseOneNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *Parser) parseOneNode() (ast.Node, error) {
	switch p.tok.Type {
	case lexer.TEXT:
		node := &ast.Text{Value: p.tok.Value, Position: p.astPos()}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return node, nil
	case lexer.LDelimExpr, lexer.LDelimExprTrim:
		return p.parseInterpolation()
	case lexer.LDelimTag, lexer.LDelimTagTrim:
		return p.parseTag()
	case lexer.LDelimComment:
		return p.parseComment()
	default:
		return nil, p.syntaxErrorf("unexpected token %s at top level", p.tok.Type)
	}
}

func (p *Parser) parseInterpolation() (ast.Node, error) {
	pos := p.astPos()
	trimLeft := p.tok.Type == lexer.LDelimExprTrim
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	trimRight, err := p.expectExprClose()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Interpolation{Expr: expr, TrimLeft: trimLeft, TrimRight: trimRight, Position: pos}, nil
}

func (p *Parser) expectExprClose() (trimRight bool, err error) {
	switch p.tok.Type {
	case lexer.RDelimExpr:
		return false, nil
	case lexer.RDelimExprTrim:
		return true, nil
	default:
		return false, p.syntaxErrorf("expected '}}' to close interpolation, got %s", p.tok.Type)
	}
}

func (p *Parser) parseComment() (ast.Node, error) {
	pos := p.astPos()
	content, err := p.lex.ScanCommentBody()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	invariant.Invariant(p.tok.Type == lexer.RDelimComment, "comment scan must stop exactly at '#}'")
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Comment{Value: content, Position: pos}, nil
}

func (p *Parser) parseTag() (ast.Node, error) {
	pos := p.astPos()
	trimLeft := p.tok.Type == lexer.LDelimTagTrim
	if err := p.advance(); err != nil {
		return nil, err
	}

	tag := &ast.Tag{Position: pos, TrimLeft: trimLeft}

	switch p.tok.Type {
	case lexer.IF:
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tag.Kind = ast.TagIf
		tag.Cond = cond
	case lexer.ELSIF:
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tag.Kind = ast.TagElsif
		tag.Cond = cond
	case lexer.ELSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		tag.Kind = ast.TagElse
	case lexer.ENDIF:
		if err := p.advance(); err != nil {
			return nil, err
		}
		tag.Kind = ast.TagEndIf
	case lexer.FOR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.IN); err != nil {
			return nil, err
		}
		coll, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tag.Kind = ast.TagFor
		tag.LoopVar = nameTok.Value
		tag.Coll = coll
	case lexer.ENDFOR:
		if err := p.advance(); err != nil {
			return nil, err
		}
		tag.Kind = ast.TagEndFor
	case lexer.ASSIGN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EQUALS); err != nil {
			return nil, err
		}
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		tag.Kind = ast.TagAssign
		tag.Name = nameTok.Value
		tag.Value = value
	default:
		return nil, p.syntaxErrorf("unknown tag %q", p.tok.Value)
	}

	switch p.tok.Type {
	case lexer.RDelimTag:
		tag.TrimRight = false
	case lexer.RDelimTagTrim:
		tag.TrimRight = true
	default:
		return nil, p.syntaxErrorf("expected '%%}' to close tag, got %s", p.tok.Type)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return tag, nil
}

// isWhitespace reports whether b is a trimmable whitespace byte: space,
// tab, newline, or carriage return.
func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func rtrim(s string) string {
	i := len(s)
	for i > 0 && isWhitespace(s[i-1]) {
		i--
	}
	return s[:i]
}

func ltrim(s string) string {
	i := 0
	for i < len(s) && isWhitespace(s[i]) {
		i++
	}
	return s[i:]
}

// applyTrim implements whitespace trim semantics on the flat node list,
// before block structuring: a trim_left delimiter right-trims the
// immediately preceding Text node; a trim_right delimiter left-trims the
// immediately following Text node. Trimming touches only adjacent Text
// nodes; non-text neighbours are unaffected. Running this pass twice on an
// already-trimmed list is a no-op, since rtrim/ltrim on already-trimmed
// text is idempotent.
func applyTrim(nodes []ast.Node) {
	for i, n := range nodes {
		trimLeft, trimRight := trimFlags(n)
		if trimLeft && i > 0 {
			if t, ok := nodes[i-1].(*ast.Text); ok {
				t.Value = rtrim(t.Value)
			}
		}
		if trimRight && i+1 < len(nodes) {
			if t, ok := nodes[i+1].(*ast.Text); ok {
				t.Value = ltrim(t.Value)
			}
		}
	}
}

func trimFlags(n ast.Node) (left, right bool) {
	switch t := n.(type) {
	case *ast.Interpolation:
		return t.TrimLeft, t.TrimRight
	case *ast.Tag:
		return t.TrimLeft, t.TrimRight
	default:
		return false, false
	}
}
