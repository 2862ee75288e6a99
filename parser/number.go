package parser

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/lqerr"
)

// parseNumberToken converts a NUMBER token's raw text into a Literal,
// applying sign (1 or -1): a decimal point or exponent makes the literal a
// Float, otherwise an Int.
func parseNumberToken(text string, sign int64, pos ast.Position) (ast.Expr, error) {
	isFloat := strings.ContainsAny(text, ".eE")
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &lqerr.SyntaxError{Message: "malformed number literal " + text, Pos: toLQErrPos(pos)}
		}
		return &ast.Literal{Kind: ast.LiteralFloat, Float: f * float64(sign), Position: pos}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, &lqerr.SyntaxError{Message: "malformed number literal " + text, Pos: toLQErrPos(pos)}
	}
	return &ast.Literal{Kind: ast.LiteralInt, Int: i * sign, Position: pos}, nil
}

func toLQErrPos(p ast.Position) lqerr.Position {
	return lqerr.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}
