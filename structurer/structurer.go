// Package structurer folds the flat, tag-at-a-time node sequence produced
// by the parser into nested Conditional and Loop nodes. It is a single
// stack-based pass: If/For tags push a frame, Elsif/Else rotate the frame's
// current branch, and EndIf/EndFor pop the frame and splice a structured
// node into its parent's body.
package structurer

import (
	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/lqerr"
)

type frameKind int

const (
	frameIf frameKind = iota
	frameFor
)

type frame struct {
	kind frameKind
	pos  ast.Position

	// if-frame state.
	branches []ast.Branch // completed If/Elsif branches
	curCond  ast.Expr     // condition of the branch currently accumulating; nil once in the else arm
	inElse   bool
	elseBody []ast.Node

	// for-frame state.
	loopVar  string
	loopColl ast.Expr

	// shared accumulator for whichever branch/body is currently open.
	curBody []ast.Node
}

func (f *frame) tagName() string {
	if f.kind == frameFor {
		return "for"
	}
	return "if"
}

// Structure folds flat into a tree of Text/Comment/Interpolation/Tag(Assign)/
// Conditional/Loop nodes. flat must be the output of the parser, in source
// order, with whitespace trimming already applied.
func Structure(flat []ast.Node) ([]ast.Node, error) {
	var root []ast.Node
	var stack []*frame

	appendNode := func(n ast.Node) {
		if len(stack) == 0 {
			root = append(root, n)
			return
		}
		top := stack[len(stack)-1]
		if top.kind == frameIf && top.inElse {
			top.elseBody = append(top.elseBody, n)
			return
		}
		top.curBody = append(top.curBody, n)
	}

	for _, n := range flat {
		tag, isTag := n.(*ast.Tag)
		if !isTag {
			appendNode(n)
			continue
		}

		switch tag.Kind {
		case ast.TagAssign:
			appendNode(tag)

		case ast.TagIf:
			stack = append(stack, &frame{kind: frameIf, pos: tag.Position, curCond: tag.Cond})

		case ast.TagElsif:
			top, err := topFrame(stack, frameIf, tag.Position, "elsif")
			if err != nil {
				return nil, err
			}
			if top.inElse {
				return nil, blockSyntaxError("elsif after else", tag.Position, "if")
			}
			top.branches = append(top.branches, ast.Branch{Cond: top.curCond, Body: top.curBody})
			top.curCond = tag.Cond
			top.curBody = nil

		case ast.TagElse:
			top, err := topFrame(stack, frameIf, tag.Position, "else")
			if err != nil {
				return nil, err
			}
			if top.inElse {
				return nil, blockSyntaxError("duplicate else", tag.Position, "if")
			}
			top.branches = append(top.branches, ast.Branch{Cond: top.curCond, Body: top.curBody})
			top.curCond = nil
			top.curBody = nil
			top.inElse = true

		case ast.TagEndIf:
			top, err := topFrame(stack, frameIf, tag.Position, "endif")
			if err != nil {
				return nil, err
			}
			if top.inElse {
				top.elseBody = append(top.elseBody, top.curBody...)
			} else {
				top.branches = append(top.branches, ast.Branch{Cond: top.curCond, Body: top.curBody})
			}
			stack = stack[:len(stack)-1]

			cond := &ast.Conditional{
				If:       top.branches[0],
				Elsif:    top.branches[1:],
				Position: top.pos,
			}
			if top.inElse {
				body := top.elseBody
				cond.Else = &ast.Branch{Body: body}
			}
			appendNode(cond)

		case ast.TagFor:
			stack = append(stack, &frame{kind: frameFor, pos: tag.Position, loopVar: tag.LoopVar, loopColl: tag.Coll})

		case ast.TagEndFor:
			top, err := topFrame(stack, frameFor, tag.Position, "endfor")
			if err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]
			appendNode(&ast.Loop{Var: top.loopVar, Coll: top.loopColl, Body: top.curBody, Position: top.pos})
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, blockSyntaxError("unclosed "+top.tagName()+" block", top.pos, top.tagName())
	}

	return root, nil
}

// topFrame returns the innermost open frame, erroring if there is none or
// its kind doesn't match what closer is expected to close.
func topFrame(stack []*frame, want frameKind, pos ast.Position, closer string) (*frame, error) {
	if len(stack) == 0 {
		return nil, blockSyntaxError(closer+" without matching opening tag", pos, "")
	}
	top := stack[len(stack)-1]
	if top.kind != want {
		return nil, blockSyntaxError(closer+" does not match innermost open "+top.tagName()+" block", pos, top.tagName())
	}
	return top, nil
}

func blockSyntaxError(message string, pos ast.Position, unclosed string) error {
	return &lqerr.SyntaxError{
		Message:  message,
		Pos:      lqerr.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset},
		Unclosed: unclosed,
	}
}
