package messaging

import "fmt"

type answerKind uint8

const (
	answerContinue answerKind = iota
	answerBlock
	answerPassToTarget
	answerResult
)

// Answer is what a callback tells the OS to do with the event it just saw.
// The zero value is Continue.
type Answer struct {
	kind  answerKind
	value uintptr
}

var (
	// Continue hands the event to the OS default path: the next hook in
	// the chain, DefWindowProc, or the loop's translate/dispatch step.
	Continue = Answer{}
	// Block swallows the event entirely.
	Block = Answer{kind: answerBlock}
	// PassToTarget delivers a hooked event to its target window but skips
	// the rest of the hook chain. Elsewhere it behaves like Block.
	PassToTarget = Answer{kind: answerPassToTarget}
)

// Result answers with a literal LRESULT.
func Result(v uintptr) Answer {
	return Answer{kind: answerResult, value: v}
}

// Handled reports whether the answer stops default processing.
func (a Answer) Handled() bool {
	return a.kind != answerContinue
}

// HookResult maps the answer to the return value of a hook procedure. next is
// only called for Continue.
func (a Answer) HookResult(next func() uintptr) uintptr {
	switch a.kind {
	case answerBlock:
		return 1
	case answerPassToTarget:
		return 0
	case answerResult:
		return a.value
	default:
		return next()
	}
}

// WindowResult maps the answer to the return value of a window procedure.
// def is only called for Continue.
func (a Answer) WindowResult(def func() uintptr) uintptr {
	switch a.kind {
	case answerBlock, answerPassToTarget:
		return 0
	case answerResult:
		return a.value
	default:
		return def()
	}
}

func (a Answer) String() string {
	switch a.kind {
	case answerBlock:
		return "Block"
	case answerPassToTarget:
		return "PassToTarget"
	case answerResult:
		return fmt.Sprintf("Result(%#x)", a.value)
	default:
		return "Continue"
	}
}
