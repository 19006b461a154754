package shared

import "context"

// Terminal identifies an authenticated POS terminal for the current request.
type Terminal struct {
	ID         int64
	BranchCode string
	Label      string
}

type terminalContextKey struct{}

// ContextWithTerminal stores the terminal in context.
func ContextWithTerminal(ctx context.Context, t *Terminal) context.Context {
	return context.WithValue(ctx, terminalContextKey{}, t)
}

// TerminalFromContext extracts the terminal from context.
func TerminalFromContext(ctx context.Context) *Terminal {
	t, _ := ctx.Value(terminalContextKey{}).(*Terminal)
	return t
}
