package extraction

import "context"

// Backend turns a text chunk into structured payloads. For TypeAll a backend
// returns a Grouped result, otherwise a Single one.
type Backend interface {
	Name() string
	Model() string
	Extract(ctx context.Context, chunk string, extractionType Type, ec Context) (Result, error)
}

// TypeSplitter is implemented by backends that make one external call per
// extraction type. The Invoker paces and retries each returned type on its own.
type TypeSplitter interface {
	SplitTypes(extractionType Type) []Type
}
