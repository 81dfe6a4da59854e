//go:build tools

package tools

// Keeps the mock generator pinned for the go:generate directives.
import (
	_ "go.uber.org/mock/mockgen"
)
