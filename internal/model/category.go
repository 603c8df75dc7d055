package model

import (
	"fmt"
	"strings"
)

// Category identifies one of the telemetry domains the daemon collects.
type Category string

const (
	CategorySystem  Category = "system"
	CategoryCPU     Category = "cpu"
	CategoryMemory  Category = "memory"
	CategoryGPU     Category = "gpu"
	CategoryNetwork Category = "network"
	CategoryStorage Category = "storage"
	CategoryProcess Category = "process"

	// CategoryAll is accepted on Subscribe only; the engine expands it into
	// one independent subscription per registered category.
	CategoryAll Category = "all"
)

// Categories lists every concrete category in a stable order.
// CategoryAll is deliberately absent: it is request sugar, not a domain.
func Categories() []Category {
	return []Category{
		CategorySystem,
		CategoryCPU,
		CategoryMemory,
		CategoryGPU,
		CategoryNetwork,
		CategoryStorage,
		CategoryProcess,
	}
}

// ParseCategory converts a wire/config string into a Category.
// It accepts CategoryAll; callers that cannot handle the expansion must
// reject it themselves.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategorySystem, CategoryCPU, CategoryMemory, CategoryGPU,
		CategoryNetwork, CategoryStorage, CategoryProcess, CategoryAll:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category: %q", s)
	}
}

func (c Category) String() string { return string(c) }

// Valid reports whether c is a concrete collectable category.
func (c Category) Valid() bool {
	switch c {
	case CategorySystem, CategoryCPU, CategoryMemory, CategoryGPU,
		CategoryNetwork, CategoryStorage, CategoryProcess:
		return true
	}
	return false
}
