package mapping

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoDateColumn is matched by NoDateColumnError.
	ErrNoDateColumn = errors.New("no date column")
	// ErrNoMetricsFound is matched by NoMetricsFoundError.
	ErrNoMetricsFound = errors.New("no metrics found")
)

// NoDateColumnError reports that no column could serve as the period column.
type NoDateColumnError struct {
	Document Document
	Wanted   string // explicit column name, when one was given
	Columns  []string
}

func (e *NoDateColumnError) Error() string {
	if e.Wanted != "" {
		return fmt.Sprintf("%s: date column %q not found among [%s]", e.Document, e.Wanted, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: %v among [%s]", e.Document, ErrNoDateColumn, strings.Join(e.Columns, ", "))
}

func (e *NoDateColumnError) Is(target error) bool { return target == ErrNoDateColumn }

// NoMetricsFoundError reports that the validation gate rejected the mapped series.
type NoMetricsFoundError struct {
	Document   Document
	Vocabulary Vocabulary
	Missing    []string
	Columns    []string
}

func (e *NoMetricsFoundError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing metrics [%s] (vocabulary %s, columns [%s])",
			e.Document, strings.Join(e.Missing, ", "), e.Vocabulary, strings.Join(e.Columns, ", "))
	}
	return fmt.Sprintf("%s: %v (vocabulary %s, columns [%s])",
		e.Document, ErrNoMetricsFound, e.Vocabulary, strings.Join(e.Columns, ", "))
}

func (e *NoMetricsFoundError) Is(target error) bool { return target == ErrNoMetricsFound }
