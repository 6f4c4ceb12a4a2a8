package watcher

import (
	"fmt"
	"testing"
	"time"
)

func BenchmarkDebouncerFlush(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("events-%d", size), func(b *testing.B) {
			events := make([]ChangeEvent, size)
			for i := range events {
				// every path seen twice
				events[i] = ChangeEvent{Type: EventTypeModified, Path: fmt.Sprintf("views/page_%d.html", i/2)}
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				d := &Debouncer{
					delay:   time.Hour,
					output:  make(chan []ChangeEvent, 1),
					pending: append([]ChangeEvent(nil), events...),
				}
				d.flush()
				<-d.output
			}
		})
	}
}

func BenchmarkExcluded(b *testing.B) {
	patterns := []string{"node_modules", ".git", "*.bak", "vendor"}
	path := "site/themes/default/views/partials/header.phtml"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Excluded(path, patterns)
	}
}
