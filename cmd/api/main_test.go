package main

import (
	"context"
	"testing"
)

type stubConfigCounter struct{ n int64 }

func (s stubConfigCounter) CountByTemplate(context.Context, string) (int64, error) {
	return s.n, nil
}

type stubInstanceCounter struct{ n int64 }

func (s stubInstanceCounter) CountInstancesByTemplate(context.Context, string) (int64, error) {
	return s.n, nil
}

func TestTemplateReferencedChecksConfigsAndInstances(t *testing.T) {
	tests := []struct {
		name      string
		configs   int64
		instances int64
		want      bool
	}{
		{"unreferenced", 0, 0, false},
		{"config reference", 1, 0, true},
		{"instance reference after config deleted", 0, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &templateRefChecker{
				configs:   stubConfigCounter{tt.configs},
				instances: stubInstanceCounter{tt.instances},
			}
			got, err := checker.TemplateReferenced(context.Background(), "tmpl-1")
			if err != nil {
				t.Fatalf("TemplateReferenced: %v", err)
			}
			if got != tt.want {
				t.Fatalf("TemplateReferenced = %v, want %v", got, tt.want)
			}
		})
	}
}
