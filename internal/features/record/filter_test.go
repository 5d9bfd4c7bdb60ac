package record

import (
	"reflect"
	"testing"

	common_models "go-reporting/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompileFilters(t *testing.T) {
	tests := []struct {
		name    string
		filters []common_models.Filter
		want    bson.M
		wantErr bool
	}{
		{
			name: "Simple Equality",
			filters: []common_models.Filter{
				{Field: "status", Operator: "eq", Value: "passed"},
			},
			want: bson.M{"status": "passed"},
		},
		{
			name: "Greater Than",
			filters: []common_models.Filter{
				{Field: "score", Operator: "gt", Value: 80.0}, // float64 because json unmarshal usually gives float64
			},
			want: bson.M{"score": bson.M{"$gt": 80.0}},
		},
		{
			name: "Not Equal",
			filters: []common_models.Filter{
				{Field: "severity", Operator: "ne", Value: "low"},
			},
			want: bson.M{"severity": bson.M{"$ne": "low"}},
		},
		{
			name: "Contains",
			filters: []common_models.Filter{
				{Field: "url", Operator: "contains", Value: "example"},
			},
			want: bson.M{"url": bson.M{"$regex": primitive.Regex{Pattern: "example", Options: "i"}}},
		},
		{
			name: "Contains Escapes Regex Specials",
			filters: []common_models.Filter{
				{Field: "url", Operator: "contains", Value: "example.com"},
			},
			want: bson.M{"url": bson.M{"$regex": primitive.Regex{Pattern: `example\.com`, Options: "i"}}},
		},
		{
			name: "Starts With",
			filters: []common_models.Filter{
				{Field: "name", Operator: "starts_with", Value: "daily"},
			},
			want: bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: "^daily", Options: "i"}}},
		},
		{
			name: "In List",
			filters: []common_models.Filter{
				{Field: "status", Operator: "in", Value: []interface{}{"passed", "failed"}},
			},
			want: bson.M{"status": bson.M{"$in": []interface{}{"passed", "failed"}}},
		},
		{
			name: "Multiple Filters Combine",
			filters: []common_models.Filter{
				{Field: "status", Operator: "eq", Value: "failed"},
				{Field: "score", Operator: "lte", Value: 50.0},
			},
			want: bson.M{"status": "failed", "score": bson.M{"$lte": 50.0}},
		},
		{
			name: "Unknown Operator",
			filters: []common_models.Filter{
				{Field: "status", Operator: "regex", Value: ".*"},
			},
			wantErr: true,
		},
		{
			name: "Missing Field",
			filters: []common_models.Filter{
				{Field: "", Operator: "eq", Value: "x"},
			},
			wantErr: true,
		},
		{
			name: "In Requires List",
			filters: []common_models.Filter{
				{Field: "status", Operator: "in", Value: "passed"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompileFilters(tt.filters)
			if (err != nil) != tt.wantErr {
				t.Errorf("CompileFilters() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CompileFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}
