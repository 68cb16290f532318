package worker

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadIDsFromFile(t *testing.T) {
	content := `# queries to validate
3
1

3
# trailing comment
2
`
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadIDsFromFile failed: %v", err)
	}

	want := []int64{3, 1, 2}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
}

func TestReadIDs_Invalid(t *testing.T) {
	_, err := ReadIDs(strings.NewReader("1\nabc\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected line 2 error, got %v", err)
	}
}

func TestReadIDsFromFile_Missing(t *testing.T) {
	if _, err := ReadIDsFromFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"1,2,3", []int64{1, 2, 3}, false},
		{"4-6, 5, 9", []int64{4, 5, 6, 9}, false},
		{"", nil, false},
		{"7-5", nil, true},
		{"x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseIDList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIDList(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseIDList(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
