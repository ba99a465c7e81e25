package validate

import "testing"

func TestAlias(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "build", false},
		{"with separators", "ci_worker-2.east", false},
		{"single char", "a", false},
		{"empty", "", true},
		{"leading dot", ".hidden", true},
		{"shell metacharacters", "a;rm -rf", true},
		{"space", "two words", true},
		{"too long", "a123456789012345678901234567890123456789012345678901234567890123456789", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Alias(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Alias(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestUser(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "deploy", false},
		{"underscore prefix", "_svc", false},
		{"with digits", "user2", false},
		{"empty", "", true},
		{"uppercase", "Deploy", true},
		{"injection", "root;id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := User(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("User(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestPort(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"standard", "22", 22, false},
		{"high", "65535", 65535, false},
		{"zero", "0", 0, true},
		{"negative", "-1", 0, true},
		{"too large", "65536", 0, true},
		{"not a number", "ssh", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Port(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Port(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Port(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"typical", "300", 300, false},
		{"one", "1", 1, false},
		{"zero", "0", 0, true},
		{"negative", "-5", 0, true},
		{"not a number", "many", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Lines(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Lines(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Lines(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
