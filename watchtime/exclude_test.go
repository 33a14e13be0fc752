package watchtime

import "testing"

func TestExcluded(t *testing.T) {
	owner := "riddlerrr"
	bot := "riddlerrrbot"
	ignore := []string{"regressz", "markzynk"}

	tests := []struct {
		login string
		want  bool
	}{
		{"riddlerrr", true},
		{"Riddlerrr", true},
		{"RIDDLERRR", true},
		{"riddlerrrbot", true},
		{"RiddlerrrBOT", true},
		{"regressz", true},
		{"Regressz", true},
		{"MarkZynk", true},
		{"alice", false},
		{"riddlerr", false},   // prefix of owner, still credited
		{"riddlerrrr", false}, // owner plus a letter, still credited
		{"", false},
	}
	for _, tt := range tests {
		if got := Excluded(tt.login, owner, bot, ignore); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.login, got, tt.want)
		}
	}
}

func TestExcludedEmptyIgnoreList(t *testing.T) {
	if Excluded("viewer", "owner", "bot", nil) {
		t.Errorf("viewer should not be excluded with empty ignore list")
	}
	if !Excluded("owner", "owner", "bot", nil) {
		t.Errorf("owner must always be excluded")
	}
}
