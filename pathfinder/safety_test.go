package pathfinder

import "testing"

func TestSafeJoinRejectsTraversal(t *testing.T) {
	base := t.TempDir()

	rejects := []string{
		"/etc/passwd",
		"../x",
		"a/../../b",
		"a/b/../../../c",
	}
	for _, rel := range rejects {
		if _, err := SafeJoin(base, rel); err == nil {
			t.Errorf("SafeJoin(%q) = nil error, want rejection", rel)
		}
	}
}

func TestSafeJoinAcceptsOrdinaryPaths(t *testing.T) {
	base := t.TempDir()

	accepts := []string{"a/b", "a/b/c.txt"}
	for _, rel := range accepts {
		if _, err := SafeJoin(base, rel); err != nil {
			t.Errorf("SafeJoin(%q) = %v, want nil", rel, err)
		}
	}
}
