package minic_test

import "testing"

// TestGlobalPointerRebinding is spec.md §8 scenario 5: a global
// pointer rebound between two other globals, verifying that each
// write through it reaches the currently-targeted global.
func TestGlobalPointerRebinding(t *testing.T) {
	src := `
int x;
int y;
int *p;

int main() {
    p = &y;
    *p = 5;
    p = &x;
    *p = 9;

    if (x != 9) {
        return 1;
    }
    if (y != 5) {
        return 2;
    }
    return 0;
}
`
	if got := runCode(t, src); got != 0 {
		t.Errorf("exit code = %d, want 0", got)
	}
}
