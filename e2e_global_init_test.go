package minic_test

import "testing"

// TestExtendedGlobalInitialization is spec.md §8 scenario 6: globals
// folded from arithmetic constants, a logical expression, a negative
// literal, and &other_global address-of constants, verified at
// runtime by dereferencing the global pointers.
func TestExtendedGlobalInitialization(t *testing.T) {
	src := `
int a = 3;
int b = 4;
int sum = 3 + 4;
int neg = -5;
int truthy = 1 && 1;
int falsy = 1 && 0;
int *pa = &a;
int *pb = &b;

int main() {
    if (sum != 7) {
        return 1;
    }
    if (neg != -5) {
        return 2;
    }
    if (truthy != 1) {
        return 3;
    }
    if (falsy != 0) {
        return 4;
    }
    if (*pa != 3) {
        return 5;
    }
    if (*pb != 4) {
        return 6;
    }
    return 0;
}
`
	if got := runCode(t, src); got != 0 {
		t.Errorf("exit code = %d, want 0", got)
	}
}
