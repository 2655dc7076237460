package minic_test

import "testing"

// TestPointerComprehensive is spec.md §8 scenario 3: write-through a
// pointer, double indirection, and a swap via two parameters passed
// by address — checks that x ends up 70 after the full chain.
func TestPointerComprehensive(t *testing.T) {
	src := `
void swap(int *a, int *b) {
    int tmp;
    tmp = *a;
    *a = *b;
    *b = tmp;
}

int main() {
    int x;
    x = 10;
    int *p;
    p = &x;
    *p = 20;

    int **pp;
    pp = &p;
    **pp = 30;

    int y;
    y = 40;
    swap(&x, &y);
    *p = *p + 30;

    if (x != 70) {
        return 1;
    }
    return 0;
}
`
	if got := runCode(t, src); got != 0 {
		t.Errorf("exit code = %d, want 0", got)
	}
}
