package minic_test

import "testing"

// TestRecursiveAlgorithms is spec.md §8 scenario 2: factorial,
// fibonacci, and a recursive summation, exercising CALL/RET across
// self-recursive functions.
func TestRecursiveAlgorithms(t *testing.T) {
	src := `
int factorial(int n) {
    if (n <= 1) {
        return 1;
    }
    return n * factorial(n - 1);
}

int fibonacci(int n) {
    if (n <= 1) {
        return n;
    }
    return fibonacci(n - 1) + fibonacci(n - 2);
}

int sum_recursive(int n) {
    if (n <= 0) {
        return 0;
    }
    return n + sum_recursive(n - 1);
}

int main() {
    return factorial(5) + fibonacci(10) + sum_recursive(10);
}
`
	if got := runCode(t, src); got != 230 {
		t.Errorf("exit code = %d, want 230", got)
	}
}
